package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/algomesh/algomsg/crypto"
	"github.com/algomesh/algomsg/protocol"
)

// Handler processes one decrypted message. Handlers run concurrently; shared
// state needs its own synchronization.
type Handler func(ctx context.Context, mc *MessageContext) error

// MessageContext carries everything a handler needs to process a message and
// reply to its sender.
type MessageContext struct {
	// Client holds the sender's addresses as authenticated by the envelope:
	// the signing address that verified and the encryption address the
	// payload was sealed with.
	Client crypto.PublicKeys
	// Msg is the decrypted, type-tagged message.
	Msg *protocol.Message

	key     *crypto.PrivateKey
	session *session
}

// Reply encrypts msg to the client and sends it over the client's
// connection, signed by the server.
func (mc *MessageContext) Reply(ctx context.Context, msg *protocol.Message) error {
	data, err := protocol.PackSecureMessage(mc.key, msg, mc.Client.Encryption)
	if err != nil {
		return fmt.Errorf("pack reply: %w", err)
	}
	return mc.session.send(data)
}

// Mux routes messages to handlers by message type.
type Mux struct {
	mu       sync.RWMutex
	handlers map[protocol.MessageType]Handler
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{handlers: make(map[protocol.MessageType]Handler)}
}

// Register binds a handler to a message type. Registering the same type
// twice is an error.
func (m *Mux) Register(typ protocol.MessageType, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for message type %s", typ)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handlers[typ]; ok {
		return fmt.Errorf("handler already registered for message type %s", typ)
	}
	m.handlers[typ] = handler
	return nil
}

// Handler looks up the handler for a message type.
func (m *Mux) Handler(typ protocol.MessageType) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handler, ok := m.handlers[typ]
	return handler, ok
}

// Types returns the registered message types.
func (m *Mux) Types() []protocol.MessageType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]protocol.MessageType, 0, len(m.handlers))
	for typ := range m.handlers {
		types = append(types, typ)
	}
	return types
}
