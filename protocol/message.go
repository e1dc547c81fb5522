package protocol

import (
	"bytes"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// MessageType is an opaque 16-byte discriminator (a ULID) identifying the
// logical type of a message payload. Receivers dispatch on it after
// decryption.
type MessageType ulid.ULID

// MessageTypeFromString parses the canonical ULID string form.
func MessageTypeFromString(s string) (MessageType, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return MessageType{}, fmt.Errorf("invalid message type: %w", err)
	}
	return MessageType(id), nil
}

// String returns the canonical ULID string form.
func (t MessageType) String() string {
	return ulid.ULID(t).String()
}

// MessageID uniquely identifies a single message instance.
type MessageID ulid.ULID

// String returns the canonical ULID string form.
func (id MessageID) String() string {
	return ulid.ULID(id).String()
}

// Message wraps an application payload with its message type. This is the
// plaintext that gets encrypted into the wire envelope.
type Message struct {
	ID   MessageID
	Type MessageType
	Data []byte
}

// NewMessage creates a message with a fresh ID.
func NewMessage(msgType MessageType, data []byte) *Message {
	return &Message{
		ID:   MessageID(ulid.Make()),
		Type: msgType,
		Data: data,
	}
}

// Pack serializes the message as a msgpack (id, type, data) tuple.
func (m *Message) Pack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeArrayLen(3); err != nil {
		return nil, err
	}
	id := ulid.ULID(m.ID)
	if err := enc.EncodeBytes(id[:]); err != nil {
		return nil, err
	}
	msgType := ulid.ULID(m.Type)
	if err := enc.EncodeBytes(msgType[:]); err != nil {
		return nil, err
	}
	if err := enc.EncodeBytes(m.Data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnpackMessage parses a packed message tuple.
func UnpackMessage(data []byte) (*Message, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if n != 3 {
		return nil, fmt.Errorf("%w: expected 3 fields, got %d", ErrInvalidMessage, n)
	}

	id, err := decodeULID(dec, "id")
	if err != nil {
		return nil, err
	}
	msgType, err := decodeULID(dec, "type")
	if err != nil {
		return nil, err
	}
	payload, err := dec.DecodeBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrInvalidMessage, err)
	}

	return &Message{
		ID:   MessageID(id),
		Type: MessageType(msgType),
		Data: payload,
	}, nil
}

func decodeULID(dec *msgpack.Decoder, field string) (ulid.ULID, error) {
	raw, err := dec.DecodeBytes()
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, field, err)
	}
	if len(raw) != 16 {
		return ulid.ULID{}, fmt.Errorf("%w: %s: expected 16 bytes, got %d", ErrInvalidMessage, field, len(raw))
	}
	var id ulid.ULID
	copy(id[:], raw)
	return id, nil
}
