package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/algomesh/algomsg/crypto"
	"github.com/algomesh/algomsg/protocol"
)

// ErrUnexpectedSender is returned by Recv when an envelope carries a valid
// signature from someone other than the configured server.
var ErrUnexpectedSender = errors.New("client: envelope signed by unexpected sender")

// DefaultExecutorSize is the worker pool size used when no Executor is
// configured.
const DefaultExecutorSize = 16

// Config describes a client.
type Config struct {
	// Key is the client's private key.
	Key *crypto.PrivateKey
	// Server holds the server's signing and encryption addresses. Outgoing
	// messages are encrypted to the encryption address; incoming envelopes
	// must be signed by the signing address.
	Server crypto.PublicKeys
	// Transport carries envelope bytes. Required.
	Transport Transport
	// Executor runs the send pipeline. When nil the client creates its own
	// pool of DefaultExecutorSize workers and releases it on Close.
	Executor Executor
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Client sends and receives type-tagged messages over a secured channel to
// one server. Safe for concurrent use by multiple goroutines, though
// concurrent Sends are unordered relative to each other.
type Client struct {
	key       *crypto.PrivateKey
	server    crypto.PublicKeys
	transport Transport
	executor  Executor
	log       *slog.Logger

	ownsExecutor bool
	closeOnce    sync.Once
	closeErr     error
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.Key == nil {
		return nil, errors.New("client: key is required")
	}
	if cfg.Server.Signing == "" || cfg.Server.Encryption == "" {
		return nil, errors.New("client: server addresses are required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("client: transport is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		key:       cfg.Key,
		server:    cfg.Server,
		transport: cfg.Transport,
		executor:  cfg.Executor,
		log:       log.With("component", "client"),
	}
	if c.executor == nil {
		executor, err := NewPoolExecutor(DefaultExecutorSize)
		if err != nil {
			return nil, fmt.Errorf("client: create executor: %w", err)
		}
		c.executor = executor
		c.ownsExecutor = true
	}
	return c, nil
}

// Addresses returns the client's own public addresses, which the server uses
// to reply.
func (c *Client) Addresses() crypto.PublicKeys {
	return c.key.PublicKeys()
}

// Send encrypts msg to the server, signs it, and transmits the envelope. The
// pipeline runs on the executor; Send blocks until it completes or ctx is
// done. Cancellation before the pipeline transmits suppresses the envelope;
// once the transport write has begun the envelope may still reach the
// server even though Send returns the context error.
func (c *Client) Send(ctx context.Context, msg *protocol.Message) error {
	done := make(chan error, 1)
	err := c.executor.Submit(func() {
		done <- c.send(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("client: submit send: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, msg *protocol.Message) error {
	data, err := protocol.PackSecureMessage(c.key, msg, c.server.Encryption)
	if err != nil {
		return fmt.Errorf("client: pack: %w", err)
	}
	// The caller may have given up while this task waited for a worker.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.transport.Send(ctx, data); err != nil {
		return fmt.Errorf("client: send: %w", err)
	}
	return nil
}

// Recv blocks until the next message from the server arrives, then verifies
// and decrypts it. An envelope that fails signature verification, or that
// was signed by anyone other than the server, is rejected without being
// decrypted.
func (c *Client) Recv(ctx context.Context) (*protocol.Message, error) {
	data, err := c.transport.Recv(ctx)
	if err != nil {
		return nil, err
	}

	envelope, err := protocol.UnpackSignedMessage(data)
	if err != nil {
		return nil, err
	}
	if envelope.Sender != c.server.Signing {
		c.log.Warn("rejected envelope", "signer", envelope.Sender)
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedSender, envelope.Sender)
	}
	return protocol.OpenSignedMessage(c.key, envelope)
}

// Close tears down the transport and, if the client owns its executor,
// releases it. Close is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.transport.Close()
		if c.ownsExecutor {
			c.executor.Release()
		}
	})
	return c.closeErr
}
