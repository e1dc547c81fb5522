// Package testutil provides shared test helpers: deterministic identities
// and an in-memory transport pair for exercising the client and server
// without a network.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/algomesh/algomsg/crypto"
)

// GenerateKey creates a fresh private key, failing the test on error.
func GenerateKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

// ErrPipeClosed is returned by pipe operations after either end closed.
var ErrPipeClosed = errors.New("testutil: pipe closed")

// PipeTransport is one end of an in-memory duplex byte pipe. It satisfies
// the client Transport interface.
type PipeTransport struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   *sync.Once
}

// TransportPipe returns two connected transports: what one end sends, the
// other receives. Closing either end fails pending operations on both.
func TransportPipe() (*PipeTransport, *PipeTransport) {
	aToB := make(chan []byte, 16)
	bToA := make(chan []byte, 16)
	closed := make(chan struct{})
	once := &sync.Once{}

	a := &PipeTransport{in: bToA, out: aToB, closed: closed, once: once}
	b := &PipeTransport{in: aToB, out: bToA, closed: closed, once: once}
	return a, b
}

// Send delivers data to the peer end.
func (p *PipeTransport) Send(ctx context.Context, data []byte) error {
	select {
	case p.out <- data:
		return nil
	case <-p.closed:
		return ErrPipeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks for the next payload from the peer end.
func (p *PipeTransport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	case <-p.closed:
		return nil, ErrPipeClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down both ends. Idempotent.
func (p *PipeTransport) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
