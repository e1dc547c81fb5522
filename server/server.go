package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/algomesh/algomsg/crypto"
	"github.com/algomesh/algomsg/health"
	"github.com/algomesh/algomsg/protocol"
)

// DefaultMaxConcurrentHandlers bounds handler goroutines per server.
const DefaultMaxConcurrentHandlers = 64

const shutdownTimeout = 5 * time.Second

// Config describes a websocket server.
type Config struct {
	// Key is the server's private key. Clients address encrypted messages
	// to its encryption address and verify replies against its signing
	// address.
	Key *crypto.PrivateKey
	// ListenAddr is the TCP listen address, e.g. ":8080". Use ":0" to pick
	// a free port.
	ListenAddr string
	// Mux routes decrypted messages to handlers. Required.
	Mux *Mux
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Health drives the readiness probe. Optional; without it readyz
	// always reports ready.
	Health *health.Registry
	// Metrics registers prometheus collectors and enables the /metrics
	// endpoint. Optional.
	Metrics prometheus.Gatherer
	// MaxConcurrentHandlers caps in-flight handler goroutines across all
	// connections. Defaults to DefaultMaxConcurrentHandlers.
	MaxConcurrentHandlers int
}

// WebsocketServer accepts client connections, verifies and decrypts their
// envelopes, and dispatches messages to handlers. It implements the
// services Startable interface.
type WebsocketServer struct {
	key     *crypto.PrivateKey
	addr    string
	mux     *Mux
	log     *slog.Logger
	health  *health.Registry
	metrics *Metrics
	gather  prometheus.Gatherer

	upgrader websocket.Upgrader
	sem      chan struct{}

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	sessions   map[*session]struct{}
	ctx        context.Context
	cancel     context.CancelFunc

	conns sync.WaitGroup
}

// New creates a websocket server.
func New(cfg Config) (*WebsocketServer, error) {
	if cfg.Key == nil {
		return nil, errors.New("server: key is required")
	}
	if cfg.Mux == nil {
		return nil, errors.New("server: mux is required")
	}
	if cfg.ListenAddr == "" {
		return nil, errors.New("server: listen address is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	maxHandlers := cfg.MaxConcurrentHandlers
	if maxHandlers <= 0 {
		maxHandlers = DefaultMaxConcurrentHandlers
	}

	s := &WebsocketServer{
		key:    cfg.Key,
		addr:   cfg.ListenAddr,
		mux:    cfg.Mux,
		log:    log.With("component", "server"),
		health: cfg.Health,
		gather: cfg.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sem:      make(chan struct{}, maxHandlers),
		sessions: make(map[*session]struct{}),
	}
	if reg, ok := cfg.Metrics.(prometheus.Registerer); ok {
		metrics, err := NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("server: register metrics: %w", err)
		}
		s.metrics = metrics
	}
	return s, nil
}

// PublicKeys returns the server's public addresses for client configuration.
func (s *WebsocketServer) PublicKeys() crypto.PublicKeys {
	return s.key.PublicKeys()
}

// Addr returns the bound listen address. Only valid after Start.
func (s *WebsocketServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener and begins serving. It returns once the server
// is accepting connections.
func (s *WebsocketServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.httpServer = &http.Server{Handler: s.router()}
	httpServer := s.httpServer
	s.mu.Unlock()

	s.log.Info("listening", "addr", listener.Addr())
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve", "err", err)
		}
	}()
	return nil
}

// Stop closes all client connections and shuts the listener down. Safe to
// call repeatedly and before a successful Start.
func (s *WebsocketServer) Stop() error {
	s.mu.Lock()
	httpServer := s.httpServer
	cancel := s.cancel
	s.httpServer = nil
	s.cancel = nil
	s.ctx = nil
	s.listener = nil
	open := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// Websocket connections are hijacked, so Shutdown does not wait for
	// them. Close them explicitly and wait for their read loops to exit.
	for _, sess := range open {
		sess.close()
	}

	var err error
	if httpServer != nil {
		ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		err = httpServer.Shutdown(ctx)
	}
	s.conns.Wait()
	return err
}

func (s *WebsocketServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReadyz)
	if s.gather != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	}
	r.Get("/ws", s.handleWS)
	return r
}

func (s *WebsocketServer) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if s.health != nil && !s.health.IsHealthy() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *WebsocketServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	sess := &session{conn: conn}
	s.mu.Lock()
	if s.ctx == nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	ctx := s.ctx
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	s.conns.Add(1)
	go func() {
		defer s.conns.Done()
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sess)
			s.mu.Unlock()
			sess.close()
		}()
		s.serveConn(ctx, sess)
	}()
}

// serveConn is the per-connection read loop: parse, verify, decrypt,
// dispatch. Malformed or unverifiable envelopes are dropped without killing
// the connection; the client may be buggy or malicious but the transport is
// still good.
func (s *WebsocketServer) serveConn(ctx context.Context, sess *session) {
	log := s.log.With("remote", sess.conn.RemoteAddr())
	log.Info("client connected")
	s.metrics.connOpened()
	defer s.metrics.connClosed()
	defer log.Info("client disconnected")

	for {
		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read", "err", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		envelope, err := protocol.UnpackSignedMessage(data)
		if err != nil {
			log.Warn("invalid envelope", "err", err)
			s.metrics.reject("invalid_envelope")
			continue
		}
		if !envelope.Verify() {
			log.Warn("signature verification failed", "signer", envelope.Sender)
			s.metrics.reject("bad_signature")
			continue
		}
		plaintext, err := envelope.Encrypted.Decrypt(s.key)
		if err != nil {
			log.Warn("decryption failed", "sender", envelope.Encrypted.Sender, "err", err)
			s.metrics.reject("decryption_failed")
			continue
		}
		msg, err := protocol.UnpackMessage(plaintext)
		if err != nil {
			log.Warn("invalid message", "err", err)
			s.metrics.reject("invalid_message")
			continue
		}

		handler, ok := s.mux.Handler(msg.Type)
		if !ok {
			log.Warn("unsupported message type", "type", msg.Type)
			s.metrics.reject("unsupported_type")
			continue
		}

		mc := &MessageContext{
			Client: crypto.PublicKeys{
				Signing:    envelope.Sender,
				Encryption: envelope.Encrypted.Sender,
			},
			Msg:     msg,
			key:     s.key,
			session: sess,
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		s.metrics.dispatched(msg.Type.String())
		go func() {
			defer func() { <-s.sem }()
			if err := handler(ctx, mc); err != nil {
				log.Error("handler failed", "type", mc.Msg.Type, "msg_id", mc.Msg.ID, "err", err)
				s.metrics.handlerError()
			}
		}()
	}
}

// session serializes writes to one client connection.
type session struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *session) send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		deadline := time.Now().Add(time.Second)
		s.writeMu.Lock()
		s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		s.writeMu.Unlock()
		s.conn.Close()
	})
}
