package server_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/algomesh/algomsg/client"
	"github.com/algomesh/algomsg/health"
	"github.com/algomesh/algomsg/protocol"
	"github.com/algomesh/algomsg/server"
	"github.com/algomesh/algomsg/services"
	"github.com/algomesh/algomsg/testutil"
)

const echoType = "01GVGS7ZK6WE9C3TDRBTVVAJ3J"

func mustMessageType(t *testing.T, s string) protocol.MessageType {
	t.Helper()
	typ, err := protocol.MessageTypeFromString(s)
	require.NoError(t, err)
	return typ
}

func startEchoServer(t *testing.T, opts ...func(*server.Config)) *server.WebsocketServer {
	t.Helper()

	mux := server.NewMux()
	err := mux.Register(mustMessageType(t, echoType), func(ctx context.Context, mc *server.MessageContext) error {
		return mc.Reply(ctx, protocol.NewMessage(mc.Msg.Type, mc.Msg.Data))
	})
	require.NoError(t, err)

	cfg := server.Config{
		Key:        testutil.GenerateKey(t),
		ListenAddr: "127.0.0.1:0",
		Mux:        mux,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := server.New(cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func dialClient(t *testing.T, srv *server.WebsocketServer) *client.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, err := client.DialWebsocket(ctx, fmt.Sprintf("ws://%s/ws", srv.Addr()))
	require.NoError(t, err)

	c, err := client.New(client.Config{
		Key:       testutil.GenerateKey(t),
		Server:    srv.PublicKeys(),
		Transport: transport,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestServerEcho(t *testing.T) {
	srv := startEchoServer(t)
	c := dialClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	request := protocol.NewMessage(mustMessageType(t, echoType), []byte("hello"))
	require.NoError(t, c.Send(ctx, request))

	reply, err := c.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), reply.Data)
	require.Equal(t, request.Type, reply.Type)
}

func TestServerSurvivesUnsupportedType(t *testing.T) {
	srv := startEchoServer(t)
	c := dialClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Unknown types are dropped; the connection keeps working.
	unknown := protocol.NewMessage(mustMessageType(t, "01GVH0FTVZJNMC6R7SHBHBM6C5"), []byte("?"))
	require.NoError(t, c.Send(ctx, unknown))

	request := protocol.NewMessage(mustMessageType(t, echoType), []byte("still here"))
	require.NoError(t, c.Send(ctx, request))

	reply, err := c.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("still here"), reply.Data)
}

func TestServerConcurrentClients(t *testing.T) {
	srv := startEchoServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		c := dialClient(t, srv)
		payload := []byte(fmt.Sprintf("client-%d", i))
		require.NoError(t, c.Send(ctx, protocol.NewMessage(mustMessageType(t, echoType), payload)))

		reply, err := c.Recv(ctx)
		require.NoError(t, err)
		require.Equal(t, payload, reply.Data)
	}
}

func TestServerProbesAndMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()

	failing, err := health.NewCheck(health.Config{Name: "db"}, func(context.Context) health.Outcome {
		return health.Failed(errors.New("down"))
	})
	require.NoError(t, err)
	registry, err := health.NewRegistry([]*health.Check{failing})
	require.NoError(t, err)
	defer registry.Close()

	srv := startEchoServer(t, func(cfg *server.Config) {
		cfg.Health = registry
		cfg.Metrics = promReg
	})

	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The check has not run yet, so the server reports ready.
	resp, err = http.Get(base + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	registry.RunAll(context.Background())
	resp, err = http.Get(base + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "server_active_connections")
}

func TestServerAsManagedService(t *testing.T) {
	mux := server.NewMux()
	require.NoError(t, mux.Register(mustMessageType(t, echoType), func(ctx context.Context, mc *server.MessageContext) error {
		return mc.Reply(ctx, protocol.NewMessage(mc.Msg.Type, mc.Msg.Data))
	}))

	srv, err := server.New(server.Config{
		Key:        testutil.GenerateKey(t),
		ListenAddr: "127.0.0.1:0",
		Mux:        mux,
	})
	require.NoError(t, err)

	svc, err := services.NewService(services.Config{Name: "messaging"}, srv)
	require.NoError(t, err)

	require.NoError(t, svc.Start())
	require.NoError(t, svc.AwaitRunning(time.Second))

	c := dialClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Send(ctx, protocol.NewMessage(mustMessageType(t, echoType), []byte("ping"))))
	reply, err := c.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), reply.Data)

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.AwaitStopped(time.Second))
}

func TestServerMuxDuplicateRegistration(t *testing.T) {
	mux := server.NewMux()
	typ := mustMessageType(t, echoType)
	handler := func(context.Context, *server.MessageContext) error { return nil }

	require.NoError(t, mux.Register(typ, handler))
	require.ErrorContains(t, mux.Register(typ, handler), "already registered")
}
