// Command algomsgd runs the secure messaging server.
//
// The server identity comes from a 25-word mnemonic file; without one an
// ephemeral key is generated and its mnemonic logged so clients can still
// connect. An optional postgres URL adds a database health check that feeds
// the readiness probe.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/algomesh/algomsg/cmd/common"
	"github.com/algomesh/algomsg/crypto"
	"github.com/algomesh/algomsg/health"
	"github.com/algomesh/algomsg/protocol"
	"github.com/algomesh/algomsg/server"
	"github.com/algomesh/algomsg/services"
)

// echoMessageType answers any payload with itself. Useful for connectivity
// smoke tests.
const echoMessageType = "01GVGS7ZK6WE9C3TDRBTVVAJ3J"

func main() {
	var (
		listenAddr   = flag.String("listen", ":8080", "server listen address")
		mnemonicFile = flag.String("mnemonic-file", "", "file containing the server's 25-word mnemonic; ephemeral key if empty")
		dbURL        = flag.String("db-url", "", "postgres URL to health check, e.g. postgres://user@host/db")
		logLevel     = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	log, err := common.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(log)

	if err := run(log, *listenAddr, *mnemonicFile, *dbURL); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, listenAddr, mnemonicFile, dbURL string) error {
	key, err := common.LoadOrGenerateKey(log, mnemonicFile)
	if err != nil {
		return err
	}
	log.Info("server identity",
		"signing_address", key.SigningAddress(),
		"encryption_address", key.EncryptionAddress())

	mux := server.NewMux()
	echoType, err := protocol.MessageTypeFromString(echoMessageType)
	if err != nil {
		return err
	}
	if err := mux.Register(echoType, echoHandler); err != nil {
		return err
	}

	checks, closeDB, err := buildChecks(dbURL)
	if err != nil {
		return err
	}
	defer closeDB()

	promReg := prometheus.NewRegistry()
	healthMetrics, err := health.NewMetrics(promReg)
	if err != nil {
		return err
	}

	messagingService, err := newMessagingService(key, listenAddr, mux, promReg, checks)
	if err != nil {
		return err
	}

	manager, err := services.NewManager(
		[]*services.Service{messagingService},
		services.WithLogger(log),
		services.WithHealthOptions(health.WithMetrics(healthMetrics)),
	)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.StartAll(); err != nil {
		manager.StopAll()
		return err
	}
	if err := manager.AwaitAllRunning(30 * time.Second); err != nil {
		manager.StopAll()
		return err
	}
	log.Info("all services running")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	if err := manager.StopAll(); err != nil {
		return err
	}
	return manager.AwaitAllStopped(30 * time.Second)
}

func newMessagingService(
	key *crypto.PrivateKey,
	listenAddr string,
	mux *server.Mux,
	promReg *prometheus.Registry,
	checks []*health.Check,
) (*services.Service, error) {
	// The readiness probe reads check results; the manager-level registry
	// owns publication and metrics. Both see the same checks.
	registry, err := health.NewRegistry(checks)
	if err != nil {
		return nil, err
	}
	srv, err := server.New(server.Config{
		Key:        key,
		ListenAddr: listenAddr,
		Mux:        mux,
		Health:     registry,
		Metrics:    promReg,
	})
	if err != nil {
		return nil, err
	}
	return services.NewService(services.Config{
		Name:   "messaging",
		Checks: checks,
	}, srv)
}

func echoHandler(ctx context.Context, mc *server.MessageContext) error {
	return mc.Reply(ctx, protocol.NewMessage(mc.Msg.Type, mc.Msg.Data))
}

func buildChecks(dbURL string) ([]*health.Check, func(), error) {
	if dbURL == "" {
		return nil, func() {}, nil
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	check, err := health.NewDatabaseCheck(health.Config{
		Name:        "messaging.db",
		Description: "postgres connectivity",
		Impact:      health.High,
		Tags:        []string{"database"},
	}, db, time.Second)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return []*health.Check{check}, func() { db.Close() }, nil
}
