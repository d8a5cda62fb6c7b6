// Package server wires the account service together: Postgres for accounts
// and credentials, NATS JetStream KV for handshake sessions, and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/logging"
	"github.com/dmitrijs2005/srpkeeper/internal/server/auth"
	"github.com/dmitrijs2005/srpkeeper/internal/server/config"
	"github.com/dmitrijs2005/srpkeeper/internal/server/handshake"
	"github.com/dmitrijs2005/srpkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/srpkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/srpkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/srpkeeper/internal/server/services"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	nc     *nats.Conn
	server *httpapi.Server
}

// NewApp connects to Postgres and NATS, applies migrations and builds the
// HTTP server. Close releases the connections.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	nc, err := nats.Connect(c.NatsURL,
		nats.Name("srpkeeper"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("nats connect error: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("jetstream init error: %w", err)
	}

	store, err := handshake.NewStore(ctx, js, c.HandshakeBucket, handshake.WithLogger(logger))
	if err != nil {
		nc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("handshake store init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	issuer := auth.NewIssuer([]byte(c.SecretKey))

	opts := []services.Option{
		services.WithLogger(logger.With("module", "auth_service")),
		services.WithMetrics(metrics.New(reg)),
	}
	if c.HideUnknownAccounts {
		opts = append(opts, services.WithHiddenAccounts(c.DecoySecret()))
	}
	svc := services.NewAuthService(db, rm, store, issuer, opts...)

	handler := httpapi.NewHandler(svc, issuer, logger, reg)
	srv := httpapi.NewServer(c.HTTPAddr, handler.Routes(), logger, c.ShutdownTimeout)

	return &App{config: c, logger: logger, db: db, nc: nc, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal arrives or ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) Close() error {
	if err := app.nc.Drain(); err != nil {
		app.nc.Close()
	}
	return app.db.Close()
}
