package server

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haneul-lab/lobbychat/internal/auth"
	"github.com/haneul-lab/lobbychat/internal/database"
	"github.com/haneul-lab/lobbychat/internal/logging"
	"github.com/haneul-lab/lobbychat/internal/messages"
	"github.com/haneul-lab/lobbychat/internal/metrics"
	"github.com/haneul-lab/lobbychat/internal/users"
)

// App assembles the stores, the auth service, the gateway, and the HTTP
// server.
type App struct {
	cfg     *Config
	log     logging.Logger
	gateway *Gateway
	server  *http.Server
	db      *sql.DB
}

// NewApp wires the application from configuration.
//
// Storage policy at boot: no DATABASE_URL means explicit non-persistent
// mode on in-memory stores. A configured database that cannot be reached or
// migrated is logged loudly but is not fatal; the chat transport still
// starts, store calls stay time-bounded, and reads degrade to empty until
// the database comes back.
func NewApp(cfg *Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	var (
		userRepo users.Repository
		msgRepo  messages.Repository
		db       *sql.DB
	)

	if cfg.DatabaseURL == "" {
		log.Warn(ctx, "DATABASE_URL is not set; running in non-persistent mode, all users and messages are lost on restart")
		userRepo = users.NewMemoryRepository()
		msgRepo = messages.NewMemoryRepository()
	} else {
		opened, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			// An unparseable DSN is a configuration mistake, not an outage.
			return nil, err
		}
		db = opened

		if err := database.Ping(ctx, db, cfg.StoreTimeout); err != nil {
			log.Error(ctx, "database unreachable at boot; chat starts degraded, history is empty and messages are not persisted until it recovers", "error", err)
		} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Error(ctx, "database migrations failed; chat starts degraded", "error", err)
		}

		userRepo = users.NewPostgresRepository(db)
		msgRepo = messages.NewPostgresRepository(db)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	authService := auth.NewService(userRepo, cfg.BcryptCost, log)
	gateway := NewGateway(cfg, authService, msgRepo, log, collector)
	server := CreateServer(cfg.Port, gateway.Routes(metrics.Handler(registry)))

	return &App{
		cfg:     cfg,
		log:     log,
		gateway: gateway,
		server:  server,
		db:      db,
	}, nil
}

// Run starts the hub and the HTTP server and blocks until SIGINT/SIGTERM,
// then shuts both down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	app.gateway.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := StartServer(app.server, app.log); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigs:
		app.log.Info(ctx, "received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	case err := <-errCh:
		app.log.Error(ctx, "HTTP server failed", "error", err)
		app.shutdown()
		return err
	}

	app.shutdown()
	return nil
}

func (app *App) shutdown() {
	ctx := context.Background()

	if err := ShutdownServer(app.server, app.cfg.ShutdownTimeout, app.log); err != nil {
		app.log.Error(ctx, "HTTP shutdown incomplete", "error", err)
	}
	if err := app.gateway.Shutdown(app.cfg.ShutdownTimeout); err != nil {
		app.log.Error(ctx, "hub shutdown incomplete", "error", err)
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.log.Error(ctx, "error closing database", "error", err)
		}
	}
}
