// Package server builds the application's dependencies and runs the HTTP
// server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/firecrawl-demo/internal/api"
	"github.com/JakeFAU/firecrawl-demo/internal/clock/system"
	"github.com/JakeFAU/firecrawl-demo/internal/config"
	"github.com/JakeFAU/firecrawl-demo/internal/firecrawl"
	"github.com/JakeFAU/firecrawl-demo/internal/id/uuid"
	"github.com/JakeFAU/firecrawl-demo/internal/ledger"
	ledgerMemory "github.com/JakeFAU/firecrawl-demo/internal/ledger/memory"
	ledgerPostgres "github.com/JakeFAU/firecrawl-demo/internal/ledger/postgres"
	ledgerRedis "github.com/JakeFAU/firecrawl-demo/internal/ledger/redis"
	"github.com/JakeFAU/firecrawl-demo/internal/logging"
	memorypublisher "github.com/JakeFAU/firecrawl-demo/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/firecrawl-demo/internal/publisher/pubsub"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	apiServer *api.Server
	client    *firecrawl.Client
	ledger    ledger.Repository
	pubsub    *gcppublisher.Publisher
}

// Build creates the application's dependencies. A nil logger builds one from
// cfg.Logging.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
	}
	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("firecrawl_base_url", cfg.Firecrawl.BaseURL),
		zap.String("ledger", cfg.Ledger.Provider),
		zap.String("events", cfg.Events.Provider),
	)
	if cfg.UsingPlaceholderKey() {
		app.logger.Warn("FIRECRAWL_API_KEY is not set; provider calls will be rejected",
			zap.String("placeholder", config.PlaceholderAPIKey))
	}

	var err error
	app.client, err = NewProviderClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	app.ledger, err = setupLedger(ctx, app)
	if err != nil {
		return nil, err
	}

	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	app.apiServer, err = api.NewServer(api.Deps{
		Client:    app.client,
		Defaults:  cfg.ScrapeDefaults(),
		Ledger:    app.ledger,
		Publisher: publisher,
		Topic:     cfg.Events.Topic,
		IDGen:     uuid.New(),
		Clock:     system.New(),
		Logger:    logger,
		Config:    cfg,
	})
	if err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("api server init failed: %w", err)
	}
	return app, nil
}

// NewProviderClient builds the Firecrawl client described by cfg.
func NewProviderClient(cfg config.Config, logger *zap.Logger) (*firecrawl.Client, error) {
	client, err := firecrawl.New(firecrawl.Config{
		APIKey:  cfg.Firecrawl.APIKey,
		BaseURL: cfg.Firecrawl.BaseURL,
		Timeout: cfg.ProviderTimeout(),
		Logger:  logger.Named("firecrawl"),
	})
	if err != nil {
		return nil, fmt.Errorf("firecrawl client init failed: %w", err)
	}
	return client, nil
}

func setupLedger(ctx context.Context, app *App) (ledger.Repository, error) {
	switch app.cfg.Ledger.Provider {
	case config.BackendPostgres:
		l, err := ledgerPostgres.New(ctx, ledgerPostgres.Config{
			DSN:   app.cfg.Ledger.PostgresDSN,
			Table: app.cfg.Ledger.PostgresTable,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres ledger init failed: %w", err)
		}
		app.logger.Info("using postgres job ledger", zap.String("table", app.cfg.Ledger.PostgresTable))
		return l, nil
	case config.BackendRedis:
		l, err := ledgerRedis.New(ledgerRedis.Config{
			Addr:   app.cfg.Ledger.RedisAddr,
			Prefix: app.cfg.Ledger.RedisPrefix,
			TTL:    time.Duration(app.cfg.Ledger.RedisTTLHours) * time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("redis ledger init failed: %w", err)
		}
		app.logger.Info("using redis job ledger", zap.String("addr", app.cfg.Ledger.RedisAddr))
		return l, nil
	case config.BackendMemory, "":
		app.logger.Info("using in-memory job ledger")
		return ledgerMemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown ledger provider %q", app.cfg.Ledger.Provider)
	}
}

func setupPublisher(ctx context.Context, app *App) (scraper.Publisher, error) {
	switch app.cfg.Events.Provider {
	case config.BackendPubSub:
		pub, err := gcppublisher.New(ctx, app.cfg.Events.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		app.pubsub = pub
		app.logger.Info("Pub/Sub publisher initialized",
			zap.String("project", app.cfg.Events.ProjectID),
			zap.String("topic", app.cfg.Events.Topic),
		)
		return pub, nil
	case config.BackendNone:
		app.logger.Info("job events disabled")
		return nil, nil
	case config.BackendMemory, "":
		app.logger.Info("using in-memory job event publisher")
		return memorypublisher.New(), nil
	default:
		return nil, fmt.Errorf("unknown events provider %q", app.cfg.Events.Provider)
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the HTTP server and blocks until ctx is canceled or a signal
// arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	default:
		return nil
	}
}

// Close releases backend connections and flushes the logger.
func (a *App) Close() {
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
		a.pubsub = nil
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn("ledger close failed", zap.Error(err))
		}
		a.ledger = nil
	}
}
