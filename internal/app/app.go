package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vestia/catalog-service/internal/config"
	handler "github.com/vestia/catalog-service/internal/handler/http"
	"github.com/vestia/catalog-service/internal/index"
	esindex "github.com/vestia/catalog-service/internal/index/elasticsearch"
	"github.com/vestia/catalog-service/internal/index/memory"
	"github.com/vestia/catalog-service/internal/repository/postgres"
	"github.com/vestia/catalog-service/internal/service"
	"github.com/vestia/catalog-service/migrations"
	"github.com/vestia/catalog-service/pkg/database"
	"github.com/vestia/catalog-service/pkg/health"
	"github.com/vestia/catalog-service/pkg/middleware"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
// The search index is optional at startup: if Elasticsearch is unreachable the
// service still starts and serves store-backed reads, writes, and fallback
// search.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pgCfg := &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	indexer, esIdx, err := newIndexer(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	// Best-effort index creation: a down cluster must not prevent startup.
	if err := indexer.EnsureIndex(ctx); err != nil {
		logger.Warn("search index init failed, continuing without index",
			slog.String("error", err.Error()),
		)
	}

	repo := postgres.NewProductRepository(pool)
	catalogService := service.NewCatalogService(repo, indexer, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if esIdx != nil {
		// The service degrades to fallback search while Elasticsearch is
		// down, so its checker must not flip readiness.
		healthHandler.RegisterOptional("elasticsearch", esIdx.Ping)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(catalogService, healthHandler, corsCfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		httpServer: httpServer,
	}, nil
}

// newIndexer builds the configured search index backend. The second return
// value is non-nil only for the Elasticsearch backend and is used for health
// checks.
func newIndexer(cfg *config.Config, logger *slog.Logger) (index.Indexer, *esindex.Index, error) {
	switch cfg.SearchEngine {
	case "elasticsearch":
		esIdx, err := esindex.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, cfg.SearchTimeout(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init elasticsearch index: %w", err)
		}
		logger.Info("elasticsearch index backend initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return esIdx, esIdx, nil
	default:
		logger.Info("in-memory index backend initialized")
		return memory.New(), nil, nil
	}
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the HTTP server and closes the connection pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
