// Command seed loads an initial product dataset from a CSV file into the
// record store and bulk-indexes it. It is safe to rerun: a non-empty store is
// left untouched.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/vestia/catalog-service/internal/config"
	esindex "github.com/vestia/catalog-service/internal/index/elasticsearch"
	"github.com/vestia/catalog-service/internal/repository/postgres"
	"github.com/vestia/catalog-service/internal/seed"
	"github.com/vestia/catalog-service/migrations"
	"github.com/vestia/catalog-service/pkg/database"
	"github.com/vestia/catalog-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("catalog-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

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

	pool, err := database.NewPostgresPool(ctx, pgCfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	indexer, err := esindex.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, cfg.SearchTimeout(), log)
	if err != nil {
		log.Error("failed to create elasticsearch client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := indexer.EnsureIndex(ctx); err != nil {
		log.Warn("search index init failed, seeding store only",
			slog.String("error", err.Error()),
		)
	}

	f, err := os.Open(cfg.SeedCSVPath)
	if err != nil {
		log.Error("failed to open seed file",
			slog.String("path", cfg.SeedCSVPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer f.Close()

	seeder := seed.New(postgres.NewProductRepository(pool), indexer, log)
	if err := seeder.Run(ctx, f); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
