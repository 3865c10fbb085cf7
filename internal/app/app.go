// Package app wires configuration into the concrete pipeline: the Polygon
// client, the cache publisher, the optional Postgres run store, the
// collector, and (in api mode) the HTTP router.
package app

import (
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/rmoretti/plpulse/config"
	"github.com/rmoretti/plpulse/internal/api"
	"github.com/rmoretti/plpulse/internal/cache"
	"github.com/rmoretti/plpulse/internal/polygon"
	"github.com/rmoretti/plpulse/internal/service"
	"github.com/rmoretti/plpulse/internal/storage"
)

// BuildCollector constructs a ready-to-run Collector from configuration,
// along with the repository backing it (nil when persistence is disabled)
// and a cleanup function releasing any held resources.
//
// The same wiring serves both the one-shot collect mode and the api mode.
func BuildCollector(cfg config.Config) (*service.Collector, storage.PLRepository, func(), error) {
	client := polygon.NewClient(cfg.Polygon.APIKey,
		polygon.WithTimeouts(cfg.Polygon.ConnectTimeout, cfg.Polygon.ReadTimeout),
		polygon.WithBatchSize(cfg.Polygon.BatchSize),
		polygon.WithConcurrency(cfg.Polygon.Concurrency),
		polygon.WithIncludeOTC(cfg.Polygon.IncludeOTC),
		polygon.WithMaxPages(cfg.Polygon.MaxPages),
	)

	publisher := cache.NewPublisher(cfg.Redis, cfg.Polygon.ConnectTimeout, cfg.Polygon.ReadTimeout)

	var (
		db      *sql.DB
		repo    storage.PLRepository
		store   service.RunStore
		cleanup = func() {}
	)
	if cfg.Postgres.Enabled() {
		var err error
		db, err = postgresOpener(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		repo = storage.NewPLRepository(db)
		store = repo
		cleanup = func() { _ = db.Close() }
	}

	collector := service.NewCollector(client, publisher, store, cfg.Polygon.TickerLimit, cfg.Timezone)
	return collector, repo, cleanup, nil
}

// InitializeApp sets up all api-mode dependencies and returns a fully
// configured Gin router plus a cleanup function for graceful shutdown.
//
// Responsibilities:
//   - Builds the collector (and run store, when configured).
//   - Creates the HTTP handler and router.
//   - Registers health and readiness probes; readiness tracks the run
//     store's connectivity when one is configured.
func InitializeApp(cfg config.Config) (*gin.Engine, func(), error) {
	collector, repo, cleanup, err := BuildCollector(cfg)
	if err != nil {
		return nil, nil, err
	}

	handler := api.NewHandler(collector, repo)
	router := api.NewRouter(handler)

	var dbPing func() error
	if db := databaseOf(repo); db != nil {
		dbPing = db.Ping
	}
	api.NewHealthHandler(dbPing).Register(router)

	return router, cleanup, nil
}

// databaseOf recovers the *sql.DB behind a repository for the readiness
// probe. Returns nil for a nil or non-database repository.
func databaseOf(repo storage.PLRepository) *sql.DB {
	type dbHolder interface{ DB() *sql.DB }
	if h, ok := repo.(dbHolder); ok {
		return h.DB()
	}
	return nil
}
