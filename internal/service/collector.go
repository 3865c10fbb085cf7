package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rmoretti/plpulse/internal/domain/models"
	"github.com/rmoretti/plpulse/internal/logger"
)

// MarketSource provides the ticker universe and raw snapshots. Implemented
// by polygon.Client; tests substitute stubs.
type MarketSource interface {
	AllActiveTickers(ctx context.Context) ([]string, error)
	MarketSnapshots(ctx context.Context, tickers []string) ([]models.Snapshot, error)
}

// EntryPublisher pushes a run's entries to the cache. Implemented by
// cache.Publisher; a disabled publisher is a no-op, not an absent one.
type EntryPublisher interface {
	Publish(ctx context.Context, entries []models.TickerPL) error
}

// RunStore persists a run's entries. Optional; a nil store skips
// persistence entirely.
type RunStore interface {
	SaveRun(ctx context.Context, date string, entries []models.TickerPL) error
}

// Collector orchestrates one collection pass:
// discover -> truncate -> fetch -> derive -> store -> publish.
type Collector struct {
	source      MarketSource
	publisher   EntryPublisher
	store       RunStore // may be nil
	tickerLimit int      // 0 = no truncation
	timezone    string

	// indirection for tests
	now func() time.Time
}

// NewCollector wires a Collector. store may be nil when persistence is
// disabled; tickerLimit of 0 disables truncation.
func NewCollector(source MarketSource, publisher EntryPublisher, store RunStore, tickerLimit int, timezone string) *Collector {
	return &Collector{
		source:      source,
		publisher:   publisher,
		store:       store,
		tickerLimit: tickerLimit,
		timezone:    timezone,
		now:         time.Now,
	}
}

// Collect runs the full pipeline and returns the derived entries.
//
// The as-of date is computed once, at the moment discovery begins, and
// shared by every entry of the run. Any stage failure propagates unchanged
// to the caller; no stage is retried. A publish failure surfaces even
// though earlier batches (and the optional store write) already happened.
func (c *Collector) Collect(ctx context.Context) ([]models.TickerPL, error) {
	asOf := asOfDate(c.timezone, c.now())
	logger.L().Info().Str("as_of", asOf).Msg("collect_start")

	tickers, err := c.source.AllActiveTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tickers: %w", err)
	}

	if c.tickerLimit > 0 && len(tickers) > c.tickerLimit {
		tickers = tickers[:c.tickerLimit]
		logger.L().Info().Int("limit", c.tickerLimit).Msg("ticker_limit_applied")
	}
	logger.L().Info().Int("count", len(tickers)).Msg("ticker_discovery_done")

	snapshots, err := c.source.MarketSnapshots(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshots: %w", err)
	}

	entries := derivePL(snapshots, asOf)
	logger.L().Info().Int("count", len(entries)).Msg("pl_derived")

	if c.store != nil {
		if err := c.store.SaveRun(ctx, asOf, entries); err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
	}

	if err := c.publisher.Publish(ctx, entries); err != nil {
		return nil, fmt.Errorf("publish run: %w", err)
	}

	logger.L().Info().Int("count", len(entries)).Msg("collect_complete")
	return entries, nil
}
