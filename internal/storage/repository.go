package storage

import (
	"context"
	"database/sql"

	pq "github.com/lib/pq"

	"github.com/rmoretti/plpulse/internal/domain/models"
)

// PLRepository defines the contract for persisting and reading daily P&L
// runs. Persistence is optional; collect mode runs without it when no
// Postgres is configured.
type PLRepository interface {
	// SaveRun replaces the stored entries for a run date atomically and
	// records the run in the run log. Saving the same date twice leaves the
	// same final state.
	SaveRun(ctx context.Context, date string, entries []models.TickerPL) error
	// LatestByTicker returns the most recent stored entry for a ticker, or
	// nil when none exists.
	LatestByTicker(ctx context.Context, ticker string) (*models.TickerPL, error)
	// HasRunForDate reports whether a run was recorded for the given date.
	HasRunForDate(ctx context.Context, date string) (bool, error)
}

type plRepository struct {
	db *sql.DB
}

func NewPLRepository(db *sql.DB) PLRepository {
	return &plRepository{db: db}
}

// DB exposes the underlying handle, used by the readiness probe.
func (r *plRepository) DB() *sql.DB { return r.db }

// SaveRun deletes any previous entries for the date, bulk-inserts the new
// ones via COPY, and upserts the run log, all in one transaction.
func (r *plRepository) SaveRun(ctx context.Context, date string, entries []models.TickerPL) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Small optimization for bulk load
	if _, err := tx.ExecContext(ctx, `SET LOCAL synchronous_commit = OFF`); err != nil {
		_ = tx.Rollback()
		return err
	}

	// Reruns for the same date overwrite, matching the cache's SET semantics.
	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_pl WHERE as_of_date = $1`, date); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"daily_pl",
		"ticker",
		"daily_pl",
		"daily_pl_percent",
		"min_close",
		"as_of_date",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, e := range entries {
		// nil *float64 values land as SQL NULLs.
		if _, err := stmt.ExecContext(ctx, e.Ticker, e.DailyPL, e.DailyPLPercent, e.MinClose, e.Date); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO run_log (as_of_date, entry_count)
		VALUES ($1, $2)
		ON CONFLICT (as_of_date)
		DO UPDATE SET entry_count = EXCLUDED.entry_count,
					  collected_at = NOW()
	`, date, len(entries)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// LatestByTicker returns the newest entry stored for a ticker.
func (r *plRepository) LatestByTicker(ctx context.Context, ticker string) (*models.TickerPL, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT ticker, daily_pl, daily_pl_percent, min_close, to_char(as_of_date, 'YYYY-MM-DD')
		FROM daily_pl
		WHERE ticker = $1
		ORDER BY as_of_date DESC
		LIMIT 1
	`, ticker)

	var (
		entry    models.TickerPL
		pl       sql.NullFloat64
		plPct    sql.NullFloat64
		minClose sql.NullFloat64
	)
	if err := row.Scan(&entry.Ticker, &pl, &plPct, &minClose, &entry.Date); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if pl.Valid {
		entry.DailyPL = &pl.Float64
	}
	if plPct.Valid {
		entry.DailyPLPercent = &plPct.Float64
	}
	if minClose.Valid {
		entry.MinClose = &minClose.Float64
	}
	return &entry, nil
}

// HasRunForDate checks the run log for a recorded collection on that date.
func (r *plRepository) HasRunForDate(ctx context.Context, date string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM run_log WHERE as_of_date = $1)`, date).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
