package service

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rmoretti/plpulse/internal/domain/models"
	"github.com/rmoretti/plpulse/internal/logger"
)

// defaultTimezone is the zone used when the configured one cannot be
// resolved. A bad zone name must never fail a run.
const defaultTimezone = "America/New_York"

const dateLayout = "2006-01-02"

// coerceFloat is a total best-effort numeric conversion: any value that is
// not usable as a number becomes nil, never an error. JSON decoding hands us
// float64 for numbers, but the upstream feed has been seen emitting numeric
// strings and garbage in numeric fields.
func coerceFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
		return nil
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

// minuteClose pulls the minute-bar close out of a raw `min` value. Anything
// but an object with a usable "c" degrades to nil.
func minuteClose(v any) *float64 {
	bar, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return coerceFloat(bar["c"])
}

// derivePL maps raw snapshot records to TickerPL entries stamped with the
// run's shared as-of date.
//
// Records with a missing, empty, or non-string ticker are skipped; that is
// the only condition that drops a record. Non-numeric P&L fields degrade to
// nil. Output order follows input order; no sorting or deduplication.
func derivePL(snapshots []models.Snapshot, asOf string) []models.TickerPL {
	entries := make([]models.TickerPL, 0, len(snapshots))
	for _, snap := range snapshots {
		ticker, ok := snap.Ticker.(string)
		if !ok || ticker == "" {
			continue
		}

		entries = append(entries, models.TickerPL{
			Ticker:         strings.ToUpper(ticker),
			DailyPL:        coerceFloat(snap.TodaysChange),
			DailyPLPercent: coerceFloat(snap.TodaysChangePerc),
			MinClose:       minuteClose(snap.Min),
			Date:           asOf,
		})
	}
	return entries
}

// asOfDate resolves tzName and formats now in that zone as YYYY-MM-DD.
// An unresolvable zone falls back to the default with a diagnostic; if even
// the default is unavailable (stripped tzdata), UTC is used.
func asOfDate(tzName string, now time.Time) string {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		logger.L().Warn().Str("timezone", tzName).Err(err).Msg("timezone_not_found")
		loc, err = time.LoadLocation(defaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	return now.In(loc).Format(dateLayout)
}
