package models

// TickerPL is the daily profit-and-loss record for one ticker, the entity of
// record produced by a collection run. Immutable once constructed.
//
// Fields:
//   - Ticker: normalized (uppercase, trimmed) symbol; never empty.
//   - DailyPL: today's price change; nil when the source omitted it or sent
//     a non-numeric value.
//   - DailyPLPercent: today's percentage change; same null semantics.
//   - MinClose: close of the latest minute bar, when present.
//   - Date: as-of calendar date (YYYY-MM-DD) in the configured time zone,
//     identical across every entry of one run.
//
// swagger:model TickerPL
type TickerPL struct {
	Ticker         string   `json:"ticker" example:"AAPL"`
	DailyPL        *float64 `json:"daily_pl" example:"1.23"`
	DailyPLPercent *float64 `json:"daily_pl_percent" example:"0.85"`
	MinClose       *float64 `json:"min_close" example:"150.5"`
	Date           string   `json:"date" example:"2025-09-12"`
}
