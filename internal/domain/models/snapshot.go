package models

// Snapshot is one raw per-ticker record from Polygon's market snapshot
// endpoint. It lives only for the duration of a collection run.
//
// Every field is declared as `any` on purpose: the upstream feed
// occasionally emits non-numeric garbage in numeric fields, and `min` has
// been seen as a non-object. A malformed value must degrade to a null P&L
// field rather than fail the decode of the whole chunk. Records with a
// missing or non-string ticker are skipped during derivation.
type Snapshot struct {
	Ticker           any `json:"ticker"`
	TodaysChange     any `json:"todaysChange"`
	TodaysChangePerc any `json:"todaysChangePerc"`
	Min              any `json:"min"`
}
