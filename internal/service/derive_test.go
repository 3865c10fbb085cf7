package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rmoretti/plpulse/internal/domain/models"
)

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want *float64
	}{
		{name: "float", in: 1.23, want: f64(1.23)},
		{name: "int", in: 7, want: f64(7)},
		{name: "numeric string", in: "150.5", want: f64(150.5)},
		{name: "garbage string", in: "bad", want: nil},
		{name: "nil", in: nil, want: nil},
		{name: "bool", in: true, want: nil},
		{name: "object", in: map[string]any{}, want: nil},
		{name: "json number", in: json.Number("2.5"), want: f64(2.5)},
		{name: "bad json number", in: json.Number("x"), want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := coerceFloat(tc.in)
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("coerceFloat(%v) = %v, want nil", tc.in, *got)
			case tc.want != nil && (got == nil || *got != *tc.want):
				t.Fatalf("coerceFloat(%v) = %v, want %v", tc.in, got, *tc.want)
			}
		})
	}
}

func TestDerivePL_MixedFields(t *testing.T) {
	// Decoded the way the fetcher decodes it, so loose types match reality.
	raw := `[
		{"ticker":"AAPL","todaysChange":1.23,"todaysChangePerc":"bad","min":{"c":150.5}},
		{"ticker":"msft","todaysChange":"-0.5","todaysChangePerc":0.85},
		{"todaysChange":9.9},
		{"ticker":"","todaysChange":1},
		{"ticker":12345,"todaysChange":1},
		{"ticker":"BRK.A","min":{"c":"not a number"}},
		{"ticker":"TSLA","todaysChange":4.2,"min":"garbage"}
	]`
	var snaps []models.Snapshot
	if err := json.Unmarshal([]byte(raw), &snaps); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	entries := derivePL(snaps, "2025-09-12")

	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4 (bad tickers skipped)", len(entries))
	}

	a := entries[0]
	if a.Ticker != "AAPL" || a.DailyPL == nil || *a.DailyPL != 1.23 {
		t.Fatalf("unexpected entry %+v", a)
	}
	if a.DailyPLPercent != nil {
		t.Fatalf("non-numeric percent should be nil, got %v", *a.DailyPLPercent)
	}
	if a.MinClose == nil || *a.MinClose != 150.5 {
		t.Fatalf("min close: %+v", a.MinClose)
	}

	m := entries[1]
	if m.Ticker != "MSFT" {
		t.Fatalf("ticker not uppercased: %q", m.Ticker)
	}
	if m.DailyPL == nil || *m.DailyPL != -0.5 || m.DailyPLPercent == nil || *m.DailyPLPercent != 0.85 {
		t.Fatalf("unexpected entry %+v", m)
	}
	if m.MinClose != nil {
		t.Fatalf("absent min bar should be nil close")
	}

	b := entries[2]
	if b.Ticker != "BRK.A" || b.DailyPL != nil || b.MinClose != nil {
		t.Fatalf("unexpected entry %+v", b)
	}

	// A non-object min is a per-field defect: the record survives the decode
	// and only its close degrades to null.
	ts := entries[3]
	if ts.Ticker != "TSLA" || ts.DailyPL == nil || *ts.DailyPL != 4.2 {
		t.Fatalf("unexpected entry %+v", ts)
	}
	if ts.MinClose != nil {
		t.Fatalf("non-object min should yield nil close, got %v", *ts.MinClose)
	}

	// Every entry of one run shares the identical date.
	for _, e := range entries {
		if e.Date != "2025-09-12" {
			t.Fatalf("date %q differs from run date", e.Date)
		}
	}
}

func TestDerivePL_NullFieldsMarshalAsNull(t *testing.T) {
	entries := derivePL([]models.Snapshot{{Ticker: "XYZ"}}, "2025-09-12")
	out, err := json.Marshal(entries[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"ticker":"XYZ","daily_pl":null,"daily_pl_percent":null,"min_close":null,"date":"2025-09-12"}`
	if string(out) != want {
		t.Fatalf("json = %s, want %s", out, want)
	}
}

func TestAsOfDate(t *testing.T) {
	// 2025-09-12 01:30 UTC is still 2025-09-11 in New York.
	now := time.Date(2025, 9, 12, 1, 30, 0, 0, time.UTC)

	if got := asOfDate("America/New_York", now); got != "2025-09-11" {
		t.Fatalf("NY date = %q", got)
	}
	if got := asOfDate("UTC", now); got != "2025-09-12" {
		t.Fatalf("UTC date = %q", got)
	}
	// Unresolvable zone falls back to the default instead of failing.
	if got := asOfDate("Not/AZone", now); got != "2025-09-11" {
		t.Fatalf("fallback date = %q", got)
	}
}

func f64(v float64) *float64 { return &v }
