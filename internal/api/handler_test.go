package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rmoretti/plpulse/internal/domain/dto"
	"github.com/rmoretti/plpulse/internal/domain/models"
)

type stubCollector struct {
	entries []models.TickerPL
	err     error
}

func (s *stubCollector) Collect(context.Context) ([]models.TickerPL, error) {
	return s.entries, s.err
}

type stubRepo struct {
	entry *models.TickerPL
	err   error
}

func (s *stubRepo) SaveRun(context.Context, string, []models.TickerPL) error { return nil }
func (s *stubRepo) LatestByTicker(_ context.Context, _ string) (*models.TickerPL, error) {
	return s.entry, s.err
}
func (s *stubRepo) HasRunForDate(context.Context, string) (bool, error) { return false, nil }

func f64(v float64) *float64 { return &v }

func perform(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestCollectEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		collector  *stubCollector
		wantStatus int
		wantCount  int
	}{
		{
			name: "success",
			collector: &stubCollector{entries: []models.TickerPL{
				{Ticker: "AAPL", DailyPL: f64(1.23), Date: "2025-09-12"},
				{Ticker: "MSFT", Date: "2025-09-12"},
			}},
			wantStatus: http.StatusOK,
			wantCount:  2,
		},
		{
			name:       "upstream failure",
			collector:  &stubCollector{err: errors.New("polygon down")},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRouter(NewHandler(tc.collector, nil))
			w := perform(r, http.MethodPost, "/api/v1/collect")

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var resp dto.CollectResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Count != tc.wantCount || len(resp.Items) != tc.wantCount {
				t.Fatalf("count=%d items=%d, want %d", resp.Count, len(resp.Items), tc.wantCount)
			}
			// Null numerics must serialize as JSON null, not be dropped.
			if resp.Items[1].DailyPL != nil {
				t.Fatalf("unexpected daily_pl %v", *resp.Items[1].DailyPL)
			}
		})
	}
}

func TestLatestPLEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		repo       *stubRepo
		target     string
		wantStatus int
	}{
		{name: "found", repo: &stubRepo{entry: &models.TickerPL{Ticker: "AAPL", Date: "2025-09-12"}}, target: "/api/v1/pl/aapl", wantStatus: http.StatusOK},
		{name: "not found", repo: &stubRepo{}, target: "/api/v1/pl/ZZZZ", wantStatus: http.StatusNotFound},
		{name: "repo error", repo: &stubRepo{err: errors.New("db down")}, target: "/api/v1/pl/AAPL", wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRouter(NewHandler(&stubCollector{}, tc.repo))
			w := perform(r, http.MethodGet, tc.target)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK {
				var entry models.TickerPL
				if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil || entry.Ticker != "AAPL" {
					t.Fatalf("body %s err %v", w.Body.String(), err)
				}
			}
		})
	}
}

func TestLatestPL_NoStoreConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewHandler(&stubCollector{}, nil))
	w := perform(r, http.MethodGet, "/api/v1/pl/AAPL")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
