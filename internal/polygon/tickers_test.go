package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestAllActiveTickers_Pagination(t *testing.T) {
	var pageHits []string

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc(tickersPath, func(w http.ResponseWriter, r *http.Request) {
		pageHits = append(pageHits, "first")
		if got := r.URL.Query()["apiKey"]; len(got) != 1 || got[0] != "k" {
			t.Errorf("first page apiKey values = %v, want exactly [k]", got)
		}
		if r.URL.Query().Get("market") != "stocks" || r.URL.Query().Get("sort") != "ticker" {
			t.Errorf("unexpected query: %v", r.URL.Query())
		}
		// Cursor without a credential: the client must append the key once.
		resp := map[string]any{
			"results": []map[string]any{
				{"ticker": "aapl"},
				{"ticker": ""},     // dropped: empty
				{"ticker": 42},     // dropped: non-string
				{"name": "no sym"}, // dropped: missing
				{"ticker": "Msft"},
			},
			"next_url": srv.URL + "/page2?cursor=abc",
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		pageHits = append(pageHits, "second")
		if got := r.URL.Query()["apiKey"]; len(got) != 1 || got[0] != "k" {
			t.Errorf("cursor page apiKey values = %v, want exactly [k]", got)
		}
		if r.URL.Query().Get("cursor") != "abc" {
			t.Errorf("cursor not preserved: %v", r.URL.Query())
		}
		// No next_url: pagination terminates here.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"ticker": "GOOG"}},
		})
	})

	c := NewClient("k", WithBaseURL(srv.URL))
	got, err := c.AllActiveTickers(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	want := []string{"AAPL", "MSFT", "GOOG"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tickers = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(pageHits, []string{"first", "second"}) {
		t.Fatalf("page order = %v", pageHits)
	}
}

func TestAllActiveTickers_CursorAlreadyAuthenticated(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc(tickersPath, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":  []map[string]any{{"ticker": "A"}},
			"next_url": srv.URL + "/page2?cursor=abc&apiKey=k",
		})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		// Credential embedded in the cursor must not be duplicated.
		if got := r.URL.Query()["apiKey"]; len(got) != 1 {
			t.Errorf("apiKey values = %v, want exactly one", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{{"ticker": "B"}}})
	})

	c := NewClient("k", WithBaseURL(srv.URL))
	got, err := c.AllActiveTickers(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("tickers = %v", got)
	}
}

func TestAllActiveTickers_FailureAborts(t *testing.T) {
	cases := []struct {
		name   string
		status int
	}{
		{name: "client error", status: http.StatusForbidden},
		{name: "server error", status: http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewClient("k", WithBaseURL(srv.URL))
			got, err := c.AllActiveTickers(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if got != nil {
				t.Fatalf("no partial list expected, got %v", got)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tc.status {
				t.Fatalf("want APIError with status %d, got %v", tc.status, err)
			}
		})
	}
}

func TestAllActiveTickers_PageCap(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		// Always returns a cursor: simulates a source that pages forever.
		_, _ = fmt.Fprintf(w, `{"results":[{"ticker":"T%d"}],"next_url":%q}`, hits, "http://"+r.Host+tickersPath+"?cursor=x")
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithMaxPages(3))
	_, err := c.AllActiveTickers(context.Background())
	if err == nil {
		t.Fatalf("expected page cap error")
	}
	if !strings.Contains(err.Error(), "page cap") {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 3 {
		t.Fatalf("hits = %d, want 3", hits)
	}
}
