package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rmoretti/plpulse/internal/logger"
)

// tickersPage is one page of the reference listing. The cursor in next_url
// is a complete URL and may or may not already embed the API key.
type tickersPage struct {
	Results []struct {
		Ticker any `json:"ticker"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

// AllActiveTickers returns the full ticker universe by walking the
// paginated reference listing until the source omits its cursor.
//
// Behavior:
//   - Pages are requested one at a time, strictly sequentially.
//   - Only entries carrying a non-empty string ticker are accepted; accepted
//     symbols are uppercased and appended in page order.
//   - The cursor URL is reused verbatim; the API key is appended only when
//     the cursor does not already carry one, so the credential is sent
//     exactly once per request.
//   - A failure-class status on any page aborts the whole discovery; no
//     partial list is returned.
//   - When a page cap is configured and exceeded, discovery fails rather
//     than silently truncating the universe.
func (c *Client) AllActiveTickers(ctx context.Context) ([]string, error) {
	query := url.Values{}
	query.Set("market", "stocks")
	query.Set("active", strconv.FormatBool(c.activeOnly))
	query.Set("order", "asc")
	query.Set("limit", strconv.Itoa(discoverPageLimit))
	query.Set("sort", "ticker")
	query.Set("apiKey", c.apiKey)

	next := c.baseURL + tickersPath + "?" + query.Encode()

	var tickers []string
	pages := 0

	for next != "" {
		if c.maxPages > 0 && pages >= c.maxPages {
			return nil, fmt.Errorf("ticker discovery exceeded page cap of %d; source keeps returning a cursor", c.maxPages)
		}
		pages++

		logger.L().Debug().Str("url", next).Msg("ticker_fetch_page")

		var page tickersPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("ticker page fetch: %w", err)
		}

		for _, item := range page.Results {
			if sym, ok := item.Ticker.(string); ok && sym != "" {
				tickers = append(tickers, strings.ToUpper(sym))
			}
		}

		logger.L().Info().
			Int("page_count", len(page.Results)).
			Int("total_tickers", len(tickers)).
			Bool("has_next", page.NextURL != "").
			Msg("ticker_page_fetched")

		next = page.NextURL
		if next != "" && !strings.Contains(next, "apiKey=") {
			next += "&apiKey=" + url.QueryEscape(c.apiKey)
		}
	}

	logger.L().Info().Int("count", len(tickers)).Int("pages", pages).Msg("ticker_discovery_complete")
	return tickers, nil
}
