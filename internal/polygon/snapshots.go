package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rmoretti/plpulse/internal/domain/models"
	"github.com/rmoretti/plpulse/internal/logger"
)

// snapshotPage is the response body of one chunk request.
type snapshotPage struct {
	Tickers []models.Snapshot `json:"tickers"`
}

// MarketSnapshots fetches raw snapshot records for the given tickers.
//
// The input is normalized (trimmed, uppercased, empties dropped) and
// partitioned into contiguous chunks of at most the configured batch size,
// preserving order. One request is issued per chunk under a counting gate of
// the configured concurrency; results are aggregated as chunks complete, so
// the output order is completion order, not submission order.
//
// An empty normalized input returns an empty result without issuing any
// request. The first failure-class response aborts the whole fetch: the
// errgroup context cancels in-flight siblings and no partial result is
// returned.
func (c *Client) MarketSnapshots(ctx context.Context, tickers []string) ([]models.Snapshot, error) {
	norm := normalizeTickers(tickers)
	if len(norm) == 0 {
		return nil, nil
	}

	chunks := chunkTickers(norm, c.batchSize)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, c.concurrency)

	var mu sync.Mutex
	var out []models.Snapshot

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			// Admission gate; bail out if a sibling already failed.
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			snaps, err := c.fetchChunk(gctx, chunk)
			if err != nil {
				return err
			}

			mu.Lock()
			out = append(out, snaps...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.L().Info().Int("tickers", len(norm)).Int("chunks", len(chunks)).Int("snapshots", len(out)).Msg("snapshot_fetch_done")
	return out, nil
}

func (c *Client) fetchChunk(ctx context.Context, chunk []string) ([]models.Snapshot, error) {
	query := url.Values{}
	query.Set("tickers", strings.Join(chunk, ","))
	query.Set("include_otc", strconv.FormatBool(c.includeOTC))
	query.Set("apiKey", c.apiKey)

	logger.L().Debug().Int("chunk_size", len(chunk)).Str("first_ticker", chunk[0]).Msg("snapshot_request")

	var page snapshotPage
	if err := c.getJSON(ctx, c.baseURL+snapshotPath+"?"+query.Encode(), &page); err != nil {
		return nil, fmt.Errorf("snapshot fetch: %w", err)
	}
	return page.Tickers, nil
}

// normalizeTickers trims and uppercases symbols, dropping empties, while
// preserving input order. Duplicates pass through unchanged.
func normalizeTickers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, strings.ToUpper(t))
	}
	return out
}

// chunkTickers partitions tickers into contiguous chunks of at most size,
// preserving order. size must be >= 1.
func chunkTickers(tickers []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var chunks [][]string
	for start := 0; start < len(tickers); start += size {
		end := start + size
		if end > len(tickers) {
			end = len(tickers)
		}
		chunks = append(chunks, tickers[start:end])
	}
	return chunks
}
