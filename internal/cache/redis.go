// Package cache publishes daily P&L entries to an Upstash-style Redis REST
// endpoint using pipelined write commands.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rmoretti/plpulse/config"
	"github.com/rmoretti/plpulse/internal/domain/models"
	"github.com/rmoretti/plpulse/internal/logger"
)

// PipelineError represents a failure-class response from the cache REST
// endpoint. Batches published before the failure stay written; there is no
// rollback.
type PipelineError struct {
	StatusCode int
	Body       []byte
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("redis pipeline error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Publisher writes TickerPL entries to the cache. A Publisher built from an
// empty URL or token is disabled: Publish becomes a no-op, which is how the
// collector runs in environments without a cache.
type Publisher struct {
	endpoint     string // {url}/pipeline; empty when disabled
	token        string
	keyPrefix    string
	pipelineSize int
	ttlSeconds   int // <= 0 disables per-key expiry
	httpClient   *http.Client
}

// NewPublisher builds a Publisher from the Redis configuration, sharing the
// pipeline's connect/read timeout settings.
func NewPublisher(cfg config.RedisConfig, connect, read time.Duration) *Publisher {
	p := &Publisher{
		token:        cfg.Token,
		keyPrefix:    cfg.KeyPrefix,
		pipelineSize: cfg.PipelineSize,
		ttlSeconds:   cfg.TTLSeconds,
		httpClient: &http.Client{
			Timeout: read,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connect}).DialContext,
				TLSHandshakeTimeout: connect,
			},
		},
	}
	if p.pipelineSize < 1 {
		p.pipelineSize = 1
	}
	if cfg.URL != "" && cfg.Token != "" {
		p.endpoint = strings.TrimRight(cfg.URL, "/") + "/pipeline"
	}
	return p
}

// Enabled reports whether this publisher has a configured endpoint.
func (p *Publisher) Enabled() bool { return p.endpoint != "" }

// Publish writes every entry to the cache as `{prefix}:{TICKER}` keys
// carrying the serialized record, batched into pipelined requests of at most
// the configured pipeline size, sequentially across batches.
//
// When a TTL is configured, each SET is followed by an EXPIRE for its key.
// SET overwrites, so republishing the same run is idempotent.
//
// Publishing is skipped entirely (no network call) when the publisher is
// disabled or entries is empty. A failure-class response aborts the publish
// with a *PipelineError wrapped in the returned error.
func (p *Publisher) Publish(ctx context.Context, entries []models.TickerPL) error {
	if !p.Enabled() {
		logger.L().Info().Msg("redis_disabled")
		return nil
	}
	if len(entries) == 0 {
		logger.L().Info().Msg("redis_skipped_empty")
		return nil
	}

	for start := 0; start < len(entries); start += p.pipelineSize {
		end := start + p.pipelineSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		commands, err := p.commandsFor(batch)
		if err != nil {
			return err
		}

		logger.L().Info().Int("batch_size", len(batch)).Int("commands", len(commands)).Msg("redis_pipeline_publish")

		if err := p.postPipeline(ctx, commands); err != nil {
			return err
		}
	}

	logger.L().Info().Int("count", len(entries)).Msg("redis_publish_complete")
	return nil
}

// commandsFor builds the flat command list for one batch: a SET per entry,
// each followed by an EXPIRE when a TTL is configured.
func (p *Publisher) commandsFor(batch []models.TickerPL) ([][]string, error) {
	commands := make([][]string, 0, 2*len(batch))
	for _, entry := range batch {
		key := p.keyPrefix + ":" + entry.Ticker
		value, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("marshal entry %s: %w", entry.Ticker, err)
		}
		commands = append(commands, []string{"SET", key, string(value)})
		if p.ttlSeconds > 0 {
			commands = append(commands, []string{"EXPIRE", key, strconv.Itoa(p.ttlSeconds)})
		}
	}
	return commands, nil
}

func (p *Publisher) postPipeline(ctx context.Context, commands [][]string) error {
	payload, err := json.Marshal(commands)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create pipeline request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pipeline request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read pipeline response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("pipeline batch: %w", &PipelineError{StatusCode: resp.StatusCode, Body: body})
	}
	return nil
}
