package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 2 * time.Second

	gamesPath = "/api/games"
	usersPath = "/api/users"
)

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// Client fetches full catalog listings. Each call is all or nothing.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	maxRetries    int
	retryInterval time.Duration
	logger        *slog.Logger
}

var _ catalog.Provider = (*Client)(nil)

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryInterval < 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		maxRetries:    cfg.MaxRetries,
		retryInterval: cfg.RetryInterval,
		logger:        logger,
	}
}

func (c *Client) FetchGames(ctx context.Context) (catalog.GameBatch, error) {
	records, err := c.fetchList(ctx, "games", gamesPath)
	if err != nil {
		return catalog.GameBatch{}, err
	}
	var batch catalog.GameBatch
	for _, raw := range records {
		g, err := toGame(raw)
		if err != nil {
			batch.Skipped = append(batch.Skipped, asMalformed(err, "game"))
			continue
		}
		batch.Games = append(batch.Games, g)
	}
	return batch, nil
}

func (c *Client) FetchUsers(ctx context.Context) (catalog.UserBatch, error) {
	records, err := c.fetchList(ctx, "users", usersPath)
	if err != nil {
		return catalog.UserBatch{}, err
	}
	var batch catalog.UserBatch
	for _, raw := range records {
		u, err := toUser(raw)
		if err != nil {
			batch.Skipped = append(batch.Skipped, asMalformed(err, "user"))
			continue
		}
		batch.Users = append(batch.Users, u)
	}
	return batch, nil
}

// fetchList retries the whole listing until it decodes or the budget is spent.
func (c *Client) fetchList(ctx context.Context, resource, path string) ([]json.RawMessage, error) {
	var (
		lastErr  error
		attempts int
	)
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		attempts = attempt
		records, err := c.get(ctx, path)
		if err == nil {
			c.logger.Debug("Catalog fetched",
				slog.String("type", "sys"),
				slog.String("resource", resource),
				slog.Int("records", len(records)),
				slog.Int("attempt", attempt),
			)
			return records, nil
		}
		lastErr = err
		c.logger.Warn("Catalog fetch failed",
			slog.String("type", "sys"),
			slog.String("resource", resource),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if ctx.Err() != nil || attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(c.retryInterval * time.Duration(attempt)):
		}
	}
	if ctx.Err() != nil {
		lastErr = ctx.Err()
	}
	return nil, &catalog.FetchError{Resource: resource, Attempts: attempts, Err: lastErr}
}

func (c *Client) get(ctx context.Context, path string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return records, nil
}

func asMalformed(err error, kind string) *catalog.MalformedRecordError {
	var me *catalog.MalformedRecordError
	if errors.As(err, &me) {
		return me
	}
	return &catalog.MalformedRecordError{Kind: kind, Err: err}
}
