// Package backend fetches rooms and bookings from the upstream REST API and
// keeps the resource cache revalidated.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"venue-admin-backend/config"
	"venue-admin-backend/internal/cache"
	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/model"
)

// StatusError is a non-200 answer from the upstream API.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-200 status code %d from %s", e.StatusCode, e.URL)
}

// Client is a paginated client for the upstream API.
type Client struct {
	cfg     config.BackendConfig
	http    *http.Client
	log     *zap.SugaredLogger
	backOff func() backoff.BackOff
}

// NewClient creates a client for cfg. An invalid proxy URL is logged and
// ignored.
func NewClient(cfg config.BackendConfig, log *zap.SugaredLogger) *Client {
	log = logger.OrNop(log)
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warnw("invalid proxy URL, backend requests will not use a proxy", "proxy", cfg.HTTPProxy, "error", err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		log: log,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// FetchRooms loads every room.
func (c *Client) FetchRooms(ctx context.Context) ([]model.Space, error) {
	return fetchAll[model.Space](ctx, c, c.cfg.RoomsPath, nil)
}

// FetchBookings loads every booking matching filters.
func (c *Client) FetchBookings(ctx context.Context, filters BookingFilters) ([]model.Booking, error) {
	return fetchAll[model.Booking](ctx, c, c.cfg.BookingsPath, filters.query())
}

// Fetchers adapts the client to the cache's fetch functions.
func (c *Client) Fetchers() cache.Fetchers {
	return cache.Fetchers{
		Rooms: c.FetchRooms,
		Bookings: func(ctx context.Context) ([]model.Booking, error) {
			return c.FetchBookings(ctx, BookingFilters{})
		},
	}
}

// fetchAll walks every page of path. Any page failing fails the whole fetch;
// a partial collection would replace the cached one.
func fetchAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	items := []T{}
	total := 1
	pageSize := c.cfg.PageSize
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := fetchPage[T](ctx, c, path, page, query)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of %s: %w", page, path, err)
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		items = append(items, resp.Data.Items...)
		c.log.Debugw("fetched page", "path", path, "page", page, "items", len(items), "total", total)
	}
	return items, nil
}

// fetchPage fetches one page, retrying transport failures, 429 and 5xx
// answers with exponential backoff.
func fetchPage[T any](ctx context.Context, c *Client, path string, page int, query url.Values) (*ApiResponse[T], error) {
	endpoint, err := c.pageURL(path, page, query)
	if err != nil {
		return nil, err
	}

	op := func() (*ApiResponse[T], error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		for key, value := range c.cfg.Headers {
			req.Header.Set(key, value)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			serr := &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
					return nil, backoff.RetryAfter(secs)
				}
				return nil, serr
			}
			return nil, backoff.Permanent(serr)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		var apiResp ApiResponse[T]
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to unmarshal api response: %w", err))
		}
		if apiResp.Code != 0 {
			return nil, backoff.Permanent(fmt.Errorf("API returned non-zero application code %d: %s", apiResp.Code, apiResp.Message))
		}
		return &apiResp, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warnw("backend request failed, retrying", "url", endpoint, "wait", wait, "error", err)
		}),
	)
}

func (c *Client) pageURL(path string, page int, query url.Values) (string, error) {
	base, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + path)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", errors.New("backend base_url must be an absolute URL")
	}
	q := base.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	base.RawQuery = q.Encode()
	return base.String(), nil
}
