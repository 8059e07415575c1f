package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cartwise/backend/internal/domain"
)

// maxErrorBodyBytes caps how much of a failed response body is kept for logging
const maxErrorBodyBytes = 1024

// Config holds catalog API client settings
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	PageSize      int
	RatePerSecond float64
	Burst         int
	MaxRetries    int
}

// Client handles communication with the product catalog search API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	pageSize    int
	maxRetries  int
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	log         zerolog.Logger
}

var _ domain.OfferSearcher = (*Client)(nil)

// NewClient creates a new catalog API client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:    pageSize,
		maxRetries:  maxRetries,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		backoff:     exponentialBackoff,
		log:         log.With().Str("component", "catalog_client").Logger(),
	}
}

// exponentialBackoff returns the wait before retrying after the given attempt:
// 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Cartwise/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogFailure, err)
	}
	return resp, nil
}

// SearchOffers searches the catalog for a product name and returns every
// merchant offer of the matching products. A 404 from the catalog means no
// offers and is not an error.
func (c *Client) SearchOffers(ctx context.Context, productName string) ([]domain.CatalogOffer, error) {
	query := strings.TrimSpace(productName)
	if query == "" {
		return []domain.CatalogOffer{}, nil
	}

	resp, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return []domain.CatalogOffer{}, nil
	}

	offers := MapToOffers(resp)
	c.log.Debug().
		Str("query", query).
		Int("products", len(resp.Products)).
		Int("offers", len(offers)).
		Msg("Catalog search complete")
	return offers, nil
}

// search performs the search request with retries. It returns a nil response
// when the catalog reports the query as not found.
func (c *Client) search(ctx context.Context, query string) (*domain.CatalogSearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("size", strconv.Itoa(c.pageSize))
	reqURL := fmt.Sprintf("%s/v1/search?%s", c.baseURL, params.Encode())

	attempts := c.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn().Err(err).Int("attempt", attempt).Str("query", query).Msg("Catalog request failed")
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var searchResp domain.CatalogSearchResponse
			err := json.NewDecoder(resp.Body).Decode(&searchResp)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrCatalogFailure, err)
			}
			return &searchResp, nil
		}

		body, _ := readLimitedBody(resp.Body, maxErrorBodyBytes)
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}

		lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogFailure, resp.StatusCode)
		if !isRetryableStatus(resp.StatusCode) {
			c.log.Error().Int("status", resp.StatusCode).Str("body", string(body)).Str("query", query).Msg("Catalog rejected request")
			return nil, lastErr
		}
		c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Str("query", query).Msg("Catalog request failed, retrying")
	}

	c.log.Error().Err(lastErr).Int("attempts", attempts).Str("query", query).Msg("All catalog retries failed")
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
