// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/pkg/types"
)

// fetcher is the shared HTTP layer embedded by every client: a token-bucket
// rate limiter keyed to the provider, bounded 429 retries, and status-code
// classification into the source error taxonomy.
type fetcher struct {
	provider   string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	userAgent  string

	// headerKey/headerValue carry an optional auth header
	// (e.g. x-api-key for Semantic Scholar).
	headerKey   string
	headerValue string
}

func newFetcher(provider string, httpCfg types.HTTPConfig, cfg types.ProviderConfig) fetcher {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	userAgent := httpCfg.UserAgent
	if userAgent == "" {
		userAgent = "snowball/0.1"
	}
	return fetcher{
		provider:   provider,
		http:       &http.Client{Timeout: httpCfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		maxRetries: cfg.MaxRetries,
		userAgent:  userAgent,
	}
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
// 404 maps to ErrNotFound, 429 (after retries) to ErrRateLimited, network
// failures and any other non-200 status to ErrUnavailable.
func (f *fetcher) getJSON(ctx context.Context, url string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", f.provider, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if f.headerKey != "" && f.headerValue != "" {
		req.Header.Set(f.headerKey, f.headerValue)
	}

	resp, err := httputil.DoWithRetry(ctx, f.http, req, f.maxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %v", f.provider, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{Provider: f.provider, StatusCode: resp.StatusCode, Kind: ErrNotFound}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{Provider: f.provider, StatusCode: resp.StatusCode, Kind: ErrRateLimited}
	default:
		return &APIError{Provider: f.provider, StatusCode: resp.StatusCode, Kind: ErrUnavailable}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: parsing response: %w", f.provider, err)
	}
	return nil
}
