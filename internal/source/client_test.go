// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/pkg/types"
)

func TestGetJSONClassifiesRateLimited(t *testing.T) {
	oldDelay := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	defer func() { httputil.RetryBaseDelay = oldDelay }()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testProviderConfig(server.URL)
	cfg.MaxRetries = 2
	client := NewSemanticScholar(testHTTPConfig(), cfg, zerolog.Nop())

	_, err := client.Lookup(context.Background(), map[string]string{types.IDSchemeDOI: "10.1/x"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if !IsRetryable(err) {
		t.Error("rate limiting should be retryable for the fallback chain")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want initial attempt plus 2 retries", calls)
	}
}

func TestGetJSONContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewSemanticScholar(testHTTPConfig(), testProviderConfig(server.URL), zerolog.Nop())
	_, err := client.Lookup(ctx, map[string]string{types.IDSchemeDOI: "10.1/x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestGetJSONSendsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"total": 0, "data": []}`))
	}))
	defer server.Close()

	client := NewSemanticScholar(testHTTPConfig(), testProviderConfig(server.URL), zerolog.Nop())
	if _, err := client.Search(context.Background(), "q", 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotUA != "snowball-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}
