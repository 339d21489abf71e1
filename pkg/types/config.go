// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every source client.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "snowball/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ProviderConfig holds per-provider settings. Rate limits are enforced
// independently per provider so one provider's backoff does not stall the
// others.
type ProviderConfig struct {
	// Enabled controls whether the provider participates in the chain.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// RateLimit is the sustained request rate per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// Burst is the token-bucket burst size.
	Burst int `json:"burst" yaml:"burst"`

	// MaxRetries bounds retry attempts on HTTP 429 before the call fails
	// as rate-limited.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// APIKey authenticates requests where the provider supports it
	// (Semantic Scholar).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is sent for polite-pool access where the provider supports it
	// (OpenAlex mailto, Crossref).
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// BaseURL overrides the provider endpoint. Tests substitute an
	// httptest server here.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// SourcesConfig configures the source clients and their fallback order.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// Priority lists provider names in fallback order for search/lookup.
	// Unknown names are ignored; providers absent from the list go last in
	// declaration order.
	Priority []string `json:"priority" yaml:"priority"`

	SemanticScholar ProviderConfig `json:"semantic_scholar" yaml:"semantic_scholar"`
	OpenAlex        ProviderConfig `json:"openalex" yaml:"openalex"`
	Crossref        ProviderConfig `json:"crossref" yaml:"crossref"`

	// PerPaperLimit caps the number of citation/reference records requested
	// per frontier paper per provider (default 100).
	PerPaperLimit int `json:"per_paper_limit" yaml:"per_paper_limit"`
}

// DedupeConfig holds identity-resolution policy knobs. The defaults are
// conservative: widen them only when a corpus shows systematic year skew.
type DedupeConfig struct {
	// YearTolerance is the allowed publication-year difference for
	// title-based matching, absorbing preprint-vs-published skew
	// (default 1).
	YearTolerance int `json:"year_tolerance" yaml:"year_tolerance"`
}

// ScoringStrategy selects the relevance scoring implementation.
type ScoringStrategy string

const (
	StrategyTFIDF    ScoringStrategy = "tfidf"
	StrategyExternal ScoringStrategy = "external"
)

// ScoreConfig holds settings for the relevance scorer.
type ScoreConfig struct {
	// Strategy selects the scoring implementation: tfidf (baseline) or
	// external (HTTP reranker with tfidf fallback).
	Strategy ScoringStrategy `json:"strategy" yaml:"strategy"`

	// Endpoint is the reranker URL scored batches are POSTed to. Required
	// when Strategy is external.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Direction selects which citation edges an iteration traverses.
type Direction string

const (
	DirectionBackward Direction = "backward"
	DirectionForward  Direction = "forward"
	DirectionBoth     Direction = "both"
)

// EngineConfig holds settings for the snowball engine.
type EngineConfig struct {
	// Direction selects backward (references), forward (citations), or
	// both (default both).
	Direction Direction `json:"direction" yaml:"direction"`

	// FetchWorkers bounds concurrent frontier fetches within one
	// iteration (default 4).
	FetchWorkers int `json:"fetch_workers" yaml:"fetch_workers"`
}

// StoreConfig holds settings for project persistence.
type StoreConfig struct {
	// ProjectDir is the project directory containing snowball.db.
	ProjectDir string `json:"project_dir" yaml:"project_dir"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format"`
}

// Config groups all component configurations.
type Config struct {
	Sources SourcesConfig `json:"sources" yaml:"sources"`
	Dedupe  DedupeConfig  `json:"dedupe" yaml:"dedupe"`
	Score   ScoreConfig   `json:"score" yaml:"score"`
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file or flags
// override it.
func DefaultConfig() Config {
	return Config{
		Sources: SourcesConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "snowball/0.1",
			},
			Priority:        []string{"semanticscholar", "openalex", "crossref"},
			SemanticScholar: ProviderConfig{Enabled: true, RateLimit: 1, Burst: 1, MaxRetries: 3},
			OpenAlex:        ProviderConfig{Enabled: true, RateLimit: 10, Burst: 10, MaxRetries: 3},
			Crossref:        ProviderConfig{Enabled: true, RateLimit: 5, Burst: 5, MaxRetries: 3},
			PerPaperLimit:   100,
		},
		Dedupe: DedupeConfig{YearTolerance: 1},
		Score:  ScoreConfig{Strategy: StrategyTFIDF},
		Engine: EngineConfig{Direction: DirectionBoth, FetchWorkers: 4},
		Store:  StoreConfig{ProjectDir: "."},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
