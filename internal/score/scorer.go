// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score ranks pending papers by relevance to the included corpus.
// Scoring is a pluggable strategy selected by configuration; the TF-IDF
// cosine baseline is always available and serves as the fallback when an
// external strategy fails. Implements: docs/ARCHITECTURE § Scorer.
package score

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/pkg/types"
)

// Strategy scores pending papers against a reference corpus. The returned
// map is keyed by canonical id with scores in [0,1]. A strategy must be
// deterministic: identical inputs produce identical scores.
type Strategy interface {
	Name() string
	Score(ctx context.Context, pending []*types.Paper, reference []*types.Paper) (map[string]float64, error)
}

// Fallback wraps an optional external strategy with a required baseline.
// When the primary fails the baseline scores the batch instead, so a
// misbehaving reranker degrades ranking quality without blocking the
// pipeline.
type Fallback struct {
	Primary  Strategy
	Baseline Strategy
	log      zerolog.Logger
}

// NewFallback builds a fallback scorer. primary may be nil, in which case
// only the baseline runs.
func NewFallback(primary, baseline Strategy, log zerolog.Logger) *Fallback {
	return &Fallback{
		Primary:  primary,
		Baseline: baseline,
		log:      log.With().Str("component", "score").Logger(),
	}
}

func (f *Fallback) Name() string {
	if f.Primary != nil {
		return f.Primary.Name()
	}
	return f.Baseline.Name()
}

func (f *Fallback) Score(ctx context.Context, pending []*types.Paper, reference []*types.Paper) (map[string]float64, error) {
	if f.Primary != nil {
		scores, err := f.Primary.Score(ctx, pending, reference)
		if err == nil {
			return scores, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.log.Warn().Err(err).Str("strategy", f.Primary.Name()).Msg("strategy failed, falling back to baseline")
	}
	return f.Baseline.Score(ctx, pending, reference)
}
