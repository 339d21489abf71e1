// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate executes an ordered chain of source clients for one
// logical operation and produces the best available result set. Lookup and
// search fall through the chain on provider failure; citation and reference
// queries union every capable provider, since citation graphs only
// partially overlap. Implements: docs/ARCHITECTURE § Aggregator.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/internal/source"
	"github.com/pdiddy/snowball/pkg/types"
)

// ErrAllSourcesUnavailable indicates every client in the chain failed.
// Partial success never produces this: the union with a completeness flag
// is returned instead.
var ErrAllSourcesUnavailable = errors.New("all sources unavailable")

// Candidate is a paper annotated with the provider that produced it.
type Candidate struct {
	Paper    types.Paper
	Provider string
}

// Result is the outcome of a union operation across the provider chain.
type Result struct {
	Papers []Candidate

	// Complete is false when at least one capable provider failed; its
	// records may be missing from Papers.
	Complete bool

	// Skipped lists providers that did not contribute, with the reason
	// recorded by the skip code.
	Skipped []string
}

// Aggregator runs source clients in priority order.
type Aggregator struct {
	clients []source.Client
	log     zerolog.Logger
}

// New creates an Aggregator. clients must already be in fallback priority
// order.
func New(clients []source.Client, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		clients: clients,
		log:     log.With().Str("component", "aggregate").Logger(),
	}
}

// Providers returns the provider names in chain order.
func (a *Aggregator) Providers() []string {
	names := make([]string, len(a.clients))
	for i, c := range a.clients {
		names[i] = c.Name()
	}
	return names
}

// Lookup tries clients in priority order and returns the first successful
// record. A provider reporting not-found or lacking a usable identifier
// falls through to the next; so do rate-limit and availability failures.
// When every provider answered and none has the record, the result is
// source.ErrNotFound; when every attempt failed, ErrAllSourcesUnavailable.
func (a *Aggregator) Lookup(ctx context.Context, ids map[string]string) (*Candidate, error) {
	attempted := 0
	failed := 0
	for _, client := range a.clients {
		if !client.Capabilities().Has(source.CapLookup) {
			continue
		}
		paper, err := client.Lookup(ctx, ids)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			switch {
			case errors.Is(err, source.ErrNoUsableID):
				continue
			case errors.Is(err, source.ErrNotFound):
				attempted++
				continue
			case source.IsRetryable(err):
				attempted++
				failed++
				a.log.Warn().Err(err).Str("provider", client.Name()).Msg("lookup failed, falling through")
				continue
			default:
				return nil, err
			}
		}
		return &Candidate{Paper: *paper, Provider: client.Name()}, nil
	}

	if attempted == 0 {
		return nil, fmt.Errorf("lookup: %w", source.ErrNoUsableID)
	}
	if failed == attempted {
		return nil, ErrAllSourcesUnavailable
	}
	return nil, source.ErrNotFound
}

// Search queries every capable provider in chain order and interleaves
// their result lists round-robin, so no single provider's ranking dominates
// the head of the combined list. Provider failures fall through; an empty
// result from one provider is not an error.
func (a *Aggregator) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	var lists [][]Candidate
	attempted := 0
	failed := 0
	for _, client := range a.clients {
		if !client.Capabilities().Has(source.CapSearch) {
			continue
		}
		attempted++
		papers, err := client.Search(ctx, query, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if source.IsRetryable(err) {
				failed++
				a.log.Warn().Err(err).Str("provider", client.Name()).Msg("search failed, falling through")
				continue
			}
			return nil, err
		}
		list := make([]Candidate, 0, len(papers))
		for _, p := range papers {
			list = append(list, Candidate{Paper: p, Provider: client.Name()})
		}
		lists = append(lists, list)
	}

	if attempted > 0 && failed == attempted {
		return nil, ErrAllSourcesUnavailable
	}

	combined := interleave(lists)
	if limit > 0 && len(combined) > limit {
		combined = combined[:limit]
	}
	return combined, nil
}

// Citations unions the citing papers reported by every capable provider.
func (a *Aggregator) Citations(ctx context.Context, ids map[string]string, limit int) (Result, error) {
	return a.union(ctx, ids, limit, source.CapCitations, func(c source.Client) relatedFunc {
		return c.Citations
	})
}

// References unions the referenced papers reported by every capable
// provider.
func (a *Aggregator) References(ctx context.Context, ids map[string]string, limit int) (Result, error) {
	return a.union(ctx, ids, limit, source.CapReferences, func(c source.Client) relatedFunc {
		return c.References
	})
}

type relatedFunc func(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error)

// union queries all providers advertising cap and concatenates their
// results in chain order. Providers that fail or cannot use the identifier
// are recorded in Skipped; the resolver deduplicates overlap between
// providers downstream.
func (a *Aggregator) union(ctx context.Context, ids map[string]string, limit int, capability source.Capability, pick func(source.Client) relatedFunc) (Result, error) {
	result := Result{Complete: true}
	attempted := 0
	failed := 0
	for _, client := range a.clients {
		if !client.Capabilities().Has(capability) {
			continue
		}
		papers, err := pick(client)(ctx, ids, limit)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			switch {
			case errors.Is(err, source.ErrNoUsableID):
				result.Skipped = append(result.Skipped, client.Name())
				continue
			case errors.Is(err, source.ErrNotFound):
				attempted++
				result.Skipped = append(result.Skipped, client.Name())
				continue
			case source.IsRetryable(err):
				attempted++
				failed++
				result.Complete = false
				result.Skipped = append(result.Skipped, client.Name())
				a.log.Warn().Err(err).Str("provider", client.Name()).Msg("edge fetch failed, coverage incomplete")
				continue
			default:
				return Result{}, err
			}
		}
		attempted++
		for _, p := range papers {
			result.Papers = append(result.Papers, Candidate{Paper: p, Provider: client.Name()})
		}
	}

	if attempted > 0 && failed == attempted {
		return Result{}, ErrAllSourcesUnavailable
	}
	return result, nil
}

// interleave merges per-provider result lists round-robin, preserving each
// provider's internal order.
func interleave(lists [][]Candidate) []Candidate {
	var out []Candidate
	for i := 0; ; i++ {
		advanced := false
		for _, list := range lists {
			if i < len(list) {
				out = append(out, list[i])
				advanced = true
			}
		}
		if !advanced {
			return out
		}
	}
}
