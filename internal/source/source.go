// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source adapts external bibliographic providers to a uniform
// capability interface. Each client owns its provider's rate-limit and
// backoff behavior and translates loosely-typed provider payloads into the
// normalized Paper shape, isolating downstream code from schema drift.
// Implements: docs/ARCHITECTURE § Source Clients.
package source

import (
	"context"

	"github.com/pdiddy/snowball/pkg/types"
)

// Capability is a bit set of the operations a client supports. A provider
// without a citation index simply omits CapCitations rather than faking it.
type Capability uint

const (
	CapSearch Capability = 1 << iota
	CapLookup
	CapCitations
	CapReferences
)

// Has reports whether all bits in want are present.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Client is the uniform capability interface implemented per provider.
//
// Lookup, Citations and References take the full identifier map of a paper
// (scheme → id, see types.IDScheme*); each client picks the scheme it
// understands and returns ErrNoUsableID when none applies. All calls are
// context-bound and never block indefinitely: the underlying HTTP client
// carries a timeout and the rate limiter honors cancellation.
type Client interface {
	Name() string
	Capabilities() Capability

	// Search returns papers in the provider's relevance order, best effort.
	Search(ctx context.Context, query string, limit int) ([]types.Paper, error)

	// Lookup fetches a single paper by identifier. Returns ErrNotFound when
	// the provider has no record.
	Lookup(ctx context.Context, ids map[string]string) (*types.Paper, error)

	// Citations returns papers that cite the identified paper.
	Citations(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error)

	// References returns papers the identified paper cites.
	References(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error)
}
