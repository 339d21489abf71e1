// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the snowball pipeline.
// Implements: docs/ARCHITECTURE § Data Model.
package types

import (
	"sort"
	"strings"
	"time"
)

// Identifier scheme keys used in Paper.SourceIDs. A DOI or arXiv id is the
// same value regardless of which provider reported it, so those get scheme
// keys of their own; provider-native ids use the provider name.
const (
	IDSchemeDOI             = "doi"
	IDSchemeArxiv           = "arxiv"
	IDSchemeSemanticScholar = "semanticscholar"
	IDSchemeOpenAlex        = "openalex"
	IDSchemeCrossref        = "crossref"
)

// PaperStatus is the review state of a paper. The discovery engine only ever
// creates papers as StatusPending; transitions are applied by the review
// workflow.
type PaperStatus string

const (
	StatusPending  PaperStatus = "pending"
	StatusIncluded PaperStatus = "included"
	StatusExcluded PaperStatus = "excluded"
)

// Origin records how a paper entered the corpus.
type Origin string

const (
	OriginSeed     Origin = "seed"
	OriginBackward Origin = "backward"
	OriginForward  Origin = "forward"
)

// Author is a paper author. Authors are scoped to their paper's author list;
// there is no global author registry.
type Author struct {
	// Name is the normalized display form.
	Name string `json:"name" yaml:"name"`

	// SourceIDs maps identifier scheme to the author's native id at that
	// provider (e.g. a Semantic Scholar author id), when known.
	SourceIDs map[string]string `json:"source_ids,omitempty" yaml:"source_ids,omitempty"`
}

// Paper is the corpus unit: exactly one Paper per real-world work.
type Paper struct {
	// CanonicalID is the stable internal identifier, assigned once on
	// insertion and never reused.
	CanonicalID string `json:"canonical_id" yaml:"canonical_id"`

	// SourceIDs maps identifier scheme to provider-native identifier.
	// Multiple providers may contribute entries over time.
	SourceIDs map[string]string `json:"source_ids" yaml:"source_ids"`

	Title    string   `json:"title" yaml:"title"`
	Authors  []Author `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"` // 0 = unknown
	Venue    string   `json:"venue,omitempty" yaml:"venue,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// CitationCount is provider-reported and may disagree across providers;
	// the latest successful fetch wins. Nil means never reported.
	CitationCount *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// References and Citations hold canonical ids, or unresolved
	// "scheme:id" tokens for works not yet in the corpus. Kept sorted and
	// duplicate-free by AddReference/AddCitation.
	References []string `json:"references,omitempty" yaml:"references,omitempty"`
	Citations  []string `json:"citations,omitempty" yaml:"citations,omitempty"`

	Status PaperStatus `json:"status" yaml:"status"`
	Origin Origin      `json:"origin" yaml:"origin"`

	// DiscoveredAtIteration is the iteration counter value when this paper
	// was inserted.
	DiscoveredAtIteration int `json:"discovered_at_iteration" yaml:"discovered_at_iteration"`

	// DiscoveredVia is the canonical id of the frontier paper whose
	// expansion surfaced this one. Empty for seeds.
	DiscoveredVia string `json:"discovered_via,omitempty" yaml:"discovered_via,omitempty"`

	// RelevanceScore is set by the scorer and only meaningful while the
	// paper is pending.
	RelevanceScore *float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// ScoredAtIteration is the iteration at which RelevanceScore was last
	// computed.
	ScoredAtIteration int `json:"scored_at_iteration,omitempty" yaml:"scored_at_iteration,omitempty"`

	// Ambiguous marks a paper the resolver declined to auto-merge because
	// the matching rules selected more than one existing corpus paper.
	// AmbiguousWith lists the candidate canonical ids for the reviewer.
	Ambiguous     bool     `json:"ambiguous,omitempty" yaml:"ambiguous,omitempty"`
	AmbiguousWith []string `json:"ambiguous_with,omitempty" yaml:"ambiguous_with,omitempty"`

	// ExpandedBackward / ExpandedForward record whether this paper's
	// references / citations have been fetched in a completed iteration.
	ExpandedBackward bool `json:"expanded_backward,omitempty" yaml:"expanded_backward,omitempty"`
	ExpandedForward  bool `json:"expanded_forward,omitempty" yaml:"expanded_forward,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ExternalToken builds an unresolved reference token for a work known only by
// a provider identifier.
func ExternalToken(scheme, id string) string {
	return scheme + ":" + id
}

// IsExternalToken reports whether an entry in References/Citations is an
// unresolved provider identifier rather than a canonical id.
func IsExternalToken(s string) bool {
	return strings.ContainsRune(s, ':')
}

// AddReference records an outgoing edge, keeping the set sorted and free of
// duplicates. It reports whether the entry was new.
func (p *Paper) AddReference(id string) bool {
	var added bool
	p.References, added = insertSorted(p.References, id)
	return added
}

// AddCitation records an incoming edge, keeping the set sorted and free of
// duplicates. It reports whether the entry was new.
func (p *Paper) AddCitation(id string) bool {
	var added bool
	p.Citations, added = insertSorted(p.Citations, id)
	return added
}

func insertSorted(set []string, id string) ([]string, bool) {
	i := sort.SearchStrings(set, id)
	if i < len(set) && set[i] == id {
		return set, false
	}
	set = append(set, "")
	copy(set[i+1:], set[i:])
	set[i] = id
	return set, true
}

// YearLess orders publication years with unknowns (zero) after any known
// year. This is the ordering policy for every year-sortable view.
func YearLess(a, b int) bool {
	if a == 0 {
		return false
	}
	if b == 0 {
		return true
	}
	return a < b
}

// CitationCountLess orders citation counts descending with unreported (nil)
// counts after any reported count.
func CitationCountLess(a, b *int) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a > *b
}
