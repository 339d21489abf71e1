// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"strings"
	"time"
)

// FilterCriteria restricts which included papers are eligible for frontier
// expansion. Zero values mean "no constraint".
type FilterCriteria struct {
	// MinYear / MaxYear bound the publication year. A paper with unknown
	// year (0) passes both bounds: providers frequently omit years and
	// dropping those papers from expansion would silently shrink coverage.
	MinYear int `json:"min_year,omitempty" yaml:"min_year,omitempty"`
	MaxYear int `json:"max_year,omitempty" yaml:"max_year,omitempty"`

	// VenueAllow, when non-empty, restricts expansion to papers whose venue
	// contains one of the listed substrings (case-insensitive). VenueDeny
	// excludes matching venues and wins over VenueAllow.
	VenueAllow []string `json:"venue_allow,omitempty" yaml:"venue_allow,omitempty"`
	VenueDeny  []string `json:"venue_deny,omitempty" yaml:"venue_deny,omitempty"`

	// MinScore excludes papers whose relevance score is known and below the
	// threshold. Unscored papers pass.
	MinScore float64 `json:"min_score,omitempty" yaml:"min_score,omitempty"`
}

// Allows reports whether a paper passes the criteria.
func (f FilterCriteria) Allows(p *Paper) bool {
	if p.Year != 0 {
		if f.MinYear != 0 && p.Year < f.MinYear {
			return false
		}
		if f.MaxYear != 0 && p.Year > f.MaxYear {
			return false
		}
	}
	venue := strings.ToLower(p.Venue)
	for _, deny := range f.VenueDeny {
		if deny != "" && strings.Contains(venue, strings.ToLower(deny)) {
			return false
		}
	}
	if len(f.VenueAllow) > 0 {
		allowed := false
		for _, allow := range f.VenueAllow {
			if allow != "" && strings.Contains(venue, strings.ToLower(allow)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	if f.MinScore > 0 && p.RelevanceScore != nil && *p.RelevanceScore < f.MinScore {
		return false
	}
	return true
}

// IterationStats summarizes one completed snowball iteration.
type IterationStats struct {
	Iteration  int       `json:"iteration" yaml:"iteration"`
	Discovered int       `json:"discovered" yaml:"discovered"`
	Backward   int       `json:"backward" yaml:"backward"`
	Forward    int       `json:"forward" yaml:"forward"`
	ForReview  int       `json:"for_review" yaml:"for_review"`
	Complete   bool      `json:"complete" yaml:"complete"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// ReviewProject is the aggregate root for one literature review.
type ReviewProject struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// SeedIDs holds the canonical ids of seed papers in addition order.
	SeedIDs []string `json:"seed_ids" yaml:"seed_ids"`

	// Papers maps canonical id to paper. Papers are never removed;
	// exclusion is a status.
	Papers map[string]*Paper `json:"papers" yaml:"papers"`

	CurrentIteration int `json:"current_iteration" yaml:"current_iteration"`

	// MaxIterations bounds ShouldContinue-style drivers; 0 means unbounded.
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`

	Filter FilterCriteria `json:"filter_criteria" yaml:"filter_criteria"`

	// Stats records per-iteration outcomes keyed by iteration number.
	Stats map[int]IterationStats `json:"iteration_stats,omitempty" yaml:"iteration_stats,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewReviewProject creates an empty project.
func NewReviewProject(name, description string) *ReviewProject {
	return &ReviewProject{
		Name:        name,
		Description: description,
		Papers:      make(map[string]*Paper),
		Stats:       make(map[int]IterationStats),
		CreatedAt:   time.Now().UTC(),
	}
}

// AddPaper inserts a paper into the corpus. It is a no-op if the canonical id
// is already present.
func (pr *ReviewProject) AddPaper(p *Paper) {
	if pr.Papers == nil {
		pr.Papers = make(map[string]*Paper)
	}
	if _, ok := pr.Papers[p.CanonicalID]; ok {
		return
	}
	pr.Papers[p.CanonicalID] = p
}

// IsSeed reports whether the canonical id is a seed.
func (pr *ReviewProject) IsSeed(id string) bool {
	for _, s := range pr.SeedIDs {
		if s == id {
			return true
		}
	}
	return false
}

// ByStatus returns the papers with the given status, ordered by canonical id
// for determinism.
func (pr *ReviewProject) ByStatus(status PaperStatus) []*Paper {
	var out []*Paper
	for _, p := range pr.Papers {
		if p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CanonicalID < out[j].CanonicalID
	})
	return out
}

// PendingByPriority returns pending papers in review-priority order:
// relevance score descending (unscored last), then citation count descending
// (unreported last), then discovery iteration ascending, then canonical id.
func (pr *ReviewProject) PendingByPriority() []*Paper {
	pending := pr.ByStatus(StatusPending)
	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		switch {
		case a.RelevanceScore == nil && b.RelevanceScore != nil:
			return false
		case a.RelevanceScore != nil && b.RelevanceScore == nil:
			return true
		case a.RelevanceScore != nil && b.RelevanceScore != nil && *a.RelevanceScore != *b.RelevanceScore:
			return *a.RelevanceScore > *b.RelevanceScore
		}
		if ca, cb := a.CitationCount, b.CitationCount; ca != nil || cb != nil {
			if CitationCountLess(ca, cb) {
				return true
			}
			if CitationCountLess(cb, ca) {
				return false
			}
		}
		if a.DiscoveredAtIteration != b.DiscoveredAtIteration {
			return a.DiscoveredAtIteration < b.DiscoveredAtIteration
		}
		return a.CanonicalID < b.CanonicalID
	})
	return pending
}
