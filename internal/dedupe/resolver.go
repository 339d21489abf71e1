// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe decides whether two paper records denote one real-world
// work, and merges them when they do. The resolver keeps identifier and
// title indexes over the corpus and updates them after every merge, so
// chains of partial matches (A shares a DOI with B, B shares a title with C)
// converge to one paper regardless of insertion order.
// Implements: docs/ARCHITECTURE § Identity Resolver.
package dedupe

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/pkg/types"
)

// Outcome reports how a candidate was resolved.
type Outcome struct {
	// CanonicalID is the corpus paper the candidate resolved to, whether
	// freshly inserted or merged into an existing one.
	CanonicalID string

	// New is true when the candidate created a new corpus paper.
	New bool

	// Ambiguous is true when the matching rules selected more than one
	// existing paper; the candidate was inserted unmerged with the
	// Ambiguous flag set for reviewer attention.
	Ambiguous bool
}

// Resolver performs identity resolution against one project's corpus. It is
// not safe for concurrent use; the engine's resolving phase is the single
// writer.
type Resolver struct {
	project   *types.ReviewProject
	tolerance int
	log       zerolog.Logger

	// byID maps scheme-qualified identifiers to canonical ids; byTitle maps
	// normalized titles to the canonical ids sharing them.
	byID    map[string]string
	byTitle map[string][]string

	// aliases maps canonical ids absorbed by consolidation to their
	// survivors, so callers holding a pre-merge id can follow it.
	aliases map[string]string
}

// NewResolver builds a resolver with indexes over the project's current
// corpus.
func NewResolver(project *types.ReviewProject, cfg types.DedupeConfig, log zerolog.Logger) *Resolver {
	tolerance := cfg.YearTolerance
	if tolerance < 0 {
		tolerance = 0
	}
	r := &Resolver{
		project:   project,
		tolerance: tolerance,
		log:       log.With().Str("component", "dedupe").Logger(),
		byID:      make(map[string]string),
		byTitle:   make(map[string][]string),
		aliases:   make(map[string]string),
	}
	for id, p := range project.Papers {
		r.index(id, p)
	}
	return r
}

// Resolve matches a candidate against the corpus and either merges it into
// an existing paper or inserts it as a new pending one. Matching rules in
// order, first match wins: shared source identifier, then normalized title
// with compatible year. A candidate whose title-rule matches span several
// distinct papers is inserted with the Ambiguous flag rather than merged.
//
// Repeated resolution of the same record is a no-op beyond the first merge.
func (r *Resolver) Resolve(candidate *types.Paper) Outcome {
	exact := r.exactMatches(candidate)
	titleMatches := r.titleMatches(candidate)

	if len(exact) > 0 {
		set := exact
		// An identifier match plus a single distinct title match means the
		// candidate bridges two corpus records for the same work.
		if len(titleMatches) == 1 && !containsString(set, titleMatches[0]) {
			set = append(set, titleMatches[0])
			sort.Strings(set)
		}
		primary := r.consolidate(set)
		r.mergeInto(primary, candidate)
		return Outcome{CanonicalID: primary}
	}

	switch len(titleMatches) {
	case 0:
		return Outcome{CanonicalID: r.insert(candidate, false, nil), New: true}
	case 1:
		primary := titleMatches[0]
		r.mergeInto(primary, candidate)
		return Outcome{CanonicalID: primary}
	default:
		r.log.Warn().
			Str("title", candidate.Title).
			Strs("matches", titleMatches).
			Msg("ambiguous match, inserting unmerged")
		return Outcome{
			CanonicalID: r.insert(candidate, true, titleMatches),
			New:         true,
			Ambiguous:   true,
		}
	}
}

// CanonicalFor returns the corpus paper currently holding the given
// scheme-qualified identifier, if any.
func (r *Resolver) CanonicalFor(scheme, id string) (string, bool) {
	canonical, ok := r.byID[idKey(scheme, id)]
	return canonical, ok
}

// Current returns the surviving canonical id for id, following any
// consolidations that absorbed it. Ids never consolidated map to
// themselves.
func (r *Resolver) Current(id string) string {
	for {
		next, ok := r.aliases[id]
		if !ok {
			return id
		}
		id = next
	}
}

// exactMatches returns the distinct corpus papers sharing any source
// identifier with the candidate, in deterministic order.
func (r *Resolver) exactMatches(candidate *types.Paper) []string {
	seen := make(map[string]bool)
	var matches []string
	for scheme, id := range candidate.SourceIDs {
		if id == "" {
			continue
		}
		if canonical, ok := r.byID[idKey(scheme, id)]; ok && !seen[canonical] {
			seen[canonical] = true
			matches = append(matches, canonical)
		}
	}
	sort.Strings(matches)
	return matches
}

// titleMatches returns the distinct corpus papers whose normalized title
// equals the candidate's and whose year is compatible. Ambiguous papers are
// excluded as merge targets; they are awaiting reviewer resolution.
func (r *Resolver) titleMatches(candidate *types.Paper) []string {
	norm := NormalizeTitle(candidate.Title)
	if norm == "" {
		return nil
	}
	var matches []string
	for _, canonical := range r.byTitle[norm] {
		p, ok := r.project.Papers[canonical]
		if !ok || p.Ambiguous {
			continue
		}
		if yearsCompatible(candidate.Year, p.Year, r.tolerance) {
			matches = append(matches, canonical)
		}
	}
	sort.Strings(matches)
	return matches
}

// consolidate merges a set of corpus papers known to denote one work into a
// single survivor and returns its canonical id. The survivor is the one
// discovered earliest, ties broken by canonical id. Every edge and seed
// entry pointing at an absorbed paper is rewritten to the survivor.
func (r *Resolver) consolidate(ids []string) string {
	if len(ids) == 1 {
		return ids[0]
	}

	primary := ids[0]
	for _, id := range ids[1:] {
		a, b := r.project.Papers[primary], r.project.Papers[id]
		if b.DiscoveredAtIteration < a.DiscoveredAtIteration {
			primary = id
		}
	}

	for _, id := range ids {
		if id == primary {
			continue
		}
		absorbed := r.project.Papers[id]
		r.mergeInto(primary, absorbed)
		// A review decision on either duplicate survives the merge.
		if absorbed.Status == types.StatusIncluded {
			r.project.Papers[primary].Status = types.StatusIncluded
		}
		delete(r.project.Papers, id)
		r.aliases[id] = primary
		r.rewriteEdges(id, primary)
		r.reindexAll(id, primary)
	}
	return primary
}

// mergeInto folds the incoming record into the corpus paper. Scalars keep
// the corpus value unless missing; CitationCount is the exception, where the
// latest reported value wins. Identifier maps and edge sets are unioned.
func (r *Resolver) mergeInto(canonical string, incoming *types.Paper) {
	p := r.project.Papers[canonical]

	if p.SourceIDs == nil {
		p.SourceIDs = make(map[string]string)
	}
	for scheme, id := range incoming.SourceIDs {
		if id == "" {
			continue
		}
		if scheme == types.IDSchemeDOI {
			id = strings.ToLower(id)
		}
		if _, ok := p.SourceIDs[scheme]; !ok {
			p.SourceIDs[scheme] = id
		}
	}

	if p.Title == "" {
		p.Title = incoming.Title
	}
	if p.Year == 0 {
		p.Year = incoming.Year
	}
	if p.Venue == "" {
		p.Venue = incoming.Venue
	}
	if p.Abstract == "" {
		p.Abstract = incoming.Abstract
	}
	if len(p.Authors) == 0 {
		p.Authors = incoming.Authors
	}
	if incoming.CitationCount != nil {
		count := *incoming.CitationCount
		p.CitationCount = &count
	}
	for _, ref := range incoming.References {
		p.AddReference(ref)
	}
	for _, cit := range incoming.Citations {
		p.AddCitation(cit)
	}

	r.index(canonical, p)
}

// insert assigns a canonical id, inserts the candidate as pending and
// indexes it.
func (r *Resolver) insert(candidate *types.Paper, ambiguous bool, ambiguousWith []string) string {
	p := *candidate
	if p.CanonicalID == "" {
		p.CanonicalID = uuid.NewString()
	}
	if p.SourceIDs == nil {
		p.SourceIDs = make(map[string]string)
	}
	if doi, ok := p.SourceIDs[types.IDSchemeDOI]; ok {
		p.SourceIDs[types.IDSchemeDOI] = strings.ToLower(doi)
	}
	if p.Status == "" {
		p.Status = types.StatusPending
	}
	p.Ambiguous = ambiguous
	p.AmbiguousWith = ambiguousWith
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	r.project.AddPaper(&p)
	r.index(p.CanonicalID, &p)
	return p.CanonicalID
}

// index records a paper's identifiers and normalized title. Identifier
// entries are first-writer-wins: an id already pointing at another paper is
// left alone until consolidation resolves the conflict.
func (r *Resolver) index(canonical string, p *types.Paper) {
	for scheme, id := range p.SourceIDs {
		if id == "" {
			continue
		}
		key := idKey(scheme, id)
		if _, ok := r.byID[key]; !ok {
			r.byID[key] = canonical
		}
	}
	if norm := NormalizeTitle(p.Title); norm != "" {
		for _, existing := range r.byTitle[norm] {
			if existing == canonical {
				return
			}
		}
		r.byTitle[norm] = append(r.byTitle[norm], canonical)
	}
}

// reindexAll repoints every index entry for an absorbed paper at the
// survivor.
func (r *Resolver) reindexAll(absorbed, survivor string) {
	for key, canonical := range r.byID {
		if canonical == absorbed {
			r.byID[key] = survivor
		}
	}
	for norm, canonicals := range r.byTitle {
		changed := false
		seen := make(map[string]bool)
		var out []string
		for _, canonical := range canonicals {
			if canonical == absorbed {
				canonical = survivor
				changed = true
			}
			if !seen[canonical] {
				seen[canonical] = true
				out = append(out, canonical)
			}
		}
		if changed {
			r.byTitle[norm] = out
		}
	}
}

// rewriteEdges replaces an absorbed canonical id with the survivor's in
// every paper's edge sets and in the seed list.
func (r *Resolver) rewriteEdges(absorbed, survivor string) {
	for _, p := range r.project.Papers {
		p.References = replaceEntry(p.References, absorbed, survivor)
		p.Citations = replaceEntry(p.Citations, absorbed, survivor)
		if p.DiscoveredVia == absorbed {
			p.DiscoveredVia = survivor
		}
	}
	for i, id := range r.project.SeedIDs {
		if id == absorbed {
			r.project.SeedIDs[i] = survivor
		}
	}
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func idKey(scheme, id string) string {
	if scheme == types.IDSchemeDOI {
		id = strings.ToLower(id)
	}
	return scheme + "\x00" + id
}

// replaceEntry swaps old for repl in a sorted set, re-sorting and deduping.
func replaceEntry(set []string, old, repl string) []string {
	found := false
	for _, s := range set {
		if s == old {
			found = true
			break
		}
	}
	if !found {
		return set
	}
	var out []string
	for _, s := range set {
		if s == old {
			s = repl
		}
		out = append(out, s)
	}
	sort.Strings(out)
	deduped := out[:0]
	for i, s := range out {
		if i == 0 || out[i-1] != s {
			deduped = append(deduped, s)
		}
	}
	return deduped
}
