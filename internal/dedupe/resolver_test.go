// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedupe

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/pkg/types"
)

func newTestResolver(project *types.ReviewProject) *Resolver {
	return NewResolver(project, types.DedupeConfig{YearTolerance: 1}, zerolog.Nop())
}

func paperWithDOI(title, doi string, year int) *types.Paper {
	p := &types.Paper{Title: title, Year: year, SourceIDs: map[string]string{}}
	if doi != "" {
		p.SourceIDs[types.IDSchemeDOI] = doi
	}
	return p
}

func TestResolveNewPaper(t *testing.T) {
	project := types.NewReviewProject("test", "")
	r := newTestResolver(project)

	outcome := r.Resolve(paperWithDOI("Snowballing Guidelines", "10.1/x", 2014))
	if !outcome.New {
		t.Fatal("first resolution should insert a new paper")
	}
	if outcome.CanonicalID == "" {
		t.Fatal("canonical id not assigned")
	}

	p := project.Papers[outcome.CanonicalID]
	if p == nil {
		t.Fatal("paper not in corpus")
	}
	if p.Status != types.StatusPending {
		t.Errorf("Status = %q, want pending", p.Status)
	}
}

func TestResolveMatchByDOICaseInsensitive(t *testing.T) {
	project := types.NewReviewProject("test", "")
	r := newTestResolver(project)

	first := r.Resolve(paperWithDOI("Some Paper", "10.1/ABC", 2020))
	second := r.Resolve(paperWithDOI("Entirely Different Title", "10.1/abc", 1990))

	if second.New {
		t.Fatal("same DOI in different case should match")
	}
	if second.CanonicalID != first.CanonicalID {
		t.Errorf("resolved to %q, want %q", second.CanonicalID, first.CanonicalID)
	}
}

func TestResolveMatchByTitleAndYear(t *testing.T) {
	tests := []struct {
		name      string
		yearA     int
		yearB     int
		wantMatch bool
	}{
		{"equal years", 2020, 2020, true},
		{"within tolerance", 2020, 2021, true},
		{"outside tolerance", 2020, 2022, false},
		{"incoming year unknown", 2020, 0, true},
		{"corpus year unknown", 0, 2020, true},
		{"both unknown", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := types.NewReviewProject("test", "")
			r := newTestResolver(project)

			first := r.Resolve(paperWithDOI("The Same; Title!", "10.1/a", tt.yearA))
			second := r.Resolve(paperWithDOI("the same title", "10.2/b", tt.yearB))

			if got := second.CanonicalID == first.CanonicalID; got != tt.wantMatch {
				t.Errorf("matched = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestResolveMergeUnionsAndKeepsCorpusScalars(t *testing.T) {
	project := types.NewReviewProject("test", "")
	r := newTestResolver(project)

	count1 := 10
	existing := paperWithDOI("Deep Learning Survey", "10.1/dl", 2019)
	existing.Venue = "Nature"
	existing.CitationCount = &count1
	first := r.Resolve(existing)

	count2 := 25
	incoming := paperWithDOI("Deep Learning Survey (corrected)", "10.1/dl", 2020)
	incoming.SourceIDs[types.IDSchemeSemanticScholar] = "s2id"
	incoming.Venue = "arXiv"
	incoming.Abstract = "A survey of deep learning."
	incoming.CitationCount = &count2
	r.Resolve(incoming)

	p := project.Papers[first.CanonicalID]
	if p.Title != "Deep Learning Survey" {
		t.Errorf("Title = %q, corpus value should win", p.Title)
	}
	if p.Venue != "Nature" {
		t.Errorf("Venue = %q, corpus value should win", p.Venue)
	}
	if p.Year != 2019 {
		t.Errorf("Year = %d, corpus value should win", p.Year)
	}
	if p.Abstract != "A survey of deep learning." {
		t.Errorf("Abstract = %q, missing corpus value should adopt incoming", p.Abstract)
	}
	if p.SourceIDs[types.IDSchemeSemanticScholar] != "s2id" {
		t.Error("source ids should union")
	}
	if p.CitationCount == nil || *p.CitationCount != 25 {
		t.Errorf("CitationCount = %v, latest fetch should win", p.CitationCount)
	}
}

func TestResolveIdempotent(t *testing.T) {
	project := types.NewReviewProject("test", "")
	r := newTestResolver(project)

	incoming := paperWithDOI("Idempotence Test", "10.1/idem", 2020)
	incoming.Abstract = "abstract"
	incoming.References = []string{"doi:10.2/ref"}

	first := r.Resolve(incoming)
	p := project.Papers[first.CanonicalID]
	snapshotRefs := len(p.References)
	snapshotIDs := len(p.SourceIDs)

	again := r.Resolve(paperWithDOI("Idempotence Test", "10.1/idem", 2020))
	if again.New || again.CanonicalID != first.CanonicalID {
		t.Fatal("re-resolving should match the same paper")
	}
	if len(project.Papers) != 1 {
		t.Fatalf("corpus has %d papers, want 1", len(project.Papers))
	}
	if len(p.References) != snapshotRefs || len(p.SourceIDs) != snapshotIDs {
		t.Error("re-resolution changed the merged paper")
	}
}

// A matches B by DOI, B matches C by title+year: any insertion order must
// converge to exactly one corpus paper.
func TestResolveDedupSymmetry(t *testing.T) {
	makeRecords := func() (a, b, c *types.Paper) {
		a = paperWithDOI("", "10.1/work", 0)
		b = paperWithDOI("A Study Of Things", "10.1/work", 2020)
		c = &types.Paper{
			Title:     "a study of things",
			Year:      2021,
			SourceIDs: map[string]string{types.IDSchemeOpenAlex: "W99"},
		}
		return a, b, c
	}

	orders := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, order := range orders {
		project := types.NewReviewProject("test", "")
		r := newTestResolver(project)
		a, b, c := makeRecords()
		records := []*types.Paper{a, b, c}
		for _, i := range order {
			r.Resolve(records[i])
		}
		if len(project.Papers) != 1 {
			t.Errorf("order %v: corpus has %d papers, want 1", order, len(project.Papers))
			continue
		}
		for _, p := range project.Papers {
			if p.SourceIDs[types.IDSchemeDOI] != "10.1/work" {
				t.Errorf("order %v: DOI missing from merged paper", order)
			}
			if p.SourceIDs[types.IDSchemeOpenAlex] != "W99" {
				t.Errorf("order %v: OpenAlex id missing from merged paper", order)
			}
		}
	}
}

// The end-to-end discovery scenario: one provider reports a reference with a
// DOI, another reports the same work with no DOI but a matching title and
// year within tolerance.
func TestResolveTwoProvidersOneWork(t *testing.T) {
	project := types.NewReviewProject("test", "")
	r := newTestResolver(project)

	fromA := paperWithDOI("Foo Bar", "10.2/y", 0)
	outcomeA := r.Resolve(fromA)

	fromB := &types.Paper{
		Title:     "Foo Bar",
		Year:      2021,
		SourceIDs: map[string]string{types.IDSchemeSemanticScholar: "s2-foo"},
	}
	outcomeB := r.Resolve(fromB)

	if outcomeB.CanonicalID != outcomeA.CanonicalID {
		t.Fatal("records from two providers should resolve to one paper")
	}
	p := project.Papers[outcomeA.CanonicalID]
	if p.SourceIDs[types.IDSchemeDOI] != "10.2/y" || p.SourceIDs[types.IDSchemeSemanticScholar] != "s2-foo" {
		t.Errorf("SourceIDs = %v, want both providers' ids", p.SourceIDs)
	}
	if p.Status != types.StatusPending {
		t.Errorf("Status = %q, want pending", p.Status)
	}
}

// Exact-identifier matches against several corpus papers consolidate them
// into one survivor with rewritten edges.
func TestResolveConsolidatesDuplicateCorpusPapers(t *testing.T) {
	project := types.NewReviewProject("test", "")

	pa := &types.Paper{
		CanonicalID:           "paper-a",
		Title:                 "First Form",
		SourceIDs:             map[string]string{types.IDSchemeDOI: "10.1/dup"},
		Status:                types.StatusPending,
		DiscoveredAtIteration: 0,
	}
	pb := &types.Paper{
		CanonicalID:           "paper-b",
		Title:                 "Second Form",
		SourceIDs:             map[string]string{types.IDSchemeArxiv: "2101.00001"},
		Status:                types.StatusIncluded,
		DiscoveredAtIteration: 1,
	}
	other := &types.Paper{
		CanonicalID: "paper-c",
		Title:       "Unrelated",
		SourceIDs:   map[string]string{},
		References:  []string{"paper-b"},
		Status:      types.StatusPending,
	}
	project.AddPaper(pa)
	project.AddPaper(pb)
	project.AddPaper(other)
	project.SeedIDs = []string{"paper-b"}

	r := newTestResolver(project)

	bridge := &types.Paper{
		Title: "Bridging Record",
		SourceIDs: map[string]string{
			types.IDSchemeDOI:   "10.1/dup",
			types.IDSchemeArxiv: "2101.00001",
		},
	}
	outcome := r.Resolve(bridge)

	if outcome.CanonicalID != "paper-a" {
		t.Fatalf("survivor = %q, want the earliest-discovered paper-a", outcome.CanonicalID)
	}
	if _, ok := project.Papers["paper-b"]; ok {
		t.Error("absorbed paper should be removed from the corpus")
	}
	survivor := project.Papers["paper-a"]
	if survivor.SourceIDs[types.IDSchemeArxiv] != "2101.00001" {
		t.Error("absorbed paper's ids should union into the survivor")
	}
	if survivor.Status != types.StatusIncluded {
		t.Error("inclusion decision should survive consolidation")
	}
	if len(other.References) != 1 || other.References[0] != "paper-a" {
		t.Errorf("References = %v, want edge rewritten to survivor", other.References)
	}
	if project.SeedIDs[0] != "paper-a" {
		t.Errorf("SeedIDs = %v, want seed rewritten to survivor", project.SeedIDs)
	}

	// Callers holding the absorbed id must be able to follow it.
	if got := r.Current("paper-b"); got != "paper-a" {
		t.Errorf("Current(paper-b) = %q, want surviving paper-a", got)
	}
	if got := r.Current("paper-a"); got != "paper-a" {
		t.Errorf("Current(paper-a) = %q, want identity for a surviving id", got)
	}
	if got := r.Current("never-seen"); got != "never-seen" {
		t.Errorf("Current(never-seen) = %q, want identity for an unconsolidated id", got)
	}
}

func TestResolveAmbiguousMatch(t *testing.T) {
	project := types.NewReviewProject("test", "")

	// Two distinct corpus papers happen to share a normalized title, e.g. a
	// paper and its identically-titled extended version.
	one := paperWithDOI("Shared Title", "10.1/one", 2020)
	one.CanonicalID = "paper-one"
	one.Status = types.StatusPending
	two := paperWithDOI("Shared Title", "10.1/two", 2020)
	two.CanonicalID = "paper-two"
	two.Status = types.StatusPending
	project.AddPaper(one)
	project.AddPaper(two)

	r := newTestResolver(project)

	incoming := &types.Paper{Title: "shared title", Year: 2020, SourceIDs: map[string]string{}}
	outcome := r.Resolve(incoming)

	if !outcome.Ambiguous || !outcome.New {
		t.Fatalf("outcome = %+v, want new ambiguous insertion", outcome)
	}
	p := project.Papers[outcome.CanonicalID]
	if !p.Ambiguous {
		t.Error("Ambiguous flag not set")
	}
	if len(p.AmbiguousWith) != 2 {
		t.Errorf("AmbiguousWith = %v, want both candidate ids", p.AmbiguousWith)
	}
	if len(project.Papers) != 3 {
		t.Errorf("corpus has %d papers, want 3", len(project.Papers))
	}
}

func TestResolveUnknownYearNoCollisionIsNew(t *testing.T) {
	project := types.NewReviewProject("test", "")
	r := newTestResolver(project)

	r.Resolve(paperWithDOI("Established Work", "10.1/est", 2019))

	candidate := &types.Paper{Title: "Completely Novel Title", SourceIDs: map[string]string{}}
	outcome := r.Resolve(candidate)
	if !outcome.New {
		t.Error("candidate with unknown year and no collision must be new")
	}
	if outcome.Ambiguous {
		t.Error("no ambiguity expected")
	}
	if len(project.Papers) != 2 {
		t.Errorf("corpus has %d papers, want 2", len(project.Papers))
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Attention Is All You Need", "attention is all you need"},
		{"  Attention,   is ALL — you need!  ", "attention is all you need"},
		{"BERT: Pre-training of Deep Bidirectional Transformers", "bert pre training of deep bidirectional transformers"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
