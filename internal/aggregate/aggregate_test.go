// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/internal/source"
	"github.com/pdiddy/snowball/pkg/types"
)

// mockClient is a scripted source.Client for exercising the fallback chain.
type mockClient struct {
	name string
	caps source.Capability

	searchResult []types.Paper
	searchErr    error

	lookupResult *types.Paper
	lookupErr    error

	citations    []types.Paper
	citationsErr error

	references    []types.Paper
	referencesErr error

	calls []string
}

func (m *mockClient) Name() string                    { return m.name }
func (m *mockClient) Capabilities() source.Capability { return m.caps }

func (m *mockClient) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	m.calls = append(m.calls, "search")
	return m.searchResult, m.searchErr
}

func (m *mockClient) Lookup(ctx context.Context, ids map[string]string) (*types.Paper, error) {
	m.calls = append(m.calls, "lookup")
	return m.lookupResult, m.lookupErr
}

func (m *mockClient) Citations(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error) {
	m.calls = append(m.calls, "citations")
	return m.citations, m.citationsErr
}

func (m *mockClient) References(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error) {
	m.calls = append(m.calls, "references")
	return m.references, m.referencesErr
}

const allCaps = source.CapSearch | source.CapLookup | source.CapCitations | source.CapReferences

func titled(title string) types.Paper {
	return types.Paper{Title: title, SourceIDs: map[string]string{}}
}

var testIDs = map[string]string{types.IDSchemeDOI: "10.1/x"}

func TestLookupFirstSuccess(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps, lookupResult: &types.Paper{Title: "From First"}}
	second := &mockClient{name: "second", caps: allCaps, lookupResult: &types.Paper{Title: "From Second"}}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	got, err := agg.Lookup(context.Background(), testIDs)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Paper.Title != "From First" || got.Provider != "first" {
		t.Errorf("got %+v, want first provider's record", got)
	}
	if len(second.calls) != 0 {
		t.Error("second provider should not have been queried")
	}
}

func TestLookupFallsThroughOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		firstErr error
	}{
		{"rate limited", source.ErrRateLimited},
		{"unavailable", source.ErrUnavailable},
		{"not found", source.ErrNotFound},
		{"no usable id", source.ErrNoUsableID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := &mockClient{name: "first", caps: allCaps, lookupErr: tt.firstErr}
			second := &mockClient{name: "second", caps: allCaps, lookupResult: &types.Paper{Title: "Fallback"}}
			agg := New([]source.Client{first, second}, zerolog.Nop())

			got, err := agg.Lookup(context.Background(), testIDs)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if got.Provider != "second" {
				t.Errorf("Provider = %q, want fallback to second", got.Provider)
			}
		})
	}
}

func TestLookupAllUnavailable(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps, lookupErr: source.ErrUnavailable}
	second := &mockClient{name: "second", caps: allCaps, lookupErr: source.ErrRateLimited}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	_, err := agg.Lookup(context.Background(), testIDs)
	if !errors.Is(err, ErrAllSourcesUnavailable) {
		t.Fatalf("err = %v, want ErrAllSourcesUnavailable", err)
	}
}

func TestLookupAllNotFound(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps, lookupErr: source.ErrNotFound}
	second := &mockClient{name: "second", caps: allCaps, lookupErr: source.ErrNotFound}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	_, err := agg.Lookup(context.Background(), testIDs)
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLookupMixedNotFoundAndUnavailable(t *testing.T) {
	// One provider answered authoritatively, so the chain did not wholly
	// fail: the record just is not there.
	first := &mockClient{name: "first", caps: allCaps, lookupErr: source.ErrUnavailable}
	second := &mockClient{name: "second", caps: allCaps, lookupErr: source.ErrNotFound}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	_, err := agg.Lookup(context.Background(), testIDs)
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchInterleavesProviders(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps,
		searchResult: []types.Paper{titled("A1"), titled("A2"), titled("A3")}}
	second := &mockClient{name: "second", caps: allCaps,
		searchResult: []types.Paper{titled("B1")}}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	got, err := agg.Search(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	wantTitles := []string{"A1", "B1", "A2", "A3"}
	if len(got) != len(wantTitles) {
		t.Fatalf("got %d candidates, want %d", len(got), len(wantTitles))
	}
	for i, want := range wantTitles {
		if got[i].Paper.Title != want {
			t.Errorf("candidate %d = %q, want %q", i, got[i].Paper.Title, want)
		}
	}
	if got[1].Provider != "second" {
		t.Errorf("Provider = %q, want origin annotation", got[1].Provider)
	}
}

func TestSearchSurvivesOneProviderDown(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps, searchErr: source.ErrUnavailable}
	second := &mockClient{name: "second", caps: allCaps, searchResult: []types.Paper{titled("B1")}}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	got, err := agg.Search(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Paper.Title != "B1" {
		t.Fatalf("got %v, want the surviving provider's results", got)
	}
}

func TestCitationsUnionsAllCapableProviders(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps, citations: []types.Paper{titled("C1")}}
	second := &mockClient{name: "second", caps: allCaps, citations: []types.Paper{titled("C2")}}
	noCitations := &mockClient{name: "third", caps: source.CapLookup | source.CapReferences}
	agg := New([]source.Client{first, second, noCitations}, zerolog.Nop())

	got, err := agg.Citations(context.Background(), testIDs, 0)
	if err != nil {
		t.Fatalf("Citations: %v", err)
	}
	if len(got.Papers) != 2 {
		t.Fatalf("got %d papers, want union of both providers", len(got.Papers))
	}
	if !got.Complete {
		t.Error("Complete = false, want true when all capable providers answered")
	}
	if len(noCitations.calls) != 0 {
		t.Error("provider without CapCitations should not be queried")
	}
}

func TestCitationsPartialCoverage(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps, citationsErr: source.ErrRateLimited}
	second := &mockClient{name: "second", caps: allCaps, citations: []types.Paper{titled("C2")}}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	got, err := agg.Citations(context.Background(), testIDs, 0)
	if err != nil {
		t.Fatalf("Citations: %v", err)
	}
	if got.Complete {
		t.Error("Complete = true, want false when a provider failed")
	}
	if len(got.Skipped) != 1 || got.Skipped[0] != "first" {
		t.Errorf("Skipped = %v", got.Skipped)
	}
	if len(got.Papers) != 1 {
		t.Errorf("got %d papers, want the surviving provider's union", len(got.Papers))
	}
}

func TestReferencesNoUsableIDIsSkipNotFailure(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps, referencesErr: source.ErrNoUsableID}
	second := &mockClient{name: "second", caps: allCaps, references: []types.Paper{titled("R1")}}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	got, err := agg.References(context.Background(), testIDs, 0)
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if !got.Complete {
		t.Error("Complete = false, want true: a skip for identifier scheme is not a coverage failure")
	}
	if len(got.Skipped) != 1 || got.Skipped[0] != "first" {
		t.Errorf("Skipped = %v", got.Skipped)
	}
}

func TestReferencesAllUnavailable(t *testing.T) {
	first := &mockClient{name: "first", caps: allCaps, referencesErr: source.ErrUnavailable}
	second := &mockClient{name: "second", caps: allCaps, referencesErr: source.ErrUnavailable}
	agg := New([]source.Client{first, second}, zerolog.Nop())

	_, err := agg.References(context.Background(), testIDs, 0)
	if !errors.Is(err, ErrAllSourcesUnavailable) {
		t.Fatalf("err = %v, want ErrAllSourcesUnavailable", err)
	}
}
