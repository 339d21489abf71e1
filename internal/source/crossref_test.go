// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/pkg/types"
)

func TestCrossrefLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works/10.1109/tse.2007.70725" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"message": {
			"DOI": "10.1109/TSE.2007.70725",
			"title": ["Guidelines for Snowballing"],
			"container-title": ["IEEE TSE"],
			"abstract": "<jats:p>Systematic reviews</jats:p>",
			"issued": {"date-parts": [[2008, 1]]},
			"is-referenced-by-count": 300,
			"author": [{"given": "Claes", "family": "Wohlin"}]
		}}`))
	}))
	defer server.Close()

	client := NewCrossref(testHTTPConfig(), testProviderConfig(server.URL), zerolog.Nop())
	paper, err := client.Lookup(context.Background(), map[string]string{types.IDSchemeDOI: "10.1109/tse.2007.70725"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if paper.SourceIDs[types.IDSchemeDOI] != "10.1109/tse.2007.70725" {
		t.Errorf("DOI = %q, want lowercased", paper.SourceIDs[types.IDSchemeDOI])
	}
	if paper.Title != "Guidelines for Snowballing" {
		t.Errorf("Title = %q", paper.Title)
	}
	if paper.Venue != "IEEE TSE" {
		t.Errorf("Venue = %q", paper.Venue)
	}
	if paper.Year != 2008 {
		t.Errorf("Year = %d", paper.Year)
	}
	if paper.Abstract != "Systematic reviews" {
		t.Errorf("Abstract = %q, want JATS tags stripped", paper.Abstract)
	}
	if len(paper.Authors) != 1 || paper.Authors[0].Name != "Claes Wohlin" {
		t.Errorf("Authors = %v", paper.Authors)
	}
}

func TestCrossrefLookupRequiresDOI(t *testing.T) {
	client := NewCrossref(testHTTPConfig(), testProviderConfig("http://unused"), zerolog.Nop())
	_, err := client.Lookup(context.Background(), map[string]string{types.IDSchemeArxiv: "1706.03762"})
	if !errors.Is(err, ErrNoUsableID) {
		t.Fatalf("err = %v, want ErrNoUsableID", err)
	}
}

func TestCrossrefReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {
			"DOI": "10.1/root",
			"title": ["Root"],
			"reference": [
				{"key": "r1", "DOI": "10.1/a", "article-title": "First Ref", "year": "2001", "author": "Smith"},
				{"key": "r2", "DOI": "10.1/b"},
				{"key": "r3", "unstructured": "some unparseable citation"},
				{"key": "r4", "volume-title": "A Book", "year": "1999"}
			]
		}}`))
	}))
	defer server.Close()

	client := NewCrossref(testHTTPConfig(), testProviderConfig(server.URL), zerolog.Nop())
	papers, err := client.References(context.Background(), map[string]string{types.IDSchemeDOI: "10.1/root"}, 0)
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if len(papers) != 3 {
		t.Fatalf("got %d papers, want 3 (entry without DOI or title dropped)", len(papers))
	}

	if papers[0].Title != "First Ref" || papers[0].Year != 2001 {
		t.Errorf("papers[0] = %+v", papers[0])
	}
	if len(papers[0].Authors) != 1 || papers[0].Authors[0].Name != "Smith" {
		t.Errorf("papers[0].Authors = %v", papers[0].Authors)
	}
	if papers[1].SourceIDs[types.IDSchemeDOI] != "10.1/b" || papers[1].Title != "" {
		t.Errorf("DOI-only entry should be kept: %+v", papers[1])
	}
	if papers[2].Title != "A Book" {
		t.Errorf("volume-title fallback: %+v", papers[2])
	}
}

func TestCrossrefReferencesLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {
			"DOI": "10.1/root",
			"title": ["Root"],
			"reference": [
				{"key": "r1", "article-title": "One"},
				{"key": "r2", "article-title": "Two"},
				{"key": "r3", "article-title": "Three"}
			]
		}}`))
	}))
	defer server.Close()

	client := NewCrossref(testHTTPConfig(), testProviderConfig(server.URL), zerolog.Nop())
	papers, err := client.References(context.Background(), map[string]string{types.IDSchemeDOI: "10.1/root"}, 2)
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want limit of 2 applied", len(papers))
	}
}

func TestCrossrefCitationsUnsupported(t *testing.T) {
	client := NewCrossref(testHTTPConfig(), testProviderConfig("http://unused"), zerolog.Nop())
	if client.Capabilities().Has(CapCitations) {
		t.Error("crossref should not advertise CapCitations")
	}
	_, err := client.Citations(context.Background(), map[string]string{types.IDSchemeDOI: "10.1/x"}, 10)
	if !errors.Is(err, ErrNoUsableID) {
		t.Fatalf("err = %v, want ErrNoUsableID", err)
	}
}

func TestCrossrefSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query.bibliographic"); got != "wohlin snowballing" {
			t.Errorf("query.bibliographic = %q", got)
		}
		w.Write([]byte(`{"message": {"items": [
			{"DOI": "10.1/s", "title": ["Snowballing Guidelines"]}
		]}}`))
	}))
	defer server.Close()

	client := NewCrossref(testHTTPConfig(), testProviderConfig(server.URL), zerolog.Nop())
	papers, err := client.Search(context.Background(), "wohlin snowballing", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 1 || papers[0].Title != "Snowballing Guidelines" {
		t.Fatalf("papers = %v", papers)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2001", 2001},
		{" 1999 ", 1999},
		{"", 0},
		{"n.d.", 0},
		{"99", 0},
	}
	for _, tt := range tests {
		if got := parseYear(tt.in); got != tt.want {
			t.Errorf("parseYear(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
