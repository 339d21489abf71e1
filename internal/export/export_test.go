// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/snowball/pkg/types"
)

func exportProject() *types.ReviewProject {
	project := types.NewReviewProject("demo", "")
	project.CurrentIteration = 2
	count := 12
	project.AddPaper(&types.Paper{
		CanonicalID:   "b-paper",
		SourceIDs:     map[string]string{types.IDSchemeDOI: "10.1/b"},
		Title:         "Second Entry",
		Authors:       []types.Author{{Name: "Grace Hopper"}},
		Year:          1952,
		Venue:         "CACM",
		CitationCount: &count,
		Status:        types.StatusIncluded,
		Origin:        types.OriginSeed,
	})
	project.AddPaper(&types.Paper{
		CanonicalID: "a-paper",
		SourceIDs:   map[string]string{},
		Title:       "First Entry",
		Status:      types.StatusPending,
		Origin:      types.OriginBackward,
	})
	project.AddPaper(&types.Paper{
		CanonicalID: "c-paper",
		SourceIDs:   map[string]string{},
		Title:       "Excluded Entry",
		Status:      types.StatusExcluded,
	})
	return project
}

func TestSelectFiltersAndSorts(t *testing.T) {
	project := exportProject()

	all := Select(project)
	if len(all) != 3 {
		t.Fatalf("got %d papers, want all 3", len(all))
	}
	if all[0].CanonicalID != "a-paper" || all[2].CanonicalID != "c-paper" {
		t.Errorf("not sorted by canonical id: %s, %s", all[0].CanonicalID, all[2].CanonicalID)
	}

	included := Select(project, types.StatusIncluded)
	if len(included) != 1 || included[0].CanonicalID != "b-paper" {
		t.Errorf("included = %v", included)
	}
}

func TestBibTeX(t *testing.T) {
	project := exportProject()
	var buf bytes.Buffer
	if err := BibTeX(&buf, Select(project, types.StatusIncluded)); err != nil {
		t.Fatalf("BibTeX: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "@article{hopper1952,") {
		t.Errorf("missing citation key, got:\n%s", out)
	}
	if !strings.Contains(out, "title = {Second Entry}") {
		t.Error("missing title field")
	}
	if !strings.Contains(out, "doi = {10.1/b}") {
		t.Error("missing doi field")
	}
	if !strings.Contains(out, "author = {Grace Hopper}") {
		t.Error("missing author field")
	}
}

func TestBibTeXKeyCollision(t *testing.T) {
	papers := []*types.Paper{
		{CanonicalID: "x", Title: "One", Authors: []types.Author{{Name: "Ada Lovelace"}}, Year: 1843, SourceIDs: map[string]string{}},
		{CanonicalID: "y", Title: "Two", Authors: []types.Author{{Name: "Ada Lovelace"}}, Year: 1843, SourceIDs: map[string]string{}},
	}
	var buf bytes.Buffer
	if err := BibTeX(&buf, papers); err != nil {
		t.Fatalf("BibTeX: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "@article{lovelace1843,") || !strings.Contains(out, "@article{lovelace1843-1,") {
		t.Errorf("collision not suffixed:\n%s", out)
	}
}

func TestCSV(t *testing.T) {
	project := exportProject()
	var buf bytes.Buffer
	if err := CSV(&buf, Select(project)); err != nil {
		t.Fatalf("CSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(records))
	}
	if records[0][0] != "canonical_id" {
		t.Errorf("header = %v", records[0])
	}
	// b-paper row carries the populated fields.
	row := records[2]
	if row[0] != "b-paper" || row[1] != "10.1/b" || row[4] != "1952" || row[8] != "12" {
		t.Errorf("row = %v", row)
	}
}

func TestYAML(t *testing.T) {
	project := exportProject()
	var buf bytes.Buffer
	if err := YAML(&buf, project, Select(project, types.StatusIncluded)); err != nil {
		t.Fatalf("YAML: %v", err)
	}

	var doc struct {
		Project   string `yaml:"project"`
		Iteration int    `yaml:"iteration"`
		Papers    []struct {
			CanonicalID string `yaml:"canonical_id"`
			Title       string `yaml:"title"`
		} `yaml:"papers"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if doc.Project != "demo" || doc.Iteration != 2 {
		t.Errorf("header = %+v", doc)
	}
	if len(doc.Papers) != 1 || doc.Papers[0].CanonicalID != "b-paper" {
		t.Errorf("papers = %+v", doc.Papers)
	}
}
