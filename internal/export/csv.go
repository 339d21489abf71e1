// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/snowball/pkg/types"
)

var csvHeader = []string{
	"canonical_id", "doi", "title", "authors", "year", "venue",
	"status", "origin", "citation_count", "relevance_score",
	"discovered_at_iteration",
}

// CSV writes the papers as comma-separated rows with a header line.
func CSV(w io.Writer, papers []*types.Paper) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, p := range papers {
		names := make([]string, len(p.Authors))
		for i, a := range p.Authors {
			names[i] = a.Name
		}
		year := ""
		if p.Year != 0 {
			year = fmt.Sprintf("%d", p.Year)
		}
		count := ""
		if p.CitationCount != nil {
			count = fmt.Sprintf("%d", *p.CitationCount)
		}
		score := ""
		if p.RelevanceScore != nil {
			score = fmt.Sprintf("%.4f", *p.RelevanceScore)
		}

		row := []string{
			p.CanonicalID,
			p.SourceIDs[types.IDSchemeDOI],
			p.Title,
			strings.Join(names, "; "),
			year,
			p.Venue,
			string(p.Status),
			string(p.Origin),
			count,
			score,
			fmt.Sprintf("%d", p.DiscoveredAtIteration),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
