// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders a project's corpus in interchange formats. All
// exporters write deterministic output: papers sorted by canonical id, so
// repeated exports of the same corpus diff cleanly.
// Implements: docs/ARCHITECTURE § Export.
package export

import (
	"sort"

	"github.com/pdiddy/snowball/pkg/types"
)

// Select returns the project's papers with any of the given statuses,
// sorted by canonical id. With no statuses, every paper is returned.
func Select(project *types.ReviewProject, statuses ...types.PaperStatus) []*types.Paper {
	want := make(map[types.PaperStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	var out []*types.Paper
	for _, p := range project.Papers {
		if len(want) == 0 || want[p.Status] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CanonicalID < out[j].CanonicalID
	})
	return out
}
