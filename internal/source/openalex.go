// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/pkg/types"
)

// openAlexBase is the OpenAlex Works endpoint.
const openAlexBase = "https://api.openalex.org"

// openAlexBatchSize caps the ids per referenced-works batch lookup; the
// OpenAlex filter syntax allows at most 50 OR'd values.
const openAlexBatchSize = 50

// OpenAlex queries the OpenAlex API. It supports all four capabilities;
// references require a work lookup followed by batch lookups of the
// referenced_works ids, citations use the cites: filter.
type OpenAlex struct {
	fetcher
	base  string
	email string
	log   zerolog.Logger
}

// NewOpenAlex creates an OpenAlex client. cfg.Email, when set, is sent as
// the mailto parameter for polite-pool access.
func NewOpenAlex(httpCfg types.HTTPConfig, cfg types.ProviderConfig, log zerolog.Logger) *OpenAlex {
	base := cfg.BaseURL
	if base == "" {
		base = openAlexBase
	}
	return &OpenAlex{
		fetcher: newFetcher("openalex", httpCfg, cfg),
		base:    strings.TrimSuffix(base, "/"),
		email:   cfg.Email,
		log:     log.With().Str("provider", "openalex").Logger(),
	}
}

func (c *OpenAlex) Name() string { return "openalex" }

func (c *OpenAlex) Capabilities() Capability {
	return CapSearch | CapLookup | CapCitations | CapReferences
}

// Search queries the works search endpoint. OpenAlex returns results sorted
// by relevance by default.
func (c *OpenAlex) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	params := url.Values{
		"search":   {query},
		"per_page": {fmt.Sprintf("%d", limit)},
	}
	c.polite(params)

	var resp openAlexListResponse
	if err := c.getJSON(ctx, c.base+"/works?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	papers, _ := c.normalizeAll(resp.Results)
	return papers, nil
}

// Lookup fetches one work by DOI or OpenAlex id.
func (c *OpenAlex) Lookup(ctx context.Context, ids map[string]string) (*types.Paper, error) {
	raw, err := c.lookupRaw(ctx, ids)
	if err != nil {
		return nil, err
	}
	p, ok := c.normalize(*raw)
	if !ok {
		return nil, fmt.Errorf("openalex: %w: record without title or identifiers", ErrNotFound)
	}
	return &p, nil
}

// Citations returns the works citing the identified paper via the cites:
// filter, which takes the OpenAlex work id. When only a DOI is known the
// work is looked up first to obtain it.
func (c *OpenAlex) Citations(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error) {
	workID, err := c.workID(ctx, ids)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 200 {
		limit = 200
	}
	params := url.Values{
		"filter":   {"cites:" + workID},
		"per_page": {fmt.Sprintf("%d", limit)},
	}
	c.polite(params)

	var resp openAlexListResponse
	if err := c.getJSON(ctx, c.base+"/works?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	papers, _ := c.normalizeAll(resp.Results)
	return papers, nil
}

// References resolves the work, then batch-fetches its referenced_works ids.
// Referenced works that fail to resolve in a batch are returned as bare
// records carrying only their OpenAlex id, so the caller still learns the
// edge exists.
func (c *OpenAlex) References(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error) {
	raw, err := c.lookupRaw(ctx, ids)
	if err != nil {
		return nil, err
	}

	refs := raw.ReferencedWorks
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	if len(refs) == 0 {
		return nil, nil
	}

	fetched := make(map[string]types.Paper)
	for start := 0; start < len(refs); start += openAlexBatchSize {
		end := start + openAlexBatchSize
		if end > len(refs) {
			end = len(refs)
		}
		batch := make([]string, 0, end-start)
		for _, ref := range refs[start:end] {
			batch = append(batch, shortOpenAlexID(ref))
		}

		params := url.Values{
			"filter":   {"openalex:" + strings.Join(batch, "|")},
			"per_page": {fmt.Sprintf("%d", len(batch))},
		}
		c.polite(params)

		var resp openAlexListResponse
		if err := c.getJSON(ctx, c.base+"/works?"+params.Encode(), &resp); err != nil {
			return nil, err
		}
		papers, _ := c.normalizeAll(resp.Results)
		for _, p := range papers {
			fetched[p.SourceIDs[types.IDSchemeOpenAlex]] = p
		}
	}

	// Preserve the reference order of the original work.
	var out []types.Paper
	for _, ref := range refs {
		id := shortOpenAlexID(ref)
		if p, ok := fetched[id]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, types.Paper{
			SourceIDs: map[string]string{types.IDSchemeOpenAlex: id},
		})
	}
	return out, nil
}

// workID returns the short OpenAlex id (e.g. "W2741809807"), resolving via
// lookup when only other schemes are known.
func (c *OpenAlex) workID(ctx context.Context, ids map[string]string) (string, error) {
	if id := ids[types.IDSchemeOpenAlex]; id != "" {
		return shortOpenAlexID(id), nil
	}
	raw, err := c.lookupRaw(ctx, ids)
	if err != nil {
		return "", err
	}
	if raw.ID == "" {
		return "", fmt.Errorf("openalex: %w: work has no id", ErrNotFound)
	}
	return shortOpenAlexID(raw.ID), nil
}

func (c *OpenAlex) lookupRaw(ctx context.Context, ids map[string]string) (*openAlexWork, error) {
	var path string
	switch {
	case ids[types.IDSchemeOpenAlex] != "":
		path = "/works/" + shortOpenAlexID(ids[types.IDSchemeOpenAlex])
	case ids[types.IDSchemeDOI] != "":
		path = "/works/doi:" + ids[types.IDSchemeDOI]
	default:
		return nil, fmt.Errorf("openalex: %w", ErrNoUsableID)
	}

	params := url.Values{}
	c.polite(params)
	reqURL := c.base + path
	if q := params.Encode(); q != "" {
		reqURL += "?" + q
	}

	var raw openAlexWork
	if err := c.getJSON(ctx, reqURL, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func (c *OpenAlex) polite(params url.Values) {
	if c.email != "" {
		params.Set("mailto", c.email)
	}
}

func (c *OpenAlex) normalizeAll(raws []openAlexWork) ([]types.Paper, int) {
	var papers []types.Paper
	dropped := 0
	for _, raw := range raws {
		p, ok := c.normalize(raw)
		if !ok {
			dropped++
			c.log.Warn().Str("work_id", raw.ID).Msg("dropping malformed record")
			continue
		}
		papers = append(papers, p)
	}
	return papers, dropped
}

func (c *OpenAlex) normalize(raw openAlexWork) (types.Paper, bool) {
	p := types.Paper{
		SourceIDs: map[string]string{},
		Title:     strings.TrimSpace(raw.Title),
		Abstract:  reconstructAbstract(raw.AbstractInvertedIndex),
		Year:      raw.PublicationYear,
	}
	if raw.ID != "" {
		p.SourceIDs[types.IDSchemeOpenAlex] = shortOpenAlexID(raw.ID)
	}
	if raw.DOI != "" {
		p.SourceIDs[types.IDSchemeDOI] = strings.ToLower(strings.TrimPrefix(raw.DOI, "https://doi.org/"))
	}
	if raw.PrimaryLocation.Source.DisplayName != "" {
		p.Venue = raw.PrimaryLocation.Source.DisplayName
	}
	if raw.CitedByCount != nil {
		count := *raw.CitedByCount
		p.CitationCount = &count
	}
	for _, authorship := range raw.Authorships {
		if authorship.Author.DisplayName == "" {
			continue
		}
		author := types.Author{Name: authorship.Author.DisplayName}
		if authorship.Author.ID != "" {
			author.SourceIDs = map[string]string{types.IDSchemeOpenAlex: shortOpenAlexID(authorship.Author.ID)}
		}
		p.Authors = append(p.Authors, author)
	}

	if p.Title == "" && len(p.SourceIDs) == 0 {
		return types.Paper{}, false
	}
	return p, true
}

// shortOpenAlexID strips the https://openalex.org/ prefix OpenAlex uses in
// its id fields.
func shortOpenAlexID(id string) string {
	return strings.TrimPrefix(id, "https://openalex.org/")
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexListResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          *int                 `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	ReferencedWorks       []string             `json:"referenced_works"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
}

type openAlexLocation struct {
	Source openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
