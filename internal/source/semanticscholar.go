// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/pkg/types"
)

// semanticScholarBase is the Semantic Scholar Graph API endpoint.
const semanticScholarBase = "https://api.semanticscholar.org/graph/v1"

// s2Fields is the field list requested for every paper payload.
const s2Fields = "paperId,externalIds,title,abstract,year,venue,citationCount,authors"

// SemanticScholar queries the Semantic Scholar Graph API. It supports all
// four capabilities. Identifier forms accepted by the paper endpoints:
// "DOI:<doi>", "ARXIV:<id>", or a bare Semantic Scholar paper id.
type SemanticScholar struct {
	fetcher
	base string
	log  zerolog.Logger
}

// NewSemanticScholar creates a Semantic Scholar client. cfg.APIKey, when
// set, is sent as x-api-key for the higher authenticated rate limit.
func NewSemanticScholar(httpCfg types.HTTPConfig, cfg types.ProviderConfig, log zerolog.Logger) *SemanticScholar {
	f := newFetcher("semanticscholar", httpCfg, cfg)
	if cfg.APIKey != "" {
		f.headerKey = "x-api-key"
		f.headerValue = cfg.APIKey
	}
	base := cfg.BaseURL
	if base == "" {
		base = semanticScholarBase
	}
	return &SemanticScholar{
		fetcher: f,
		base:    strings.TrimSuffix(base, "/"),
		log:     log.With().Str("provider", "semanticscholar").Logger(),
	}
}

func (c *SemanticScholar) Name() string { return "semanticscholar" }

func (c *SemanticScholar) Capabilities() Capability {
	return CapSearch | CapLookup | CapCitations | CapReferences
}

// Search queries the paper search endpoint, which returns results in the
// provider's relevance order.
func (c *SemanticScholar) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {s2Fields},
	}

	var resp s2SearchResponse
	if err := c.getJSON(ctx, c.base+"/paper/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return c.normalizeAll(resp.Data), nil
}

// Lookup fetches one paper. DOI is preferred, then arXiv id, then the
// provider-native paper id.
func (c *SemanticScholar) Lookup(ctx context.Context, ids map[string]string) (*types.Paper, error) {
	id, err := c.pickID(ids)
	if err != nil {
		return nil, err
	}

	var raw s2Paper
	if err := c.getJSON(ctx, c.base+"/paper/"+url.PathEscape(id)+"?fields="+s2Fields, &raw); err != nil {
		return nil, err
	}
	p, ok := c.normalize(raw)
	if !ok {
		return nil, fmt.Errorf("semanticscholar: %w: lookup %s returned record without title or identifiers", ErrNotFound, id)
	}
	return &p, nil
}

// Citations returns the papers citing the identified paper.
func (c *SemanticScholar) Citations(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error) {
	return c.related(ctx, ids, "citations", limit)
}

// References returns the papers the identified paper cites.
func (c *SemanticScholar) References(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error) {
	return c.related(ctx, ids, "references", limit)
}

func (c *SemanticScholar) related(ctx context.Context, ids map[string]string, edge string, limit int) ([]types.Paper, error) {
	id, err := c.pickID(ids)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{
		"fields": {s2Fields},
		"limit":  {fmt.Sprintf("%d", limit)},
	}

	var resp s2RelatedResponse
	reqURL := c.base + "/paper/" + url.PathEscape(id) + "/" + edge + "?" + params.Encode()
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}

	raws := make([]s2Paper, 0, len(resp.Data))
	for _, entry := range resp.Data {
		if edge == "citations" {
			raws = append(raws, entry.CitingPaper)
		} else {
			raws = append(raws, entry.CitedPaper)
		}
	}
	return c.normalizeAll(raws), nil
}

func (c *SemanticScholar) pickID(ids map[string]string) (string, error) {
	if doi := ids[types.IDSchemeDOI]; doi != "" {
		return "DOI:" + doi, nil
	}
	if arxiv := ids[types.IDSchemeArxiv]; arxiv != "" {
		return "ARXIV:" + arxiv, nil
	}
	if native := ids[types.IDSchemeSemanticScholar]; native != "" {
		return native, nil
	}
	return "", fmt.Errorf("semanticscholar: %w", ErrNoUsableID)
}

func (c *SemanticScholar) normalizeAll(raws []s2Paper) []types.Paper {
	var papers []types.Paper
	for _, raw := range raws {
		p, ok := c.normalize(raw)
		if !ok {
			c.log.Warn().Str("paper_id", raw.PaperID).Msg("dropping malformed record")
			continue
		}
		papers = append(papers, p)
	}
	return papers
}

// normalize translates a raw payload into the Paper shape. A record without
// a title and without any identifier carries nothing to dedup on and is
// dropped as malformed.
func (c *SemanticScholar) normalize(raw s2Paper) (types.Paper, bool) {
	p := types.Paper{
		SourceIDs: map[string]string{},
		Title:     strings.TrimSpace(raw.Title),
		Abstract:  raw.Abstract,
		Venue:     raw.Venue,
		Year:      raw.Year,
	}
	if raw.PaperID != "" {
		p.SourceIDs[types.IDSchemeSemanticScholar] = raw.PaperID
	}
	if raw.ExternalIDs.DOI != "" {
		p.SourceIDs[types.IDSchemeDOI] = strings.ToLower(raw.ExternalIDs.DOI)
	}
	if raw.ExternalIDs.ArXiv != "" {
		p.SourceIDs[types.IDSchemeArxiv] = raw.ExternalIDs.ArXiv
	}
	if raw.CitationCount != nil {
		count := *raw.CitationCount
		p.CitationCount = &count
	}
	for _, a := range raw.Authors {
		if a.Name == "" {
			continue
		}
		author := types.Author{Name: a.Name}
		if a.AuthorID != "" {
			author.SourceIDs = map[string]string{types.IDSchemeSemanticScholar: a.AuthorID}
		}
		p.Authors = append(p.Authors, author)
	}

	if p.Title == "" && len(p.SourceIDs) == 0 {
		return types.Paper{}, false
	}
	return p, true
}

// Semantic Scholar Graph API JSON structures.
type s2SearchResponse struct {
	Total int       `json:"total"`
	Data  []s2Paper `json:"data"`
}

type s2RelatedResponse struct {
	Data []s2RelatedEntry `json:"data"`
}

type s2RelatedEntry struct {
	CitingPaper s2Paper `json:"citingPaper"`
	CitedPaper  s2Paper `json:"citedPaper"`
}

type s2Paper struct {
	PaperID       string        `json:"paperId"`
	Title         string        `json:"title"`
	Abstract      string        `json:"abstract"`
	Venue         string        `json:"venue"`
	Year          int           `json:"year"`
	CitationCount *int          `json:"citationCount"`
	Authors       []s2Author    `json:"authors"`
	ExternalIDs   s2ExternalIDs `json:"externalIds"`
}

type s2Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type s2ExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
