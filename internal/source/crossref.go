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

// crossrefBase is the Crossref REST API endpoint.
const crossrefBase = "https://api.crossref.org"

// Crossref queries the Crossref REST API. Crossref has no citation index,
// so the client advertises search, lookup and references only; references
// come from the deposited reference list of a work.
type Crossref struct {
	fetcher
	base  string
	email string
	log   zerolog.Logger
}

// NewCrossref creates a Crossref client. cfg.Email, when set, is appended
// as the mailto parameter per Crossref's polite-pool etiquette.
func NewCrossref(httpCfg types.HTTPConfig, cfg types.ProviderConfig, log zerolog.Logger) *Crossref {
	base := cfg.BaseURL
	if base == "" {
		base = crossrefBase
	}
	return &Crossref{
		fetcher: newFetcher("crossref", httpCfg, cfg),
		base:    strings.TrimSuffix(base, "/"),
		email:   cfg.Email,
		log:     log.With().Str("provider", "crossref").Logger(),
	}
}

func (c *Crossref) Name() string { return "crossref" }

func (c *Crossref) Capabilities() Capability {
	return CapSearch | CapLookup | CapReferences
}

// Search queries the works endpoint with a bibliographic query.
func (c *Crossref) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{
		"query.bibliographic": {query},
		"rows":                {fmt.Sprintf("%d", limit)},
	}
	if c.email != "" {
		params.Set("mailto", c.email)
	}

	var resp crossrefListResponse
	if err := c.getJSON(ctx, c.base+"/works?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	var papers []types.Paper
	for _, raw := range resp.Message.Items {
		p, ok := c.normalize(raw)
		if !ok {
			c.log.Warn().Str("doi", raw.DOI).Msg("dropping malformed record")
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Lookup fetches one work by DOI; Crossref understands no other scheme.
func (c *Crossref) Lookup(ctx context.Context, ids map[string]string) (*types.Paper, error) {
	raw, err := c.lookupRaw(ctx, ids)
	if err != nil {
		return nil, err
	}
	p, ok := c.normalize(*raw)
	if !ok {
		return nil, fmt.Errorf("crossref: %w: record without title or identifiers", ErrNotFound)
	}
	return &p, nil
}

// Citations is unsupported: Crossref exposes no citation index.
func (c *Crossref) Citations(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error) {
	return nil, fmt.Errorf("crossref: citations: %w", ErrNoUsableID)
}

// References returns papers built from the work's deposited reference list.
// Entries carrying neither a DOI nor a title are dropped as malformed; a
// DOI-only entry is kept since identifier-based dedup can still resolve it.
func (c *Crossref) References(ctx context.Context, ids map[string]string, limit int) ([]types.Paper, error) {
	raw, err := c.lookupRaw(ctx, ids)
	if err != nil {
		return nil, err
	}

	refs := raw.Reference
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}

	var papers []types.Paper
	for _, ref := range refs {
		p := types.Paper{SourceIDs: map[string]string{}}
		if ref.DOI != "" {
			p.SourceIDs[types.IDSchemeDOI] = strings.ToLower(ref.DOI)
		}
		p.Title = strings.TrimSpace(ref.ArticleTitle)
		if p.Title == "" {
			p.Title = strings.TrimSpace(ref.VolumeTitle)
		}
		if y := parseYear(ref.Year); y > 0 {
			p.Year = y
		}
		if ref.Author != "" {
			p.Authors = []types.Author{{Name: ref.Author}}
		}

		if p.Title == "" && len(p.SourceIDs) == 0 {
			c.log.Warn().Str("key", ref.Key).Msg("dropping malformed reference entry")
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func (c *Crossref) lookupRaw(ctx context.Context, ids map[string]string) (*crossrefWork, error) {
	doi := ids[types.IDSchemeDOI]
	if doi == "" {
		return nil, fmt.Errorf("crossref: %w", ErrNoUsableID)
	}

	reqURL := c.base + "/works/" + url.PathEscape(doi)
	if c.email != "" {
		reqURL += "?mailto=" + url.QueryEscape(c.email)
	}

	var resp crossrefWorkResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

func (c *Crossref) normalize(raw crossrefWork) (types.Paper, bool) {
	p := types.Paper{
		SourceIDs: map[string]string{},
		Abstract:  stripJATS(raw.Abstract),
	}
	if len(raw.Title) > 0 {
		p.Title = strings.TrimSpace(raw.Title[0])
	}
	if raw.DOI != "" {
		p.SourceIDs[types.IDSchemeDOI] = strings.ToLower(raw.DOI)
	}
	if len(raw.ContainerTitle) > 0 {
		p.Venue = raw.ContainerTitle[0]
	}
	if len(raw.Issued.DateParts) > 0 && len(raw.Issued.DateParts[0]) > 0 {
		p.Year = raw.Issued.DateParts[0][0]
	}
	if raw.IsReferencedByCount != nil {
		count := *raw.IsReferencedByCount
		p.CitationCount = &count
	}
	for _, a := range raw.Author {
		name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
		if name == "" {
			continue
		}
		p.Authors = append(p.Authors, types.Author{Name: name})
	}

	if p.Title == "" && len(p.SourceIDs) == 0 {
		return types.Paper{}, false
	}
	return p, true
}

// parseYear parses a plain four-digit year string; reference entries carry
// years as strings.
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0
	}
	year := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}

// stripJATS removes the JATS XML tags Crossref embeds in abstracts.
func stripJATS(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Crossref REST API JSON structures.
type crossrefListResponse struct {
	Message crossrefItems `json:"message"`
}

type crossrefItems struct {
	Items []crossrefWork `json:"items"`
}

type crossrefWorkResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI                 string              `json:"DOI"`
	Title               []string            `json:"title"`
	ContainerTitle      []string            `json:"container-title"`
	Abstract            string              `json:"abstract"`
	Issued              crossrefDate        `json:"issued"`
	IsReferencedByCount *int                `json:"is-referenced-by-count"`
	Author              []crossrefAuthor    `json:"author"`
	Reference           []crossrefReference `json:"reference"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefReference struct {
	Key          string `json:"key"`
	DOI          string `json:"DOI"`
	ArticleTitle string `json:"article-title"`
	VolumeTitle  string `json:"volume-title"`
	Year         string `json:"year"`
	Author       string `json:"author"`
	Unstructured string `json:"unstructured"`
}
