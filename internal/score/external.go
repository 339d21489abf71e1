// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/pkg/types"
)

// External scores papers through an HTTP reranker service. The whole batch
// goes out in one POST; the service returns a score per canonical id.
// Wrap it in Fallback so a failing service degrades to the TF-IDF baseline.
type External struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

// NewExternal builds a reranker client for the given endpoint.
func NewExternal(endpoint string, timeout time.Duration, log zerolog.Logger) *External {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &External{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("component", "score").Str("strategy", "external").Logger(),
	}
}

func (s *External) Name() string { return "external" }

type rerankPaper struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract,omitempty"`
}

type rerankRequest struct {
	Pending   []rerankPaper `json:"pending"`
	Reference []rerankPaper `json:"reference"`
}

type rerankResponse struct {
	Scores map[string]float64 `json:"scores"`
}

// Score posts the pending and reference batches to the reranker and returns
// its scores clamped to [0,1]. Papers the service does not score are left
// out of the map; the engine keeps their previous score.
func (s *External) Score(ctx context.Context, pending []*types.Paper, reference []*types.Paper) (map[string]float64, error) {
	payload := rerankRequest{
		Pending:   toRerankPapers(pending),
		Reference: toRerankPapers(reference),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("external: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("external: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("external: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("external: reranker returned HTTP %d", resp.StatusCode)
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("external: decoding response: %w", err)
	}

	scores := make(map[string]float64, len(decoded.Scores))
	for id, v := range decoded.Scores {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		scores[id] = v
	}
	s.log.Debug().Int("pending", len(pending)).Int("scored", len(scores)).Msg("reranker batch scored")
	return scores, nil
}

func toRerankPapers(papers []*types.Paper) []rerankPaper {
	out := make([]rerankPaper, 0, len(papers))
	for _, p := range papers {
		out = append(out, rerankPaper{ID: p.CanonicalID, Title: p.Title, Abstract: p.Abstract})
	}
	return out
}
