// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/snowball/pkg/types"
)

// TFIDF is the baseline strategy: cosine similarity between a pending
// paper's title+abstract vector and the concatenated text of the reference
// corpus, with inverse-document-frequency weights computed per reference
// paper. Scores land in [0,1] since all weights are non-negative.
type TFIDF struct{}

func NewTFIDF() *TFIDF { return &TFIDF{} }

func (s *TFIDF) Name() string { return "tfidf" }

func (s *TFIDF) Score(ctx context.Context, pending []*types.Paper, reference []*types.Paper) (map[string]float64, error) {
	scores := make(map[string]float64, len(pending))
	if len(reference) == 0 {
		for _, p := range pending {
			scores[p.CanonicalID] = 0
		}
		return scores, nil
	}

	// Each reference paper is one document for IDF purposes.
	docCount := len(reference)
	df := make(map[string]int)
	var allTokens []string
	for _, p := range reference {
		tokens := tokenize(paperText(p))
		seen := make(map[string]bool)
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
		allTokens = append(allTokens, tokens...)
	}

	idf := func(term string) float64 {
		return math.Log(float64(docCount+1)/float64(df[term]+1)) + 1
	}

	refVec := weightedVector(allTokens, idf)
	refNorm := vectorNorm(refVec)

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := weightedVector(tokenize(paperText(p)), idf)
		scores[p.CanonicalID] = cosine(vec, refVec, refNorm)
	}
	return scores, nil
}

func paperText(p *types.Paper) string {
	if p.Abstract == "" {
		return p.Title
	}
	return p.Title + " " + p.Abstract
}

// tokenize lowercases and splits on any non-alphanumeric rune. Single-rune
// tokens carry no signal and are dropped.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

func weightedVector(tokens []string, idf func(string) float64) map[string]float64 {
	tf := make(map[string]int)
	for _, tok := range tokens {
		tf[tok]++
	}
	vec := make(map[string]float64, len(tf))
	for term, count := range tf {
		vec[term] = float64(count) * idf(term)
	}
	return vec
}

func vectorNorm(vec map[string]float64) float64 {
	// Iterate in sorted term order so floating-point accumulation is
	// reproducible across runs.
	terms := sortedTerms(vec)
	var sum float64
	for _, term := range terms {
		sum += vec[term] * vec[term]
	}
	return math.Sqrt(sum)
}

func cosine(a, b map[string]float64, bNorm float64) float64 {
	aNorm := vectorNorm(a)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	terms := sortedTerms(a)
	var dot float64
	for _, term := range terms {
		if w, ok := b[term]; ok {
			dot += a[term] * w
		}
	}
	score := dot / (aNorm * bNorm)
	if score > 1 {
		score = 1
	}
	return score
}

func sortedTerms(vec map[string]float64) []string {
	terms := make([]string, 0, len(vec))
	for term := range vec {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
