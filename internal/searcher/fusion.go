// Package searcher fuses lexical and semantic scores into a single ranked
// result list and orchestrates hybrid queries against an index snapshot.
package searcher

import "sort"

// DefaultLexicalWeight and DefaultVectorWeight are the fusion defaults.
// Callers may override them; the weights are not required to sum to 1.
const (
	DefaultLexicalWeight = 0.3
	DefaultVectorWeight  = 0.7
)

// Weights configures score fusion.
type Weights struct {
	Lexical float64
	Vector  float64
}

// DefaultWeights returns the default fusion weights.
func DefaultWeights() Weights {
	return Weights{Lexical: DefaultLexicalWeight, Vector: DefaultVectorWeight}
}

// SearchResult is one ranked hit. It is a plain value record so downstream
// consumers (CLI formatting, history recording) never reach into index
// internals.
type SearchResult struct {
	// DocumentID identifies the matched document.
	DocumentID string `json:"document_id"`
	// Path is the document path relative to the corpus root.
	Path string `json:"path"`
	// Preview is the first slice of document content for display.
	Preview string `json:"preview,omitempty"`
	// LexicalScore is the raw BM25 score.
	LexicalScore float64 `json:"lexical_score"`
	// VectorScore is the raw cosine similarity.
	VectorScore float64 `json:"vector_score"`
	// FusedScore is the weighted sum of the normalized scores.
	FusedScore float64 `json:"fused_score"`
	// Rank is 1-based, strictly increasing with decreasing FusedScore.
	Rank int `json:"rank"`

	// docIndex is the corpus position of the document, used by the engine
	// to attach document fields after fusion.
	docIndex int
}

// DocIndex returns the corpus position of the matched document.
func (r SearchResult) DocIndex() int { return r.docIndex }

// normalizeLexical divides scores by their maximum. When the maximum is
// zero (no lexical match anywhere) the scores are returned unchanged.
func normalizeLexical(scores []float64) []float64 {
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return scores
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s / max
	}
	return out
}

// normalizeVector min-max normalizes scores to [0,1]. When all scores are
// equal (including the single-document corpus) the scores are returned
// unchanged rather than dividing by zero.
func normalizeVector(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if max == min {
		return scores
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}

// Fuse combines parallel lexical and vector score arrays into a ranked
// top-k result list. Both arrays must follow the same document ordering.
// Ties in fused score keep corpus order, so ranking is deterministic
// across runs with identical inputs.
func Fuse(lexical, vectorScores []float64, weights Weights, topK int) []SearchResult {
	n := len(lexical)
	if len(vectorScores) < n {
		n = len(vectorScores)
	}
	if n == 0 || topK <= 0 {
		return []SearchResult{}
	}

	lexNorm := normalizeLexical(lexical[:n])
	vecNorm := normalizeVector(vectorScores[:n])

	order := make([]int, n)
	fused := make([]float64, n)
	for i := 0; i < n; i++ {
		order[i] = i
		fused[i] = weights.Lexical*lexNorm[i] + weights.Vector*vecNorm[i]
	}

	sort.SliceStable(order, func(a, b int) bool {
		return fused[order[a]] > fused[order[b]]
	})

	if topK > n {
		topK = n
	}
	results := make([]SearchResult, topK)
	for rank, idx := range order[:topK] {
		results[rank] = SearchResult{
			LexicalScore: lexical[idx],
			VectorScore:  vectorScores[idx],
			FusedScore:   fused[idx],
			Rank:         rank + 1,
			docIndex:     idx,
		}
	}
	return results
}
