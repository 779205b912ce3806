// Package vector maintains the dense embedding matrix and answers exact
// cosine-similarity queries over it.
//
// Unlike the lexical model, this index updates incrementally: rows for
// unchanged documents are retained across rebuilds, and only changed
// documents are re-embedded.
package vector

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/openclaw/memoranda/internal/corpus"
	"github.com/openclaw/memoranda/internal/embed"
)

// DefaultMaxInputBytes caps the document text sent to the embedding
// provider, bounding per-call latency and cost.
const DefaultMaxInputBytes = 2000

// Matrix is a dense row-major embedding matrix. Row order must match the
// snapshot's document order exactly.
type Matrix [][]float32

// Rows returns the number of rows.
func (m Matrix) Rows() int { return len(m) }

// Dims returns the column count, or 0 for an empty matrix.
func (m Matrix) Dims() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// WithoutRows returns a copy of the matrix with the given row indices
// removed, preserving the order of the remaining rows.
func (m Matrix) WithoutRows(remove map[int]struct{}) Matrix {
	if len(remove) == 0 {
		return m
	}
	kept := make(Matrix, 0, len(m)-len(remove))
	for i, row := range m {
		if _, gone := remove[i]; !gone {
			kept = append(kept, row)
		}
	}
	return kept
}

// Index embeds documents and queries through an embedding provider.
type Index struct {
	embedder      embed.Embedder
	maxInputBytes int
}

// Option configures an Index.
type Option func(*Index)

// WithMaxInputBytes overrides the document truncation limit.
func WithMaxInputBytes(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.maxInputBytes = n
		}
	}
}

// NewIndex creates a vector index over the given embedder.
func NewIndex(embedder embed.Embedder, opts ...Option) *Index {
	ix := &Index{
		embedder:      embedder,
		maxInputBytes: DefaultMaxInputBytes,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Dimensions returns the embedding dimension.
func (ix *Index) Dimensions() int {
	return ix.embedder.Dimensions()
}

// EmbedDocument embeds a document's title-prefixed, truncated content.
// Provider failures degrade to a zero vector so the corpus can still build
// lexically; the failure is logged, never propagated.
func (ix *Index) EmbedDocument(ctx context.Context, doc corpus.Document) []float32 {
	text := doc.Filename + ": " + truncate(doc.Content, ix.maxInputBytes)
	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		slog.Warn("embedding failed, using zero vector",
			slog.String("doc", doc.ID),
			slog.String("error", err.Error()))
		return make([]float32, ix.embedder.Dimensions())
	}
	return vec
}

// EmbedQuery embeds a query untruncated. Failures degrade to a zero vector,
// which zeroes the semantic contribution and leaves lexical ranking intact.
func (ix *Index) EmbedQuery(ctx context.Context, query string) []float32 {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("query embedding failed, using zero vector",
			slog.String("error", err.Error()))
		return make([]float32, ix.embedder.Dimensions())
	}
	return vec
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Cosine returns the cosine similarity of a and b. Zero-norm vectors get a
// substitute norm of 1, yielding similarity 0 instead of a division error.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		na += float64(x) * float64(x)
	}
	for _, x := range b {
		nb += float64(x) * float64(x)
	}
	na = math.Sqrt(na)
	nb = math.Sqrt(nb)
	if na == 0 {
		na = 1
	}
	if nb == 0 {
		nb = 1
	}
	return dot / (na * nb)
}

// Similarities returns the cosine similarity of query against every matrix
// row, in row order. This is the parallel score array fusion consumes.
func Similarities(query []float32, matrix Matrix) []float64 {
	scores := make([]float64, len(matrix))
	for i, row := range matrix {
		scores[i] = Cosine(query, row)
	}
	return scores
}

// Search returns the topK row indices with the highest cosine similarity,
// descending. Ties keep the lower row index first so results are
// deterministic.
func Search(query []float32, matrix Matrix, topK int) []int {
	scores := Similarities(query, matrix)

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	if topK > len(indices) {
		topK = len(indices)
	}
	return indices[:topK]
}
