package vector

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memoranda/internal/corpus"
)

// failingEmbedder always errors, for zero-vector fallback tests.
type failingEmbedder struct{ dims int }

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, context.DeadlineExceeded
}
func (f *failingEmbedder) Dimensions() int                    { return f.dims }
func (f *failingEmbedder) ModelName() string                  { return "failing" }
func (f *failingEmbedder) Available(ctx context.Context) bool { return false }
func (f *failingEmbedder) Close() error                       { return nil }

// recordingEmbedder captures the text it was asked to embed.
type recordingEmbedder struct {
	dims int
	last string
}

func (r *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	r.last = text
	return make([]float32, r.dims), nil
}
func (r *recordingEmbedder) Dimensions() int                    { return r.dims }
func (r *recordingEmbedder) ModelName() string                  { return "recording" }
func (r *recordingEmbedder) Available(ctx context.Context) bool { return true }
func (r *recordingEmbedder) Close() error                       { return nil }

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical direction", []float32{1, 0}, []float32{2, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector guarded", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero guarded", []float32{0, 0}, []float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarities_RowOrder(t *testing.T) {
	matrix := Matrix{
		{1, 0},
		{0, 1},
		{1, 1},
	}
	scores := Similarities([]float32{1, 0}, matrix)
	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.InDelta(t, 0.0, scores[1], 1e-9)
	assert.InDelta(t, 0.7071, scores[2], 1e-3)
}

func TestSearch_TopK(t *testing.T) {
	matrix := Matrix{
		{0, 1},
		{1, 0},
		{1, 1},
		{-1, 0},
	}
	got := Search([]float32{1, 0}, matrix, 2)
	assert.Equal(t, []int{1, 2}, got)
}

func TestSearch_TopKLargerThanCorpus(t *testing.T) {
	matrix := Matrix{{1, 0}, {0, 1}}
	got := Search([]float32{1, 0}, matrix, 10)
	assert.Len(t, got, 2)
}

func TestSearch_TiesKeepRowOrder(t *testing.T) {
	matrix := Matrix{
		{1, 0},
		{1, 0},
		{1, 0},
	}
	got := Search([]float32{1, 0}, matrix, 3)
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestMatrix_WithoutRows(t *testing.T) {
	m := Matrix{{1}, {2}, {3}, {4}}
	got := m.WithoutRows(map[int]struct{}{1: {}, 3: {}})
	assert.Equal(t, Matrix{{1}, {3}}, got)

	// Empty removal set returns the matrix unchanged.
	assert.Equal(t, m, m.WithoutRows(nil))
}

func TestMatrix_Dims(t *testing.T) {
	assert.Equal(t, 0, Matrix{}.Dims())
	assert.Equal(t, 3, Matrix{{1, 2, 3}}.Dims())
	assert.Equal(t, 2, Matrix{{1, 2, 3}, {4, 5}}.Rows())
}

func TestIndex_EmbedDocument_ZeroVectorFallback(t *testing.T) {
	ix := NewIndex(&failingEmbedder{dims: 4})
	vec := ix.EmbedDocument(context.Background(), corpus.Document{ID: "a", Content: "text"})
	assert.Equal(t, []float32{0, 0, 0, 0}, vec)
}

func TestIndex_EmbedQuery_ZeroVectorFallback(t *testing.T) {
	ix := NewIndex(&failingEmbedder{dims: 4})
	vec := ix.EmbedQuery(context.Background(), "query")
	assert.Equal(t, []float32{0, 0, 0, 0}, vec)
}

func TestIndex_EmbedDocument_TruncatesAndPrefixesTitle(t *testing.T) {
	rec := &recordingEmbedder{dims: 4}
	ix := NewIndex(rec, WithMaxInputBytes(10))

	doc := corpus.Document{Filename: "notes.md", Content: strings.Repeat("a", 100)}
	ix.EmbedDocument(context.Background(), doc)

	assert.Equal(t, "notes.md: "+strings.Repeat("a", 10), rec.last)
}

func TestIndex_EmbedQuery_NotTruncated(t *testing.T) {
	rec := &recordingEmbedder{dims: 4}
	ix := NewIndex(rec, WithMaxInputBytes(10))

	long := strings.Repeat("q", 100)
	ix.EmbedQuery(context.Background(), long)
	assert.Equal(t, long, rec.last)
}

func TestTruncate_RespectsRuneBoundaries(t *testing.T) {
	s := "日本語テキスト" // 3 bytes per rune
	got := truncate(s, 7)
	assert.Equal(t, "日本", got)
	assert.Equal(t, s, truncate(s, 1000))
}
