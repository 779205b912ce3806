package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memoranda/internal/corpus"
	"github.com/openclaw/memoranda/internal/embed"
	"github.com/openclaw/memoranda/internal/errors"
	"github.com/openclaw/memoranda/internal/lexical"
	"github.com/openclaw/memoranda/internal/vector"
)

// memoryCache is a trivial ResultCache for engine tests.
type memoryCache struct {
	entries map[string][]SearchResult
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]SearchResult{}}
}

func (c *memoryCache) Get(query string) ([]SearchResult, bool) {
	r, ok := c.entries[query]
	return r, ok
}

func (c *memoryCache) Set(query string, results []SearchResult) {
	c.sets++
	c.entries[query] = results
}

// capturingRecorder collects emitted query records.
type capturingRecorder struct {
	records []QueryRecord
}

func (r *capturingRecorder) Record(_ context.Context, rec QueryRecord) {
	r.records = append(r.records, rec)
}

func testEngine(t *testing.T, opts ...EngineOption) (*Engine, []corpus.Document) {
	t.Helper()

	docs := []corpus.Document{
		{ID: "architecture", Filename: "architecture.md", Path: "architecture.md",
			Content: "memory system architecture and index layout"},
		{ID: "groceries", Filename: "groceries.md", Path: "groceries.md",
			Content: "buy milk eggs and flour for pancakes"},
		{ID: "retrieval", Filename: "retrieval.md", Path: "retrieval.md",
			Content: "retrieval notes covering the memory index and ranking"},
	}

	tokenized := make([][]string, len(docs))
	for i, d := range docs {
		tokenized[i] = lexical.Tokenize(d.IndexableText())
	}
	model := lexical.NewModel(tokenized)

	vindex := vector.NewIndex(embed.NewStaticEmbedder())
	matrix := make(vector.Matrix, len(docs))
	for i, d := range docs {
		matrix[i] = vindex.EmbedDocument(context.Background(), d)
	}

	return NewEngine(docs, model, matrix, vindex, opts...), docs
}

func TestEngine_Search_RanksRelevantFirst(t *testing.T) {
	e, _ := testEngine(t)

	results, err := e.Search(context.Background(), "memory system architecture", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "architecture", results[0].DocumentID)
	assert.Equal(t, "architecture.md", results[0].Path)
	assert.Equal(t, 1, results[0].Rank)
	assert.NotEmpty(t, results[0].Preview)
}

func TestEngine_Search_EmptyQueryRejected(t *testing.T) {
	e, _ := testEngine(t)

	_, err := e.Search(context.Background(), "", 5)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.GetCategory(err))
}

func TestEngine_Search_TopKZeroReturnsAll(t *testing.T) {
	e, docs := testEngine(t)

	results, err := e.Search(context.Background(), "memory", 0)
	require.NoError(t, err)
	assert.Len(t, results, len(docs))
}

func TestEngine_Search_UsesCache(t *testing.T) {
	cache := newMemoryCache()
	rec := &capturingRecorder{}
	e, _ := testEngine(t, WithCache(cache), WithRecorder(rec))

	ctx := context.Background()
	first, err := e.Search(ctx, "memory index", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := e.Search(ctx, "memory index", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets, "cache hit must not re-store")

	require.Len(t, rec.records, 2)
	assert.Equal(t, "hybrid", rec.records[0].Method)
	assert.Equal(t, "cached", rec.records[1].Method)
	assert.Equal(t, first[0].DocumentID, rec.records[0].TopID)
}

func TestEngine_Search_CustomWeights(t *testing.T) {
	// With pure lexical weighting the exact-term document must win even
	// when the static embedder considers another document closer.
	e, _ := testEngine(t, WithWeights(Weights{Lexical: 1, Vector: 0}))

	results, err := e.Search(context.Background(), "pancakes", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "groceries", results[0].DocumentID)
}

func TestEngine_Search_Deterministic(t *testing.T) {
	e, _ := testEngine(t)

	ctx := context.Background()
	first, err := e.Search(ctx, "retrieval ranking", 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Search(ctx, "retrieval ranking", 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPreview_CutsAtRuneBoundary(t *testing.T) {
	long := ""
	for len(long) < previewLength+10 {
		long += "日本語"
	}
	p := preview(long)
	assert.LessOrEqual(t, len(p), previewLength)
	assert.True(t, len(p) > 0)
	assert.Equal(t, "short", preview("short"))
}
