package searcher

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openclaw/memoranda/internal/corpus"
	"github.com/openclaw/memoranda/internal/errors"
	"github.com/openclaw/memoranda/internal/lexical"
	"github.com/openclaw/memoranda/internal/vector"
)

// previewLength is the number of content bytes carried in result previews.
const previewLength = 200

// ResultCache memoizes fused query results. Implementations treat expired
// entries as misses and must be safe for concurrent use.
type ResultCache interface {
	Get(query string) ([]SearchResult, bool)
	Set(query string, results []SearchResult)
}

// Recorder receives a summary of each executed query. Out-of-scope
// consumers (history logging) implement it; the engine only emits records.
type Recorder interface {
	Record(ctx context.Context, rec QueryRecord)
}

// QueryRecord summarizes one executed query for history consumers.
type QueryRecord struct {
	Query       string        `json:"query"`
	Method      string        `json:"method"` // "hybrid" or "cached"
	ResultCount int           `json:"result_count"`
	TopID       string        `json:"top_id,omitempty"`
	Duration    time.Duration `json:"duration"`
	At          time.Time     `json:"at"`
}

// NoopCache disables result caching.
type NoopCache struct{}

func (NoopCache) Get(string) ([]SearchResult, bool) { return nil, false }
func (NoopCache) Set(string, []SearchResult)        {}

// NoopRecorder discards query records.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, QueryRecord) {}

// Engine answers hybrid queries over one loaded index snapshot.
// It is read-only: index maintenance happens in the index manager, which
// constructs a fresh Engine after every snapshot change.
type Engine struct {
	docs     []corpus.Document
	model    *lexical.Model
	matrix   vector.Matrix
	vindex   *vector.Index
	weights  Weights
	cache    ResultCache
	recorder Recorder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWeights overrides the default fusion weights.
func WithWeights(w Weights) EngineOption {
	return func(e *Engine) { e.weights = w }
}

// WithCache attaches a result cache. Default is NoopCache.
func WithCache(c ResultCache) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithRecorder attaches a query recorder. Default is NoopRecorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine creates an engine over a consistent snapshot view: docs, the
// lexical model built over them, and the embedding matrix in the same
// order. The row-count invariant is the caller's responsibility; the index
// manager enforces it before constructing an engine.
func NewEngine(docs []corpus.Document, model *lexical.Model, matrix vector.Matrix, vindex *vector.Index, opts ...EngineOption) *Engine {
	e := &Engine{
		docs:     docs,
		model:    model,
		matrix:   matrix,
		vindex:   vindex,
		weights:  DefaultWeights(),
		cache:    NoopCache{},
		recorder: NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search answers a hybrid query: cache first, then lexical and vector
// scoring in parallel, fusion, cache fill, history record.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if query == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if topK <= 0 {
		topK = len(e.docs)
	}
	start := time.Now()

	if results, ok := e.cache.Get(query); ok {
		slog.Debug("cache hit", slog.String("query", query))
		e.record(ctx, query, "cached", results, start)
		return results, nil
	}

	var lexScores, vecScores []float64

	// Both scoring passes are read-only over the snapshot, so they run in
	// parallel; the embedding call is the only real latency.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexScores = e.model.Scores(lexical.Tokenize(query))
		return nil
	})
	g.Go(func() error {
		queryVec := e.vindex.EmbedQuery(gctx, query)
		vecScores = vector.Similarities(queryVec, e.matrix)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := Fuse(lexScores, vecScores, e.weights, topK)
	for i := range results {
		doc := e.docs[results[i].docIndex]
		results[i].DocumentID = doc.ID
		results[i].Path = doc.Path
		results[i].Preview = preview(doc.Content)
	}

	e.cache.Set(query, results)
	e.record(ctx, query, "hybrid", results, start)
	return results, nil
}

func (e *Engine) record(ctx context.Context, query, method string, results []SearchResult, start time.Time) {
	rec := QueryRecord{
		Query:       query,
		Method:      method,
		ResultCount: len(results),
		Duration:    time.Since(start),
		At:          time.Now(),
	}
	if len(results) > 0 {
		rec.TopID = results[0].DocumentID
	}
	e.recorder.Record(ctx, rec)
}

// DocumentCount returns the number of documents in the snapshot view.
func (e *Engine) DocumentCount() int {
	return len(e.docs)
}

func preview(content string) string {
	if len(content) <= previewLength {
		return content
	}
	cut := previewLength
	for cut > 0 && content[cut]&0xC0 == 0x80 {
		cut--
	}
	return content[:cut]
}
