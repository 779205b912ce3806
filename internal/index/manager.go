package index

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/openclaw/memoranda/internal/corpus"
	"github.com/openclaw/memoranda/internal/errors"
	"github.com/openclaw/memoranda/internal/lexical"
	"github.com/openclaw/memoranda/internal/searcher"
	"github.com/openclaw/memoranda/internal/vector"
)

// Build stages reported when a full build fails.
const (
	StageLoad     = "load"
	StageTokenize = "tokenize"
	StageEmbed    = "embed"
	StagePersist  = "persist"
)

// Result modes.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
	ModeNoop        = "noop"
)

// Result summarizes one build or update invocation.
type Result struct {
	Mode          string        `json:"mode"`
	Fallback      bool          `json:"fallback,omitempty"`
	Added         int           `json:"added"`
	Modified      int           `json:"modified"`
	Deleted       int           `json:"deleted"`
	DocumentCount int           `json:"document_count"`
	Duration      time.Duration `json:"duration"`
}

// Status describes the index and its drift from the corpus, for reporting.
type Status struct {
	IndexExists     bool      `json:"index_exists"`
	DocumentCount   int       `json:"document_count"`
	TrackedFiles    int       `json:"tracked_files"`
	LastFullBuild   time.Time `json:"last_full_build"`
	TotalUpdates    int       `json:"total_updates"`
	PendingAdded    int       `json:"pending_added"`
	PendingModified int       `json:"pending_modified"`
	PendingDeleted  int       `json:"pending_deleted"`
	NeedsRebuild    bool      `json:"needs_rebuild"`
}

// Manager owns the index lifecycle: full builds, incremental updates, and
// loading a snapshot into a query engine. It is the only writer of the
// snapshot artifacts. Cross-process serialization of writers is the
// caller's job; the manager guarantees atomic replacement only.
type Manager struct {
	store  *store
	corpus *corpus.Store
	vindex *vector.Index
}

// NewManager creates a manager persisting under indexDir.
func NewManager(indexDir string, corpusStore *corpus.Store, vindex *vector.Index) *Manager {
	return &Manager{
		store:  newStore(indexDir),
		corpus: corpusStore,
		vindex: vindex,
	}
}

// Exists reports whether a persisted snapshot is present.
func (m *Manager) Exists() bool {
	return m.store.Exists()
}

// NeedsRebuild compares the live corpus digest against the stored one.
// This is only the cheap guard; Update diffs per-file hashes regardless.
func (m *Manager) NeedsRebuild(ctx context.Context) (bool, error) {
	if !m.store.Exists() {
		return true, nil
	}
	docs, err := m.corpus.Load(ctx)
	if err != nil {
		return false, err
	}
	return corpus.CorpusHash(docs) != m.store.LoadCorpusHash(), nil
}

// Build performs a full rebuild: every document is tokenized and embedded
// from scratch and all artifacts are replaced. Failures carry the stage
// they occurred in.
func (m *Manager) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	docs, err := m.corpus.Load(ctx)
	if err != nil {
		return nil, stageErr(err, StageLoad)
	}
	slog.Info("full build started", slog.Int("documents", len(docs)))

	snap, err := m.buildSnapshot(ctx, docs)
	if err != nil {
		return nil, err
	}

	state := &State{
		LastFullBuildTime: time.Now().UTC(),
		FileHashes:        corpus.FileHashes(docs),
	}
	if err := m.store.SaveSnapshot(snap, state, corpus.CorpusHash(docs)); err != nil {
		return nil, stageErr(err, StagePersist)
	}

	result := &Result{
		Mode:          ModeFull,
		Added:         len(docs),
		DocumentCount: len(docs),
		Duration:      time.Since(start),
	}
	slog.Info("full build finished",
		slog.Int("documents", len(docs)),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// Update applies an incremental update. Without a prior snapshot it falls
// through to a full build. A corrupt prior snapshot also falls back to a
// full rebuild; the returned Result reports the fallback so callers can
// surface it.
func (m *Manager) Update(ctx context.Context) (*Result, error) {
	start := time.Now()

	if !m.store.Exists() {
		return m.Build(ctx)
	}

	state, err := m.store.LoadState()
	if err != nil {
		return m.rebuildAfter(ctx, err)
	}

	docs, err := m.corpus.Load(ctx)
	if err != nil {
		return nil, stageErr(err, StageLoad)
	}

	diff := corpus.ComputeDiff(docs, state.FileHashes)
	if diff.Empty() {
		return &Result{
			Mode:          ModeNoop,
			DocumentCount: len(docs),
			Duration:      time.Since(start),
		}, nil
	}

	prior, err := m.store.LoadSnapshot()
	if err != nil {
		return m.rebuildAfter(ctx, err)
	}

	slog.Info("incremental update started",
		slog.Int("added", len(diff.Added)),
		slog.Int("modified", len(diff.Modified)),
		slog.Int("deleted", len(diff.Deleted)))

	snap, err := m.applyDiff(ctx, prior, docs, diff)
	if err != nil {
		return nil, err
	}

	state.FileHashes = corpus.FileHashes(snap.Documents)
	state.TotalUpdateCount++
	if err := m.store.SaveSnapshot(snap, state, corpus.CorpusHash(docs)); err != nil {
		return nil, stageErr(err, StagePersist)
	}

	result := &Result{
		Mode:          ModeIncremental,
		Added:         len(diff.Added),
		Modified:      len(diff.Modified),
		Deleted:       len(diff.Deleted),
		DocumentCount: len(snap.Documents),
		Duration:      time.Since(start),
	}
	slog.Info("incremental update finished",
		slog.Int("documents", result.DocumentCount),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// Status reports the index state and pending corpus drift. It never fails
// on a missing corpus; status must be askable before anything exists.
func (m *Manager) Status(ctx context.Context) *Status {
	status := &Status{IndexExists: m.store.Exists()}

	docs := m.corpus.LoadForStatus(ctx)
	if !status.IndexExists {
		status.NeedsRebuild = true
		status.PendingAdded = len(docs)
		return status
	}

	state, err := m.store.LoadState()
	if err != nil {
		status.NeedsRebuild = true
		return status
	}
	status.LastFullBuild = state.LastFullBuildTime
	status.TotalUpdates = state.TotalUpdateCount
	status.TrackedFiles = len(state.FileHashes)

	if meta, err := m.store.LoadMetadata(); err == nil {
		status.DocumentCount = meta.DocumentCount
	}

	diff := corpus.ComputeDiff(docs, state.FileHashes)
	status.PendingAdded = len(diff.Added)
	status.PendingModified = len(diff.Modified)
	status.PendingDeleted = len(diff.Deleted)
	status.NeedsRebuild = corpus.CorpusHash(docs) != m.store.LoadCorpusHash()
	return status
}

// OpenEngine loads the persisted snapshot into a query engine. Corruption
// surfaces to the caller here; rebuilds are an explicit build/update
// decision, not a side effect of searching.
func (m *Manager) OpenEngine(opts ...searcher.EngineOption) (*searcher.Engine, error) {
	snap, err := m.store.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	model := lexical.NewModel(snap.Tokenized)
	return searcher.NewEngine(snap.Documents, model, snap.Matrix, m.vindex, opts...), nil
}

// buildSnapshot tokenizes and embeds docs in order. Embedding is issued
// sequentially, one call per document; provider failures degrade to zero
// rows inside the vector index and never abort the build.
func (m *Manager) buildSnapshot(ctx context.Context, docs []corpus.Document) (*Snapshot, error) {
	tokenized := make([][]string, len(docs))
	for i, d := range docs {
		tokenized[i] = lexical.Tokenize(d.IndexableText())
	}

	matrix := make(vector.Matrix, len(docs))
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, stageErr(err, StageEmbed)
		}
		matrix[i] = m.vindex.EmbedDocument(ctx, d)
	}

	return &Snapshot{Documents: docs, Tokenized: tokenized, Matrix: matrix}, nil
}

// applyDiff produces the post-update snapshot: surviving documents keep
// their matrix rows and relative order; changed and new documents are
// re-embedded and appended. The lexical token sequences are rebuilt in
// full because term statistics are corpus-global.
func (m *Manager) applyDiff(ctx context.Context, prior *Snapshot, current []corpus.Document, diff corpus.Diff) (*Snapshot, error) {
	gone := make(map[string]struct{}, len(diff.Deleted)+len(diff.Modified))
	for _, p := range diff.Deleted {
		gone[p] = struct{}{}
	}
	for _, p := range diff.Modified {
		gone[p] = struct{}{}
	}

	removeRows := make(map[int]struct{})
	kept := make([]corpus.Document, 0, len(prior.Documents))
	for i, d := range prior.Documents {
		if _, removed := gone[d.Path]; removed {
			removeRows[i] = struct{}{}
			continue
		}
		kept = append(kept, d)
	}
	matrix := prior.Matrix.WithoutRows(removeRows)

	byPath := make(map[string]corpus.Document, len(current))
	for _, d := range current {
		byPath[d.Path] = d
	}

	changed := make([]string, 0, len(diff.Added)+len(diff.Modified))
	changed = append(changed, diff.Added...)
	changed = append(changed, diff.Modified...)
	for _, path := range changed {
		doc, ok := byPath[path]
		if !ok {
			// Changed between diff time and now; the next invocation
			// picks it up.
			slog.Warn("changed file vanished during update", slog.String("path", path))
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, stageErr(err, StageEmbed)
		}
		matrix = append(matrix, m.vindex.EmbedDocument(ctx, doc))
		kept = append(kept, doc)
	}

	tokenized := make([][]string, len(kept))
	for i, d := range kept {
		tokenized[i] = lexical.Tokenize(d.IndexableText())
	}

	return &Snapshot{Documents: kept, Tokenized: tokenized, Matrix: matrix}, nil
}

// rebuildAfter is the corruption fallback: log, rebuild in full, and mark
// the result so callers can report that the fallback happened.
func (m *Manager) rebuildAfter(ctx context.Context, cause error) (*Result, error) {
	slog.Warn("index snapshot unusable, falling back to full rebuild",
		slog.String("error", cause.Error()))
	result, err := m.Build(ctx)
	if err != nil {
		return nil, err
	}
	result.Fallback = true
	return result, nil
}

func stageErr(err error, stage string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.WithStage(stage)
	}
	return errors.New(errors.ErrCodeInternal, stage+" failed", err).WithStage(stage)
}
