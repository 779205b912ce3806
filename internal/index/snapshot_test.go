package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memoranda/internal/corpus"
	"github.com/openclaw/memoranda/internal/errors"
	"github.com/openclaw/memoranda/internal/vector"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Documents: []corpus.Document{
			{ID: "a", Filename: "a.md", Path: "a.md", Content: "alpha text", ContentHash: "h1", WordCount: 2},
			{ID: "b", Filename: "b.md", Path: "b.md", Content: "beta text", ContentHash: "h2", WordCount: 2},
		},
		Tokenized: [][]string{{"a", "md", "alpha", "text"}, {"b", "md", "beta", "text"}},
		Matrix:    vector.Matrix{{1, 0, 0.5}, {0, 1, -0.25}},
	}
}

func TestStore_SaveAndLoadSnapshot(t *testing.T) {
	s := newStore(t.TempDir())
	snap := sampleSnapshot()
	state := &State{
		LastFullBuildTime: time.Now().UTC().Truncate(time.Second),
		FileHashes:        map[string]string{"a.md": "h1", "b.md": "h2"},
	}

	require.NoError(t, s.SaveSnapshot(snap, state, "deadbeef00000000"))
	assert.True(t, s.Exists())

	loaded, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.Documents, loaded.Documents)
	assert.Equal(t, snap.Tokenized, loaded.Tokenized)
	assert.Equal(t, snap.Matrix, loaded.Matrix)

	loadedState, err := s.LoadState()
	require.NoError(t, err)
	assert.Equal(t, state.FileHashes, loadedState.FileHashes)
	assert.Equal(t, "deadbeef00000000", s.LoadCorpusHash())

	meta, err := s.LoadMetadata()
	require.NoError(t, err)
	assert.Equal(t, 2, meta.DocumentCount)
	assert.Equal(t, 3, meta.EmbeddingDim)
	require.Len(t, meta.Documents, 2)
	assert.Equal(t, "a", meta.Documents[0].ID)
}

func TestStore_SaveSnapshot_FailedReplaceLeavesPriorArtifacts(t *testing.T) {
	dir := t.TempDir()
	s := newStore(dir)
	require.NoError(t, s.SaveSnapshot(sampleSnapshot(),
		&State{FileHashes: map[string]string{"a.md": "h1", "b.md": "h2"}}, "aaaa000000000000"))

	priorDocs, err := os.ReadFile(filepath.Join(dir, documentsFileName))
	require.NoError(t, err)

	// Block the vectors.bin rename by putting a non-empty directory in its
	// place.
	require.NoError(t, os.Remove(filepath.Join(dir, vectorsFileName)))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, vectorsFileName, "blocker"), 0o755))

	next := &Snapshot{
		Documents: []corpus.Document{
			{ID: "c", Filename: "c.md", Path: "c.md", Content: "gamma", ContentHash: "h3"},
		},
		Tokenized: [][]string{{"c", "md", "gamma"}},
		Matrix:    vector.Matrix{{0.5, 0.5, 0.5}},
	}
	err = s.SaveSnapshot(next, &State{FileHashes: map[string]string{"c.md": "h3"}}, "bbbb000000000000")
	require.Error(t, err)

	// The manifest must still describe the prior snapshot: a failed save
	// never leaves a document list that disagrees with the matrix.
	current, err := os.ReadFile(filepath.Join(dir, documentsFileName))
	require.NoError(t, err)
	assert.Equal(t, priorDocs, current)
	assert.Equal(t, "aaaa000000000000", s.LoadCorpusHash())

	// Staged temp files are cleaned up on failure.
	known := map[string]bool{
		documentsFileName: true, lexicalFileName: true, vectorsFileName: true,
		metadataFileName: true, hashFileName: true, stateFileName: true,
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, known[e.Name()], "unexpected leftover file %s", e.Name())
	}
}

func TestStore_LoadSnapshot_MissingFailsClosed(t *testing.T) {
	s := newStore(t.TempDir())
	_, err := s.LoadSnapshot()
	require.Error(t, err)
	assert.True(t, errors.IsCorruption(err))
}

func TestStore_LoadSnapshot_RowCountMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	s := newStore(dir)
	snap := sampleSnapshot()
	require.NoError(t, s.SaveSnapshot(snap, &State{FileHashes: map[string]string{}}, "x"))

	// Replace the matrix with one row; the document count no longer agrees.
	short, err := encodeMatrix(vector.Matrix{{1, 0, 0}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, vectorsFileName), short, 0o644))

	_, err = s.LoadSnapshot()
	require.Error(t, err)
	assert.True(t, errors.IsCorruption(err))
}

func TestStore_LoadSnapshot_GarbageRejected(t *testing.T) {
	dir := t.TempDir()
	s := newStore(dir)
	require.NoError(t, s.SaveSnapshot(sampleSnapshot(), &State{FileHashes: map[string]string{}}, "x"))

	for _, name := range []string{documentsFileName, lexicalFileName, vectorsFileName} {
		t.Run(name, func(t *testing.T) {
			original, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("garbage"), 0o644))

			_, loadErr := s.LoadSnapshot()
			assert.Error(t, loadErr)

			require.NoError(t, os.WriteFile(filepath.Join(dir, name), original, 0o644))
		})
	}
}

func TestEncodeDecodeMatrix(t *testing.T) {
	m := vector.Matrix{{1.5, -2.25}, {0, 3.125}, {-0.5, 0.75}}

	data, err := encodeMatrix(m)
	require.NoError(t, err)

	got, err := decodeMatrix(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestEncodeDecodeMatrix_Empty(t *testing.T) {
	data, err := encodeMatrix(vector.Matrix{})
	require.NoError(t, err)

	got, err := decodeMatrix(data)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Rows())
}

func TestDecodeMatrix_Invalid(t *testing.T) {
	_, err := decodeMatrix([]byte("short"))
	assert.Error(t, err)

	good, err := encodeMatrix(vector.Matrix{{1, 2}})
	require.NoError(t, err)

	// Flip the magic.
	bad := append([]byte(nil), good...)
	bad[0] ^= 0xFF
	_, err = decodeMatrix(bad)
	assert.Error(t, err)

	// Truncate the payload so the header no longer matches.
	_, err = decodeMatrix(good[:len(good)-4])
	assert.Error(t, err)
}

func TestEncodeMatrix_RaggedRowsRejected(t *testing.T) {
	_, err := encodeMatrix(vector.Matrix{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestStore_LoadState_MissingIsZero(t *testing.T) {
	s := newStore(t.TempDir())
	state, err := s.LoadState()
	require.NoError(t, err)
	assert.Empty(t, state.FileHashes)
	assert.Zero(t, state.TotalUpdateCount)
}
