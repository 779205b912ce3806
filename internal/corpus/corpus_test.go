package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memoranda/internal/errors"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestStore_Load(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "beta.md", "second file")
	writeDoc(t, dir, "alpha.md", "first file with five words")
	writeDoc(t, dir, "notes.txt", "ignored, not markdown")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	docs, err := NewStore(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Sorted by path.
	assert.Equal(t, "alpha.md", docs[0].Path)
	assert.Equal(t, "beta.md", docs[1].Path)

	assert.Equal(t, "alpha", docs[0].ID)
	assert.Equal(t, "alpha.md", docs[0].Filename)
	assert.Equal(t, "first file with five words", docs[0].Content)
	assert.Equal(t, 5, docs[0].WordCount)
	assert.Equal(t, int64(26), docs[0].Size)
	assert.Len(t, docs[0].ContentHash, HashLength)
}

func TestStore_Load_MissingRootIsFatal(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "nope")).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CategoryIO, errors.GetCategory(err))
}

func TestStore_LoadForStatus_MissingRootIsEmpty(t *testing.T) {
	docs := NewStore(filepath.Join(t.TempDir(), "nope")).LoadForStatus(context.Background())
	assert.Empty(t, docs)
}

func TestHashBytes_ContentAddressed(t *testing.T) {
	a := HashBytes([]byte("same content"))
	b := HashBytes([]byte("same content"))
	c := HashBytes([]byte("other content"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, HashLength)
}

func TestStore_TouchWithoutContentChangeHashesIdentically(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", "stable")

	store := NewStore(dir)
	before, err := store.Load(context.Background())
	require.NoError(t, err)

	// Touch the file without changing the bytes.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.md"), future, future))

	after, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before[0].ContentHash, after[0].ContentHash)

	diff := ComputeDiff(after, FileHashes(before))
	assert.True(t, diff.Empty())
}

func TestComputeDiff(t *testing.T) {
	// Prior state: A:h1 B:h2 C:h3. Current: A:h1, B changed, D new.
	previous := map[string]string{"A.md": "h1", "B.md": "h2", "C.md": "h3"}
	current := []Document{
		{Path: "A.md", ContentHash: "h1"},
		{Path: "B.md", ContentHash: "h2x"},
		{Path: "D.md", ContentHash: "h4"},
	}

	diff := ComputeDiff(current, previous)
	assert.Equal(t, []string{"D.md"}, diff.Added)
	assert.Equal(t, []string{"B.md"}, diff.Modified)
	assert.Equal(t, []string{"C.md"}, diff.Deleted)
	assert.Equal(t, 3, diff.Total())
	assert.False(t, diff.Empty())
}

func TestComputeDiff_IdenticalContentDifferentPaths(t *testing.T) {
	current := []Document{
		{Path: "one.md", ContentHash: "same"},
		{Path: "two.md", ContentHash: "same"},
	}

	diff := ComputeDiff(current, map[string]string{"one.md": "same"})
	assert.Equal(t, []string{"two.md"}, diff.Added)
	assert.Empty(t, diff.Modified)
	assert.Empty(t, diff.Deleted)
}

func TestCorpusHash_OrderIndependent(t *testing.T) {
	a := Document{ID: "a", ModTime: 100}
	b := Document{ID: "b", ModTime: 200}

	h1 := CorpusHash([]Document{a, b})
	h2 := CorpusHash([]Document{b, a})
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, HashLength)

	b.ModTime = 201
	h3 := CorpusHash([]Document{a, b})
	assert.NotEqual(t, h1, h3)
}

func TestIndexableText_IncludesFilename(t *testing.T) {
	d := Document{Filename: "arch.md", Content: "memory system"}
	assert.Equal(t, "arch.md memory system", d.IndexableText())
}
