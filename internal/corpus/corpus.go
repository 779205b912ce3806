// Package corpus loads the memory document corpus and detects changes
// between invocations via content-addressed hashing.
package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/openclaw/memoranda/internal/errors"
)

// HashLength is the number of hex characters kept from the SHA-256 digest.
// Sixteen characters (64 bits) is plenty for corpora of a few thousand files.
const HashLength = 16

// Document is one corpus file, loaded in full.
// Documents are immutable once loaded; a content change produces a
// replacement Document, never a partial edit.
type Document struct {
	// ID is the filename without extension, stable across rebuilds.
	ID string `json:"id"`
	// Filename is the base name including extension.
	Filename string `json:"filename"`
	// Path is relative to the corpus root.
	Path string `json:"path"`
	// Content is the full file text.
	Content string `json:"content"`
	// ContentHash is the truncated SHA-256 of the file bytes.
	ContentHash string `json:"content_hash"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// ModTime is the file modification time (unix seconds).
	ModTime int64 `json:"mtime"`
	// WordCount is the whitespace-separated word count of Content.
	WordCount int `json:"word_count"`
}

// IndexableText returns the text both indexes score: the filename joined
// with the content, so queries can match titles.
func (d Document) IndexableText() string {
	return d.Filename + " " + d.Content
}

// Store loads documents from a corpus root directory.
type Store struct {
	root string
}

// NewStore creates a document store over root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the corpus root directory.
func (s *Store) Root() string {
	return s.root
}

// Load reads every markdown file under the corpus root, sorted by path.
// A missing root is an IO error; full builds treat it as fatal.
func (s *Store) Load(ctx context.Context) ([]Document, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeCorpusMissing,
			fmt.Sprintf("corpus root %s not accessible", s.root), err)
	}
	if !info.IsDir() {
		return nil, errors.IOError(errors.ErrCodeCorpusMissing,
			fmt.Sprintf("corpus root %s is not a directory", s.root), nil)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeCorpusMissing,
			fmt.Sprintf("reading corpus root %s", s.root), err)
	}

	var docs []Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		doc, err := s.loadFile(entry.Name())
		if err != nil {
			// Unreadable individual files are skipped, not fatal.
			slog.Warn("skipping unreadable corpus file",
				slog.String("path", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// LoadForStatus is like Load but returns an empty corpus when the root is
// missing. Status checks must not fail just because nothing exists yet.
func (s *Store) LoadForStatus(ctx context.Context) []Document {
	docs, err := s.Load(ctx)
	if err != nil {
		return nil
	}
	return docs
}

func (s *Store) loadFile(name string) (Document, error) {
	full := filepath.Join(s.root, name)
	data, err := os.ReadFile(full)
	if err != nil {
		return Document{}, errors.IOError(errors.ErrCodeFileUnreadable, "reading "+full, err)
	}
	info, err := os.Stat(full)
	if err != nil {
		return Document{}, errors.IOError(errors.ErrCodeFileUnreadable, "stat "+full, err)
	}

	content := string(data)
	return Document{
		ID:          strings.TrimSuffix(name, filepath.Ext(name)),
		Filename:    name,
		Path:        name,
		Content:     content,
		ContentHash: HashBytes(data),
		Size:        info.Size(),
		ModTime:     info.ModTime().Unix(),
		WordCount:   len(strings.Fields(content)),
	}, nil
}

// HashBytes returns the truncated hex SHA-256 digest of data.
// The digest is content-addressed: a touch without a content change hashes
// identically, so it produces no diff.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:HashLength]
}

// CorpusHash digests sorted (id, mtime) pairs into a short hex string.
// It is a cheap "any change at all" guard; the per-file hash map is the
// authoritative source for diffing.
func CorpusHash(docs []Document) string {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := sha256.New()
	for _, d := range sorted {
		fmt.Fprintf(h, "%s:%d", d.ID, d.ModTime)
	}
	return hex.EncodeToString(h.Sum(nil))[:HashLength]
}

// FileHashes builds the path-to-hash map persisted in the incremental state.
func FileHashes(docs []Document) map[string]string {
	m := make(map[string]string, len(docs))
	for _, d := range docs {
		m[d.Path] = d.ContentHash
	}
	return m
}
