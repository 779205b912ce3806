// Package index builds, updates, and persists the hybrid index snapshot.
//
// A snapshot is the on-disk pairing of the document manifest, the tokenized
// corpus for lexical scoring, and the embedding matrix. The three artifacts
// must describe the same document sequence; every load re-validates that
// before the snapshot is used.
package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"

	"github.com/openclaw/memoranda/internal/corpus"
	"github.com/openclaw/memoranda/internal/errors"
	"github.com/openclaw/memoranda/internal/vector"
)

const (
	documentsFileName = "documents.json"
	metadataFileName  = "metadata.json"
	lexicalFileName   = "lexical.json"
	vectorsFileName   = "vectors.bin"
	hashFileName      = "corpus.hash"
	stateFileName     = "state.json"

	snapshotVersion = 1

	vectorsMagic   = 0x4D454D56 // "MEMV"
	vectorsVersion = 1
)

// Snapshot is the in-memory form of a persisted index: documents, their
// token sequences, and their embedding rows, all in the same order.
type Snapshot struct {
	Documents []corpus.Document
	Tokenized [][]string
	Matrix    vector.Matrix
}

// State is the incremental bookkeeping persisted alongside the snapshot.
type State struct {
	LastFullBuildTime time.Time         `json:"last_full_build_time"`
	FileHashes        map[string]string `json:"file_hashes"`
	TotalUpdateCount  int               `json:"total_update_count"`
}

// DocumentMeta is the per-document entry in metadata.json, everything from
// the manifest except the content itself.
type DocumentMeta struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	ContentHash string `json:"content_hash"`
	Size        int64  `json:"size"`
	ModTime     int64  `json:"mtime"`
	WordCount   int    `json:"word_count"`
}

// Metadata is the content-free snapshot summary, cheap to read for status.
type Metadata struct {
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	DocumentCount int            `json:"document_count"`
	EmbeddingDim  int            `json:"embedding_dim"`
	Documents     []DocumentMeta `json:"documents"`
}

type documentsFile struct {
	Version   int               `json:"version"`
	Documents []corpus.Document `json:"documents"`
}

type lexicalFile struct {
	Version   int        `json:"version"`
	Tokenized [][]string `json:"tokenized"`
}

// store persists and loads snapshot artifacts under one directory.
type store struct {
	dir string
}

func newStore(dir string) *store {
	return &store{dir: dir}
}

func (s *store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether a persisted snapshot is present.
func (s *store) Exists() bool {
	_, err := os.Stat(s.path(stateFileName))
	return err == nil
}

// SaveSnapshot writes every artifact atomically. All artifacts are staged
// to temporary files first and renamed into place only after every write
// has succeeded, so a write failure cannot leave a mix of old and new
// artifacts whose document counts disagree.
func (s *store) SaveSnapshot(snap *Snapshot, state *State, corpusHash string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.IOError(errors.ErrCodeArtifactUnwritable, "creating index dir "+s.dir, err)
	}

	docsData, err := json.MarshalIndent(documentsFile{
		Version:   snapshotVersion,
		Documents: snap.Documents,
	}, "", "  ")
	if err != nil {
		return errors.IOError(errors.ErrCodeArtifactUnwritable, "encoding documents", err)
	}

	lexData, err := json.MarshalIndent(lexicalFile{
		Version:   snapshotVersion,
		Tokenized: snap.Tokenized,
	}, "", "  ")
	if err != nil {
		return errors.IOError(errors.ErrCodeArtifactUnwritable, "encoding lexical state", err)
	}

	metaData, err := json.MarshalIndent(buildMetadata(snap), "", "  ")
	if err != nil {
		return errors.IOError(errors.ErrCodeArtifactUnwritable, "encoding metadata", err)
	}

	stateData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.IOError(errors.ErrCodeArtifactUnwritable, "encoding state", err)
	}

	vecData, err := encodeMatrix(snap.Matrix)
	if err != nil {
		return err
	}

	// Replace order matters once staging is done: vectors.bin goes first
	// because it is the artifact the row-count check guards, and state.json
	// goes last because it is the existence marker. A crash mid-replace on
	// a first build therefore leaves no snapshot rather than a torn one.
	writes := []struct {
		name string
		data []byte
	}{
		{vectorsFileName, vecData},
		{lexicalFileName, lexData},
		{documentsFileName, docsData},
		{metadataFileName, metaData},
		{hashFileName, []byte(corpusHash)},
		{stateFileName, stateData},
	}

	pending := make([]*renameio.PendingFile, 0, len(writes))
	defer func() {
		// No-op for files already renamed into place; removes the rest.
		for _, p := range pending {
			_ = p.Cleanup()
		}
	}()
	for _, w := range writes {
		pf, err := renameio.TempFile(s.dir, s.path(w.name))
		if err != nil {
			return errors.IOError(errors.ErrCodeArtifactUnwritable, "staging "+w.name, err)
		}
		pending = append(pending, pf)
		if _, err := pf.Write(w.data); err != nil {
			return errors.IOError(errors.ErrCodeArtifactUnwritable, "staging "+w.name, err)
		}
	}

	for i, p := range pending {
		if err := p.CloseAtomicallyReplace(); err != nil {
			return errors.IOError(errors.ErrCodeArtifactUnwritable, "replacing "+writes[i].name, err)
		}
	}
	return nil
}

// LoadSnapshot reads and validates all snapshot artifacts. Any structural
// problem fails closed with a corruption error; the manager responds with a
// full rebuild rather than a partial repair.
func (s *store) LoadSnapshot() (*Snapshot, error) {
	docsData, err := os.ReadFile(s.path(documentsFileName))
	if err != nil {
		return nil, errors.CorruptionError("documents manifest unreadable", err)
	}
	var docs documentsFile
	if err := json.Unmarshal(docsData, &docs); err != nil {
		return nil, errors.CorruptionError("documents manifest undecodable", err)
	}
	if docs.Version != snapshotVersion {
		return nil, errors.New(errors.ErrCodeVersionUnknown,
			fmt.Sprintf("documents manifest version %d", docs.Version), nil)
	}

	lexData, err := os.ReadFile(s.path(lexicalFileName))
	if err != nil {
		return nil, errors.CorruptionError("lexical state unreadable", err)
	}
	var lex lexicalFile
	if err := json.Unmarshal(lexData, &lex); err != nil {
		return nil, errors.CorruptionError("lexical state undecodable", err)
	}
	if lex.Version != snapshotVersion {
		return nil, errors.New(errors.ErrCodeVersionUnknown,
			fmt.Sprintf("lexical state version %d", lex.Version), nil)
	}

	vecData, err := os.ReadFile(s.path(vectorsFileName))
	if err != nil {
		return nil, errors.CorruptionError("vector matrix unreadable", err)
	}
	matrix, err := decodeMatrix(vecData)
	if err != nil {
		return nil, err
	}

	if len(lex.Tokenized) != len(docs.Documents) {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("lexical state has %d entries for %d documents",
				len(lex.Tokenized), len(docs.Documents)), nil)
	}
	if matrix.Rows() != len(docs.Documents) {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("vector matrix has %d rows for %d documents",
				matrix.Rows(), len(docs.Documents)), nil)
	}

	return &Snapshot{
		Documents: docs.Documents,
		Tokenized: lex.Tokenized,
		Matrix:    matrix,
	}, nil
}

// LoadState reads the incremental state. A missing file returns a zero
// state; a corrupt one fails closed like any other artifact.
func (s *store) LoadState() (*State, error) {
	data, err := os.ReadFile(s.path(stateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &State{FileHashes: map[string]string{}}, nil
		}
		return nil, errors.CorruptionError("incremental state unreadable", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.CorruptionError("incremental state undecodable", err)
	}
	if state.FileHashes == nil {
		state.FileHashes = map[string]string{}
	}
	return &state, nil
}

// LoadCorpusHash returns the stored whole-corpus digest, or "" if absent.
func (s *store) LoadCorpusHash() string {
	data, err := os.ReadFile(s.path(hashFileName))
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}

// LoadMetadata reads the content-free snapshot summary.
func (s *store) LoadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(s.path(metadataFileName))
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeArtifactUnreadable, "reading metadata", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.CorruptionError("metadata undecodable", err)
	}
	return &meta, nil
}

func buildMetadata(snap *Snapshot) Metadata {
	meta := Metadata{
		Version:       snapshotVersion,
		CreatedAt:     time.Now().UTC(),
		DocumentCount: len(snap.Documents),
		EmbeddingDim:  snap.Matrix.Dims(),
		Documents:     make([]DocumentMeta, len(snap.Documents)),
	}
	for i, d := range snap.Documents {
		meta.Documents[i] = DocumentMeta{
			ID:          d.ID,
			Filename:    d.Filename,
			Path:        d.Path,
			ContentHash: d.ContentHash,
			Size:        d.Size,
			ModTime:     d.ModTime,
			WordCount:   d.WordCount,
		}
	}
	return meta
}

// encodeMatrix serializes the matrix as little-endian float32 rows behind a
// fixed header: magic, format version, row count, column count.
func encodeMatrix(m vector.Matrix) ([]byte, error) {
	cols := m.Dims()
	buf := new(bytes.Buffer)
	buf.Grow(16 + m.Rows()*cols*4)

	header := [4]uint32{vectorsMagic, vectorsVersion, uint32(m.Rows()), uint32(cols)}
	for _, v := range header {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, errors.IOError(errors.ErrCodeArtifactUnwritable, "encoding vector header", err)
		}
	}
	for i, row := range m {
		if len(row) != cols {
			return nil, errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("row %d has %d columns, want %d", i, len(row), cols), nil)
		}
		for _, v := range row {
			if err := binary.Write(buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
				return nil, errors.IOError(errors.ErrCodeArtifactUnwritable, "encoding vector row", err)
			}
		}
	}
	return buf.Bytes(), nil
}

func decodeMatrix(data []byte) (vector.Matrix, error) {
	if len(data) < 16 {
		return nil, errors.CorruptionError("vector matrix truncated header", nil)
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	version := binary.LittleEndian.Uint32(data[4:8])
	rows := binary.LittleEndian.Uint32(data[8:12])
	cols := binary.LittleEndian.Uint32(data[12:16])

	if magic != vectorsMagic {
		return nil, errors.CorruptionError("vector matrix bad magic", nil)
	}
	if version != vectorsVersion {
		return nil, errors.New(errors.ErrCodeVersionUnknown,
			fmt.Sprintf("vector matrix version %d", version), nil)
	}

	want := 16 + int(rows)*int(cols)*4
	if len(data) != want {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("vector matrix is %d bytes, header implies %d", len(data), want), nil)
	}

	matrix := make(vector.Matrix, rows)
	off := 16
	for i := range matrix {
		row := make([]float32, cols)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		matrix[i] = row
	}
	return matrix, nil
}
