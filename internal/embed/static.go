package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/openclaw/memoranda/internal/errors"
)

// StaticDimensions is the dimension of the hash-based static embedder.
const StaticDimensions = 256

// StaticEmbedder generates deterministic hash-based embeddings with no
// network dependency. Semantic quality is reduced, but identical text
// always embeds identically, which keeps builds reproducible when the
// provider is unavailable and makes end-to-end tests deterministic.
type StaticEmbedder struct {
	dims uint32

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder with StaticDimensions.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{dims: StaticDimensions}
}

// Embed hashes word and trigram features into a normalized vector.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, errors.ProviderError("embedder is closed", nil)
	}

	vec := make([]float32, e.dims)
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "" {
		return vec, nil
	}

	for _, word := range strings.Fields(trimmed) {
		vec[e.bucket(word)] += 0.7
	}

	compact := strings.Join(strings.Fields(trimmed), " ")
	runes := []rune(compact)
	for i := 0; i+3 <= len(runes); i++ {
		vec[e.bucket(string(runes[i:i+3]))] += 0.3
	}

	normalize(vec)
	return vec, nil
}

func (e *StaticEmbedder) bucket(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32() % e.dims
}

// Dimensions returns StaticDimensions.
func (e *StaticEmbedder) Dimensions() int { return int(e.dims) }

// ModelName identifies the static embedder.
func (e *StaticEmbedder) ModelName() string { return "static-hash" }

// Available is always true; the static embedder has no dependencies.
func (e *StaticEmbedder) Available(ctx context.Context) bool { return true }

// Close marks the embedder closed.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// normalize scales v to unit length in place. Zero vectors are left alone.
func normalize(v []float32) {
	norm := l2Norm(v)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
