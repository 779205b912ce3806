// Package embed provides embedding providers for semantic indexing.
package embed

import (
	"context"
	"math"
	"time"
)

// Defaults for the Ollama provider.
const (
	// DefaultHost is the default Ollama API endpoint.
	DefaultHost = "http://localhost:11434"

	// DefaultModel is the default embedding model.
	DefaultModel = "mxbai-embed-large"

	// DefaultDimensions is the embedding dimension of DefaultModel, and the
	// width of zero-vector fallbacks when the provider never responds.
	DefaultDimensions = 1024

	// DefaultTimeout bounds each embedding call.
	DefaultTimeout = 30 * time.Second

	// DefaultCacheSize is the default LRU size for CachedEmbedder.
	DefaultCacheSize = 1000
)

// Embedder generates a dense vector for a text.
//
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the provider is reachable.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// l2Norm returns the Euclidean norm of v.
func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
