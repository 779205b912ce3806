// Package config loads and validates memoranda configuration.
//
// Configuration sources, lowest to highest priority:
//  1. Built-in defaults
//  2. Config file (memoranda.yaml in the workspace, or --config)
//  3. Environment variables (MEMORANDA_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config schema version written by this binary.
const CurrentVersion = 1

// Config is the complete memoranda configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	History    HistoryConfig    `yaml:"history" json:"history"`
}

// PathsConfig locates the corpus and the persisted index.
type PathsConfig struct {
	// CorpusRoot is the directory of markdown memory files.
	CorpusRoot string `yaml:"corpus_root" json:"corpus_root"`
	// IndexDir holds all persisted snapshot artifacts.
	IndexDir string `yaml:"index_dir" json:"index_dir"`
	// CacheDir holds the query result cache and its stats.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// SearchConfig tunes score fusion.
type SearchConfig struct {
	// LexicalWeight scales the max-normalized BM25 score.
	LexicalWeight float64 `yaml:"lexical_weight" json:"lexical_weight"`
	// VectorWeight scales the min-max-normalized cosine score.
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`
	// TopK is the default number of results returned.
	TopK int `yaml:"top_k" json:"top_k"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host" json:"host"`
	// Model is the embedding model name.
	Model string `yaml:"model" json:"model"`
	// Dimensions is the embedding dimension; also the width of the
	// zero-vector fallback when the provider is unreachable.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// Timeout bounds each embedding call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// MaxInputBytes truncates document text before embedding.
	MaxInputBytes int `yaml:"max_input_bytes" json:"max_input_bytes"`
	// CacheSize is the LRU size of the in-process embedding cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// CacheConfig tunes the query result cache.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
	MaxSize int           `yaml:"max_size" json:"max_size"`
}

// HistoryConfig configures search history recording.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Path is the sqlite database file. Empty uses <index_dir>/history.db.
	Path string `yaml:"path" json:"path"`
}

// Default returns the built-in configuration rooted at workspace.
func Default(workspace string) Config {
	return Config{
		Version: CurrentVersion,
		Paths: PathsConfig{
			CorpusRoot: filepath.Join(workspace, "memory"),
			IndexDir:   filepath.Join(workspace, ".memoranda", "index"),
			CacheDir:   filepath.Join(workspace, ".memoranda", "cache"),
		},
		Search: SearchConfig{
			LexicalWeight: 0.3,
			VectorWeight:  0.7,
			TopK:          5,
		},
		Embeddings: EmbeddingsConfig{
			Host:          "http://localhost:11434",
			Model:         "mxbai-embed-large",
			Dimensions:    1024,
			Timeout:       30 * time.Second,
			MaxInputBytes: 2000,
			CacheSize:     1000,
		},
		Cache: CacheConfig{
			TTL:     24 * time.Hour,
			MaxSize: 100,
		},
		History: HistoryConfig{
			Enabled: false,
		},
	}
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist. Environment overrides are applied last.
func Load(workspace, path string) (Config, error) {
	cfg := Default(workspace)

	if path == "" {
		path = filepath.Join(workspace, "memoranda.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration for inconsistencies.
func (c Config) Validate() error {
	if c.Paths.CorpusRoot == "" {
		return fmt.Errorf("paths.corpus_root must not be empty")
	}
	if c.Paths.IndexDir == "" {
		return fmt.Errorf("paths.index_dir must not be empty")
	}
	if c.Search.LexicalWeight < 0 || c.Search.VectorWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.LexicalWeight == 0 && c.Search.VectorWeight == 0 {
		return fmt.Errorf("at least one search weight must be positive")
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive")
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive")
	}
	if c.Embeddings.Timeout <= 0 {
		return fmt.Errorf("embeddings.timeout must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive")
	}
	return nil
}

// HistoryPath resolves the sqlite history database location.
func (c Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.IndexDir, "history.db")
}

// applyEnvOverrides applies MEMORANDA_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEMORANDA_CORPUS_ROOT"); v != "" {
		cfg.Paths.CorpusRoot = v
	}
	if v := os.Getenv("MEMORANDA_INDEX_DIR"); v != "" {
		cfg.Paths.IndexDir = v
	}
	if v := os.Getenv("MEMORANDA_OLLAMA_HOST"); v != "" {
		cfg.Embeddings.Host = v
	}
	if v := os.Getenv("MEMORANDA_EMBED_MODEL"); v != "" {
		cfg.Embeddings.Model = v
	}
	if v := os.Getenv("MEMORANDA_LEXICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.LexicalWeight = f
		}
	}
	if v := os.Getenv("MEMORANDA_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.VectorWeight = f
		}
	}
}
