package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default("/work")

	assert.Equal(t, filepath.Join("/work", "memory"), cfg.Paths.CorpusRoot)
	assert.Equal(t, 0.3, cfg.Search.LexicalWeight)
	assert.Equal(t, 0.7, cfg.Search.VectorWeight)
	assert.Equal(t, 1024, cfg.Embeddings.Dimensions)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Cache.MaxSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, Default(dir).Search, cfg.Search)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
search:
  lexical_weight: 0.5
  vector_weight: 0.5
  top_k: 10
cache:
  ttl: 1h
  max_size: 7
`
	path := filepath.Join(dir, "memoranda.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Search.LexicalWeight)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 7, cfg.Cache.MaxSize)
	// Untouched sections keep defaults.
	assert.Equal(t, "mxbai-embed-large", cfg.Embeddings.Model)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEMORANDA_CORPUS_ROOT", "/elsewhere/memory")
	t.Setenv("MEMORANDA_VECTOR_WEIGHT", "0.9")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/memory", cfg.Paths.CorpusRoot)
	assert.Equal(t, 0.9, cfg.Search.VectorWeight)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memoranda.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: ["), 0o644))

	_, err := Load(dir, "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"negative weight", func(c *Config) { c.Search.LexicalWeight = -1 }, false},
		{"both weights zero", func(c *Config) { c.Search.LexicalWeight = 0; c.Search.VectorWeight = 0 }, false},
		{"weights need not sum to one", func(c *Config) { c.Search.LexicalWeight = 2; c.Search.VectorWeight = 3 }, true},
		{"zero topk", func(c *Config) { c.Search.TopK = 0 }, false},
		{"zero dimensions", func(c *Config) { c.Embeddings.Dimensions = 0 }, false},
		{"zero cache size", func(c *Config) { c.Cache.MaxSize = 0 }, false},
		{"empty corpus root", func(c *Config) { c.Paths.CorpusRoot = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/work")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.Search.TopK = 42

	path := filepath.Join(dir, "sub", "memoranda.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(dir, path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.TopK)
}
