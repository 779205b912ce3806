// Package cmd provides the CLI commands for memoranda.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/openclaw/memoranda/internal/cache"
	"github.com/openclaw/memoranda/internal/config"
	"github.com/openclaw/memoranda/internal/corpus"
	"github.com/openclaw/memoranda/internal/embed"
	"github.com/openclaw/memoranda/internal/index"
	"github.com/openclaw/memoranda/internal/logging"
	"github.com/openclaw/memoranda/internal/vector"
	"github.com/openclaw/memoranda/pkg/version"
)

var (
	workspaceFlag string
	configFlag    string
	debugMode     bool
	offlineMode   bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the memoranda CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memoranda",
		Short: "Hybrid search over a local markdown memory corpus",
		Long: `Memoranda indexes a directory of markdown memory files and answers
ranked queries by fusing BM25 keyword scoring with embedding similarity.

Typical flow:
  memoranda build            # index the corpus
  memoranda search "query"   # ask it something
  memoranda update           # pick up file changes incrementally`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("memoranda version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", ".", "Workspace directory (contains memory/ and .memoranda/)")
	cmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default <workspace>/memoranda.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&offlineMode, "offline", false, "Use deterministic static embeddings (no Ollama)")

	cmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		// A broken log destination must not take the CLI down with it.
		if cleanup, err := logging.SetupDefault(debugMode); err == nil {
			loggingCleanup = cleanup
		}
	}
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func loadConfig() (config.Config, error) {
	return config.Load(workspaceFlag, configFlag)
}

// newEmbedder builds the embedding provider: a cached Ollama client by
// default, or the deterministic static embedder in offline mode.
func newEmbedder(cfg config.Config) embed.Embedder {
	if offlineMode {
		return embed.NewStaticEmbedder()
	}
	ollama := embed.NewOllamaEmbedder(embed.OllamaConfig{
		Host:       cfg.Embeddings.Host,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    cfg.Embeddings.Timeout,
	})
	return embed.NewCachedEmbedder(ollama, cfg.Embeddings.CacheSize)
}

func newManager(cfg config.Config, embedder embed.Embedder) *index.Manager {
	vindex := vector.NewIndex(embedder, vector.WithMaxInputBytes(cfg.Embeddings.MaxInputBytes))
	return index.NewManager(cfg.Paths.IndexDir, corpus.NewStore(cfg.Paths.CorpusRoot), vindex)
}

func newResultCache(cfg config.Config) *cache.ResultCache {
	return cache.New(cfg.Paths.CacheDir,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithMaxSize(cfg.Cache.MaxSize))
}

// acquireWriteLock serializes index writers across processes. The snapshot
// itself only guarantees atomic replacement; without this lock two
// concurrent writers could silently lose one update.
func acquireWriteLock(cfg config.Config) (release func(), err error) {
	lockDir := filepath.Dir(cfg.Paths.IndexDir)
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return func() {}, nil
	}
	lock := flock.New(filepath.Join(lockDir, "memoranda.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		// Lock file unavailable (read-only fs, exotic mount): proceed
		// unlocked rather than refuse to work.
		return func() {}, nil
	}
	if !ok {
		return nil, fmt.Errorf("another memoranda build or update is running")
	}
	return func() { _ = lock.Unlock() }, nil
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
