package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/memoranda/internal/index"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index state and pending corpus changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			embedder := newEmbedder(cfg)
			defer func() { _ = embedder.Close() }()
			manager := newManager(cfg, embedder)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "corpus:   %s\n", cfg.Paths.CorpusRoot)
			fmt.Fprintf(out, "index:    %s\n", cfg.Paths.IndexDir)
			printStatus(out, manager.Status(cmd.Context()))

			stats := newResultCache(cfg).Stats()
			fmt.Fprintf(out, "cache:    %d entries, %.0f%% hit rate (%d hits / %d queries)\n",
				stats.CacheSize, stats.HitRate*100, stats.Hits, stats.TotalQueries)
			return nil
		},
	}
}

func printStatus(out io.Writer, status *index.Status) {
	if !status.IndexExists {
		fmt.Fprintln(out, "index:    not built yet (run 'memoranda build')")
		if status.PendingAdded > 0 {
			fmt.Fprintf(out, "corpus:   %d documents waiting to be indexed\n", status.PendingAdded)
		}
		return
	}

	fmt.Fprintf(out, "documents: %d indexed, %d tracked\n", status.DocumentCount, status.TrackedFiles)
	if !status.LastFullBuild.IsZero() {
		fmt.Fprintf(out, "last full build: %s (%d incremental updates since)\n",
			status.LastFullBuild.Local().Format(time.RFC1123), status.TotalUpdates)
	}

	pending := status.PendingAdded + status.PendingModified + status.PendingDeleted
	if pending == 0 {
		fmt.Fprintln(out, "up to date")
		return
	}
	fmt.Fprintf(out, "pending:  +%d added, ~%d modified, -%d deleted (run 'memoranda update')\n",
		status.PendingAdded, status.PendingModified, status.PendingDeleted)
}
