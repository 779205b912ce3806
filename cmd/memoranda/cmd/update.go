package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openclaw/memoranda/internal/index"
)

func newUpdateCmd() *cobra.Command {
	var showStatus bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Apply corpus changes to the index incrementally",
		Long: `Update diffs the corpus against the per-file hashes recorded at the
last build, re-embeds only changed documents, and rebuilds the lexical
model. Without a prior index it performs a full build.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			embedder := newEmbedder(cfg)
			defer func() { _ = embedder.Close() }()
			manager := newManager(cfg, embedder)

			out := cmd.OutOrStdout()

			if showStatus {
				printStatus(out, manager.Status(cmd.Context()))
				return nil
			}

			release, err := acquireWriteLock(cfg)
			if err != nil {
				return err
			}
			defer release()

			result, err := manager.Update(cmd.Context())
			if err != nil {
				return err
			}
			printUpdateResult(out, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showStatus, "status", false, "Show pending changes without updating")
	return cmd
}

func printUpdateResult(out io.Writer, result *index.Result) {
	switch result.Mode {
	case index.ModeNoop:
		fmt.Fprintln(out, "no changes detected")
	case index.ModeFull:
		if result.Fallback {
			fmt.Fprintln(out, "stored index was unusable; rebuilt from scratch")
		}
		fmt.Fprintf(out, "indexed %d documents in %s\n",
			result.DocumentCount, formatDuration(result.Duration))
	default:
		fmt.Fprintf(out, "updated index: +%d added, ~%d modified, -%d deleted (%d documents, %s)\n",
			result.Added, result.Modified, result.Deleted,
			result.DocumentCount, formatDuration(result.Duration))
	}
}
