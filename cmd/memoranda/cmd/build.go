package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var force bool
	var check bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index from scratch",
		Long: `Build tokenizes and embeds every corpus document and replaces all
persisted index artifacts. When the stored corpus digest already matches
the corpus, the build is skipped unless --force is given.`,
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

			needs, err := manager.NeedsRebuild(cmd.Context())
			if err != nil {
				return err
			}
			if check {
				if needs {
					fmt.Fprintln(out, "index is stale, rebuild needed")
				} else {
					fmt.Fprintln(out, "index is up to date")
				}
				return nil
			}
			if !needs && !force {
				fmt.Fprintln(out, "index is up to date (use --force to rebuild anyway)")
				return nil
			}

			release, err := acquireWriteLock(cfg)
			if err != nil {
				return err
			}
			defer release()

			result, err := manager.Build(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "indexed %d documents in %s\n",
				result.DocumentCount, formatDuration(result.Duration))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even if the index is up to date")
	cmd.Flags().BoolVar(&check, "check", false, "Report whether a rebuild is needed, without building")
	return cmd
}
