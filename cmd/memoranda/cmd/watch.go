package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openclaw/memoranda/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the corpus and update the index on changes",
		Long: `Watch observes the corpus directory and runs an incremental update
whenever markdown files change, after a short debounce. Runs until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			embedder := newEmbedder(cfg)
			defer func() { _ = embedder.Close() }()
			manager := newManager(cfg, embedder)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()

			// Catch up before watching so the first batch starts from a
			// consistent snapshot.
			release, err := acquireWriteLock(cfg)
			if err != nil {
				return err
			}
			result, err := manager.Update(ctx)
			release()
			if err != nil {
				return err
			}
			printUpdateResult(out, result)

			w := watcher.New(cfg.Paths.CorpusRoot)
			done := make(chan error, 1)
			go func() { done <- w.Start(ctx) }()

			fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", cfg.Paths.CorpusRoot)
			for {
				select {
				case batch, ok := <-w.Batches():
					if !ok {
						return <-done
					}
					for _, event := range batch {
						slog.Debug("corpus change",
							slog.String("path", event.Path),
							slog.String("op", event.Op.String()))
					}

					release, err := acquireWriteLock(cfg)
					if err != nil {
						slog.Warn("skipping update", slog.String("reason", err.Error()))
						continue
					}
					result, err := manager.Update(ctx)
					release()
					if err != nil {
						slog.Error("incremental update failed", slog.String("error", err.Error()))
						continue
					}
					printUpdateResult(out, result)

				case err := <-w.Errors():
					slog.Warn("watcher error", slog.String("error", err.Error()))

				case err := <-done:
					if errors.Is(err, context.Canceled) {
						fmt.Fprintln(out, "stopped")
						return nil
					}
					return err
				}
			}
		},
	}
}
