package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/memoranda/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		top   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past searches",
		Long: `History lists recorded searches, newest first. Recording happens only
when history.enabled is set in the config; this command reads whatever
has been recorded so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			recorder, err := history.NewSQLiteRecorder(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer func() { _ = recorder.Close() }()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if top {
				queries, err := recorder.Top(ctx, limit)
				if err != nil {
					return err
				}
				if len(queries) == 0 {
					fmt.Fprintln(out, "no search history")
					return nil
				}
				for i, q := range queries {
					fmt.Fprintf(out, "%d. %q — %d searches, last %s\n",
						i+1, q.Query, q.Count, q.LastUsed.Local().Format(time.RFC1123))
				}
				return nil
			}

			records, err := recorder.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "no search history")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "%s  %-6s  %2d results  %6s  %q\n",
					rec.At.Local().Format("2006-01-02 15:04:05"),
					rec.Method, rec.ResultCount, formatDuration(rec.Duration), rec.Query)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&top, "top", false, "Show most frequent queries instead of recent ones")
	return cmd
}
