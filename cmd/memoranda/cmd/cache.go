package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	var (
		showStats    bool
		popular      int
		invalidate   string
		clearAll     bool
		clearExpired bool
	)

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the query result cache",
		Long: `Without flags, cache prints its statistics. Management flags remove
entries; removal is immediate and persisted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rc := newResultCache(cfg)
			out := cmd.OutOrStdout()

			switch {
			case clearAll:
				fmt.Fprintf(out, "cleared %d entries\n", rc.Clear())
			case clearExpired:
				fmt.Fprintf(out, "cleared %d expired entries\n", rc.ClearExpired())
			case invalidate != "":
				if rc.Invalidate(invalidate) {
					fmt.Fprintln(out, "entry removed")
				} else {
					fmt.Fprintln(out, "no cached entry for that query")
				}
			case popular > 0:
				queries := rc.Popular(popular)
				if len(queries) == 0 {
					fmt.Fprintln(out, "cache is empty")
					return nil
				}
				for i, q := range queries {
					fmt.Fprintf(out, "%d. %q — %d hits, last used %s\n",
						i+1, q.Query, q.HitCount, q.LastAccessedAt.Local().Format(time.RFC1123))
				}
			default:
				// --stats and the bare command both land here.
				stats := rc.Stats()
				fmt.Fprintf(out, "entries:       %d\n", stats.CacheSize)
				fmt.Fprintf(out, "hits:          %d\n", stats.Hits)
				fmt.Fprintf(out, "misses:        %d\n", stats.Misses)
				fmt.Fprintf(out, "adds:          %d\n", stats.Adds)
				fmt.Fprintf(out, "total queries: %d\n", stats.TotalQueries)
				fmt.Fprintf(out, "hit rate:      %.1f%%\n", stats.HitRate*100)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showStats, "stats", false, "Show cache statistics (default)")
	cmd.Flags().IntVar(&popular, "popular", 0, "Show the N most-hit cached queries")
	cmd.Flags().StringVar(&invalidate, "invalidate", "", "Remove the cache entry for a query")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Remove every cache entry")
	cmd.Flags().BoolVar(&clearExpired, "clear-expired", false, "Remove entries past their TTL")
	return cmd
}
