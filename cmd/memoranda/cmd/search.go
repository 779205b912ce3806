package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/memoranda/internal/history"
	"github.com/openclaw/memoranda/internal/searcher"
)

type searchOptions struct {
	limit         int
	lexicalWeight float64
	vectorWeight  float64
	noCache       bool
	format        string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the memory corpus",
		Long: `Search runs the query through both the BM25 model and the embedding
index, fuses the normalized scores, and prints the top results.

Examples:
  memoranda search "meeting notes from the architecture review"
  memoranda search "postgres tuning" --limit 3 --format json
  memoranda search "postgres tuning" --lexical-weight 1 --vector-weight 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().Float64Var(&opts.lexicalWeight, "lexical-weight", -1, "Override the lexical fusion weight")
	cmd.Flags().Float64Var(&opts.vectorWeight, "vector-weight", -1, "Override the vector fusion weight")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Bypass the result cache")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}

	embedder := newEmbedder(cfg)
	defer func() { _ = embedder.Close() }()
	manager := newManager(cfg, embedder)

	if !manager.Exists() {
		return fmt.Errorf("no index found; run 'memoranda build' first")
	}

	weights := searcher.Weights{
		Lexical: cfg.Search.LexicalWeight,
		Vector:  cfg.Search.VectorWeight,
	}
	if opts.lexicalWeight >= 0 {
		weights.Lexical = opts.lexicalWeight
	}
	if opts.vectorWeight >= 0 {
		weights.Vector = opts.vectorWeight
	}

	engineOpts := []searcher.EngineOption{searcher.WithWeights(weights)}
	if !opts.noCache {
		engineOpts = append(engineOpts, searcher.WithCache(newResultCache(cfg)))
	}
	if cfg.History.Enabled {
		recorder, err := history.NewSQLiteRecorder(cfg.HistoryPath())
		if err != nil {
			slog.Warn("search history unavailable", slog.String("error", err.Error()))
		} else {
			defer func() { _ = recorder.Close() }()
			engineOpts = append(engineOpts, searcher.WithRecorder(recorder))
		}
	}

	engine, err := manager.OpenEngine(engineOpts...)
	if err != nil {
		return fmt.Errorf("loading index: %w (run 'memoranda build' to repair)", err)
	}

	limit := opts.limit
	if limit <= 0 {
		limit = cfg.Search.TopK
	}
	results, err := engine.Search(cmd.Context(), query, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%d. %s (score %.4f, lexical %.4f, vector %.4f)\n",
			r.Rank, r.Path, r.FusedScore, r.LexicalScore, r.VectorScore)
		if preview := strings.TrimSpace(r.Preview); preview != "" {
			fmt.Fprintf(out, "   %s\n", firstLine(preview))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
