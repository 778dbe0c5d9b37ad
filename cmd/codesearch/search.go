package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <path> <query>...",
	Short: "Index a project and print the best matching symbols",
	Long: `Index a project and rank its symbols against a query.

All arguments after the path form the query.

Examples:
  codesearch search . read file
  codesearch search ./api "auth token" --limit 3 --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		limit := searchLimit
		if limit <= 0 {
			limit = cfg.Search.DefaultLimit
		}

		engine := indexer.NewEngine(cfg.Index)
		defer engine.Close()
		if _, err := engine.Reindex(args[0]); err != nil {
			return fmt.Errorf("indexing %s: %w", args[0], err)
		}
		results, err := engine.Search(strings.Join(args[1:], " "), limit)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if searchJSON {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func printResults(w io.Writer, results []indexer.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	for i, r := range results {
		s := r.Symbol
		fmt.Fprintf(w, "%2d. %-40s %-9s %s:%d-%d  (%.3f)\n",
			i+1, s.Name, s.Kind, s.FilePath, s.StartLine, s.EndLine, r.Score)
	}
}
