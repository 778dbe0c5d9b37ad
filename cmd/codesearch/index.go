package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a project and print index statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		engine := indexer.NewEngine(cfg.Index)
		defer engine.Close()

		stats, err := engine.Reindex(args[0])
		if err != nil {
			return fmt.Errorf("indexing %s: %w", args[0], err)
		}
		if indexJSON {
			return writeJSON(cmd.OutOrStdout(), stats)
		}
		return printStats(cmd.OutOrStdout(), stats)
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "Print statistics as JSON")
	rootCmd.AddCommand(indexCmd)
}

func printStats(w io.Writer, stats indexer.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "files\t%d\n", stats.TotalFiles)
	fmt.Fprintf(tw, "symbols\t%d\n", stats.TotalSymbols)
	fmt.Fprintf(tw, "terms\t%d\n", stats.TotalTerms)
	fmt.Fprintf(tw, "elapsed\t%dms\n", stats.ElapsedMs)
	for _, lang := range slices.Sorted(maps.Keys(stats.Languages)) {
		fmt.Fprintf(tw, "  %s\t%d\n", lang, stats.Languages[lang])
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
