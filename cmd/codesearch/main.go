// Command codesearch indexes a source tree and answers ranked symbol
// queries from the command line or over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "codesearch",
	Short: "Search code symbols with BM25 ranking",
	Long: `codesearch extracts functions, types, and other symbols from a source
tree with tree-sitter and ranks them against free-text queries.

Examples:
  codesearch index ./myproject
  codesearch search ./myproject "parse config" --limit 5
  codesearch serve --config configs/codesearch.yaml`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(logLevel, logFormat, nil)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// setupLogging applies the config's logging section unless the flags
// were given explicitly.
func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		format = logFormat
	}
	logger.Setup(level, format, nil)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
