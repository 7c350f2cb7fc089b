// Package main provides the bibclean CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// jsonOutput controls whether to emit machine-readable JSON instead of
// human-readable lines.
var jsonOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibclean",
	Short: "Normalize BibTeX entries against registry metadata",
	Long: `bibclean looks up authoritative metadata for each BibTeX entry
(via DOI resolution or a Crossref title/author search) and merges it
into the entry, keeping user-entered values whenever the fetched data
does not closely resemble them.

A record passes through unchanged when no metadata can be found or the
fetched title does not match, so the output is never worse than the
input.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env if present (for CROSSREF_MAILTO)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of human-readable output")
	rootCmd.Version = Version
}
