package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bibclean/internal/bibtex"
	"bibclean/internal/config"
	"bibclean/internal/crossref"
	"bibclean/internal/metacache"
	"bibclean/internal/pdf"
	"bibclean/internal/pipeline"
	"bibclean/internal/reconcile"
)

// DefaultInputFile is used when no input path is given.
const DefaultInputFile = "input.bib"

var (
	cleanOutput   string
	cleanDryRun   bool
	cleanUseCache bool
	cleanCacheDB  string
)

func init() {
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "Output file (default: <input>_cleaned.bib)")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Resolve and report without writing the output file")
	cleanCmd.Flags().BoolVar(&cleanUseCache, "cache", false, "Cache fetched metadata on disk across runs")
	cleanCmd.Flags().StringVar(&cleanCacheDB, "cache-db", "", "Cache database path (default: XDG cache dir)")
	rootCmd.AddCommand(cleanCmd)
}

var cleanCmd = &cobra.Command{
	Use:   "clean [input.bib]",
	Short: "Normalize a BibTeX file against registry metadata",
	Long: `Normalize a BibTeX file against registry metadata.

Each entry is resolved to a CSL-JSON document: by its doi field when
present, by a DOI found in its linked PDF (file field), or by a Crossref
title/author search. Fetched values replace existing ones only when they
fill a gap or closely match; entries whose fetched title does not match
pass through untouched.

Examples:
  bibclean clean refs.bib
  bibclean clean refs.bib -o refs_fixed.bib
  bibclean clean refs.bib --dry-run
  bibclean clean refs.bib --cache`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

// CleanSummary is the JSON response for the clean command.
type CleanSummary struct {
	Input     string        `json:"input"`
	Output    string        `json:"output,omitempty"`
	Total     int           `json:"total"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Records   []RecordEntry `json:"records"`
}

// RecordEntry is one record's outcome in the JSON response.
type RecordEntry struct {
	Key     string `json:"key"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func runClean(cmd *cobra.Command, args []string) error {
	inputPath := DefaultInputFile
	if len(args) == 1 {
		inputPath = args[0]
	}
	outputPath := cleanOutput
	if outputPath == "" {
		outputPath = derivedOutputPath(inputPath)
	}

	cfg, err := config.Discover()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	// Unreadable input is one of the two fatal failures.
	data, err := os.ReadFile(inputPath)
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", inputPath, err)
	}
	records, err := bibtex.Parse(data)
	if err != nil {
		exitWithError(ExitDataError, "parsing %s: %v", inputPath, err)
	}

	client := crossref.NewClient(
		crossref.WithMailto(cfg.Mailto),
		crossref.WithSearchThreshold(cfg.SearchAcceptThreshold),
	)
	var resolver pipeline.Resolver = client

	if cleanUseCache {
		cachePath := cleanCacheDB
		if cachePath == "" {
			cachePath = defaultCachePath()
		}
		cache, err := metacache.Open(cachePath)
		if err != nil {
			exitWithError(ExitError, "opening metadata cache: %v", err)
		}
		defer cache.Close()
		resolver = metacache.NewCachingResolver(client, cache)
	}

	p := pipeline.New(resolver, reconcile.Thresholds{
		TitleGate:  cfg.TitleGateThreshold,
		FieldMerge: cfg.FieldMergeThreshold,
	},
		pipeline.WithDOIExtractor(pdf.ExtractDOI),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))),
	)

	summary := CleanSummary{Input: inputPath, Total: len(records)}
	cleaned := make([]bibtex.Record, 0, len(records))

	for _, rec := range records {
		res := p.Process(cmd.Context(), rec)
		cleaned = append(cleaned, res.Record)

		entry := RecordEntry{Key: rec.Key, Outcome: string(res.Outcome)}
		switch res.Outcome {
		case pipeline.OutcomeUpdated:
			summary.Updated++
			printOutcome("updated: %s", rec.Key)
		case pipeline.OutcomeUnchanged:
			summary.Unchanged++
			printOutcome("unchanged (no metadata found): %s", rec.Key)
		case pipeline.OutcomeSkipped:
			summary.Skipped++
			printOutcome("skipped (title mismatch): %s", rec.Key)
		case pipeline.OutcomeFailed:
			summary.Failed++
			if res.Err != nil {
				entry.Error = res.Err.Error()
			}
			printOutcome("failed (%v), reverted to original: %s", res.Err, rec.Key)
		}
		summary.Records = append(summary.Records, entry)
	}

	if !cleanDryRun {
		// Unwritable output is the other fatal failure.
		if err := os.WriteFile(outputPath, []byte(bibtex.FormatAll(cleaned)), 0644); err != nil {
			exitWithError(ExitDataError, "writing %s: %v", outputPath, err)
		}
		summary.Output = outputPath
	}

	if jsonOutput {
		return outputJSON(summary)
	}
	if cleanDryRun {
		fmt.Printf("Dry run: %d updated, %d unchanged, %d skipped, %d failed\n",
			summary.Updated, summary.Unchanged, summary.Skipped, summary.Failed)
	} else {
		fmt.Printf("Cleaned BibTeX saved to: %s\n", outputPath)
	}
	return nil
}

// printOutcome writes a per-record progress line in human mode.
func printOutcome(format string, args ...interface{}) {
	if !jsonOutput {
		fmt.Printf(format+"\n", args...)
	}
}

// derivedOutputPath derives the output path from the input path:
// refs.bib -> refs_cleaned.bib.
func derivedOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	if ext == "" {
		ext = ".bib"
	}
	return base + "_cleaned" + ext
}

// defaultCachePath returns the cache database path under the XDG cache
// directory, or a local fallback when no home directory is available.
func defaultCachePath() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ".bibclean-cache.db"
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheHome, "bibclean")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ".bibclean-cache.db"
	}
	return filepath.Join(dir, "metadata.db")
}
