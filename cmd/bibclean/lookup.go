package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bibclean/internal/config"
	"bibclean/internal/crossref"
)

var (
	lookupTitle  string
	lookupAuthor string
)

func init() {
	lookupCmd.Flags().StringVar(&lookupTitle, "title", "", "Search Crossref by title instead of resolving a DOI")
	lookupCmd.Flags().StringVar(&lookupAuthor, "author", "", "First author to narrow a title search")
	rootCmd.AddCommand(lookupCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [doi]",
	Short: "Fetch registry metadata for a single work",
	Long: `Fetch registry metadata for a single work, for inspecting what the
cleaner would merge.

Examples:
  bibclean lookup 10.1038/s41586-020-2649-2
  bibclean lookup --title "Deep Learning" --author Smith`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Discover()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	client := crossref.NewClient(
		crossref.WithMailto(cfg.Mailto),
		crossref.WithSearchThreshold(cfg.SearchAcceptThreshold),
	)

	doi := ""
	if len(args) == 1 {
		doi = args[0]
	}

	switch {
	case doi == "" && lookupTitle == "":
		exitWithError(ExitError, "provide a DOI argument or --title")
	case doi == "":
		doi, err = client.SearchDOI(cmd.Context(), lookupTitle, lookupAuthor)
		if err != nil {
			exitWithError(ExitError, "searching Crossref: %v", err)
		}
		if doi == "" {
			exitWithError(ExitError, "no candidate matched %q closely enough", lookupTitle)
		}
		if !jsonOutput {
			fmt.Printf("resolved: %s\n", doi)
		}
	}

	doc, err := client.FetchByDOI(cmd.Context(), doi)
	if err != nil {
		if crossref.IsNotFound(err) {
			exitWithError(ExitError, "no metadata found for %s", doi)
		}
		exitWithError(ExitError, "fetching metadata: %v", err)
	}

	if jsonOutput {
		return outputJSON(doc)
	}

	fmt.Printf("title:     %s\n", doc.FullTitle())
	if len(doc.Author) > 0 {
		fmt.Printf("authors:  ")
		for i, a := range doc.Author {
			if i > 0 {
				fmt.Printf(" and")
			}
			fmt.Printf(" %s, %s", a.Family, a.Given)
		}
		fmt.Println()
	}
	if v := doc.ContainerName(); v != "" {
		fmt.Printf("container: %s\n", v)
	}
	if doc.Publisher != "" {
		fmt.Printf("publisher: %s\n", doc.Publisher)
	}
	if year, ok := doc.Issued.Year(); ok {
		fmt.Printf("year:      %d\n", year)
	}
	if doc.DOI != "" {
		fmt.Printf("doi:       %s\n", doc.DOI)
	}
	return nil
}
