package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bibclean/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration: similarity thresholds and the
Crossref contact address.

Configuration is read from .bibclean.yml in the current directory,
falling back to ` + "`" + `$XDG_CONFIG_HOME/bibclean/config.yml` + "`" + `, then defaults.
CROSSREF_MAILTO in the environment (or a .env file) supplies the contact
address when the config file leaves it empty.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Discover()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if jsonOutput {
		return outputJSON(map[string]interface{}{
			"title_gate_threshold":    cfg.TitleGateThreshold,
			"field_merge_threshold":   cfg.FieldMergeThreshold,
			"search_accept_threshold": cfg.SearchAcceptThreshold,
			"mailto":                  cfg.Mailto,
		})
	}

	fmt.Printf("title_gate_threshold:    %g\n", cfg.TitleGateThreshold)
	fmt.Printf("field_merge_threshold:   %g\n", cfg.FieldMergeThreshold)
	fmt.Printf("search_accept_threshold: %g\n", cfg.SearchAcceptThreshold)
	if cfg.Mailto != "" {
		fmt.Printf("mailto:                  %s\n", cfg.Mailto)
	}
	return nil
}
