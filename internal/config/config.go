// Package config handles bibclean configuration: similarity thresholds
// and the Crossref contact address.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable knobs. Thresholds default to 0.7; raising
// them makes merging more conservative.
type Config struct {
	// TitleGateThreshold gates the whole fetched document on title
	// similarity.
	TitleGateThreshold float64 `yaml:"title_gate_threshold"`
	// FieldMergeThreshold gates individual field replacements.
	FieldMergeThreshold float64 `yaml:"field_merge_threshold"`
	// SearchAcceptThreshold gates acceptance of search candidates.
	SearchAcceptThreshold float64 `yaml:"search_accept_threshold"`
	// Mailto identifies the operator to Crossref (polite pool).
	// Falls back to the CROSSREF_MAILTO environment variable.
	Mailto string `yaml:"mailto,omitempty"`
}

const (
	// ConfigDirName is the directory under XDG_CONFIG_HOME.
	ConfigDirName = "bibclean"
	// ConfigFileName is the config file name.
	ConfigFileName = "config.yml"
	// LocalConfigFileName is the per-directory override.
	LocalConfigFileName = ".bibclean.yml"
)

// Default returns the standard configuration.
func Default() Config {
	return Config{
		TitleGateThreshold:    0.7,
		FieldMergeThreshold:   0.7,
		SearchAcceptThreshold: 0.7,
	}
}

// GlobalPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibclean/config.yml.
func GlobalPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDirName, ConfigFileName)
}

// Load reads configuration from the given file, applying defaults for
// anything unset. A missing file yields the defaults, not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return applyEnv(cfg), nil
}

// Discover loads configuration from .bibclean.yml in the current
// directory if present, else the global config file, else defaults.
func Discover() (Config, error) {
	if _, err := os.Stat(LocalConfigFileName); err == nil {
		return Load(LocalConfigFileName)
	}
	if path := GlobalPath(); path != "" {
		return Load(path)
	}
	return applyEnv(Default()), nil
}

// applyEnv fills the mailto from the environment when the file left it empty.
func applyEnv(cfg Config) Config {
	if cfg.Mailto == "" {
		cfg.Mailto = os.Getenv("CROSSREF_MAILTO")
	}
	return cfg
}

func validate(cfg Config) error {
	for name, v := range map[string]float64{
		"title_gate_threshold":    cfg.TitleGateThreshold,
		"field_merge_threshold":   cfg.FieldMergeThreshold,
		"search_accept_threshold": cfg.SearchAcceptThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: %s must be within [0, 1], got %v", name, v)
		}
	}
	return nil
}
