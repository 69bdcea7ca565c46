package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/pdspeech-cli/internal/config"
	"github.com/KaramelBytes/pdspeech-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagDataDir string
	flagSources string

	// Loaded configuration and logger
	cfg    *cfgpkg.Global
	cfgErr error
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "pdspeech",
	Short: "pdspeech: prepare Parkinson's speech-feature datasets for modelling",
	Long: `pdspeech harmonizes published Parkinson's speech-feature studies onto one schema,
filters outliers, balances classes and writes leakage-free train and test sets.
It can also analyze the data, train baseline classifiers and keep datasets in SQL.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.pdspeech/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "base data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSources, "sources", "", "sources catalog file, .yaml or .toml (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal here: commands that need config report it via requireConfig
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg, cfgErr = nil, err
		return
	}
	cfg, cfgErr = c, nil

	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && flagDataDir != "" {
		cfg.SetDataDir(flagDataDir)
	}
	if f.Changed("sources") && flagSources != "" {
		cfg.SourcesFile = flagSources
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	l, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; logging disabled\n", err)
		logger = logging.Discard()
		return
	}
	logger = l
	slog.SetDefault(l)
}

func requireConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		if cfgErr != nil {
			return nil, fmt.Errorf("config: %w", cfgErr)
		}
		return nil, fmt.Errorf("config not loaded")
	}
	return cfg, nil
}
