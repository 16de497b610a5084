package main

import (
	"github.com/spf13/cobra"

	"namereg/internal/config"
	"namereg/internal/version"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "namereg",
	Short: "namereg - register names in a pooled SQLite store",
	Long: `namereg serves GET /{name}: every request stores the name under a freshly
generated id in a local SQLite database and answers with the name read back.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("namereg version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: ./namereg.{yaml,json,toml} if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format: human or json")
}

// loadConfig loads the config file and environment, then applies the
// persistent flags. Command-specific flags are applied by the caller.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}
