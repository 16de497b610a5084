package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"namereg/internal/config"
)

var (
	configFormat   string
	configShowDiff bool
	configForce    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage namereg configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, config file and environment
have been merged.

Examples:
  namereg config show                 # key = value listing
  namereg config show --format yaml   # as a config file
  namereg config show --diff          # only non-default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	RunE:  runConfigEnv,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (human, json, yaml, toml)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if configFormat == "human" {
		return writeConfigHuman(cmd.OutOrStdout(), cfg, configShowDiff)
	}

	data, err := config.Encode(cfg, configFormat)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func writeConfigHuman(w io.Writer, cfg *config.Config, diffOnly bool) error {
	current, err := flattenConfig(cfg)
	if err != nil {
		return err
	}
	defaults, err := flattenConfig(config.DefaultConfig())
	if err != nil {
		return err
	}

	changed := 0
	for _, key := range sortedKeys(current) {
		value, def := current[key], defaults[key]
		if value == def {
			if !diffOnly {
				fmt.Fprintf(w, "%s = %s\n", key, value)
			}
			continue
		}
		changed++
		fmt.Fprintf(w, "%s = %s (default: %s)\n", key, value, def)
	}
	if diffOnly && changed == 0 {
		fmt.Fprintln(w, "All values are defaults")
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultFileName + ".yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

func runConfigEnv(cmd *cobra.Command, args []string) error {
	defaults, err := flattenConfig(config.DefaultConfig())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Environment overrides (default in parentheses):")
	for _, key := range sortedKeys(defaults) {
		if key == "version" {
			continue
		}
		fmt.Fprintf(w, "  %s (%s)\n", envName(key), defaults[key])
	}
	fmt.Fprintln(w, "\nA .env file in the working directory is loaded first.")
	return nil
}

// envName maps a dotted config key to its environment variable.
func envName(key string) string {
	return config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// flattenConfig renders cfg as dotted keys (server.port) to display values.
func flattenConfig(cfg *config.Config) (map[string]string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = valueString(v)
	}
}

func valueString(v any) string {
	if s, ok := v.(string); ok {
		if s == "" {
			return `""`
		}
		return s
	}
	return fmt.Sprint(v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
