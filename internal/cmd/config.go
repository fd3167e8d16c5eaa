package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/tabtint/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View tabtint configuration",
	Long: `View tabtint configuration.

Without arguments, displays the current configuration.
Use subcommands to create a config file or locate it.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/tabtint/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configView mirrors config.Config with yaml tags for display.
type configView struct {
	Rules struct {
		Path string `yaml:"path"`
	} `yaml:"rules"`
	Colorization struct {
		FileName            string `yaml:"file_name"`
		TempRoot            string `yaml:"temp_root"`
		BeginMarker         string `yaml:"begin_marker"`
		EndMarker           string `yaml:"end_marker"`
		QueryExtension      string `yaml:"query_extension"`
		ResolveRetryDelayMs int    `yaml:"resolve_retry_delay_ms"`
		ResolveMaxAttempts  int    `yaml:"resolve_max_attempts"`
		WindowBeforeSec     int    `yaml:"window_before_sec"`
		WindowAfterSec      int    `yaml:"window_after_sec"`
	} `yaml:"colorization"`
	Orchestrator struct {
		PollIntervalMs int `yaml:"poll_interval_ms"`
		DebounceMs     int `yaml:"debounce_ms"`
		RetryDelayMs   int `yaml:"retry_delay_ms"`
		MaxRetries     int `yaml:"max_retries"`
	} `yaml:"orchestrator"`
	Naming struct {
		DefaultTitlePattern string   `yaml:"default_title_pattern"`
		QueryGlobs          []string `yaml:"query_globs"`
	} `yaml:"naming"`
	Proposal struct {
		PriorityStep int `yaml:"priority_step"`
	} `yaml:"proposal"`
	Logging struct {
		Dir        string `yaml:"dir"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"logging"`
}

func newConfigView(cfg *config.Config) configView {
	var v configView
	v.Rules.Path = cfg.Rules.ResolvePath()

	c := cfg.Colorization
	v.Colorization.FileName = c.FileName
	v.Colorization.TempRoot = c.ResolveTempRoot()
	v.Colorization.BeginMarker = c.BeginMarker
	v.Colorization.EndMarker = c.EndMarker
	v.Colorization.QueryExtension = c.QueryExtension
	v.Colorization.ResolveRetryDelayMs = c.ResolveRetryDelayMs
	v.Colorization.ResolveMaxAttempts = c.ResolveMaxAttempts
	v.Colorization.WindowBeforeSec = c.WindowBeforeSec
	v.Colorization.WindowAfterSec = c.WindowAfterSec

	o := cfg.Orchestrator
	v.Orchestrator.PollIntervalMs = o.PollIntervalMs
	v.Orchestrator.DebounceMs = o.DebounceMs
	v.Orchestrator.RetryDelayMs = o.RetryDelayMs
	v.Orchestrator.MaxRetries = o.MaxRetries

	v.Naming.DefaultTitlePattern = cfg.Naming.DefaultTitlePattern
	v.Naming.QueryGlobs = cfg.Naming.QueryGlobs
	v.Proposal.PriorityStep = cfg.Proposal.PriorityStep

	v.Logging.Dir = cfg.Logging.Dir
	v.Logging.Level = cfg.Logging.Level
	v.Logging.MaxSizeMB = cfg.Logging.MaxSizeMB
	v.Logging.MaxBackups = cfg.Logging.MaxBackups
	return v
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("config is invalid, showing defaults: ")+err.Error())
		cfg = config.Default()
	}

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "%s %s\n\n", headerStyle.Render("Config file:"), viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "%s (none - using defaults)\n\n", headerStyle.Render("Config file:"))
	}

	data, err := yaml.Marshal(newConfigView(cfg))
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

const defaultConfigContent = `# tabtint configuration

rules:
  # Rule file with groups, manual regex lines and settings (YAML or JSON).
  # Empty means rules.yaml next to this file.
  path: ""

colorization:
  # File the editor reads its color-by-regex lines from
  file_name: ColorByRegexConfig.txt
  # Where the editor creates its GUID-named directories (empty: system temp)
  temp_root: ""
  begin_marker: "// <tabtint:begin> generated, edits inside this block are overwritten"
  end_marker: "// <tabtint:end>"
  # Factored out of generated alternations when every file name has it
  query_extension: .sql
  resolve_retry_delay_ms: 2000
  resolve_max_attempts: 5
  window_before_sec: 120
  window_after_sec: 900

orchestrator:
  poll_interval_ms: 2000
  debounce_ms: 500
  retry_delay_ms: 500
  max_retries: 10

naming:
  # Titles the editor gives new, unnamed queries
  default_title_pattern: '^SQLQuery\d+\.sql'
  query_globs:
    - "*.sql"

proposal:
  # How far existing rules shift when a proposed rule is inserted first
  priority_step: 10

logging:
  # Empty logs to stderr
  dir: ""
  # debug, info, warn, error
  level: info
  max_size_mb: 5
  max_backups: 2
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize tabtint's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintf(out, "\nRule file: %s\n", rulesPath())
	fmt.Fprintln(out, "\nEnvironment variables: TABTINT_* (e.g., TABTINT_ORCHESTRATOR_POLL_INTERVAL_MS)")
	return nil
}
