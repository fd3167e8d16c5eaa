package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete tabtint application configuration.
// Rule definitions live in a separate rule file (see package rules); this
// struct only carries where things are and how the engine paces itself.
type Config struct {
	Rules        RulesConfig        `mapstructure:"rules"`
	Colorization ColorizationConfig `mapstructure:"colorization"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Naming       NamingConfig       `mapstructure:"naming"`
	Proposal     ProposalConfig     `mapstructure:"proposal"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// RulesConfig locates the persisted rule file
type RulesConfig struct {
	// Path is the rule file (YAML or JSON). Empty means {ConfigDir}/rules.yaml.
	// Supports ~ for home directory expansion.
	Path string `mapstructure:"path"`
}

// ColorizationConfig controls the generated colorization block
type ColorizationConfig struct {
	// FileName is the colorization file the editor reads its regex lines from
	FileName string `mapstructure:"file_name"`
	// TempRoot is the directory scanned for GUID-named host directories.
	// Empty means the process temp directory.
	TempRoot string `mapstructure:"temp_root"`
	// BeginMarker and EndMarker delimit the generated block
	BeginMarker string `mapstructure:"begin_marker"`
	EndMarker   string `mapstructure:"end_marker"`
	// QueryExtension is factored out of generated alternations when every
	// filename in a group carries it
	QueryExtension string `mapstructure:"query_extension"`
	// ResolveRetryDelayMs is the wait between attempts to locate the file
	ResolveRetryDelayMs int `mapstructure:"resolve_retry_delay_ms"`
	// ResolveMaxAttempts bounds the scheduled location retries
	ResolveMaxAttempts int `mapstructure:"resolve_max_attempts"`
	// WindowBeforeSec tolerates clock skew before the first observed document
	WindowBeforeSec int `mapstructure:"window_before_sec"`
	// WindowAfterSec is how long after the first observed document a GUID
	// directory may have been created and still be considered
	WindowAfterSec int `mapstructure:"window_after_sec"`
}

// OrchestratorConfig controls change detection pacing
type OrchestratorConfig struct {
	// PollIntervalMs is the connection polling interval
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// DebounceMs is the quiet period after a rule file change before reloading
	DebounceMs int `mapstructure:"debounce_ms"`
	// RetryDelayMs is the wait between rename retries for one document
	RetryDelayMs int `mapstructure:"retry_delay_ms"`
	// MaxRetries bounds rename retries for one document
	MaxRetries int `mapstructure:"max_retries"`
}

// NamingConfig controls which documents are eligible for renaming
type NamingConfig struct {
	// DefaultTitlePattern matches titles the host assigns to new, unnamed queries
	DefaultTitlePattern string `mapstructure:"default_title_pattern"`
	// QueryGlobs recognizes query documents by file name
	QueryGlobs []string `mapstructure:"query_globs"`
}

// ProposalConfig controls automatic rule proposals
type ProposalConfig struct {
	// PriorityStep is how far existing rules are shifted when a proposed rule
	// is inserted at the front
	PriorityStep int `mapstructure:"priority_step"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Dir is where tabtint.log is written. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Rules: RulesConfig{
			Path: "", // Empty means {ConfigDir}/rules.yaml
		},
		Colorization: ColorizationConfig{
			FileName:            "ColorByRegexConfig.txt",
			TempRoot:            "",
			BeginMarker:         "// <tabtint:begin> generated, edits inside this block are overwritten",
			EndMarker:           "// <tabtint:end>",
			QueryExtension:      ".sql",
			ResolveRetryDelayMs: 2000,
			ResolveMaxAttempts:  5,
			WindowBeforeSec:     120,
			WindowAfterSec:      900,
		},
		Orchestrator: OrchestratorConfig{
			PollIntervalMs: 2000,
			DebounceMs:     500,
			RetryDelayMs:   500,
			MaxRetries:     10,
		},
		Naming: NamingConfig{
			DefaultTitlePattern: `^SQLQuery\d+\.sql`,
			QueryGlobs:          []string{"*.sql"},
		},
		Proposal: ProposalConfig{
			PriorityStep: 10,
		},
		Logging: LoggingConfig{
			Dir:        "",
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 2,
		},
	}
}

// PollInterval returns the connection polling interval as a time.Duration
func (c *OrchestratorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Debounce returns the rule file debounce period as a time.Duration
func (c *OrchestratorConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// RetryDelay returns the rename retry delay as a time.Duration
func (c *OrchestratorConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ResolveRetryDelay returns the path resolution retry delay as a time.Duration
func (c *ColorizationConfig) ResolveRetryDelay() time.Duration {
	return time.Duration(c.ResolveRetryDelayMs) * time.Millisecond
}

// WindowBefore returns the creation-time skew tolerance as a time.Duration
func (c *ColorizationConfig) WindowBefore() time.Duration {
	return time.Duration(c.WindowBeforeSec) * time.Second
}

// WindowAfter returns the creation-time tolerance after first observation
func (c *ColorizationConfig) WindowAfter() time.Duration {
	return time.Duration(c.WindowAfterSec) * time.Second
}

// ResolveTempRoot returns TempRoot, or the process temp directory when unset.
func (c *ColorizationConfig) ResolveTempRoot() string {
	if c.TempRoot == "" {
		return os.TempDir()
	}
	return expandHome(c.TempRoot)
}

// ResolvePath returns the rule file path. Empty falls back to
// {ConfigDir}/rules.yaml; relative paths resolve against the config dir.
func (r *RulesConfig) ResolvePath() string {
	if r.Path == "" {
		return filepath.Join(ConfigDir(), "rules.yaml")
	}
	path := expandHome(r.Path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(ConfigDir(), path)
	}
	return path
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("rules.path", defaults.Rules.Path)

	viper.SetDefault("colorization.file_name", defaults.Colorization.FileName)
	viper.SetDefault("colorization.temp_root", defaults.Colorization.TempRoot)
	viper.SetDefault("colorization.begin_marker", defaults.Colorization.BeginMarker)
	viper.SetDefault("colorization.end_marker", defaults.Colorization.EndMarker)
	viper.SetDefault("colorization.query_extension", defaults.Colorization.QueryExtension)
	viper.SetDefault("colorization.resolve_retry_delay_ms", defaults.Colorization.ResolveRetryDelayMs)
	viper.SetDefault("colorization.resolve_max_attempts", defaults.Colorization.ResolveMaxAttempts)
	viper.SetDefault("colorization.window_before_sec", defaults.Colorization.WindowBeforeSec)
	viper.SetDefault("colorization.window_after_sec", defaults.Colorization.WindowAfterSec)

	viper.SetDefault("orchestrator.poll_interval_ms", defaults.Orchestrator.PollIntervalMs)
	viper.SetDefault("orchestrator.debounce_ms", defaults.Orchestrator.DebounceMs)
	viper.SetDefault("orchestrator.retry_delay_ms", defaults.Orchestrator.RetryDelayMs)
	viper.SetDefault("orchestrator.max_retries", defaults.Orchestrator.MaxRetries)

	viper.SetDefault("naming.default_title_pattern", defaults.Naming.DefaultTitlePattern)
	viper.SetDefault("naming.query_globs", defaults.Naming.QueryGlobs)

	viper.SetDefault("proposal.priority_step", defaults.Proposal.PriorityStep)

	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when the
// loaded configuration does not validate.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tabtint")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tabtint"
	}
	return filepath.Join(home, ".config", "tabtint")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
