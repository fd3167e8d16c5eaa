// Package rules loads the persisted rule file and classifies connections and
// file paths into groups.
//
// Two kinds of rules exist. Group rules match a document's server and
// database name using '%' wildcards; manual rules match the document's file
// path with a regular expression. Both use a first-match policy over a
// deterministic order: lower priority first, then group name.
package rules

import (
	"regexp"
	"strings"
)

// Wildcard is the token in server and database patterns matching any run of
// characters.
const Wildcard = "%"

// MaxColorIndex is the highest color bucket the colorization engine knows.
const MaxColorIndex = 15

// AutoConfigure modes
const (
	AutoConfigureOff            = "off"
	AutoConfigureServer         = "server"
	AutoConfigureServerDatabase = "server_database"
)

// DefaultRenameStyle composes titles as the group name directly followed by
// the sequence number ("Prod1").
const DefaultRenameStyle = "{group}{n}"

// Rule assigns connections to a group by server and database pattern.
type Rule struct {
	GroupName  string `mapstructure:"groupName" yaml:"groupName" json:"groupName"`
	Server     string `mapstructure:"server" yaml:"server,omitempty" json:"server,omitempty"`
	Database   string `mapstructure:"database" yaml:"database,omitempty" json:"database,omitempty"`
	Priority   int    `mapstructure:"priority" yaml:"priority" json:"priority"`
	ColorIndex *int   `mapstructure:"colorIndex" yaml:"colorIndex,omitempty" json:"colorIndex,omitempty"`
}

// IsEmpty reports whether the rule has neither a server nor a database pattern.
func (r Rule) IsEmpty() bool {
	return strings.TrimSpace(r.Server) == "" && strings.TrimSpace(r.Database) == ""
}

// ManualRule assigns documents to a group by file path regex. Its pattern is
// also written verbatim into the colorization file.
type ManualRule struct {
	GroupName  string `mapstructure:"groupName" yaml:"groupName" json:"groupName"`
	Pattern    string `mapstructure:"pattern" yaml:"pattern" json:"pattern"`
	Priority   int    `mapstructure:"priority" yaml:"priority" json:"priority"`
	ColorIndex *int   `mapstructure:"colorIndex" yaml:"colorIndex,omitempty" json:"colorIndex,omitempty"`
}

// Settings are the feature switches stored alongside the rules.
type Settings struct {
	EnableAutoRename        bool   `mapstructure:"enableAutoRename" yaml:"enableAutoRename" json:"enableAutoRename"`
	EnableAutoColor         bool   `mapstructure:"enableAutoColor" yaml:"enableAutoColor" json:"enableAutoColor"`
	AutoConfigure           string `mapstructure:"autoConfigure" yaml:"autoConfigure" json:"autoConfigure"`
	EnableConfigurePrompt   bool   `mapstructure:"enableConfigurePrompt" yaml:"enableConfigurePrompt" json:"enableConfigurePrompt"`
	EnableConnectionPolling bool   `mapstructure:"enableConnectionPolling" yaml:"enableConnectionPolling" json:"enableConnectionPolling"`
	EnableLogging           bool   `mapstructure:"enableLogging" yaml:"enableLogging" json:"enableLogging"`
	// EnableUpdateChecks is kept so the file round-trips; update checks are
	// handled outside tabtint.
	EnableUpdateChecks  bool   `mapstructure:"enableUpdateChecks" yaml:"enableUpdateChecks" json:"enableUpdateChecks"`
	NewQueryRenameStyle string `mapstructure:"newQueryRenameStyle" yaml:"newQueryRenameStyle" json:"newQueryRenameStyle"`
}

// AutoConfigureEnabled reports whether unmatched connections should produce
// rule proposals.
func (s Settings) AutoConfigureEnabled() bool {
	return s.AutoConfigure == AutoConfigureServer || s.AutoConfigure == AutoConfigureServerDatabase
}

// RenameStyle returns the configured title template or the default.
func (s Settings) RenameStyle() string {
	if strings.TrimSpace(s.NewQueryRenameStyle) == "" {
		return DefaultRenameStyle
	}
	return s.NewQueryRenameStyle
}

// DefaultSettings returns the settings used for keys absent from the file.
func DefaultSettings() Settings {
	return Settings{
		EnableAutoRename:        true,
		EnableAutoColor:         true,
		AutoConfigure:           AutoConfigureOff,
		EnableConfigurePrompt:   true,
		EnableConnectionPolling: true,
		EnableLogging:           false,
		EnableUpdateChecks:      false,
		NewQueryRenameStyle:     DefaultRenameStyle,
	}
}

// Config is the persisted rule file.
type Config struct {
	Groups           []Rule       `mapstructure:"groups" yaml:"groups" json:"groups"`
	ManualRegexLines []ManualRule `mapstructure:"manualRegexLines" yaml:"manualRegexLines" json:"manualRegexLines"`
	Settings         Settings     `mapstructure:"settings" yaml:"settings" json:"settings"`
}

// HasRules reports whether the config defines anything to match or generate.
func (c *Config) HasRules() bool {
	return c != nil && (len(c.Groups) > 0 || len(c.ManualRegexLines) > 0)
}

// matcher compares a value either by case-insensitive equality or, for
// patterns containing the wildcard, by an anchored case-insensitive regex.
type matcher struct {
	pattern string
	exact   string
	re      *regexp.Regexp
}

// CompiledRule is a Rule with its patterns translated into matchers.
type CompiledRule struct {
	Rule
	server   *matcher
	database *matcher
}

// CompiledManualRule is a ManualRule with its pattern compiled.
type CompiledManualRule struct {
	ManualRule
	re *regexp.Regexp
}
