package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// setDefaults registers the settings defaults on a rule-file viper instance,
// so keys missing from the file keep their documented defaults.
func setDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("groups", []any{})
	v.SetDefault("manualRegexLines", []any{})
	v.SetDefault("settings.enableAutoRename", d.EnableAutoRename)
	v.SetDefault("settings.enableAutoColor", d.EnableAutoColor)
	v.SetDefault("settings.autoConfigure", d.AutoConfigure)
	v.SetDefault("settings.enableConfigurePrompt", d.EnableConfigurePrompt)
	v.SetDefault("settings.enableConnectionPolling", d.EnableConnectionPolling)
	v.SetDefault("settings.enableLogging", d.EnableLogging)
	v.SetDefault("settings.enableUpdateChecks", d.EnableUpdateChecks)
	v.SetDefault("settings.newQueryRenameStyle", d.NewQueryRenameStyle)
}

// Load reads the rule file at path. The format follows the extension
// (.yaml/.yml or .json). A missing file returns errors.ErrNoConfig.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNoConfig, "rule file %s", path)
		}
		return nil, fmt.Errorf("stat rule file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode rule file: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to path atomically, as JSON for a .json extension and as
// YAML otherwise.
func Save(path string, cfg *Config) error {
	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("encode rule file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create rule directory: %w", err)
	}
	return atomicWriteFile(path, data, 0644)
}

// atomicWriteFile writes data to a temp file in the target's directory and
// renames it into place, so readers never observe a partial rule file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-rules-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Validate reports problems that make individual rules unusable. The config
// is still usable: Compile skips bad rules and keeps the rest.
func (c *Config) Validate() []error {
	var problems []error

	for i, r := range c.Groups {
		field := fmt.Sprintf("groups[%d]", i)
		if strings.TrimSpace(r.GroupName) == "" {
			problems = append(problems, errors.NewValidationError("group name is required").
				WithField(field+".groupName"))
		}
		if r.IsEmpty() {
			problems = append(problems, errors.NewValidationError("server or database pattern is required").
				WithField(field).WithCause(errors.ErrEmptyRule))
		}
		if r.ColorIndex != nil && (*r.ColorIndex < 0 || *r.ColorIndex > MaxColorIndex) {
			problems = append(problems, errors.NewValidationError("color index out of range").
				WithField(field+".colorIndex").WithValue(*r.ColorIndex))
		}
	}

	for i, r := range c.ManualRegexLines {
		field := fmt.Sprintf("manualRegexLines[%d]", i)
		if strings.TrimSpace(r.Pattern) == "" {
			problems = append(problems, errors.NewValidationError("pattern is required").
				WithField(field+".pattern"))
		}
		if r.ColorIndex != nil && (*r.ColorIndex < 0 || *r.ColorIndex > MaxColorIndex) {
			problems = append(problems, errors.NewValidationError("color index out of range").
				WithField(field+".colorIndex").WithValue(*r.ColorIndex))
		}
	}

	switch c.Settings.AutoConfigure {
	case "", AutoConfigureOff, AutoConfigureServer, AutoConfigureServerDatabase:
	default:
		problems = append(problems, errors.NewValidationError("unknown auto-configure mode").
			WithField("settings.autoConfigure").WithValue(c.Settings.AutoConfigure))
	}
	if style := c.Settings.RenameStyle(); !strings.Contains(style, "{n}") {
		problems = append(problems, errors.NewValidationError("rename style must contain {n}").
			WithField("settings.newQueryRenameStyle").WithValue(style))
	}

	return problems
}

// Propose inserts rule at the front of the group rules. Every existing rule
// is shifted by step so the proposal gets the lowest priority and the
// relative order of existing rules is unchanged.
func (c *Config) Propose(rule Rule, step int) {
	if step < 1 {
		step = 1
	}

	priority := step
	if len(c.Groups) > 0 {
		priority = c.Groups[0].Priority
		for _, r := range c.Groups[1:] {
			priority = min(priority, r.Priority)
		}
	}
	for i := range c.Groups {
		c.Groups[i].Priority += step
	}

	rule.Priority = priority
	c.Groups = append([]Rule{rule}, c.Groups...)
}

// UsedColors returns the set of color indices declared by any rule.
func (c *Config) UsedColors() map[int]bool {
	used := make(map[int]bool)
	for _, r := range c.Groups {
		if r.ColorIndex != nil {
			used[*r.ColorIndex] = true
		}
	}
	for _, r := range c.ManualRegexLines {
		if r.ColorIndex != nil {
			used[*r.ColorIndex] = true
		}
	}
	return used
}

// IntPtr returns a pointer to v, for building rules with a color index.
func IntPtr(v int) *int {
	return &v
}
