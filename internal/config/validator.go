package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "orchestrator.poll_interval_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateColorization()...)
	errors = append(errors, c.validateOrchestrator()...)
	errors = append(errors, c.validateNaming()...)
	errors = append(errors, c.validateProposal()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateColorization() []ValidationError {
	var errors []ValidationError
	col := c.Colorization

	if strings.TrimSpace(col.FileName) == "" || strings.ContainsAny(col.FileName, `/\`) {
		errors = append(errors, ValidationError{
			Field:   "colorization.file_name",
			Value:   col.FileName,
			Message: "must be a bare file name",
		})
	}
	if strings.TrimSpace(col.BeginMarker) == "" {
		errors = append(errors, ValidationError{
			Field:   "colorization.begin_marker",
			Value:   col.BeginMarker,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(col.EndMarker) == "" {
		errors = append(errors, ValidationError{
			Field:   "colorization.end_marker",
			Value:   col.EndMarker,
			Message: "must not be empty",
		})
	}
	if col.BeginMarker != "" && col.BeginMarker == col.EndMarker {
		errors = append(errors, ValidationError{
			Field:   "colorization.end_marker",
			Value:   col.EndMarker,
			Message: "must differ from begin_marker",
		})
	}
	if strings.ContainsAny(col.BeginMarker+col.EndMarker, "\r\n") {
		errors = append(errors, ValidationError{
			Field:   "colorization.begin_marker",
			Value:   col.BeginMarker,
			Message: "markers must be single lines",
		})
	}
	if col.QueryExtension != "" && !strings.HasPrefix(col.QueryExtension, ".") {
		errors = append(errors, ValidationError{
			Field:   "colorization.query_extension",
			Value:   col.QueryExtension,
			Message: "must start with '.'",
		})
	}
	if col.ResolveRetryDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "colorization.resolve_retry_delay_ms",
			Value:   col.ResolveRetryDelayMs,
			Message: "must be non-negative",
		})
	}
	if col.ResolveMaxAttempts < 0 {
		errors = append(errors, ValidationError{
			Field:   "colorization.resolve_max_attempts",
			Value:   col.ResolveMaxAttempts,
			Message: "must be non-negative",
		})
	}
	if col.WindowBeforeSec < 0 || col.WindowAfterSec < 0 {
		errors = append(errors, ValidationError{
			Field:   "colorization.window_before_sec",
			Value:   fmt.Sprintf("%d/%d", col.WindowBeforeSec, col.WindowAfterSec),
			Message: "creation windows must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateOrchestrator() []ValidationError {
	var errors []ValidationError
	o := c.Orchestrator

	if o.PollIntervalMs < 100 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.poll_interval_ms",
			Value:   o.PollIntervalMs,
			Message: "must be at least 100",
		})
	}
	if o.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.debounce_ms",
			Value:   o.DebounceMs,
			Message: "must be non-negative",
		})
	}
	if o.RetryDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.retry_delay_ms",
			Value:   o.RetryDelayMs,
			Message: "must be non-negative",
		})
	}
	if o.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.max_retries",
			Value:   o.MaxRetries,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateNaming() []ValidationError {
	var errors []ValidationError

	if _, err := regexp.Compile(c.Naming.DefaultTitlePattern); err != nil {
		errors = append(errors, ValidationError{
			Field:   "naming.default_title_pattern",
			Value:   c.Naming.DefaultTitlePattern,
			Message: fmt.Sprintf("invalid regular expression: %v", err),
		})
	}
	for i, g := range c.Naming.QueryGlobs {
		if _, err := glob.Compile(g); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("naming.query_globs[%d]", i),
				Value:   g,
				Message: fmt.Sprintf("invalid glob: %v", err),
			})
		}
	}

	return errors
}

func (c *Config) validateProposal() []ValidationError {
	if c.Proposal.PriorityStep < 1 {
		return []ValidationError{{
			Field:   "proposal.priority_step",
			Value:   c.Proposal.PriorityStep,
			Message: "must be at least 1",
		}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
