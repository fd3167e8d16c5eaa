// Package errors provides centralized error definitions and error handling
// utilities for tabtint. It defines sentinel errors, domain error types with
// context builders, and the classification helpers the orchestrator uses to
// decide between "retry later" and "log and skip".
//
// # Error Types
//
// Domain-specific errors:
//   - RuleError: a rule or manual rule that cannot be compiled or applied
//   - SyncError: a failure while synchronizing the colorization file
//   - HostError: a failure talking to the editor host
//
// Semantic errors:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
//	err := errors.NewRuleError("invalid manual pattern", cause).
//		WithGroup("Prod").WithPattern(`[`)
//
//	if errors.IsRetryable(err) { ... }
//	if errors.Is(err, errors.ErrInvalidPattern) { ... }
//
// # Error Classification
//
// Nothing in tabtint is fatal to the process. Retryable errors describe
// transient unavailability (connection metadata not populated yet, the
// colorization file not found yet). Everything else is logged and the current
// cycle is skipped.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Rule-related sentinel errors
var (
	// ErrNoConfig indicates that no rule configuration could be loaded.
	ErrNoConfig = New("no rule configuration")
	// ErrInvalidPattern indicates that a rule pattern could not be compiled.
	ErrInvalidPattern = New("invalid pattern")
	// ErrEmptyRule indicates a rule with neither a server nor a database pattern.
	ErrEmptyRule = New("rule has no server or database pattern")
)

// Synchronization-related sentinel errors
var (
	// ErrPathUnresolved indicates the colorization file location is not known yet.
	ErrPathUnresolved = New("colorization file path unresolved")
	// ErrUnsolved indicates that no salt maps a pattern into the requested bucket.
	ErrUnsolved = New("no salt found for color index")
)

// Host-related sentinel errors
var (
	// ErrDocumentNotFound indicates that a document is no longer open.
	ErrDocumentNotFound = New("document not found")
	// ErrHostUnavailable indicates the host could not be queried.
	ErrHostUnavailable = New("host unavailable")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrStopped indicates the component was stopped before the operation ran.
	ErrStopped = New("stopped")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// TintError is the base interface for all tabtint errors.
type TintError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the condition is transient and a later
	// trigger may succeed.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// RuleError represents a rule that could not be compiled or applied.
//
// Example:
//
//	err := errors.NewRuleError("skipping manual rule", errors.ErrInvalidPattern).
//		WithGroup("Scratch").WithPattern(`\.tmp(`)
//	fmt.Println(err) // "rule error [group=Scratch, pattern=\.tmp(]: skipping manual rule: invalid pattern"
type RuleError struct {
	baseError
	Group   string
	Pattern string
	Index   int
}

// NewRuleError creates a new RuleError.
func NewRuleError(message string, cause error) *RuleError {
	return &RuleError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityWarning,
		},
		Index: -1,
	}
}

// WithGroup adds the rule's group name to the error context.
func (e *RuleError) WithGroup(group string) *RuleError {
	e.Group = group
	return e
}

// WithPattern adds the offending pattern to the error context.
func (e *RuleError) WithPattern(pattern string) *RuleError {
	e.Pattern = pattern
	return e
}

// WithIndex records the rule's position in the configuration file.
func (e *RuleError) WithIndex(idx int) *RuleError {
	e.Index = idx
	return e
}

// Error returns the formatted error message.
func (e *RuleError) Error() string {
	var parts []string
	if e.Group != "" {
		parts = append(parts, fmt.Sprintf("group=%s", e.Group))
	}
	if e.Pattern != "" {
		parts = append(parts, fmt.Sprintf("pattern=%s", e.Pattern))
	}
	if e.Index >= 0 {
		parts = append(parts, fmt.Sprintf("index=%d", e.Index))
	}
	return e.format("rule error", parts)
}

// Is checks if this error matches the target.
func (e *RuleError) Is(target error) bool {
	if _, ok := target.(*RuleError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SyncError represents a failure while synchronizing the colorization file.
type SyncError struct {
	baseError
	Path  string
	Stage string
}

// NewSyncError creates a new SyncError.
func NewSyncError(message string, cause error) *SyncError {
	return &SyncError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: errors.Is(cause, ErrPathUnresolved),
		},
	}
}

// WithPath adds the colorization file path to the error context.
func (e *SyncError) WithPath(path string) *SyncError {
	e.Path = path
	return e
}

// WithStage records which synchronization step failed (resolve, read, write).
func (e *SyncError) WithStage(stage string) *SyncError {
	e.Stage = stage
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *SyncError) WithRetryable(r bool) *SyncError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *SyncError) Error() string {
	var parts []string
	if e.Stage != "" {
		parts = append(parts, fmt.Sprintf("stage=%s", e.Stage))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.format("sync error", parts)
}

// Is checks if this error matches the target.
func (e *SyncError) Is(target error) bool {
	if _, ok := target.(*SyncError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// HostError represents a failure while reading from or writing to the host.
type HostError struct {
	baseError
	DocumentID string
	Operation  string
}

// NewHostError creates a new HostError. Host errors are retryable by default:
// the host usually recovers by the next event.
func NewHostError(message string, cause error) *HostError {
	return &HostError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
	}
}

// WithDocument adds the document ID to the error context.
func (e *HostError) WithDocument(id string) *HostError {
	e.DocumentID = id
	return e
}

// WithOperation adds the host operation name to the error context.
func (e *HostError) WithOperation(op string) *HostError {
	e.Operation = op
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *HostError) WithRetryable(r bool) *HostError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *HostError) Error() string {
	var parts []string
	if e.DocumentID != "" {
		parts = append(parts, fmt.Sprintf("document=%s", e.DocumentID))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Operation))
	}
	return e.format("host error", parts)
}

// Is checks if this error matches the target.
func (e *HostError) Is(target error) bool {
	if _, ok := target.(*HostError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity: SeverityWarning,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that a later trigger may resolve.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var tintErr TintError
	if As(err, &tintErr) {
		return tintErr.IsRetryable()
	}

	return Is(err, ErrPathUnresolved) || Is(err, ErrHostUnavailable)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement TintError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var tintErr TintError
	if As(err, &tintErr) {
		return tintErr.Severity()
	}

	return SeverityError
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
