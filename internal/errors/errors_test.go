package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuleError(t *testing.T) {
	err := NewRuleError("skipping manual rule", ErrInvalidPattern).
		WithGroup("Scratch").
		WithPattern(`\.tmp(`).
		WithIndex(2)

	want := `rule error [group=Scratch, pattern=\.tmp(, index=2]: skipping manual rule: invalid pattern`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidPattern) {
		t.Error("errors.Is(err, ErrInvalidPattern) = false, want true")
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
	if err.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityWarning)
	}

	var ruleErr *RuleError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &ruleErr) {
		t.Fatal("errors.As failed to find RuleError")
	}
	if ruleErr.Group != "Scratch" {
		t.Errorf("Group = %q, want %q", ruleErr.Group, "Scratch")
	}
}

func TestRuleError_NoIndex(t *testing.T) {
	err := NewRuleError("empty rule", ErrEmptyRule)
	if strings.Contains(err.Error(), "index=") {
		t.Errorf("Error() = %q, should not mention an index", err.Error())
	}
}

func TestSyncError_RetryableFollowsCause(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  bool
	}{
		{"unresolved path", ErrPathUnresolved, true},
		{"wrapped unresolved path", fmt.Errorf("scan: %w", ErrPathUnresolved), true},
		{"io failure", errors.New("permission denied"), false},
		{"nil cause", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSyncError("sync failed", tt.cause)
			if got := IsRetryable(err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSyncError_Format(t *testing.T) {
	err := NewSyncError("write failed", errors.New("disk full")).
		WithStage("write").
		WithPath("/tmp/x/ColorByRegexConfig.txt")

	want := "sync error [stage=write, path=/tmp/x/ColorByRegexConfig.txt]: write failed: disk full"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestHostError(t *testing.T) {
	err := NewHostError("set title", ErrDocumentNotFound).
		WithDocument("42").
		WithOperation("SetTitle")

	if !IsRetryable(err) {
		t.Error("host errors should be retryable by default")
	}
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Error("errors.Is(err, ErrDocumentNotFound) = false, want true")
	}
	if !errors.Is(err, &HostError{}) {
		t.Error("errors.Is(err, &HostError{}) = false, want true")
	}

	err = err.WithRetryable(false)
	if IsRetryable(err) {
		t.Error("WithRetryable(false) did not take effect")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("color index out of range").
		WithField("groups[0].colorIndex").
		WithValue(17)

	want := "validation error [field=groups[0].colorIndex, value=17]: color index out of range"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("validation errors should match ErrInvalidInput")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("document", "7")
	if got := err.Error(); got != "document '7' not found" {
		t.Errorf("Error() = %q", got)
	}
	err = err.WithCause(ErrDocumentNotFound)
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Error("expected cause to be reachable through errors.Is")
	}
}

func TestIsRetryable_PlainErrors(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if !IsRetryable(fmt.Errorf("x: %w", ErrHostUnavailable)) {
		t.Error("ErrHostUnavailable should be retryable")
	}
	if IsRetryable(errors.New("boom")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v, want debug", got)
	}
	if got := GetSeverity(errors.New("x")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want error", got)
	}
	if got := GetSeverity(NewRuleError("x", nil)); got != SeverityWarning {
		t.Errorf("GetSeverity(RuleError) = %v, want warning", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	err := Wrapf(ErrStopped, "handle %s", "doc-1")
	if err.Error() != "handle doc-1: stopped" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
	if !errors.Is(err, ErrStopped) {
		t.Error("Wrapf should preserve the chain")
	}
}
