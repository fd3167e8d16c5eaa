package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateANSI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact width unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"tiny width returns ellipsis", "hello", 3, "..."},
		{"zero width returns ellipsis", "hello", 0, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateANSI(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("TruncateANSI(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestTruncateANSI_StyledWidth(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render(`(?:^|[\\/])(?:SQLQuery1|SQLQuery2)\.sql$`)
	got := TruncateANSI(styled, 12)
	if w := lipgloss.Width(got); w > 12 {
		t.Errorf("visual width = %d, want <= 12", w)
	}
}

func TestFoldKey(t *testing.T) {
	if FoldKey("PRODSQL01") != FoldKey("prodsql01") {
		t.Error("FoldKey should ignore ASCII case")
	}
	if FoldKey("Orders") == FoldKey("Order") {
		t.Error("FoldKey should keep distinct names distinct")
	}
}

func TestCompareFold(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"alpha", "Beta", -1},
		{"Beta", "alpha", 1},
		{"prod", "PROD", 1},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := CompareFold(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareFold(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEqualFold(t *testing.T) {
	if !EqualFold("Orders", "ORDERS") {
		t.Error("EqualFold(Orders, ORDERS) = false")
	}
	if EqualFold("Orders", "Order") {
		t.Error("EqualFold(Orders, Order) = true")
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`C:\Temp\ABCDEF12-3456-7890-ABCD-EF1234567890\SQLQuery3.sql`, "SQLQuery3.sql"},
		{"/tmp/x/SQLQuery1.sql", "SQLQuery1.sql"},
		{`mixed/dir\file.sql`, "file.sql"},
		{"plain.sql", "plain.sql"},
		{`C:\dir\`, "dir"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
