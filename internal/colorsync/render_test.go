package colorsync

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/tabtint/internal/colorsolver"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/rules"
)

func compile(t *testing.T, groups ...rules.Rule) []rules.CompiledRule {
	t.Helper()
	compiled, problems := rules.Compile(&rules.Config{Groups: groups})
	if len(problems) > 0 {
		t.Fatalf("Compile problems: %v", problems)
	}
	return compiled
}

func TestRender_ProdScenario(t *testing.T) {
	compiled := compile(t, rules.Rule{GroupName: "Prod", Server: "PROD%", Priority: 10, ColorIndex: rules.IntPtr(3)})
	docs := []host.Document{{
		ID:       "1",
		Title:    "SQLQuery3.sql",
		Path:     `C:\Temp\ABCDEF12-3456-7890-ABCD-EF1234567890\SQLQuery3.sql`,
		Server:   "PRODSQL01",
		Database: "Orders",
	}}

	lines := Render(docs, compiled, nil, ".sql")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	l := lines[0]
	base := `(?:^|[\\/])(?:SQLQuery3)\.sql$`
	if !strings.HasPrefix(l.Text, base) {
		t.Errorf("line = %q, want prefix %q", l.Text, base)
	}
	if colorsolver.Bucket(l.Text) != 3 {
		t.Errorf("line %q lands in bucket %d, want 3", l.Text, colorsolver.Bucket(l.Text))
	}
	if l.Group != "Prod" || len(l.Files) != 1 || l.Files[0] != "SQLQuery3.sql" {
		t.Errorf("unexpected line metadata: %+v", l)
	}
}

func TestRender_ManualVerbatim(t *testing.T) {
	manual := []rules.ManualRule{{GroupName: "Scratch", Pattern: `\.tmp$`, Priority: 1}}
	lines := Render(nil, nil, manual, ".sql")
	if len(lines) != 1 || lines[0].Text != `\.tmp$` || !lines[0].Manual {
		t.Errorf("manual line = %+v, want verbatim", lines)
	}
}

func TestRender_ManualSalted(t *testing.T) {
	target := (colorsolver.Bucket(`\.tmp$`) + 5) % colorsolver.Buckets
	manual := []rules.ManualRule{{GroupName: "Scratch", Pattern: `\.tmp$`, ColorIndex: rules.IntPtr(target)}}
	lines := Render(nil, nil, manual, ".sql")
	if colorsolver.Bucket(lines[0].Text) != target {
		t.Errorf("manual line %q not steered to %d", lines[0].Text, target)
	}
}

func TestRender_GroupingAndOrder(t *testing.T) {
	compiled := compile(t,
		rules.Rule{GroupName: "Prod", Server: "PROD%", Priority: 20},
		rules.Rule{GroupName: "Dev", Server: "DEV%", Priority: 10},
		rules.Rule{GroupName: "prod", Database: "Orders", Priority: 30, ColorIndex: rules.IntPtr(4)},
		rules.Rule{GroupName: "Idle", Server: "IDLE", Priority: 5},
	)
	manual := []rules.ManualRule{{GroupName: "M", Pattern: `x`, Priority: 20}}
	docs := []host.Document{
		{ID: "1", Path: "/w/b.sql", Server: "PROD1"},
		{ID: "2", Path: "/w/A.sql", Server: "prod2"},
		{ID: "3", Path: "/other/a.SQL", Server: "PROD3"},
		{ID: "4", Path: "/w/c.sql", Server: "DEV1"},
		{ID: "5", Path: "relative.sql", Server: "DEV1"},
		{ID: "6", Path: "/w/d.sql"},
		{ID: "7", Path: "/w/e.sql", Server: "QA1", Database: "Orders"},
	}

	lines := Render(docs, compiled, manual, ".sql")

	want := []struct {
		group string
		text  string
	}{
		{"Idle", NeverMatch},
		{"Dev", `(?:^|[\\/])(?:c)\.sql$`},
		{"M", "x"},
		{"Prod", ""},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %+v", len(lines), len(want), lines)
	}
	for i, w := range want {
		if lines[i].Group != w.group {
			t.Errorf("line %d group = %q, want %q", i, lines[i].Group, w.group)
		}
		if w.text != "" && lines[i].Text != w.text {
			t.Errorf("line %d = %q, want %q", i, lines[i].Text, w.text)
		}
	}

	prod := lines[3]
	wantBase := `(?:^|[\\/])(?:A|b|e)\.sql$`
	if !strings.HasPrefix(prod.Text, wantBase) {
		t.Errorf("prod line = %q, want prefix %q", prod.Text, wantBase)
	}
	if prod.ColorIndex != 4 || colorsolver.Bucket(prod.Text) != 4 {
		t.Errorf("prod line should take the group's declared color 4: %+v", prod)
	}
}

func TestBuildPattern(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{"empty", nil, NeverMatch},
		{"factored extension", []string{"a.sql", "b+c.sql"}, `(?:^|[\\/])(?:a|b\+c)\.sql$`},
		{"mixed extensions", []string{"a.sql", "b.txt"}, `(?:^|[\\/])(?:a\.sql|b\.txt)$`},
		{"extension only name", []string{".sql"}, `(?:^|[\\/])(?:\.sql)$`},
		{"case differs", []string{"a.SQL"}, `(?:^|[\\/])(?:a\.SQL)$`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildPattern(tt.names, ".sql"); got != tt.want {
				t.Errorf("buildPattern = %q, want %q", got, tt.want)
			}
		})
	}
}
