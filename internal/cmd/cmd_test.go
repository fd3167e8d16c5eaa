package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/Iron-Ham/tabtint/internal/colorsolver"
	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/filehost"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/Iron-Ham/tabtint/internal/testutil"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// executeCommand runs the root command with args and returns captured output
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	matchPath = ""
	proposeGroup, proposePrompt = "", false
	syncStateFile, syncFile, syncDryRun = "", "", false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeRules(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	testutil.WriteRules(t, path, &rules.Config{
		Groups: []rules.Rule{
			{GroupName: "Prod", Server: "PROD%", Priority: 10, ColorIndex: rules.IntPtr(3)},
			{GroupName: "Dev", Server: "DEV%", Priority: 20},
		},
		ManualRegexLines: []rules.ManualRule{
			{GroupName: "Scratch", Pattern: `(?i)\\scratch\\`, Priority: 5},
		},
		Settings: rules.DefaultSettings(),
	})
	return path
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "tabtint" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "tabtint")
	}

	expected := []string{"run", "match", "solve", "hash", "sync", "rules", "config"}
	cmdMap := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, name := range expected {
		if !cmdMap[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestHashCommand(t *testing.T) {
	out, err := executeCommand(t, "hash", "abc")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.Contains(out, "bucket: "+strconv.Itoa(colorsolver.Bucket("abc"))) {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "hash:   "+strconv.Itoa(int(colorsolver.Hash("abc")))) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSolveCommand(t *testing.T) {
	out, err := executeCommand(t, "solve", `(?:^|[\\/])(?:a)\.sql$`, "7")
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	line := strings.TrimSpace(out)
	if colorsolver.Bucket(line) != 7 {
		t.Errorf("solved line %q lands in bucket %d", line, colorsolver.Bucket(line))
	}

	for _, bad := range []string{"16", "-1", "x"} {
		if _, err := executeCommand(t, "solve", "p", bad); err == nil {
			t.Errorf("solve with color %q should fail", bad)
		}
	}

	stuck := "p\x00"
	other := (colorsolver.Bucket(stuck) + 1) % colorsolver.Buckets
	_, err = executeCommand(t, "solve", stuck, strconv.Itoa(other))
	if !errors.Is(err, errors.ErrUnsolved) {
		t.Errorf("unsteerable line: err = %v, want ErrUnsolved", err)
	}
}

func TestMatchCommand(t *testing.T) {
	path := writeRules(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "wildcard", args: []string{"match", "--rules", path, "prodsql01"}, want: "Prod"},
		{name: "no match", args: []string{"match", "--rules", path, "QA01"}, want: "no matching rule"},
		{name: "manual", args: []string{"match", "--rules", path, "QA01", "--path", `C:\scratch\a.sql`}, want: "Scratch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if err != nil {
				t.Fatalf("match failed: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestMatchCommand_MissingRuleFile(t *testing.T) {
	if _, err := executeCommand(t, "match", "--rules", filepath.Join(t.TempDir(), "none.yaml"), "X"); err == nil {
		t.Error("expected error for missing rule file")
	}
}

func TestRulesProposeAndList(t *testing.T) {
	path := writeRules(t)

	if _, err := executeCommand(t, "rules", "propose", "--rules", path, "--group", "Reporting", "RPT01"); err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	cfg, err := rules.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	first := cfg.Groups[0]
	if first.GroupName != "Reporting" || first.Server != "RPT01" || first.Priority != 10 {
		t.Errorf("proposed rule = %+v", first)
	}

	out, err := executeCommand(t, "rules", "list", "--rules", path)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"Reporting", "Prod", "Dev", "Scratch", "auto configure: off"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Reporting") > strings.Index(out, "Prod") {
		t.Error("proposed rule should be listed first")
	}
}

func TestRulesValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	testutil.WriteRules(t, path, &rules.Config{
		Groups:   []rules.Rule{{GroupName: "Empty", Priority: 1}},
		Settings: rules.DefaultSettings(),
	})

	out, err := executeCommand(t, "rules", "validate", "--rules", path)
	if err == nil {
		t.Fatalf("expected validation failure, output:\n%s", out)
	}

	if _, err := executeCommand(t, "rules", "validate", "--rules", writeRules(t)); err != nil {
		t.Errorf("valid rule file reported: %v", err)
	}
}

func TestSyncCommand(t *testing.T) {
	rulesPath := writeRules(t)
	root := t.TempDir()
	dir, file := testutil.SetupColorizationDir(t, root, "user line\n")

	statePath := filepath.Join(t.TempDir(), "host.yaml")
	st := filehost.State{Documents: []host.Document{
		{ID: "1", Title: "Prod1", Path: filepath.Join(dir, "SQLQuery1.sql"), Server: "PROD01"},
		{ID: "2", Title: "Dev1", Path: filepath.Join(dir, "SQLQuery2.sql"), Server: "DEV01"},
	}}
	if err := filehost.WriteState(afero.NewOsFs(), statePath, st); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "sync", "--rules", rulesPath, "--state", statePath, "--file", file)
	if err != nil {
		t.Fatalf("sync failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "updated") {
		t.Errorf("unexpected output:\n%s", out)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"user line", "<tabtint:begin>", "(?:SQLQuery1)", "(?:SQLQuery2)", "<tabtint:end>"} {
		if !strings.Contains(content, want) {
			t.Errorf("colorization file missing %q:\n%s", want, content)
		}
	}

	out, err = executeCommand(t, "sync", "--rules", rulesPath, "--state", statePath, "--file", file)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if !strings.Contains(out, "unchanged") {
		t.Errorf("second sync should be a no-op:\n%s", out)
	}
}

func TestSyncCommand_DryRun(t *testing.T) {
	rulesPath := writeRules(t)
	statePath := filepath.Join(t.TempDir(), "host.yaml")
	st := filehost.State{Documents: []host.Document{
		{ID: "1", Path: "/tmp/" + testutil.GUID + "/SQLQuery1.sql", Server: "PROD01"},
	}}
	if err := filehost.WriteState(afero.NewOsFs(), statePath, st); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "sync", "--rules", rulesPath, "--state", statePath, "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (manual, Prod, Dev):\n%s", len(lines), out)
	}
	if lines[0] != `(?i)\\scratch\\` {
		t.Errorf("manual line should come first verbatim, got %q", lines[0])
	}
	if colorsolver.Bucket(lines[1]) != 3 {
		t.Errorf("Prod line %q not in bucket 3", lines[1])
	}
}

func TestConfigInitAndPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	rootCmd.SetArgs([]string{"config", "init"})
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	file := filepath.Join(home, "tabtint", "config.yaml")
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	var view configView
	if err := yaml.Unmarshal(data, &view); err != nil {
		t.Fatalf("generated config is not valid YAML: %v", err)
	}
	if view.Naming.DefaultTitlePattern != `^SQLQuery\d+\.sql` || view.Proposal.PriorityStep != 10 {
		t.Errorf("generated config does not match defaults: %+v", view)
	}

	if err := rootCmd.Execute(); err == nil {
		t.Error("second init should refuse to overwrite")
	}
}

func TestConfigPath(t *testing.T) {
	out, err := executeCommand(t, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(out, "TABTINT_") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
