package host

import "testing"

func TestIsAbs(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{`C:\Temp\q.sql`, true},
		{`c:/temp/q.sql`, true},
		{`\\server\share\q.sql`, true},
		{"/tmp/q.sql", true},
		{"q.sql", false},
		{`Temp\q.sql`, false},
		{"1:/x", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAbs(tt.path); got != tt.want {
			t.Errorf("IsAbs(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDocument(t *testing.T) {
	d := Document{Path: `C:\Temp\ABC\SQLQuery3.sql`}
	if d.FileName() != "SQLQuery3.sql" {
		t.Errorf("FileName() = %q", d.FileName())
	}
	if !d.IsAbsPath() {
		t.Error("expected absolute path")
	}
	if d.HasConnection() {
		t.Error("no connection expected")
	}
	d.Database = "Orders"
	if !d.HasConnection() {
		t.Error("database alone counts as connection info")
	}
}

func TestClassifier(t *testing.T) {
	c, err := NewClassifier([]string{"*.sql", "*.mdx"}, `^SQLQuery\d+\.sql`)
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}

	tests := []struct {
		name    string
		doc     Document
		query   bool
		unnamed bool
	}{
		{"default query", Document{Title: "SQLQuery3.sql", Path: `C:\T\SQLQuery3.sql`}, true, true},
		{"uppercase extension", Document{Title: "Report", Path: `/w/REPORT.SQL`}, true, false},
		{"title decorated by host", Document{Title: "SQLQuery12.sql - not connected", Path: `/w/SQLQuery12.sql`}, true, true},
		{"renamed tab of default file", Document{Title: "Prod1", Path: `/w/SQLQuery4.sql`}, true, true},
		{"text file", Document{Title: "notes.txt", Path: `/w/notes.txt`}, false, false},
		{"no path yet", Document{Title: "SQLQuery1.sql"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsQueryDocument(tt.doc); got != tt.query {
				t.Errorf("IsQueryDocument = %v, want %v", got, tt.query)
			}
			if got := c.LooksUnnamed(tt.doc); got != tt.unnamed {
				t.Errorf("LooksUnnamed = %v, want %v", got, tt.unnamed)
			}
		})
	}
}

func TestNewClassifier_Invalid(t *testing.T) {
	if _, err := NewClassifier(nil, "("); err == nil {
		t.Error("expected regex compile error")
	}
}
