package personality

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreOrderedAndValid(t *testing.T) {
	roster := Defaults()
	if len(roster) != 3 {
		t.Fatalf("expected 3 built-in personalities, got %d", len(roster))
	}
	want := []string{"MELCHIOR", "BALTHASAR", "CASPER"}
	for i, p := range roster {
		if p.Name != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], p.Name)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("built-in %s failed validation: %v", p.Name, err)
		}
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	roster, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(roster) != 3 {
		t.Fatalf("expected default roster, got %d entries", len(roster))
	}
}

func TestLoadSortsByPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personalities.yaml")
	doc := `personalities:
  - name: SECOND
    role: Analyst
    prompt: You are second.
    position: 1
  - name: FIRST
    role: Planner
    prompt: You are first.
    position: 0
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	roster, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(roster) != 2 || roster[0].Name != "FIRST" || roster[1].Name != "SECOND" {
		t.Fatalf("unexpected roster order: %+v", roster)
	}
}

func TestLoadRejectsDuplicatesAndEmptyPrompts(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{
			name: "duplicate names",
			doc: `personalities:
  - {name: TWIN, role: A, prompt: one, position: 0}
  - {name: twin, role: B, prompt: two, position: 1}
`,
		},
		{
			name: "missing prompt",
			doc: `personalities:
  - {name: MUTE, role: A, position: 0}
`,
		},
		{
			name: "empty roster",
			doc:  `personalities: []`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "personalities.yaml")
			if err := os.WriteFile(path, []byte(tc.doc), 0o644); err != nil {
				t.Fatalf("write roster: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}
