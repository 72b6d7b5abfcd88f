package detect

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, root string, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectIDEsEmptyProject(t *testing.T) {
	if got := DetectIDEs(t.TempDir()); len(got) != 0 {
		t.Errorf("DetectIDEs() = %v, want none", got)
	}
}

func TestDetectIDEsByMarker(t *testing.T) {
	tests := []struct {
		name   string
		layout []string
		want   []string
	}{
		{"claude dir", []string{".claude/settings.json"}, []string{"claude"}},
		{"claude md file", []string{"CLAUDE.md"}, []string{"claude"}},
		{"cursor rules file", []string{".cursorrules"}, []string{"cursor"}},
		{"windsurf dir", []string{".windsurf/rules/a.md"}, []string{"windsurf"}},
		{"copilot instructions", []string{".github/copilot-instructions.md"}, []string{"copilot"}},
		{
			"several at once, sorted",
			[]string{".cursor/mcp.json", "CLAUDE.md", ".windsurfrules"},
			[]string{"claude", "cursor", "windsurf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, rel := range tt.layout {
				touch(t, root, rel)
			}
			if got := DetectIDEs(root); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectIDEs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectIDEsReportsEachOnce(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "CLAUDE.md")
	touch(t, root, ".claude/instructions/a.md")
	touch(t, root, ".mcp.json")

	got := DetectIDEs(root)
	if len(got) != 1 || got[0] != "claude" {
		t.Errorf("DetectIDEs() = %v, want [claude]", got)
	}
}
