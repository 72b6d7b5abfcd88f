package conflict

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestResolveNoExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.md")

	r := NewResolver(Skip)
	res, err := r.Resolve(path, []byte("content"), "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Action != ActionWrote {
		t.Errorf("Action = %q, want %q", res.Action, ActionWrote)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file should exist: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("content = %q", data)
	}
}

func TestResolveIdenticalSkips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.md")
	os.WriteFile(path, []byte("same"), 0644)

	// Even with Overwrite configured, identical content is a no-op.
	r := NewResolver(Overwrite)
	res, err := r.Resolve(path, []byte("same"), "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Action != ActionSkippedIdentical {
		t.Errorf("Action = %q, want %q", res.Action, ActionSkippedIdentical)
	}
}

func TestResolveSkipIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.md")
	os.WriteFile(path, []byte("local edit"), 0644)

	r := NewResolver(Skip)
	for i := 0; i < 2; i++ {
		res, err := r.Resolve(path, []byte("new content"), "")
		if err != nil {
			t.Fatalf("Resolve() #%d error: %v", i+1, err)
		}
		if res.Action != ActionSkipped {
			t.Errorf("Resolve() #%d Action = %q, want %q", i+1, res.Action, ActionSkipped)
		}
	}

	data, _ := os.ReadFile(path)
	if string(data) != "local edit" {
		t.Errorf("existing file was touched: %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("skip should not create files, dir has %d entries", len(entries))
	}
}

func TestResolveOverwriteRecordsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.md")
	os.WriteFile(path, []byte("old"), 0644)

	fixed := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	r := NewResolver(Overwrite, WithClock(func() time.Time { return fixed }))

	res, err := r.Resolve(path, []byte("new"), "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Action != ActionOverwrote {
		t.Fatalf("Action = %q, want %q", res.Action, ActionOverwrote)
	}
	if res.BackupPath == "" {
		t.Fatal("BackupPath not set")
	}

	backup, err := os.ReadFile(res.BackupPath)
	if err != nil {
		t.Fatalf("backup should exist: %v", err)
	}
	if string(backup) != "old" {
		t.Errorf("backup content = %q, want old content", backup)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("file content = %q, want %q", data, "new")
	}
}

func TestResolveRenamePicksSmallestFreeSlot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.md")
	os.WriteFile(path, []byte("original"), 0644)
	os.WriteFile(filepath.Join(dir, "file-1.md"), []byte("taken"), 0644)

	r := NewResolver(Rename)
	res, err := r.Resolve(path, []byte("new"), "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Action != ActionRenamed {
		t.Fatalf("Action = %q, want %q", res.Action, ActionRenamed)
	}
	if filepath.Base(res.Path) != "file-2.md" {
		t.Errorf("renamed to %q, want file-2.md", filepath.Base(res.Path))
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("original modified: %q", data)
	}
}

func TestResolvePromptWithoutPrompterDegradesToSkip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.md")
	os.WriteFile(path, []byte("local"), 0644)

	r := NewResolver(Prompt)
	res, err := r.Resolve(path, []byte("new"), "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Action != ActionSkipped {
		t.Errorf("Action = %q, want %q", res.Action, ActionSkipped)
	}
}

type fakePrompter struct {
	choice Strategy
	reqs   []PromptRequest
}

func (f *fakePrompter) ChooseAction(req PromptRequest) (Strategy, error) {
	f.reqs = append(f.reqs, req)
	return f.choice, nil
}

func TestResolvePromptUsesPrompterChoice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.md")
	os.WriteFile(path, []byte("local"), 0644)

	fp := &fakePrompter{choice: Overwrite}
	r := NewResolver(Prompt, WithPrompter(fp))

	res, err := r.Resolve(path, []byte("new"), "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Action != ActionOverwrote {
		t.Errorf("Action = %q, want %q", res.Action, ActionOverwrote)
	}
	if len(fp.reqs) != 1 {
		t.Fatalf("prompter called %d times, want 1", len(fp.reqs))
	}
	req := fp.reqs[0]
	if req.Existing.Checksum == "" || req.Incoming.Checksum == "" {
		t.Error("prompt request missing checksums")
	}
	if req.Binary {
		t.Error("text conflict flagged as binary")
	}
}

func TestResolveBinaryKeepsBoth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	existing := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}
	os.WriteFile(path, existing, 0644)

	fixed := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	r := NewResolver(Overwrite, WithClock(func() time.Time { return fixed }))

	res, err := r.Resolve(path, []byte{0x89, 'P', 'N', 'G', 0x00, 0x02}, "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Action != ActionKeptBoth {
		t.Fatalf("Action = %q, want %q", res.Action, ActionKeptBoth)
	}
	if res.Path == path {
		t.Error("binary overwrite must not target the original path")
	}
	if !strings.Contains(filepath.Base(res.Path), "20260824T120000") {
		t.Errorf("new file %q missing timestamp suffix", res.Path)
	}

	data, _ := os.ReadFile(path)
	if string(data) != string(existing) {
		t.Error("original binary was modified")
	}
}

func TestIsBinary(t *testing.T) {
	if IsBinary([]byte("plain text\nwith lines\n")) {
		t.Error("text misclassified as binary")
	}
	if !IsBinary([]byte{0x00, 0x01, 0x02}) {
		t.Error("NUL bytes should classify as binary")
	}
}

func TestMergeJSONFilePreservesSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mcp.json")
	os.WriteFile(path, []byte(`{"mcpServers": {"existing": {"command": "old"}}}`), 0644)

	incoming := []byte(`{"mcpServers": {"github": {"command": "npx", "env": {"GITHUB_TOKEN": "${GITHUB_TOKEN}"}}}}`)
	changed, err := MergeJSONFile(path, incoming)
	if err != nil {
		t.Fatalf("MergeJSONFile() error: %v", err)
	}
	if !changed {
		t.Error("merge adding a server should report a change")
	}

	var doc map[string]map[string]any
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if _, ok := doc["mcpServers"]["existing"]; !ok {
		t.Error("existing server dropped by merge")
	}
	if _, ok := doc["mcpServers"]["github"]; !ok {
		t.Error("new server missing after merge")
	}
}

func TestMergeJSONFileCreatesWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mcp.json")

	changed, err := MergeJSONFile(path, []byte(`{"mcpServers": {"a": {}}}`))
	if err != nil {
		t.Fatalf("MergeJSONFile() error: %v", err)
	}
	if !changed {
		t.Error("creating the file should report a change")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file should have been created: %v", err)
	}
}

func TestMergeJSONFileIdenticalLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mcp.json")
	incoming := []byte(`{"mcpServers": {"github": {"command": "npx"}}}`)

	if _, err := MergeJSONFile(path, incoming); err != nil {
		t.Fatalf("first merge error: %v", err)
	}
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	changed, err := MergeJSONFile(path, incoming)
	if err != nil {
		t.Fatalf("second merge error: %v", err)
	}
	if changed {
		t.Error("merging identical content should report no change")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(past) {
		t.Errorf("file was rewritten: mtime = %v", info.ModTime())
	}
}

func TestMergeYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	os.WriteFile(path, []byte("hooks:\n  pre-commit: keep\nother: value\n"), 0644)

	if _, err := MergeYAMLFile(path, []byte("hooks:\n  post-commit: new\n")); err != nil {
		t.Fatalf("MergeYAMLFile() error: %v", err)
	}

	data, _ := os.ReadFile(path)
	text := string(data)
	for _, want := range []string{"pre-commit", "post-commit", "other"} {
		if !strings.Contains(text, want) {
			t.Errorf("merged YAML missing %q:\n%s", want, text)
		}
	}
}

func TestMergeYAMLFileIdenticalReportsNoChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	incoming := []byte("hooks:\n  pre-commit: run\n")

	if _, err := MergeYAMLFile(path, incoming); err != nil {
		t.Fatalf("first merge error: %v", err)
	}
	changed, err := MergeYAMLFile(path, incoming)
	if err != nil {
		t.Fatalf("second merge error: %v", err)
	}
	if changed {
		t.Error("merging identical content should report no change")
	}
}

func TestAppendFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	os.WriteFile(path, []byte("first"), 0644)

	if err := AppendFile(path, []byte("second\n")); err != nil {
		t.Fatalf("AppendFile() error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "first\nsecond\n" {
		t.Errorf("content = %q", data)
	}
}
