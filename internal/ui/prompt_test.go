package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/instructionkit/instructionkit/internal/conflict"
)

func TestConflictDetailsShowsBothChecksums(t *testing.T) {
	req := conflict.PromptRequest{
		Path: ".claude/instructions/standards.md",
		Existing: conflict.FileInfo{
			SizeBytes: 2048,
			ModTime:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			Checksum:  "sha256:aaaa",
		},
		Incoming: conflict.FileInfo{
			SizeBytes: 4096,
			Checksum:  "sha256:bbbb",
		},
	}

	lines := conflictDetails(req)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"sha256:aaaa", "sha256:bbbb", "2.0 KiB", "4.0 KiB", "2026-03-01 09:30"} {
		if !strings.Contains(joined, want) {
			t.Errorf("details missing %q:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "binary") {
		t.Errorf("binary note shown for text conflict:\n%s", joined)
	}

	req.Binary = true
	joined = strings.Join(conflictDetails(req), "\n")
	if !strings.Contains(joined, "binary") {
		t.Errorf("binary note missing:\n%s", joined)
	}
}

func TestIsCI(t *testing.T) {
	for _, key := range []string{"CI", "INSTRUCTIONKIT_CI", "GITHUB_ACTIONS", "GITLAB_CI"} {
		t.Setenv(key, "")
	}
	if IsCI() {
		t.Error("IsCI() = true with no CI env set")
	}

	t.Setenv("GITLAB_CI", "false")
	if IsCI() {
		t.Error("GITLAB_CI=false should not count as CI")
	}

	t.Setenv("CI", "1")
	if !IsCI() {
		t.Error("IsCI() = false with CI=1")
	}
}
