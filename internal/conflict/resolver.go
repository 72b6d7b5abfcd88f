// Package conflict decides what happens when an install wants to write a file
// that already exists, and applies the merge strategies for config targets.
package conflict

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/instructionkit/instructionkit/internal/checksum"
)

// Strategy selects how a genuine conflict (existing file, different content)
// is resolved.
type Strategy string

const (
	// Skip leaves the existing file and drops the new content.
	Skip Strategy = "skip"
	// Overwrite replaces the file after recording a backup copy.
	Overwrite Strategy = "overwrite"
	// Rename writes the new content next to the original as <name>-<N><ext>.
	Rename Strategy = "rename"
	// Prompt asks the operator per file. Default for package operations.
	Prompt Strategy = "prompt"
)

// ParseStrategy maps a CLI flag value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Skip, Overwrite, Rename, Prompt:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q (skip|overwrite|rename|prompt)", s)
}

// Action reports what the resolver actually did.
type Action string

const (
	ActionWrote            Action = "wrote"
	ActionSkippedIdentical Action = "skipped-identical"
	ActionSkipped          Action = "skipped"
	ActionOverwrote        Action = "overwrote"
	ActionRenamed          Action = "renamed"
	// ActionKeptBoth is the binary-file outcome of accepting new content:
	// the new file gets a timestamp suffix and the original stays untouched.
	ActionKeptBoth Action = "kept-both"
)

// FileInfo is the metadata surfaced for binary conflicts, where a textual
// diff is meaningless.
type FileInfo struct {
	SizeBytes int64
	ModTime   time.Time
	Checksum  string
}

// PromptRequest carries everything a Prompter needs to show the operator.
type PromptRequest struct {
	Path     string
	Existing FileInfo
	Incoming FileInfo
	Binary   bool
}

// Prompter resolves a single conflict interactively. Implementations return
// Skip, Overwrite or Rename; returning Prompt is a programming error.
type Prompter interface {
	ChooseAction(req PromptRequest) (Strategy, error)
}

// Result describes the final file state after resolution.
type Result struct {
	Action Action
	// Path is where the new content ended up, or the existing path for skips.
	Path string
	// BackupPath is set when an overwrite recorded a backup copy.
	BackupPath string
}

// Resolver applies one configured strategy to every conflict in a run.
type Resolver struct {
	strategy  Strategy
	prompter  Prompter
	backupDir string
	now       func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPrompter supplies the interactive prompter used for Strategy Prompt.
// Without one, Prompt degrades to Skip so non-interactive runs never hang.
func WithPrompter(p Prompter) Option {
	return func(r *Resolver) { r.prompter = p }
}

// WithBackupDir redirects overwrite backups into dir instead of alongside the
// original file.
func WithBackupDir(dir string) Option {
	return func(r *Resolver) { r.backupDir = dir }
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a resolver with the given conflict strategy.
func NewResolver(strategy Strategy, opts ...Option) *Resolver {
	r := &Resolver{strategy: strategy, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve writes newContent to path, resolving against any existing file.
// newChecksum may be empty, in which case it is computed.
func (r *Resolver) Resolve(path string, newContent []byte, newChecksum string) (*Result, error) {
	if newChecksum == "" {
		newChecksum = checksum.Sum(newContent)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := atomicWrite(path, newContent); err != nil {
			return nil, err
		}
		return &Result{Action: ActionWrote, Path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	existing, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	existingSum := checksum.Sum(existing)

	if existingSum == newChecksum {
		return &Result{Action: ActionSkippedIdentical, Path: path}, nil
	}

	binary := IsBinary(existing) || IsBinary(newContent)

	strategy := r.strategy
	if strategy == Prompt {
		if r.prompter == nil {
			strategy = Skip
		} else {
			req := PromptRequest{
				Path:     path,
				Existing: FileInfo{SizeBytes: info.Size(), ModTime: info.ModTime(), Checksum: existingSum},
				Incoming: FileInfo{SizeBytes: int64(len(newContent)), Checksum: newChecksum},
				Binary:   binary,
			}
			chosen, err := r.prompter.ChooseAction(req)
			if err != nil {
				return nil, err
			}
			strategy = chosen
		}
	}

	switch strategy {
	case Skip:
		return &Result{Action: ActionSkipped, Path: path}, nil

	case Overwrite:
		if binary {
			// Never silently replace a binary the user may have customized.
			kept, err := r.writeTimestamped(path, newContent)
			if err != nil {
				return nil, err
			}
			return &Result{Action: ActionKeptBoth, Path: kept}, nil
		}
		backup, err := r.backup(path, existing)
		if err != nil {
			return nil, err
		}
		if err := atomicWrite(path, newContent); err != nil {
			return nil, err
		}
		return &Result{Action: ActionOverwrote, Path: path, BackupPath: backup}, nil

	case Rename:
		renamed, err := nextFreeName(path)
		if err != nil {
			return nil, err
		}
		if err := atomicWrite(renamed, newContent); err != nil {
			return nil, err
		}
		return &Result{Action: ActionRenamed, Path: renamed}, nil

	default:
		return nil, fmt.Errorf("unresolvable conflict strategy %q", strategy)
	}
}

// backup copies the existing content aside before an overwrite.
func (r *Resolver) backup(path string, existing []byte) (string, error) {
	stamp := r.now().Format("20060102T150405")
	var backupPath string
	if r.backupDir != "" {
		backupPath = filepath.Join(r.backupDir, filepath.Base(path)+"."+stamp+".bak")
	} else {
		backupPath = path + "." + stamp + ".bak"
	}
	if err := atomicWrite(backupPath, existing); err != nil {
		return "", fmt.Errorf("recording backup: %w", err)
	}
	return backupPath, nil
}

// writeTimestamped writes content to <name>-<timestamp><ext> next to path.
func (r *Resolver) writeTimestamped(path string, content []byte) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	target := fmt.Sprintf("%s-%s%s", base, r.now().Format("20060102T150405"), ext)
	if err := atomicWrite(target, content); err != nil {
		return "", err
	}
	return target, nil
}

// nextFreeName returns <name>-<N><ext> for the smallest unused N >= 1.
func nextFreeName(path string) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; n < 10000; n++ {
		candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free rename slot for %s", path)
}

// IsBinary reports whether data looks like binary content (NUL byte within
// the first 8000 bytes, the git heuristic).
func IsBinary(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// atomicWrite writes content to a file using a temp file and rename.
func atomicWrite(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}
