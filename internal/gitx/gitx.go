// Package gitx is the Git transport used to fetch package repositories. It
// shells out to the system git binary; operations either succeed or return a
// typed failure, with no retries at this layer.
package gitx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 120 * time.Second

// Transport clones and updates package repositories.
type Transport interface {
	// Clone fetches url at ref (branch, tag or empty for default) into a
	// local directory and returns its path. Cloning an already-cached repo
	// refreshes it.
	Clone(ctx context.Context, url, ref string) (string, error)
	// Pull updates an existing local clone and reports whether anything
	// changed.
	Pull(ctx context.Context, localPath string) (bool, error)
	// Tags lists the tag names of a local clone.
	Tags(ctx context.Context, localPath string) ([]string, error)
}

// CommandError carries the git command's stderr for diagnostics.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Git runs the system git binary, caching clones under cacheDir.
type Git struct {
	cacheDir string
	timeout  time.Duration
}

// New creates a transport that caches clones under cacheDir.
func New(cacheDir string) *Git {
	return &Git{cacheDir: cacheDir, timeout: DefaultTimeout}
}

// Clone fetches url at ref into the cache, reusing an existing clone.
func (g *Git) Clone(ctx context.Context, url, ref string) (string, error) {
	dest := filepath.Join(g.cacheDir, Slug(url))

	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		if _, err := g.Pull(ctx, dest); err != nil {
			return "", err
		}
	} else {
		if err := os.MkdirAll(g.cacheDir, 0755); err != nil {
			return "", err
		}
		args := []string{"clone", "--depth", "1"}
		if ref != "" {
			args = append(args, "--branch", ref)
		}
		args = append(args, url, dest)
		if _, err := g.run(ctx, "", args...); err != nil {
			return "", err
		}
		return dest, nil
	}

	if ref != "" {
		if _, err := g.run(ctx, dest, "checkout", ref); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// Pull fast-forwards an existing clone and reports whether HEAD moved.
func (g *Git) Pull(ctx context.Context, localPath string) (bool, error) {
	before, err := g.run(ctx, localPath, "rev-parse", "HEAD")
	if err != nil {
		return false, err
	}
	if _, err := g.run(ctx, localPath, "pull", "--ff-only"); err != nil {
		return false, err
	}
	after, err := g.run(ctx, localPath, "rev-parse", "HEAD")
	if err != nil {
		return false, err
	}
	return before != after, nil
}

// Tags lists tag names in the clone at localPath.
func (g *Git) Tags(ctx context.Context, localPath string) ([]string, error) {
	out, err := g.run(ctx, localPath, "tag", "--list")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

var slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Slug derives a stable cache directory name from a repository URL.
func Slug(url string) string {
	s := strings.TrimSuffix(url, ".git")
	for _, prefix := range []string{"https://", "http://", "ssh://", "git@"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.ReplaceAll(s, ":", "/")
	s = strings.Trim(s, "/")
	return slugUnsafe.ReplaceAllString(s, "-")
}

// IsRepoURL reports whether source looks like a remote repository rather than
// a local path.
func IsRepoURL(source string) bool {
	return strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "ssh://") ||
		strings.HasPrefix(source, "git@")
}
