package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/instructionkit/instructionkit/internal/exitcodes"
	"github.com/instructionkit/instructionkit/internal/gitx"
	"github.com/instructionkit/instructionkit/internal/manifest"
	"github.com/instructionkit/instructionkit/internal/ui"
)

// fetchSource materializes a package source (repo URL or local directory) and
// returns the directory holding its manifest.
func (a *App) fetchSource(ctx context.Context, source, ref string) (string, error) {
	if gitx.IsRepoURL(source) {
		home, err := a.home()
		if err != nil {
			return "", err
		}
		transport := gitx.New(filepath.Join(home, "cache"))

		var dir string
		err = ui.WithSpinner("Fetching "+source+"...", func() error {
			var cloneErr error
			dir, cloneErr = transport.Clone(ctx, source, ref)
			return cloneErr
		})
		if err != nil {
			return "", fmt.Errorf("fetching %s: %w", source, err)
		}
		return dir, nil
	}

	dir, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", &ExitError{
			Code:    exitcodes.NotFound,
			Message: fmt.Sprintf("package source %q is not a directory", source),
		}
	}
	return dir, nil
}

// loadPackage fetches and validates a package. Validation failures map to the
// invalid-input exit code; a missing manifest maps to not-found.
func (a *App) loadPackage(ctx context.Context, source, ref string) (*manifest.Package, error) {
	dir, err := a.fetchSource(ctx, source, ref)
	if err != nil {
		return nil, err
	}

	pkg, err := manifest.ParseFile(filepath.Join(dir, manifest.ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ExitError{
				Code:    exitcodes.NotFound,
				Message: fmt.Sprintf("%s has no %s", source, manifest.ManifestFile),
			}
		}
		var verrs manifest.ValidationErrors
		var verr *manifest.ValidationError
		if errors.As(err, &verrs) || errors.As(err, &verr) {
			return nil, &ExitError{
				Code:    exitcodes.UsageError,
				Message: fmt.Sprintf("invalid manifest in %s: %v", source, err),
			}
		}
		return nil, err
	}

	for _, w := range pkg.Warnings {
		a.output.Warning("%s", w)
	}
	return pkg, nil
}
