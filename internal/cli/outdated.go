package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/gitx"
	"github.com/instructionkit/instructionkit/internal/tracker"
	"github.com/instructionkit/instructionkit/internal/ui"
	"github.com/instructionkit/instructionkit/internal/version"
)

func (a *App) newOutdatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "Check installed packages for newer released versions",
		Long: "Fetches each installed package's repository and compares its release\n" +
			"tags against the installed version. Packages installed from a local\n" +
			"directory are compared against the manifest at that path.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOutdated(cmd.Context())
		},
	}
}

func (a *App) runOutdated(ctx context.Context) error {
	projectDir, err := a.absProjectDir()
	if err != nil {
		return err
	}
	tr, err := tracker.Load(projectDir)
	if err != nil {
		return err
	}
	records := tr.GetInstalled()
	if len(records) == 0 {
		a.output.Info("Nothing installed in %s.", projectDir)
		return nil
	}

	var rows [][]string
	for _, rec := range records {
		latest, err := a.latestAvailable(ctx, rec)
		if err != nil {
			a.output.Warning("%s: %v", rec.PackageName, err)
			continue
		}
		if latest == "" {
			rows = append(rows, []string{rec.PackageName, rec.Version, "-", "up to date"})
			continue
		}
		rows = append(rows, []string{rec.PackageName, rec.Version, latest, "update available"})
	}

	a.output.Table([]string{"PACKAGE", "INSTALLED", "LATEST", "STATUS"}, rows)
	return nil
}

// latestAvailable returns the newest version above the installed one, or ""
// when the package is current. Repo sources are compared against their release
// tags; local sources against the manifest on disk.
func (a *App) latestAvailable(ctx context.Context, rec tracker.PackageInstallationRecord) (string, error) {
	if rec.Source == "" {
		return "", nil
	}

	var available []string
	if gitx.IsRepoURL(rec.Source) {
		home, err := a.home()
		if err != nil {
			return "", err
		}
		transport := gitx.New(filepath.Join(home, "cache"))

		err = ui.WithSpinner("Checking "+rec.PackageName+"...", func() error {
			dir, cloneErr := transport.Clone(ctx, rec.Source, "")
			if cloneErr != nil {
				return cloneErr
			}
			tags, tagErr := transport.Tags(ctx, dir)
			if tagErr != nil {
				return tagErr
			}
			available = tags
			return nil
		})
		if err != nil {
			return "", err
		}
	} else {
		pkg, err := a.loadPackage(ctx, rec.Source, "")
		if err != nil {
			return "", err
		}
		available = []string{pkg.Version}
	}

	latest, ok := version.HasUpdate(rec.Version, available)
	if !ok {
		return "", nil
	}
	return latest, nil
}
