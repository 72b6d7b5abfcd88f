package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/exitcodes"
	"github.com/instructionkit/instructionkit/internal/tracker"
	"github.com/instructionkit/instructionkit/internal/version"
)

func (a *App) newUpdateCmd() *cobra.Command {
	var (
		ides       []string
		onConflict string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "update [package]",
		Short: "Update installed packages to their latest version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return a.runUpdate(cmd.Context(), name, ides, onConflict, force)
		},
	}
	cmd.Flags().StringArrayVar(&ides, "ide", nil, "target IDE (repeatable; default: detect)")
	cmd.Flags().StringVar(&onConflict, "on-conflict", "overwrite",
		"conflict strategy: skip, overwrite, rename or prompt")
	cmd.Flags().BoolVar(&force, "force", false, "re-install even when already at the latest version")
	return cmd
}

func (a *App) runUpdate(ctx context.Context, name string, ides []string, onConflict string, force bool) error {
	projectDir, err := a.absProjectDir()
	if err != nil {
		return err
	}
	tr, err := tracker.Load(projectDir)
	if err != nil {
		return err
	}

	records := tr.GetInstalled()
	if name != "" {
		rec, ok := tr.Get(name)
		if !ok {
			return &ExitError{
				Code:    exitcodes.NotFound,
				Message: fmt.Sprintf("package %q is not installed in %s", name, projectDir),
			}
		}
		records = []tracker.PackageInstallationRecord{*rec}
	}
	if len(records) == 0 {
		a.output.Info("Nothing installed in %s.", projectDir)
		return nil
	}

	exit := exitcodes.OK
	for _, rec := range records {
		if rec.Source == "" {
			a.output.Warning("%s has no recorded source, skipping", rec.PackageName)
			continue
		}

		pkg, err := a.loadPackage(ctx, rec.Source, "")
		if err != nil {
			a.output.Error("%s: %v", rec.PackageName, err)
			exit = max(exit, exitcodes.Partial)
			continue
		}

		latest, ok := version.HasUpdate(rec.Version, []string{pkg.Version})
		if !ok && !force {
			a.output.Info("%s %s is up to date", rec.PackageName, rec.Version)
			continue
		}
		if ok {
			a.output.Info("Updating %s %s → %s", rec.PackageName, rec.Version, latest)
		} else {
			a.output.Info("Re-installing %s %s", rec.PackageName, rec.Version)
		}

		ins, _, err := a.newInstaller(ides, onConflict)
		if err != nil {
			return err
		}
		summary, err := ins.Update(pkg, rec.Source)
		if err != nil {
			a.output.Error("%s: %v", rec.PackageName, err)
			exit = max(exit, exitcodes.Partial)
			continue
		}
		a.printSummary(summary)
		exit = max(exit, summary.ExitCode())
	}

	a.registerProject(projectDir)
	if exit != exitcodes.OK {
		return &ExitError{Code: exit, Message: "update finished with problems"}
	}
	return nil
}
