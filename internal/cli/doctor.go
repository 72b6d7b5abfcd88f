package cli

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/checksum"
	"github.com/instructionkit/instructionkit/internal/exitcodes"
	"github.com/instructionkit/instructionkit/internal/tracker"
)

func (a *App) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose common issues with this project's installation state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDoctor()
		},
	}
}

func (a *App) runDoctor() error {
	problems := 0
	projectDir, err := a.absProjectDir()
	if err != nil {
		return err
	}

	// 1. Git transport available.
	if _, err := exec.LookPath("git"); err != nil {
		a.output.Error("git not found in PATH; installing from repositories will fail")
		problems++
	} else {
		a.output.Success("git available")
	}

	// 2. Project tracker.
	if !tracker.Exists(projectDir) {
		a.output.Info("No tracker in %s; nothing installed yet.", projectDir)
		return nil
	}
	tr, err := tracker.Load(projectDir)
	if err != nil {
		a.output.Error("tracker unreadable: %v", err)
		return &ExitError{Code: exitcodes.Partial, Message: "tracker is corrupt; re-install your packages"}
	}
	records := tr.GetInstalled()
	a.output.Success("tracker OK (%d package(s))", len(records))

	// 3. Installed files present and unmodified.
	for _, rec := range records {
		for _, c := range rec.Components {
			if c.Status != tracker.ComponentInstalled || c.InstalledPath == "" {
				continue
			}
			abs := filepath.Join(projectDir, filepath.FromSlash(c.InstalledPath))
			if _, err := os.Stat(abs); err != nil {
				a.output.Error("%s: %s missing (re-run 'instructionkit update %s')",
					rec.PackageName, c.InstalledPath, rec.PackageName)
				problems++
				continue
			}
			if c.Checksum != "" && !checksum.FileMatches(abs, c.Checksum) {
				a.output.Warning("%s: %s modified since install", rec.PackageName, c.InstalledPath)
			}
		}
		if rec.Status != tracker.StatusComplete {
			a.output.Warning("%s install state is %q", rec.PackageName, rec.Status)
		}
	}

	// 4. Main registry.
	reg, err := a.openRegistry()
	if err != nil {
		a.output.Error("registry: %v", err)
		problems++
	} else if reg.Degraded() {
		problems++
	} else if issues := reg.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			a.output.Warning("registry: %s", issue)
		}
	} else {
		a.output.Success("registry OK (%d project(s))", len(reg.Projects()))
	}

	if problems > 0 {
		return &ExitError{Code: exitcodes.Partial, Message: "doctor found problems"}
	}
	a.output.Success("No problems found")
	return nil
}
