package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/conflict"
	"github.com/instructionkit/instructionkit/internal/exitcodes"
	"github.com/instructionkit/instructionkit/internal/installer"
	"github.com/instructionkit/instructionkit/internal/manifest"
	"github.com/instructionkit/instructionkit/internal/registry"
	"github.com/instructionkit/instructionkit/internal/tracker"
	"github.com/instructionkit/instructionkit/internal/ui"
)

func (a *App) newInstallCmd() *cobra.Command {
	var (
		ref        string
		ides       []string
		onConflict string
	)
	cmd := &cobra.Command{
		Use:   "install <source>",
		Short: "Install a package from a git repository or local directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInstall(cmd.Context(), args[0], ref, ides, onConflict)
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "git branch or tag to install")
	cmd.Flags().StringArrayVar(&ides, "ide", nil, "target IDE (repeatable; default: detect)")
	cmd.Flags().StringVar(&onConflict, "on-conflict", string(conflict.Prompt),
		"conflict strategy: skip, overwrite, rename or prompt")
	return cmd
}

func (a *App) runInstall(ctx context.Context, source, ref string, ides []string, onConflict string) error {
	pkg, err := a.loadPackage(ctx, source, ref)
	if err != nil {
		return err
	}

	ins, projectDir, err := a.newInstaller(ides, onConflict)
	if err != nil {
		return err
	}

	a.output.Info("Installing %s@%s into %s", pkg.Name, pkg.Version, projectDir)
	summary, err := ins.Install(pkg, source)
	if err != nil {
		return err
	}
	a.printSummary(summary)
	a.registerProject(projectDir)

	return a.summaryExit(summary)
}

// newInstaller builds the install pipeline from the command flags.
func (a *App) newInstaller(ides []string, onConflict string) (*installer.Installer, string, error) {
	strategy, err := conflict.ParseStrategy(onConflict)
	if err != nil {
		return nil, "", &ExitError{Code: exitcodes.UsageError, Message: err.Error()}
	}

	projectDir, err := a.absProjectDir()
	if err != nil {
		return nil, "", err
	}

	ins := installer.New(projectDir)
	ins.IDEs = ides
	ins.Strategy = strategy
	if !a.noInput {
		ins.ConflictPrompter = &ui.ConflictPrompter{Out: a.output}
		ins.Credentials = func(cred manifest.CredentialDescriptor) (string, error) {
			value, err := ui.PromptCredential(cred.Name, cred.Description)
			if errors.Is(err, ui.ErrCancelled) {
				return "", installer.ErrCancelled
			}
			return value, err
		}
	}
	return ins, projectDir, nil
}

func (a *App) printSummary(s *installer.Summary) {
	for _, r := range s.Results {
		label := r.Component.ComponentName()
		if r.IDE != "" {
			label += " (" + r.IDE + ")"
		}
		switch r.Status {
		case tracker.ComponentInstalled:
			if r.Reason != "" {
				a.output.Success("%s → %s (%s)", label, r.Path, r.Reason)
			} else {
				a.output.Success("%s → %s", label, r.Path)
			}
		case tracker.ComponentSkipped:
			a.output.Warning("skipped %s: %s", label, r.Reason)
		case tracker.ComponentPendingCredentials:
			a.output.Warning("pending %s: %s", label, r.Reason)
		case tracker.ComponentFailed:
			a.output.Error("failed %s: %s", label, r.Reason)
		}
	}
	a.output.Info("%d installed, %d skipped, %d pending, %d failed",
		s.Installed, s.Skipped, s.Pending, s.Failed)
}

// registerProject refreshes this project's entry in the main registry. Best
// effort: registry trouble never fails the install that just succeeded.
func (a *App) registerProject(projectDir string) {
	tr, err := tracker.Load(projectDir)
	if err != nil {
		a.output.Debug("registry update skipped: %v", err)
		return
	}
	reg, err := a.openRegistry()
	if err != nil {
		a.output.Debug("registry update skipped: %v", err)
		return
	}
	if len(tr.GetInstalled()) == 0 {
		if err := reg.Unregister(projectDir); err != nil {
			a.output.Debug("registry update failed: %v", err)
		}
		return
	}
	if err := reg.RegisterProject(registry.RegistrationFromTracker(projectDir, tr)); err != nil {
		a.output.Debug("registry update failed: %v", err)
	}
}

func (a *App) summaryExit(s *installer.Summary) error {
	switch s.ExitCode() {
	case exitcodes.OK:
		return nil
	case exitcodes.Partial:
		return &ExitError{
			Code:    exitcodes.Partial,
			Message: fmt.Sprintf("%d of %d components not installed", len(s.Results)-s.Installed, len(s.Results)),
		}
	default:
		return &ExitError{
			Code:    exitcodes.Failure,
			Message: "installation failed: no components installed",
		}
	}
}
