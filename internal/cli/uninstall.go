package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/checksum"
	"github.com/instructionkit/instructionkit/internal/exitcodes"
	"github.com/instructionkit/instructionkit/internal/manifest"
	"github.com/instructionkit/instructionkit/internal/tracker"
)

func (a *App) newUninstallCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "uninstall <package>",
		Short: "Remove a package's installed files from this project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUninstall(args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "remove files even when they were modified after install")
	return cmd
}

func (a *App) runUninstall(name string, force bool) error {
	projectDir, err := a.absProjectDir()
	if err != nil {
		return err
	}
	tr, err := tracker.Load(projectDir)
	if err != nil {
		return err
	}
	rec, ok := tr.Get(name)
	if !ok {
		return &ExitError{
			Code:    exitcodes.NotFound,
			Message: fmt.Sprintf("package %q is not installed in %s", name, projectDir),
		}
	}

	removed, kept := 0, 0
	for _, c := range rec.Components {
		if c.Status != tracker.ComponentInstalled || c.InstalledPath == "" {
			continue
		}
		// Merged config files (MCP) hold other packages' entries; removing a
		// single server from them is left to the operator.
		if c.Type == string(manifest.KindMCPServer) {
			a.output.Warning("keeping %s: shared MCP config, remove the %q entry manually", c.InstalledPath, c.Name)
			continue
		}
		abs := filepath.Join(projectDir, filepath.FromSlash(c.InstalledPath))

		if _, err := os.Stat(abs); os.IsNotExist(err) {
			continue
		}
		if c.Checksum != "" && !checksum.FileMatches(abs, c.Checksum) && !force {
			a.output.Warning("keeping %s: modified since install (use --force to remove)", c.InstalledPath)
			kept++
			continue
		}
		if err := os.Remove(abs); err != nil {
			a.output.Error("removing %s: %v", c.InstalledPath, err)
			kept++
			continue
		}
		a.output.Debug("removed %s", c.InstalledPath)
		removed++
	}

	if err := tr.Remove(name); err != nil {
		return err
	}
	a.registerProject(projectDir)

	a.output.Success("Uninstalled %s (%d files removed, %d kept)", name, removed, kept)
	if kept > 0 {
		return &ExitError{Code: exitcodes.Partial, Message: fmt.Sprintf("%d files kept", kept)}
	}
	return nil
}
