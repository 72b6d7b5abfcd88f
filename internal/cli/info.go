package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/exitcodes"
	"github.com/instructionkit/instructionkit/internal/tracker"
)

func (a *App) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>",
		Short: "Show an installed package's components and their status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInfo(args[0])
		},
	}
}

func (a *App) runInfo(name string) error {
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

	a.output.Println("%s@%s (%s)", rec.PackageName, rec.Version, rec.Namespace)
	if rec.Source != "" {
		a.output.Detail("source: %s", rec.Source)
	}
	a.output.Detail("status: %s, installed %s, updated %s",
		rec.Status,
		rec.InstalledAt.Format("2006-01-02"),
		rec.UpdatedAt.Format("2006-01-02"))
	a.output.Println("")

	rows := make([][]string, 0, len(rec.Components))
	for _, c := range rec.Components {
		detail := c.InstalledPath
		if c.Reason != "" {
			detail = c.Reason
		}
		rows = append(rows, []string{c.Type, c.Name, c.IDE, string(c.Status), detail})
	}
	a.output.Table([]string{"TYPE", "NAME", "IDE", "STATUS", "DETAIL"}, rows)
	return nil
}

func (a *App) newProjectsUsingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects-using <package>",
		Short: "List registered projects that have a package installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProjectsUsing(args[0])
		},
	}
}

func (a *App) runProjectsUsing(name string) error {
	reg, err := a.openRegistry()
	if err != nil {
		return err
	}
	paths := reg.ProjectsUsing(name)
	if len(paths) == 0 {
		a.output.Info("No registered project uses %q.", name)
		return nil
	}
	for _, p := range paths {
		a.output.Println("%s", p)
	}
	return nil
}
