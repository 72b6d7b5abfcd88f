package cli

import (
	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/tracker"
)

func (a *App) newListCmd() *cobra.Command {
	var allProjects bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if allProjects {
				return a.runListAll()
			}
			return a.runList()
		},
	}
	cmd.Flags().BoolVar(&allProjects, "all", false, "list every registered project instead of this one")
	return cmd
}

func (a *App) runList() error {
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

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.PackageName,
			rec.Version,
			string(rec.Status),
			rec.UpdatedAt.Format("2006-01-02"),
		})
	}
	a.output.Table([]string{"PACKAGE", "VERSION", "STATUS", "UPDATED"}, rows)
	return nil
}

func (a *App) runListAll() error {
	reg, err := a.openRegistry()
	if err != nil {
		return err
	}
	projects := reg.Projects()
	if len(projects) == 0 {
		a.output.Info("No registered projects. Run 'instructionkit scan' to discover them.")
		return nil
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		for _, pkg := range p.Packages {
			rows = append(rows, []string{p.Path, pkg})
		}
	}
	a.output.Table([]string{"PROJECT", "PACKAGE"}, rows)
	return nil
}
