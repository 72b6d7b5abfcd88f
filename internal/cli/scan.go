package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/registry"
)

func (a *App) newScanCmd() *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Rebuild the main registry by scanning for projects",
		Long: "Walks the given root (default: the current directory) looking for\n" +
			"projects with an instructionkit tracker and rebuilds the registry\n" +
			"from what it finds. Trackers are authoritative; a corrupt registry\n" +
			"is fully recovered by a scan.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return a.runScan(root, maxDepth)
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", registry.DefaultScanDepth, "directory depth to scan below the root")
	return cmd
}

func (a *App) runScan(root string, maxDepth int) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	reg, err := a.openRegistry()
	if err != nil {
		return err
	}

	found, err := reg.Scan(root, maxDepth)
	if err != nil {
		return err
	}
	a.output.Success("Registered %d project(s); registry saved to %s", found, reg.Path())
	return nil
}
