// Package cli wires the instructionkit commands. App is the dependency
// container every command hangs off; nothing in here talks to the terminal
// directly, that goes through ui.Output.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/registry"
	"github.com/instructionkit/instructionkit/internal/ui"
)

// App is the dependency container for all CLI commands.
type App struct {
	rootCmd *cobra.Command
	version string
	commit  string
	date    string
	output  *ui.Output

	projectDir string
	homeDir    string
	noInput    bool
	verbose    bool
}

// NewApp creates the root command and registers all subcommands.
func NewApp(version, commit, date string) *App {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		output:  ui.NewOutput(),
	}

	root := &cobra.Command{
		Use:   "instructionkit",
		Short: "Package manager for AI coding assistant configuration",
		Long: "Installs and tracks packages of AI assistant configuration\n" +
			"(instructions, MCP servers, hooks, commands, resources) across the\n" +
			"IDEs a project uses.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if env := os.Getenv("INSTRUCTIONKIT_HOME"); env != "" && app.homeDir == "" {
				app.homeDir = env
			}
			if os.Getenv("INSTRUCTIONKIT_NO_COLOR") != "" || os.Getenv("NO_COLOR") != "" {
				app.output.SetNoColor(true)
			}
			if os.Getenv("INSTRUCTIONKIT_DEBUG") != "" {
				app.verbose = true
			}
			app.output.SetVerbose(app.verbose)
			if ui.IsCI() {
				app.noInput = true
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&app.projectDir, "dir", ".", "project directory")
	root.PersistentFlags().StringVar(&app.homeDir, "home", "", "instructionkit home (overrides INSTRUCTIONKIT_HOME)")
	root.PersistentFlags().BoolVar(&app.noInput, "no-input", false, "never prompt; skip anything that would require input")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		app.newInstallCmd(),
		app.newUpdateCmd(),
		app.newOutdatedCmd(),
		app.newUninstallCmd(),
		app.newListCmd(),
		app.newInfoCmd(),
		app.newProjectsUsingCmd(),
		app.newScanCmd(),
		app.newDoctorCmd(),
		app.newCreateCmd(),
		app.newVersionCmd(),
	)

	app.rootCmd = root
	return app
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// home returns the global state directory, creating nothing.
func (a *App) home() (string, error) {
	if a.homeDir != "" {
		return a.homeDir, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userHome, registry.HomeDir), nil
}

// openRegistry loads the main registry; content problems degrade, they never
// fail the command.
func (a *App) openRegistry() (*registry.Registry, error) {
	home, err := a.home()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, registry.RegistryFile)
	reg := registry.Load(path, registry.WithLogger(a.output.Debug))
	if reg.Degraded() {
		a.output.Warning("registry at %s is unreadable; run 'instructionkit scan' to rebuild", path)
	}
	return reg, nil
}

// absProjectDir resolves the --dir flag.
func (a *App) absProjectDir() (string, error) {
	return filepath.Abs(a.projectDir)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			a.output.Info("instructionkit %s (commit: %s, built: %s)", a.version, a.commit, a.date)
		},
	}
}

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}
