package installer

import (
	"github.com/instructionkit/instructionkit/internal/exitcodes"
	"github.com/instructionkit/instructionkit/internal/manifest"
	"github.com/instructionkit/instructionkit/internal/tracker"
)

// ComponentResult is the terminal outcome for one (component, IDE) pair. A
// pending_credentials result has no IDE: the component was held back before
// any per-IDE work.
type ComponentResult struct {
	Component manifest.Component
	IDE       string
	Status    tracker.ComponentStatus
	// Path is the install location relative to the project root.
	Path     string
	Checksum string
	Reason   string
}

// Summary aggregates a whole installation run.
type Summary struct {
	Package *manifest.Package
	IDEs    []string
	Results []ComponentResult

	Installed int
	Skipped   int
	Failed    int
	Pending   int
}

func (s *Summary) add(r ComponentResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case tracker.ComponentInstalled:
		s.Installed++
	case tracker.ComponentSkipped:
		s.Skipped++
	case tracker.ComponentFailed:
		s.Failed++
	case tracker.ComponentPendingCredentials:
		s.Pending++
	}
}

// InstallStatus collapses the per-component outcomes into the package-level
// lifecycle status recorded in the tracker.
func (s *Summary) InstallStatus() tracker.InstallStatus {
	switch {
	case len(s.Results) == 0:
		return tracker.StatusComplete
	case s.Installed == 0 && s.Failed > 0:
		return tracker.StatusFailed
	case s.Failed > 0 || s.Skipped > 0 || s.Pending > 0:
		return tracker.StatusPartial
	default:
		return tracker.StatusComplete
	}
}

// ExitCode maps the run outcome onto the process exit code: 0 when every
// component installed, 1 when some did, 2 when none did.
func (s *Summary) ExitCode() int {
	switch s.InstallStatus() {
	case tracker.StatusFailed:
		return exitcodes.Failure
	case tracker.StatusPartial:
		return exitcodes.Partial
	default:
		return exitcodes.OK
	}
}

// trackerComponents converts the results into tracker entries.
func (s *Summary) trackerComponents() []tracker.InstalledComponent {
	out := make([]tracker.InstalledComponent, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, tracker.InstalledComponent{
			Type:          string(r.Component.Kind()),
			Name:          r.Component.ComponentName(),
			IDE:           r.IDE,
			InstalledPath: r.Path,
			Checksum:      r.Checksum,
			Status:        r.Status,
			Reason:        r.Reason,
		})
	}
	return out
}
