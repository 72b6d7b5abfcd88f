// Package tracker maintains the project-local ledger of installed packages,
// stored in <project>/.instructionkit/packages.json. The tracker is the
// source of truth for what a project has installed; the main registry is a
// rebuildable cache derived from trackers.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ProjectDir is the project-local state directory.
	ProjectDir = ".instructionkit"
	// TrackerFile is the ledger filename inside ProjectDir.
	TrackerFile = "packages.json"

	trackerVersion = 1
)

// ComponentStatus is the terminal status of one installed component.
type ComponentStatus string

const (
	ComponentInstalled ComponentStatus = "installed"
	ComponentFailed    ComponentStatus = "failed"
	ComponentSkipped   ComponentStatus = "skipped"
	// ComponentPendingCredentials marks an MCP component whose credential
	// prompt was cancelled. A first-class outcome, not an abort.
	ComponentPendingCredentials ComponentStatus = "pending_credentials"
)

// InstallStatus is the lifecycle status of a package installation record.
type InstallStatus string

const (
	StatusInstalling InstallStatus = "installing"
	StatusUpdating   InstallStatus = "updating"
	StatusComplete   InstallStatus = "complete"
	StatusPartial    InstallStatus = "partial"
	StatusFailed     InstallStatus = "failed"
)

// InstalledComponent records the outcome for one (component, IDE) pair.
type InstalledComponent struct {
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	IDE           string          `json:"ide,omitempty"`
	InstalledPath string          `json:"installed_path,omitempty"`
	Checksum      string          `json:"checksum,omitempty"`
	Status        ComponentStatus `json:"status"`
	Reason        string          `json:"reason,omitempty"`
}

// PackageInstallationRecord is one package's entry in the ledger.
type PackageInstallationRecord struct {
	PackageName string               `json:"package_name"`
	Namespace   string               `json:"namespace"`
	Version     string               `json:"version"`
	Source      string               `json:"source,omitempty"`
	InstalledAt time.Time            `json:"installed_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Status      InstallStatus        `json:"status"`
	Components  []InstalledComponent `json:"components"`
}

// trackerFile is the on-disk layout, versioned for forward migration.
type trackerFile struct {
	Version  int                         `json:"version"`
	Packages []PackageInstallationRecord `json:"packages"`
}

// Tracker owns a single project's ledger file.
type Tracker struct {
	projectDir string
	data       trackerFile
}

// Path returns the ledger file path for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, ProjectDir, TrackerFile)
}

// Exists reports whether a project has a ledger.
func Exists(projectDir string) bool {
	_, err := os.Stat(Path(projectDir))
	return err == nil
}

// Load reads a project's ledger. A missing file yields an empty tracker; a
// corrupt file is an error (the caller decides whether to reset).
func Load(projectDir string) (*Tracker, error) {
	t := &Tracker{
		projectDir: projectDir,
		data:       trackerFile{Version: trackerVersion},
	}

	data, err := os.ReadFile(Path(projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("reading tracker: %w", err)
	}

	if err := json.Unmarshal(data, &t.data); err != nil {
		return nil, fmt.Errorf("parsing tracker %s: %w", Path(projectDir), err)
	}
	if t.data.Version == 0 {
		t.data.Version = trackerVersion
	}
	return t, nil
}

// GetInstalled returns all installation records.
func (t *Tracker) GetInstalled() []PackageInstallationRecord {
	out := make([]PackageInstallationRecord, len(t.data.Packages))
	copy(out, t.data.Packages)
	return out
}

// Get returns the record for a package name.
func (t *Tracker) Get(name string) (*PackageInstallationRecord, bool) {
	for i := range t.data.Packages {
		if t.data.Packages[i].PackageName == name {
			rec := t.data.Packages[i]
			return &rec, true
		}
	}
	return nil, false
}

// RecordInstallation upserts a package record and persists the ledger.
func (t *Tracker) RecordInstallation(rec PackageInstallationRecord) error {
	for i := range t.data.Packages {
		if t.data.Packages[i].PackageName == rec.PackageName {
			t.data.Packages[i] = rec
			return t.save()
		}
	}
	t.data.Packages = append(t.data.Packages, rec)
	return t.save()
}

// UpdateVersion bumps a package's version and touch timestamp.
func (t *Tracker) UpdateVersion(name, newVersion string) error {
	for i := range t.data.Packages {
		if t.data.Packages[i].PackageName == name {
			t.data.Packages[i].Version = newVersion
			t.data.Packages[i].UpdatedAt = time.Now().UTC()
			return t.save()
		}
	}
	return fmt.Errorf("package %q is not installed", name)
}

// Remove drops a package record and persists the ledger.
func (t *Tracker) Remove(name string) error {
	for i := range t.data.Packages {
		if t.data.Packages[i].PackageName == name {
			t.data.Packages = append(t.data.Packages[:i], t.data.Packages[i+1:]...)
			return t.save()
		}
	}
	return fmt.Errorf("package %q is not installed", name)
}

// save writes the ledger atomically (write-temp-then-rename) so a crash never
// leaves a truncated record.
func (t *Tracker) save() error {
	path := Path(t.projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	content, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tracker: %w", err)
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0644); err != nil {
		return fmt.Errorf("writing tracker: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving tracker: %w", err)
	}
	return nil
}
