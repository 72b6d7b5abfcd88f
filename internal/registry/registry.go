// Package registry maintains the cross-project index at
// ~/.instructionkit/registry.json. Project trackers are the source of truth;
// the registry is a derived, rebuildable cache, so every load path degrades
// instead of failing: invalid entries are dropped and logged, an unparsable
// file triggers a rebuild from trackers, and when all else fails the registry
// operates empty rather than blocking the calling command.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/instructionkit/instructionkit/internal/tracker"
)

const (
	// HomeDir is the per-user state directory under $HOME.
	HomeDir      = ".instructionkit"
	RegistryFile = "registry.json"

	registryVersion = 1
)

// ProjectRegistration is one project's entry in the registry.
type ProjectRegistration struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	Packages     []string  `json:"packages"` // "<name>@<version>"
	Instructions []string  `json:"instructions,omitempty"`
	MCPServers   []string  `json:"mcp_servers,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

type registryFile struct {
	Version  int                   `json:"version"`
	LastScan time.Time             `json:"last_scan,omitempty"`
	Projects []ProjectRegistration `json:"projects"`
}

// Registry is an explicit object passed into the commands that need it; there
// is no process-wide singleton.
type Registry struct {
	path     string
	data     registryFile
	degraded bool
	logf     func(format string, args ...any)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes drop/repair notices somewhere visible. Default: discard.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(r *Registry) { r.logf = logf }
}

// DefaultPath returns the registry file location, honoring the
// INSTRUCTIONKIT_HOME override.
func DefaultPath() (string, error) {
	if home := os.Getenv("INSTRUCTIONKIT_HOME"); home != "" {
		return filepath.Join(home, RegistryFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, HomeDir, RegistryFile), nil
}

// Load opens the registry at path. It never fails on content problems: a
// missing file yields an empty registry, a corrupt one yields a degraded
// empty registry (callers may Scan to rebuild), and individually malformed
// entries are repaired away.
func Load(path string, opts ...Option) *Registry {
	r := &Registry{
		path: path,
		data: registryFile{Version: registryVersion},
		logf: func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(r)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logf("registry unreadable (%v), starting empty", err)
			r.degraded = true
		}
		return r
	}

	var parsed registryFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		r.logf("registry corrupt (%v); run 'instructionkit scan' to rebuild", err)
		r.degraded = true
		return r
	}
	if parsed.Version == 0 {
		parsed.Version = registryVersion
	}
	r.data = parsed

	if dropped := r.Repair(); dropped > 0 {
		// Persist the repaired set so the damage doesn't resurface.
		if err := r.Save(); err != nil {
			r.logf("persisting repaired registry: %v", err)
		}
	}
	return r
}

// Degraded reports whether the registry file was unusable at load time.
func (r *Registry) Degraded() bool { return r.degraded }

// Path returns the backing file path.
func (r *Registry) Path() string { return r.path }

// Projects returns all registrations, sorted by path.
func (r *Registry) Projects() []ProjectRegistration {
	out := make([]ProjectRegistration, len(r.data.Projects))
	copy(out, r.data.Projects)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Validate returns a description of each malformed entry without changing
// anything.
func (r *Registry) Validate() []string {
	var problems []string
	for i, p := range r.data.Projects {
		if reason := validateEntry(p); reason != "" {
			problems = append(problems, fmt.Sprintf("projects[%d] (%s): %s", i, p.Path, reason))
		}
	}
	return problems
}

// Repair drops malformed entries, logging each, and returns how many were
// dropped. The in-memory set is valid afterwards.
func (r *Registry) Repair() int {
	kept := r.data.Projects[:0]
	dropped := 0
	for _, p := range r.data.Projects {
		if reason := validateEntry(p); reason != "" {
			r.logf("dropping malformed registry entry %q: %s", p.Path, reason)
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	r.data.Projects = kept
	return dropped
}

func validateEntry(p ProjectRegistration) string {
	if strings.TrimSpace(p.Path) == "" {
		return "empty project path"
	}
	if !filepath.IsAbs(p.Path) {
		return "project path is not absolute"
	}
	return ""
}

// RegisterProject upserts a project registration and persists the registry.
func (r *Registry) RegisterProject(reg ProjectRegistration) error {
	if reason := validateEntry(reg); reason != "" {
		return fmt.Errorf("invalid registration: %s", reason)
	}
	now := time.Now().UTC()
	reg.LastUpdated = now

	for i := range r.data.Projects {
		if r.data.Projects[i].Path == reg.Path {
			reg.RegisteredAt = r.data.Projects[i].RegisteredAt
			r.data.Projects[i] = reg
			return r.Save()
		}
	}
	reg.RegisteredAt = now
	r.data.Projects = append(r.data.Projects, reg)
	return r.Save()
}

// Unregister removes a project entry, if present, and persists.
func (r *Registry) Unregister(projectPath string) error {
	for i := range r.data.Projects {
		if r.data.Projects[i].Path == projectPath {
			r.data.Projects = append(r.data.Projects[:i], r.data.Projects[i+1:]...)
			return r.Save()
		}
	}
	return nil
}

// ProjectsUsing returns the paths of projects that have packageName
// installed.
func (r *Registry) ProjectsUsing(packageName string) []string {
	var paths []string
	for _, p := range r.data.Projects {
		for _, pkg := range p.Packages {
			if name, _, _ := strings.Cut(pkg, "@"); name == packageName {
				paths = append(paths, p.Path)
				break
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// Save writes the registry atomically.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}

	content, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	content = append(content, '\n')

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

// RegistrationFromTracker builds a registry entry from a project's ledger.
func RegistrationFromTracker(projectPath string, t *tracker.Tracker) ProjectRegistration {
	reg := ProjectRegistration{
		Path: projectPath,
		Name: filepath.Base(projectPath),
	}
	for _, rec := range t.GetInstalled() {
		reg.Packages = append(reg.Packages, rec.PackageName+"@"+rec.Version)
		for _, c := range rec.Components {
			if c.Status != tracker.ComponentInstalled {
				continue
			}
			switch c.Type {
			case trackerInstructionType:
				reg.Instructions = appendUnique(reg.Instructions, c.Name)
			case trackerMCPType:
				reg.MCPServers = appendUnique(reg.MCPServers, c.Name)
			}
		}
	}
	return reg
}

// Component type names as recorded by the installer.
const (
	trackerInstructionType = "instruction"
	trackerMCPType         = "mcp_server"
)

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
