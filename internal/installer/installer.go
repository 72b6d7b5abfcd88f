// Package installer orchestrates a package installation: translate each
// component for each target IDE, apply it through the conflict resolver, and
// record every outcome in the project tracker. Component failures never abort
// the run; each (component, IDE) pair gets its own terminal status.
package installer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/instructionkit/instructionkit/internal/checksum"
	"github.com/instructionkit/instructionkit/internal/conflict"
	"github.com/instructionkit/instructionkit/internal/detect"
	"github.com/instructionkit/instructionkit/internal/ide"
	"github.com/instructionkit/instructionkit/internal/manifest"
	"github.com/instructionkit/instructionkit/internal/tracker"
)

// ErrCancelled is returned by a CredentialFunc when the operator aborts the
// prompt. The affected component lands in pending_credentials.
var ErrCancelled = errors.New("cancelled by user")

// CredentialFunc asks the operator for one credential value. Values are used
// for the current run only and are never persisted.
type CredentialFunc func(cred manifest.CredentialDescriptor) (string, error)

// Installer carries the collaborators an installation run needs. A nil
// Credentials func means non-interactive mode: required credentials without a
// default mark their component pending instead of prompting.
type Installer struct {
	ProjectDir string
	// IDEs is the explicit target list; empty means detect from the project.
	IDEs             []string
	Strategy         conflict.Strategy
	ConflictPrompter conflict.Prompter
	Credentials      CredentialFunc

	now func() time.Time
}

// New creates an installer for a project directory with the default prompt
// strategy.
func New(projectDir string) *Installer {
	return &Installer{
		ProjectDir: projectDir,
		Strategy:   conflict.Prompt,
		now:        time.Now,
	}
}

// Install runs a fresh installation of pkg. source records where the package
// came from (repo URL or local path).
func (ins *Installer) Install(pkg *manifest.Package, source string) (*Summary, error) {
	return ins.run(pkg, source, tracker.StatusInstalling)
}

// Update re-installs pkg over an existing installation.
func (ins *Installer) Update(pkg *manifest.Package, source string) (*Summary, error) {
	return ins.run(pkg, source, tracker.StatusUpdating)
}

func (ins *Installer) run(pkg *manifest.Package, source string, phase tracker.InstallStatus) (*Summary, error) {
	targets := ins.IDEs
	if len(targets) == 0 {
		targets = detect.DetectIDEs(ins.ProjectDir)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no target IDEs: none detected in %s and none given", ins.ProjectDir)
	}
	for _, id := range targets {
		if _, ok := ide.Lookup(id); !ok {
			return nil, fmt.Errorf("unknown IDE %q", id)
		}
	}

	tr, err := tracker.Load(ins.ProjectDir)
	if err != nil {
		return nil, err
	}

	now := ins.now().UTC()
	rec := tracker.PackageInstallationRecord{
		PackageName: pkg.Name,
		Namespace:   pkg.Namespace,
		Version:     pkg.Version,
		Source:      source,
		InstalledAt: now,
		UpdatedAt:   now,
		Status:      phase,
	}
	if prev, ok := tr.Get(pkg.Name); ok {
		rec.InstalledAt = prev.InstalledAt
	}
	// Persist the in-progress record first so a crash leaves a visible,
	// non-terminal status rather than nothing.
	if err := tr.RecordInstallation(rec); err != nil {
		return nil, err
	}

	resolver := conflict.NewResolver(ins.Strategy, conflict.WithPrompter(ins.ConflictPrompter))
	summary := &Summary{Package: pkg, IDEs: targets}
	credCache := map[string]string{}

	for _, comp := range pkg.AllComponents() {
		if mcp, ok := comp.(manifest.MCPServer); ok {
			if reason, pending := ins.resolveCredentials(mcp, credCache); pending {
				summary.add(ComponentResult{
					Component: comp,
					Status:    tracker.ComponentPendingCredentials,
					Reason:    reason,
				})
				continue
			}
		}
		for _, target := range targets {
			summary.add(ins.installOne(pkg, comp, target, resolver, credCache))
		}
	}

	rec.UpdatedAt = ins.now().UTC()
	rec.Status = summary.InstallStatus()
	rec.Components = summary.trackerComponents()
	if err := tr.RecordInstallation(rec); err != nil {
		return nil, err
	}
	return summary, nil
}

// resolveCredentials prompts for the credentials an MCP server requires.
// It reports a pending reason when a required credential cannot be obtained.
// Values are cached per run so a credential shared by several servers is asked
// for once, and they are dropped when the run ends.
func (ins *Installer) resolveCredentials(mcp manifest.MCPServer, cache map[string]string) (string, bool) {
	for _, cred := range mcp.Credentials {
		if _, ok := cache[cred.Name]; ok {
			continue
		}
		if !cred.Required {
			if cred.Default != "" {
				cache[cred.Name] = cred.Default
			}
			continue
		}
		if ins.Credentials == nil {
			return fmt.Sprintf("credential %s required but running non-interactively", cred.Name), true
		}
		value, err := ins.Credentials(cred)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				return fmt.Sprintf("credential %s prompt cancelled", cred.Name), true
			}
			return fmt.Sprintf("credential %s: %v", cred.Name, err), true
		}
		cache[cred.Name] = value
	}
	return "", false
}

// installOne translates and applies a single (component, IDE) pair. creds
// holds the credential values resolved for this run; they are substituted
// into MCP configs here, at apply time, and never reach the tracker.
func (ins *Installer) installOne(pkg *manifest.Package, comp manifest.Component, target string, resolver *conflict.Resolver, creds map[string]string) ComponentResult {
	res := ComponentResult{Component: comp, IDE: target}

	translator, ok := ide.For(target)
	if !ok {
		res.Status = tracker.ComponentFailed
		res.Reason = fmt.Sprintf("no translator for IDE %q", target)
		return res
	}

	tc, err := translator.Translate(pkg, comp)
	if err != nil {
		var unsupported *ide.UnsupportedError
		if errors.As(err, &unsupported) {
			res.Status = tracker.ComponentSkipped
			res.Reason = unsupported.Reason
			return res
		}
		res.Status = tracker.ComponentFailed
		res.Reason = err.Error()
		return res
	}

	if _, ok := comp.(manifest.MCPServer); ok {
		tc.Content = substitutePlaceholders(tc.Content, creds)
	}

	absTarget := filepath.Join(ins.ProjectDir, filepath.FromSlash(tc.TargetPath))

	switch tc.Strategy {
	case ide.MergeJSON:
		changed, err := conflict.MergeJSONFile(absTarget, tc.Content)
		if err != nil {
			res.Status = tracker.ComponentFailed
			res.Reason = err.Error()
			return res
		}
		res.Status = tracker.ComponentInstalled
		res.Path = tc.TargetPath
		res.Checksum, _ = checksum.SumFile(absTarget)
		if !changed {
			res.Reason = "already up to date"
		}

	case ide.MergeYAML:
		changed, err := conflict.MergeYAMLFile(absTarget, tc.Content)
		if err != nil {
			res.Status = tracker.ComponentFailed
			res.Reason = err.Error()
			return res
		}
		res.Status = tracker.ComponentInstalled
		res.Path = tc.TargetPath
		res.Checksum, _ = checksum.SumFile(absTarget)
		if !changed {
			res.Reason = "already up to date"
		}

	case ide.Append:
		if err := conflict.AppendFile(absTarget, tc.Content); err != nil {
			res.Status = tracker.ComponentFailed
			res.Reason = err.Error()
			return res
		}
		res.Status = tracker.ComponentInstalled
		res.Path = tc.TargetPath
		res.Checksum, _ = checksum.SumFile(absTarget)

	default: // ide.Replace
		outcome, err := resolver.Resolve(absTarget, tc.Content, "")
		if err != nil {
			res.Status = tracker.ComponentFailed
			res.Reason = err.Error()
			return res
		}
		res.fromResolution(ins.ProjectDir, outcome, tc.Content)
	}
	return res
}

// substitutePlaceholders replaces ${NAME} markers with this run's resolved
// credential values. Placeholders sit inside JSON strings, so values are
// escaped for that context. Unresolved placeholders are left intact so the
// config still documents what it needs.
func substitutePlaceholders(content []byte, creds map[string]string) []byte {
	for name, value := range creds {
		quoted, _ := json.Marshal(value) // marshaling a string cannot fail
		escaped := quoted[1 : len(quoted)-1]
		content = bytes.ReplaceAll(content, []byte("${"+name+"}"), escaped)
	}
	return content
}

// fromResolution maps a conflict resolution outcome onto a component result.
func (r *ComponentResult) fromResolution(projectDir string, outcome *conflict.Result, content []byte) {
	rel, err := filepath.Rel(projectDir, outcome.Path)
	if err != nil {
		rel = outcome.Path
	}
	rel = filepath.ToSlash(rel)

	switch outcome.Action {
	case conflict.ActionSkipped:
		r.Status = tracker.ComponentSkipped
		r.Reason = "existing file kept"
		r.Path = rel
	case conflict.ActionSkippedIdentical:
		// Identical content already on disk is a successful install.
		r.Status = tracker.ComponentInstalled
		r.Reason = "already up to date"
		r.Path = rel
		r.Checksum = checksum.Sum(content)
	default:
		r.Status = tracker.ComponentInstalled
		r.Path = rel
		r.Checksum = checksum.Sum(content)
		if outcome.Action == conflict.ActionOverwrote && outcome.BackupPath != "" {
			r.Reason = "previous version backed up"
		}
		if outcome.Action == conflict.ActionRenamed || outcome.Action == conflict.ActionKeptBoth {
			r.Reason = "installed alongside existing file"
		}
	}
}
