package ide

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/instructionkit/instructionkit/internal/manifest"
)

// MergeStrategy tells the installer how a translated component is applied to
// an existing target file.
type MergeStrategy string

const (
	// Replace writes the content as-is, subject to conflict resolution.
	Replace MergeStrategy = "replace"
	// MergeJSON deep-merges the content into the existing JSON document so
	// sibling keys (other installed MCP servers) are preserved.
	MergeJSON MergeStrategy = "merge-json"
	// MergeYAML deep-merges into an existing YAML document.
	MergeYAML MergeStrategy = "merge-yaml"
	// Append appends the content to the existing file.
	Append MergeStrategy = "append"
)

// ResourceDir is where resources land regardless of IDE, relative to the
// project root; resources are not IDE-specific.
const ResourceDir = ".instructionkit/resources"

// TranslatedComponent is a concrete install artifact for one (component, IDE)
// pair. TargetPath is slash-separated and relative to the project root.
type TranslatedComponent struct {
	TargetPath string
	Content    []byte
	Strategy   MergeStrategy
	Source     manifest.Component
}

// UnsupportedError signals that an IDE cannot consume a component. It is not
// a failure: the installer records the component as skipped with this reason.
type UnsupportedError struct {
	IDE       string
	Component string
	Kind      manifest.Kind
	Reason    string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s %q not supported by %s: %s", e.Kind, e.Component, e.IDE, e.Reason)
}

// PathEscapeError signals a translated target path that would resolve outside
// its designated install directory. Fatal for the component.
type PathEscapeError struct {
	Path string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("install path escapes its target directory: %q", e.Path)
}

// Translator renders components for one IDE.
type Translator interface {
	ID() string
	Capability() Capability
	// Translate returns the install artifact for c, an *UnsupportedError if
	// this IDE cannot consume it, or another error for real failures.
	Translate(pkg *manifest.Package, c manifest.Component) (*TranslatedComponent, error)
}

// translators is the dispatch table, one entry per registered IDE.
var translators = func() map[string]Translator {
	m := make(map[string]Translator, len(capabilities))
	for id, cap := range capabilities {
		m[id] = &capabilityTranslator{cap: cap}
	}
	return m
}()

// For returns the translator registered for an IDE identifier.
func For(id string) (Translator, bool) {
	t, ok := translators[id]
	return t, ok
}

// capabilityTranslator derives translation entirely from a Capability entry.
type capabilityTranslator struct {
	cap Capability
}

func (t *capabilityTranslator) ID() string             { return t.cap.ID }
func (t *capabilityTranslator) Capability() Capability { return t.cap }

func (t *capabilityTranslator) Translate(pkg *manifest.Package, c manifest.Component) (*TranslatedComponent, error) {
	if allow := c.SupportedIDEs(); allow != nil && !contains(allow, t.cap.ID) {
		return nil, t.unsupported(c, "excluded by the component's ide_support list")
	}

	var tc *TranslatedComponent
	var err error
	switch c := c.(type) {
	case manifest.Instruction:
		tc, err = t.translateInstruction(pkg, c)
	case manifest.MCPServer:
		tc, err = t.translateMCPServer(pkg, c)
	case manifest.Hook:
		tc, err = t.translateHook(pkg, c)
	case manifest.Command:
		tc, err = t.translateCommand(pkg, c)
	case manifest.Resource:
		tc, err = t.translateResource(pkg, c)
	default:
		err = fmt.Errorf("unknown component kind %q", c.Kind())
	}
	if err != nil {
		return nil, err
	}

	if err := validateTarget(tc.TargetPath); err != nil {
		return nil, err
	}
	return tc, nil
}

func (t *capabilityTranslator) translateInstruction(pkg *manifest.Package, c manifest.Instruction) (*TranslatedComponent, error) {
	if !t.cap.SupportsInstructions {
		return nil, t.unsupported(c, "IDE does not consume instruction files")
	}
	if err := safeComponent(c.Name); err != nil {
		return nil, err
	}
	content, err := readSource(pkg, c)
	if err != nil {
		return nil, err
	}
	return &TranslatedComponent{
		TargetPath: path.Join(t.cap.InstructionDir, c.Name+t.cap.InstructionExt),
		Content:    content,
		Strategy:   Replace,
		Source:     c,
	}, nil
}

func (t *capabilityTranslator) translateMCPServer(pkg *manifest.Package, c manifest.MCPServer) (*TranslatedComponent, error) {
	if !t.cap.SupportsMCP {
		return nil, t.unsupported(c, "IDE has no MCP config")
	}
	raw, err := readSource(pkg, c)
	if err != nil {
		return nil, err
	}

	var serverCfg any
	if err := json.Unmarshal(raw, &serverCfg); err != nil {
		return nil, fmt.Errorf("MCP config for %q: %w", c.Name, err)
	}

	// Wrap as a single mcpServers entry; MergeJSON keeps sibling servers.
	// ${VAR} placeholders stay in place; substitution happens later, once
	// credentials are resolved.
	envelope := map[string]any{
		"mcpServers": map[string]any{c.Name: serverCfg},
	}
	content, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, err
	}

	return &TranslatedComponent{
		TargetPath: t.cap.MCPConfigPath,
		Content:    content,
		Strategy:   MergeJSON,
		Source:     c,
	}, nil
}

func (t *capabilityTranslator) translateHook(pkg *manifest.Package, c manifest.Hook) (*TranslatedComponent, error) {
	if !t.cap.SupportsHooks {
		return nil, t.unsupported(c, "IDE does not run lifecycle hooks")
	}
	if err := safeComponent(c.Name); err != nil {
		return nil, err
	}
	if err := safeComponent(c.HookType); err != nil {
		return nil, err
	}
	content, err := readSource(pkg, c)
	if err != nil {
		return nil, err
	}
	ext := path.Ext(c.File)
	return &TranslatedComponent{
		TargetPath: path.Join(t.cap.HookDir, c.HookType, c.Name+ext),
		Content:    content,
		Strategy:   Replace,
		Source:     c,
	}, nil
}

func (t *capabilityTranslator) translateCommand(pkg *manifest.Package, c manifest.Command) (*TranslatedComponent, error) {
	if !t.cap.SupportsCommands {
		return nil, t.unsupported(c, "IDE has no slash commands")
	}
	if err := safeComponent(c.Name); err != nil {
		return nil, err
	}
	content, err := readSource(pkg, c)
	if err != nil {
		return nil, err
	}
	ext := path.Ext(c.File)
	return &TranslatedComponent{
		TargetPath: path.Join(t.cap.CommandDir, c.Name+ext),
		Content:    content,
		Strategy:   Replace,
		Source:     c,
	}, nil
}

func (t *capabilityTranslator) translateResource(pkg *manifest.Package, c manifest.Resource) (*TranslatedComponent, error) {
	if !t.cap.SupportsResources {
		return nil, t.unsupported(c, "IDE only consumes instruction files")
	}
	content, err := readSource(pkg, c)
	if err != nil {
		return nil, err
	}
	rel := c.InstallPath
	if rel == "" {
		rel = c.File
	}
	cleaned, err := confinedRelPath(rel)
	if err != nil {
		return nil, err
	}
	base := path.Join(ResourceDir, pkg.Name)
	target := path.Join(base, cleaned)
	if target != base && !strings.HasPrefix(target, base+"/") {
		return nil, &PathEscapeError{Path: rel}
	}
	return &TranslatedComponent{
		TargetPath: target,
		Content:    content,
		Strategy:   Replace,
		Source:     c,
	}, nil
}

func (t *capabilityTranslator) unsupported(c manifest.Component, reason string) *UnsupportedError {
	return &UnsupportedError{
		IDE:       t.cap.ID,
		Component: c.ComponentName(),
		Kind:      c.Kind(),
		Reason:    reason,
	}
}

func readSource(pkg *manifest.Package, c manifest.Component) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(pkg.Dir, filepath.FromSlash(c.SourceFile())))
	if err != nil {
		return nil, fmt.Errorf("reading %s source %q: %w", c.Kind(), c.SourceFile(), err)
	}
	return data, nil
}

// validateTarget rejects target paths that are absolute or climb out of the
// project root.
func validateTarget(target string) error {
	if target == "" || path.IsAbs(target) || filepath.IsAbs(target) {
		return &PathEscapeError{Path: target}
	}
	cleaned := path.Clean(target)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return &PathEscapeError{Path: target}
	}
	return nil
}

// safeComponent rejects names that would act as path segments: empty, dot
// entries, or anything containing a separator. Manifest-supplied names join
// directly into target paths, so they must stay a single component.
func safeComponent(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return &PathEscapeError{Path: name}
	}
	return nil
}

// confinedRelPath cleans a manifest-supplied relative path and rejects any
// form that could resolve outside the directory it is joined under.
func confinedRelPath(p string) (string, error) {
	if p == "" || strings.Contains(p, `\`) || path.IsAbs(p) || filepath.IsAbs(p) {
		return "", &PathEscapeError{Path: p}
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &PathEscapeError{Path: p}
	}
	return cleaned, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
