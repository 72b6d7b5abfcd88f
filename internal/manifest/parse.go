// Package manifest parses and validates instructionkit package manifests.
//
// Parsing is all-or-nothing: callers get either a fully validated Package or
// a ValidationErrors list, never a partial package. Structural checks run
// before any filesystem access so that a missing field produces one
// actionable error instead of a cascade of file-not-found noise.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/instructionkit/instructionkit/internal/checksum"
	"github.com/instructionkit/instructionkit/internal/version"
)

// Size policy for resource files. Configurable, not load-bearing precision.
var (
	MaxResourceSize  int64 = 200 << 20
	WarnResourceSize int64 = 50 << 20
)

var (
	namePattern       = regexp.MustCompile(`^[a-z0-9-]+$`)
	componentPattern  = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	credentialPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	placeholderRE     = regexp.MustCompile(`\$\{([A-Z][A-Z0-9_]*)\}`)
)

var scriptExtensions = map[string]bool{
	".sh": true, ".bash": true, ".zsh": true, ".fish": true,
	".py": true, ".js": true, ".ts": true, ".rb": true, ".ps1": true,
}

// ParseFile reads and validates the manifest at path. File references are
// resolved relative to the manifest's directory.
func ParseFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse parses manifest text and validates it against baseDir.
func Parse(data []byte, baseDir string) (*Package, error) {
	var pkg Package
	if err := yaml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	pkg.Dir = baseDir

	// Structural checks first; bail before touching the filesystem.
	if errs := validateStructure(&pkg); len(errs) > 0 {
		return nil, errs
	}
	if errs := validateFiles(&pkg); len(errs) > 0 {
		return nil, errs
	}

	return &pkg, nil
}

// Serialize renders a Package back to manifest YAML.
func Serialize(pkg *Package) ([]byte, error) {
	return yaml.Marshal(pkg)
}

// Placeholders returns the unique ${VAR} variable names in content, in order
// of first appearance.
func Placeholders(content []byte) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRE.FindAllSubmatch(content, -1) {
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func validateStructure(pkg *Package) ValidationErrors {
	var errs ValidationErrors

	required := []struct {
		field string
		value string
	}{
		{"name", pkg.Name},
		{"version", pkg.Version},
		{"description", pkg.Description},
		{"author", pkg.Author},
		{"namespace", pkg.Namespace},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fieldErrorf(r.field, "required field is missing"))
		}
	}
	// Missing fields make the remaining structural checks meaningless noise.
	if len(errs) > 0 {
		return errs
	}

	if !namePattern.MatchString(pkg.Name) {
		errs = append(errs, fieldErrorf("name", "must match %s, got %q", namePattern, pkg.Name))
	}
	if !version.IsValid(pkg.Version) {
		errs = append(errs, fieldErrorf("version", "invalid semantic version %q", pkg.Version))
	}
	if !validNamespace(pkg.Namespace) {
		errs = append(errs, fieldErrorf("namespace", "must have at least two slash-separated segments, got %q", pkg.Namespace))
	}

	if pkg.ComponentCount() == 0 {
		errs = append(errs, fieldErrorf("components", "package declares no components"))
	}

	for i, c := range pkg.AllComponents() {
		field := fmt.Sprintf("components.%s[%d]", c.Kind(), i)
		switch {
		case c.ComponentName() == "":
			errs = append(errs, fieldErrorf(field, "component name is required"))
		case !componentPattern.MatchString(c.ComponentName()):
			// Names become path segments under the IDE's install dirs.
			errs = append(errs, fieldErrorf(field, "component name must match %s, got %q", componentPattern, c.ComponentName()))
		}
		if c.SourceFile() == "" {
			errs = append(errs, fieldErrorf(field, "component file is required"))
		}
	}

	for _, srv := range pkg.Components.MCPServers {
		for _, cred := range srv.Credentials {
			field := fmt.Sprintf("components.mcp_server[%s].credentials[%s]", srv.Name, cred.Name)
			if !credentialPattern.MatchString(cred.Name) {
				errs = append(errs, fieldErrorf(field, "credential name must match %s", credentialPattern))
			}
			if cred.Required && cred.Default != "" {
				errs = append(errs, fieldErrorf(field, "required credential must not declare a default"))
			}
		}
	}

	for _, h := range pkg.Components.Hooks {
		field := fmt.Sprintf("components.hook[%s]", h.Name)
		if h.HookType == "" {
			errs = append(errs, fieldErrorf(field, "hook_type is required"))
		} else if !componentPattern.MatchString(h.HookType) {
			errs = append(errs, fieldErrorf(field, "hook_type must match %s, got %q", componentPattern, h.HookType))
		}
	}

	for _, r := range pkg.Components.Resources {
		if r.InstallPath == "" {
			continue
		}
		field := fmt.Sprintf("components.resource[%s].install_path", r.Name)
		if err := validInstallPath(r.InstallPath); err != nil {
			errs = append(errs, &ValidationError{Field: field, Err: err})
		}
	}

	return errs
}

// validInstallPath rejects install_path values that could place a resource
// outside the package's resource directory.
func validInstallPath(p string) error {
	if strings.Contains(p, `\`) {
		return fmt.Errorf("install_path must use forward slashes, got %q", p)
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("install_path must be relative, got %q", p)
	}
	cleaned := filepath.ToSlash(filepath.Clean(p))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("install_path escapes the resource directory: %q", p)
	}
	return nil
}

func validateFiles(pkg *Package) ValidationErrors {
	var errs ValidationErrors

	for _, c := range pkg.Components.Instructions {
		path, err := resolveUnder(pkg.Dir, c.File)
		if err != nil {
			errs = append(errs, &ValidationError{Field: instrField(c.Name), Err: err})
			continue
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			errs = append(errs, fieldErrorf(instrField(c.Name), "instruction file must be markdown, got %q", c.File))
		}
	}

	for _, c := range pkg.Components.MCPServers {
		field := fmt.Sprintf("components.mcp_server[%s].file", c.Name)
		path, err := resolveUnder(pkg.Dir, c.File)
		if err != nil {
			errs = append(errs, &ValidationError{Field: field, Err: err})
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fieldErrorf(field, "reading %s: %v", c.File, err))
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			errs = append(errs, fieldErrorf(field, "MCP config must be valid JSON: %v", err))
			continue
		}
		declared := make(map[string]bool, len(c.Credentials))
		for _, cred := range c.Credentials {
			declared[cred.Name] = true
		}
		for _, name := range Placeholders(data) {
			if !declared[name] {
				errs = append(errs, fieldErrorf(field, "placeholder ${%s} has no credential descriptor", name))
			}
		}
	}

	for _, c := range pkg.Components.Hooks {
		field := fmt.Sprintf("components.hook[%s].file", c.Name)
		path, err := resolveUnder(pkg.Dir, c.File)
		if err != nil {
			errs = append(errs, &ValidationError{Field: field, Err: err})
			continue
		}
		if !scriptExtensions[strings.ToLower(filepath.Ext(path))] {
			errs = append(errs, fieldErrorf(field, "hook file must be a script, got %q", c.File))
		}
	}

	for _, c := range pkg.Components.Commands {
		field := fmt.Sprintf("components.command[%s].file", c.Name)
		path, err := resolveUnder(pkg.Dir, c.File)
		if err != nil {
			errs = append(errs, &ValidationError{Field: field, Err: err})
			continue
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && !scriptExtensions[ext] {
			errs = append(errs, fieldErrorf(field, "command file must be markdown or a script, got %q", c.File))
		}
	}

	for i := range pkg.Components.Resources {
		c := &pkg.Components.Resources[i]
		field := fmt.Sprintf("components.resource[%s].file", c.Name)
		path, err := resolveUnder(pkg.Dir, c.File)
		if err != nil {
			errs = append(errs, &ValidationError{Field: field, Err: err})
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, fieldErrorf(field, "stat %s: %v", c.File, err))
			continue
		}
		c.SizeBytes = info.Size()
		if c.SizeBytes > MaxResourceSize {
			errs = append(errs, &ValidationError{
				Field: field,
				Err: fmt.Errorf("%w: %s is %s (limit %s)", ErrResourceTooLarge,
					c.File, humanize.IBytes(uint64(c.SizeBytes)), humanize.IBytes(uint64(MaxResourceSize))),
			})
			continue
		}
		if c.SizeBytes > WarnResourceSize {
			pkg.Warnings = append(pkg.Warnings, fmt.Sprintf(
				"resource %s is %s; large resources slow down installs",
				c.File, humanize.IBytes(uint64(c.SizeBytes))))
		}
		sum, err := checksum.SumFile(path)
		if err != nil {
			errs = append(errs, fieldErrorf(field, "hashing %s: %v", c.File, err))
			continue
		}
		c.Checksum = sum
	}

	return errs
}

func instrField(name string) string {
	return fmt.Sprintf("components.instruction[%s].file", name)
}

func validNamespace(ns string) bool {
	parts := strings.Split(ns, "/")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// resolveUnder resolves rel against baseDir and verifies both that the result
// stays inside baseDir and that the file exists.
func resolveUnder(baseDir, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty file reference")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("file reference must be relative, got %q", rel)
	}
	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file reference escapes package directory: %q", rel)
	}

	path := filepath.Join(baseDir, cleaned)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("referenced file does not exist: %q", rel)
		}
		return "", err
	}
	return path, nil
}
