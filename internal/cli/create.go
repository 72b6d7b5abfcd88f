package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/instructionkit/instructionkit/internal/exitcodes"
	"github.com/instructionkit/instructionkit/internal/manifest"
	"github.com/instructionkit/instructionkit/internal/secrets"
	"github.com/instructionkit/instructionkit/internal/ui"
)

func (a *App) newCreateCmd() *cobra.Command {
	var (
		name        string
		namespace   string
		author      string
		description string
		pkgVersion  string
	)
	cmd := &cobra.Command{
		Use:   "create [dir]",
		Short: "Scaffold a package manifest from an existing directory",
		Long: "Scans a directory for instruction files, MCP server configs, hooks\n" +
			"and commands, screens MCP environment values for embedded secrets,\n" +
			"and writes an " + manifest.ManifestFile + " describing what it found.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return a.runCreate(dir, name, namespace, author, description, pkgVersion)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "package name (default: directory name)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "package namespace, e.g. acme/platform")
	cmd.Flags().StringVar(&author, "author", "", "package author")
	cmd.Flags().StringVar(&description, "description", "", "package description")
	cmd.Flags().StringVar(&pkgVersion, "version", "0.1.0", "initial package version")
	return cmd
}

func (a *App) runCreate(dir, name, namespace, author, description, pkgVersion string) error {
	base, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	manifestPath := filepath.Join(base, manifest.ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		return &ExitError{
			Code:    exitcodes.UsageError,
			Message: manifest.ManifestFile + " already exists in " + base,
		}
	}

	if name == "" {
		name = sanitizeName(filepath.Base(base))
	}
	if namespace == "" && !a.noInput {
		namespace, err = ui.PromptString("Package namespace (e.g. acme/platform)", "")
		if err != nil {
			return err
		}
	}
	if namespace == "" {
		return &ExitError{
			Code:    exitcodes.UsageError,
			Message: "a namespace is required; pass --namespace",
		}
	}
	if author == "" {
		author = os.Getenv("USER")
		if author == "" {
			author = "unknown"
		}
	}
	if description == "" {
		description = "AI assistant configuration for " + name
	}

	pkg := &manifest.Package{
		Name:        name,
		Version:     pkgVersion,
		Description: description,
		Author:      author,
		Namespace:   namespace,
		Dir:         base,
	}

	if err := a.discoverComponents(base, pkg); err != nil {
		return err
	}
	if pkg.ComponentCount() == 0 {
		return &ExitError{
			Code:    exitcodes.NotFound,
			Message: "no components found in " + base,
		}
	}

	out, err := manifest.Serialize(pkg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(manifestPath, out, 0644); err != nil {
		return err
	}

	// Round-trip through the validator so the scaffold is known-good.
	if _, err := manifest.ParseFile(manifestPath); err != nil {
		return &ExitError{
			Code:    exitcodes.UsageError,
			Message: fmt.Sprintf("generated manifest does not validate: %v", err),
		}
	}

	a.output.Success("Wrote %s with %d component(s)", manifestPath, pkg.ComponentCount())
	return nil
}

var nameUnsafe = regexp.MustCompile(`[^a-z0-9-]+`)

func sanitizeName(s string) string {
	s = nameUnsafe.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// discoverComponents fills pkg from the directory's conventional layout:
// instructions/*.md, mcp/*.json, hooks/<type>/*, commands/*.md.
func (a *App) discoverComponents(base string, pkg *manifest.Package) error {
	for _, file := range globSorted(base, "instructions/*.md") {
		pkg.Components.Instructions = append(pkg.Components.Instructions, manifest.Instruction{
			Name: sanitizeName(stem(file)),
			File: file,
		})
	}

	for _, file := range globSorted(base, "mcp/*.json") {
		server, err := a.scaffoldMCPServer(base, file)
		if err != nil {
			return err
		}
		pkg.Components.MCPServers = append(pkg.Components.MCPServers, server)
	}

	for _, file := range globSorted(base, "hooks/*/*") {
		parts := strings.Split(file, "/")
		pkg.Components.Hooks = append(pkg.Components.Hooks, manifest.Hook{
			Name:     sanitizeName(stem(file)),
			File:     file,
			HookType: parts[1],
		})
	}

	for _, file := range globSorted(base, "commands/*.md") {
		pkg.Components.Commands = append(pkg.Components.Commands, manifest.Command{
			Name: sanitizeName(stem(file)),
			File: file,
		})
	}
	return nil
}

// scaffoldMCPServer screens an MCP config's env values for secrets. High
// confidence values are replaced with ${VAR} placeholders unconditionally;
// medium ones after confirmation (or unconditionally when not interactive).
// The config file is rewritten whenever a value was templated.
func (a *App) scaffoldMCPServer(base, file string) (manifest.MCPServer, error) {
	server := manifest.MCPServer{
		Name: sanitizeName(stem(file)),
		File: file,
	}

	abs := filepath.Join(base, filepath.FromSlash(file))
	data, err := os.ReadFile(abs)
	if err != nil {
		return server, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return server, fmt.Errorf("%s is not valid JSON: %w", file, err)
	}
	env, _ := cfg["env"].(map[string]any)

	changed := false
	for _, key := range sortedKeys(env) {
		value, ok := env[key].(string)
		if !ok || strings.HasPrefix(value, "${") {
			continue
		}

		template := false
		switch secrets.Classify(key, value) {
		case secrets.High:
			a.output.Warning("%s: %s looks like a secret, replacing with %s", file, key, secrets.Template(key))
			template = true
		case secrets.Medium:
			if a.noInput {
				a.output.Warning("%s: %s may be a secret, replacing with %s", file, key, secrets.Template(key))
				template = true
			} else {
				template, err = ui.Confirm(fmt.Sprintf("%s in %s may be a secret. Replace with %s?",
					key, file, secrets.Template(key)))
				if err != nil {
					return server, err
				}
			}
		}
		if template {
			env[key] = secrets.Template(key)
			changed = true
		}
	}

	final := data
	if changed {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return server, err
		}
		final = append(out, '\n')
		if err := os.WriteFile(abs, final, 0644); err != nil {
			return server, err
		}
	}

	// Every placeholder in the final config needs a credential descriptor,
	// whether it came from templating above or was already in the file.
	for _, name := range manifest.Placeholders(final) {
		server.Credentials = append(server.Credentials, manifest.CredentialDescriptor{
			Name:     name,
			Required: true,
		})
	}
	return server, nil
}

// globSorted returns slash-separated matches relative to base.
func globSorted(base, pattern string) []string {
	matches, _ := filepath.Glob(filepath.Join(base, filepath.FromSlash(pattern)))
	var rel []string
	for _, m := range matches {
		if info, err := os.Stat(m); err != nil || info.IsDir() {
			continue
		}
		r, err := filepath.Rel(base, m)
		if err != nil {
			continue
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	sort.Strings(rel)
	return rel
}

func stem(file string) string {
	b := filepath.Base(filepath.FromSlash(file))
	return strings.TrimSuffix(b, filepath.Ext(b))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
