package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writePackage lays out a package directory with the given manifest text and
// component files.
func writePackage(t *testing.T, manifest string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return dir
}

const validManifest = `
name: go-standards
version: 1.2.0
description: Go coding standards and helpers
author: Platform Team
namespace: acme/platform
license: MIT
components:
  instructions:
    - name: coding-standards
      description: Core Go standards
      file: instructions/coding-standards.md
      tags: [go, style]
  mcp_servers:
    - name: github
      file: mcp/github.json
      credentials:
        - name: GITHUB_TOKEN
          description: GitHub API token
          required: true
  hooks:
    - name: pre-commit-lint
      file: hooks/lint.sh
      hook_type: pre-commit
  commands:
    - name: review
      file: commands/review.md
      command_type: prompt
  resources:
    - name: editorconfig
      file: resources/editorconfig
      install_path: .editorconfig
`

var validFiles = map[string]string{
	"instructions/coding-standards.md": "# Standards\n",
	"mcp/github.json":                  `{"command": "npx", "args": ["-y", "server-github"], "env": {"GITHUB_TOKEN": "${GITHUB_TOKEN}"}}`,
	"hooks/lint.sh":                    "#!/bin/sh\ngolangci-lint run\n",
	"commands/review.md":               "Review the current diff.\n",
	"resources/editorconfig":           "root = true\n",
}

func TestParseValidManifest(t *testing.T) {
	dir := writePackage(t, validManifest, validFiles)

	pkg, err := ParseFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}

	if pkg.Name != "go-standards" {
		t.Errorf("Name = %q, want %q", pkg.Name, "go-standards")
	}
	if pkg.Namespace != "acme/platform" {
		t.Errorf("Namespace = %q, want %q", pkg.Namespace, "acme/platform")
	}
	if pkg.ComponentCount() != 5 {
		t.Errorf("ComponentCount() = %d, want 5", pkg.ComponentCount())
	}

	// Declaration order: instructions, mcp, hooks, commands, resources.
	var kinds []Kind
	for _, c := range pkg.AllComponents() {
		kinds = append(kinds, c.Kind())
	}
	want := []Kind{KindInstruction, KindMCPServer, KindHook, KindCommand, KindResource}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("component order = %v, want %v", kinds, want)
	}

	res := pkg.Components.Resources[0]
	if res.Checksum == "" || !strings.HasPrefix(res.Checksum, "sha256:") {
		t.Errorf("resource checksum not computed: %q", res.Checksum)
	}
	if res.SizeBytes != int64(len(validFiles["resources/editorconfig"])) {
		t.Errorf("resource size = %d, want %d", res.SizeBytes, len(validFiles["resources/editorconfig"]))
	}
}

func TestParseMissingFieldsFailFast(t *testing.T) {
	// No version, and the referenced file doesn't exist either. Only the
	// structural error should surface.
	dir := writePackage(t, `
name: incomplete
description: d
author: a
namespace: acme/x
components:
  instructions:
    - name: missing
      file: nope.md
`, nil)

	_, err := ParseFile(filepath.Join(dir, ManifestFile))
	if err == nil {
		t.Fatal("expected error")
	}
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 1 {
		t.Fatalf("got %d errors, want 1 (fail fast on missing field): %v", len(verrs), err)
	}
	if verrs[0].Field != "version" {
		t.Errorf("error field = %q, want %q", verrs[0].Field, "version")
	}
}

func TestParseFieldConstraints(t *testing.T) {
	tests := []struct {
		name      string
		manifest  string
		wantField string
	}{
		{
			name: "uppercase package name",
			manifest: `
name: Bad_Name
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  instructions:
    - {name: i, file: i.md}
`,
			wantField: "name",
		},
		{
			name: "invalid semver",
			manifest: `
name: pkg
version: one-point-oh
description: d
author: a
namespace: acme/x
components:
  instructions:
    - {name: i, file: i.md}
`,
			wantField: "version",
		},
		{
			name: "single-segment namespace",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme
components:
  instructions:
    - {name: i, file: i.md}
`,
			wantField: "namespace",
		},
		{
			name: "no components",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components: {}
`,
			wantField: "components",
		},
		{
			name: "traversal in component name",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  instructions:
    - {name: ../../evil, file: i.md}
`,
			wantField: "components.instruction[0]",
		},
		{
			name: "traversal in hook_type",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  hooks:
    - {name: h, file: i.md, hook_type: ../commands}
`,
			wantField: "components.hook[h]",
		},
		{
			name: "install_path escapes resource dir",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  resources:
    - {name: r, file: i.md, install_path: ../../../.git/hooks/pre-commit}
`,
			wantField: "components.resource[r].install_path",
		},
		{
			name: "absolute install_path",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  resources:
    - {name: r, file: i.md, install_path: /etc/profile}
`,
			wantField: "components.resource[r].install_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writePackage(t, tt.manifest, map[string]string{"i.md": "# i\n"})
			_, err := ParseFile(filepath.Join(dir, ManifestFile))
			if err == nil {
				t.Fatal("expected error")
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error type = %T, want ValidationErrors", err)
			}
			found := false
			for _, ve := range verrs {
				if ve.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, err)
			}
		})
	}
}

func TestParseCredentialInvariants(t *testing.T) {
	manifest := `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  mcp_servers:
    - name: srv
      file: srv.json
      credentials:
        - name: lowercase_bad
        - name: HAS_DEFAULT
          required: true
          default: oops
`
	dir := writePackage(t, manifest, map[string]string{"srv.json": "{}"})
	_, err := ParseFile(filepath.Join(dir, ManifestFile))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "credential name must match") {
		t.Errorf("missing credential-name error in %q", msg)
	}
	if !strings.Contains(msg, "required credential must not declare a default") {
		t.Errorf("missing required-default error in %q", msg)
	}
}

func TestParseFileChecks(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		files    map[string]string
		wantMsg  string
	}{
		{
			name: "missing referenced file",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  instructions:
    - {name: i, file: gone.md}
`,
			wantMsg: "does not exist",
		},
		{
			name: "instruction not markdown",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  instructions:
    - {name: i, file: notes.txt}
`,
			files:   map[string]string{"notes.txt": "hi"},
			wantMsg: "must be markdown",
		},
		{
			name: "mcp file not json",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  mcp_servers:
    - {name: srv, file: srv.json}
`,
			files:   map[string]string{"srv.json": "not json at all"},
			wantMsg: "must be valid JSON",
		},
		{
			name: "hook not a script",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  hooks:
    - {name: h, file: h.md, hook_type: pre-commit}
`,
			files:   map[string]string{"h.md": "# nope"},
			wantMsg: "must be a script",
		},
		{
			name: "mcp placeholder without credential descriptor",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  mcp_servers:
    - {name: srv, file: srv.json}
`,
			files:   map[string]string{"srv.json": `{"command": "npx", "env": {"TOKEN": "${API_TOKEN}"}}`},
			wantMsg: "placeholder ${API_TOKEN} has no credential descriptor",
		},
		{
			name: "file reference escapes package dir",
			manifest: `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  instructions:
    - {name: i, file: ../../etc/passwd}
`,
			wantMsg: "escapes package directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writePackage(t, tt.manifest, tt.files)
			_, err := ParseFile(filepath.Join(dir, ManifestFile))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseResourceSizeLimits(t *testing.T) {
	origMax, origWarn := MaxResourceSize, WarnResourceSize
	MaxResourceSize, WarnResourceSize = 1024, 512
	defer func() { MaxResourceSize, WarnResourceSize = origMax, origWarn }()

	manifest := `
name: pkg
version: 1.0.0
description: d
author: a
namespace: acme/x
components:
  resources:
    - {name: blob, file: blob.bin}
`

	t.Run("exactly at limit is accepted with warning", func(t *testing.T) {
		dir := writePackage(t, manifest, map[string]string{
			"blob.bin": strings.Repeat("x", 1024),
		})
		pkg, err := ParseFile(filepath.Join(dir, ManifestFile))
		if err != nil {
			t.Fatalf("ParseFile() error: %v", err)
		}
		if len(pkg.Warnings) != 1 {
			t.Fatalf("warnings = %v, want exactly one size warning", pkg.Warnings)
		}
	})

	t.Run("one byte over is rejected", func(t *testing.T) {
		dir := writePackage(t, manifest, map[string]string{
			"blob.bin": strings.Repeat("x", 1025),
		})
		_, err := ParseFile(filepath.Join(dir, ManifestFile))
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, ErrResourceTooLarge) {
			t.Errorf("errors.Is(err, ErrResourceTooLarge) = false for %v", err)
		}
	})

	t.Run("under warn threshold is silent", func(t *testing.T) {
		dir := writePackage(t, manifest, map[string]string{
			"blob.bin": strings.Repeat("x", 100),
		})
		pkg, err := ParseFile(filepath.Join(dir, ManifestFile))
		if err != nil {
			t.Fatalf("ParseFile() error: %v", err)
		}
		if len(pkg.Warnings) != 0 {
			t.Errorf("warnings = %v, want none", pkg.Warnings)
		}
	})
}

func TestRoundTripStability(t *testing.T) {
	dir := writePackage(t, validManifest, validFiles)

	first, err := ParseFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}

	out, err := Serialize(first)
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}

	second, err := Parse(out, dir)
	if err != nil {
		t.Fatalf("re-Parse() error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Parse(Serialize(Parse(m))) != Parse(m)\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestPlaceholders(t *testing.T) {
	content := []byte(`{"env": {"A": "${GITHUB_TOKEN}", "B": "${API_URL}", "C": "${GITHUB_TOKEN}", "D": "${not_valid}"}}`)
	got := Placeholders(content)
	want := []string{"GITHUB_TOKEN", "API_URL"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders() = %v, want %v", got, want)
	}
}
