package manifest

// ManifestFile is the canonical manifest filename inside a package root.
const ManifestFile = "instructionkit.yaml"

// Kind identifies one of the five component kinds a package can declare.
type Kind string

const (
	KindInstruction Kind = "instruction"
	KindMCPServer   Kind = "mcp_server"
	KindHook        Kind = "hook"
	KindCommand     Kind = "command"
	KindResource    Kind = "resource"
)

// Component is the closed set of things a package can install. Exactly the
// five structs in this file implement it; translators switch exhaustively on
// Kind().
type Component interface {
	Kind() Kind
	ComponentName() string
	SourceFile() string
	// SupportedIDEs returns the explicit IDE allow-list, or nil to defer to
	// the capability registry.
	SupportedIDEs() []string
}

// Instruction is a markdown instruction file.
type Instruction struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	File        string   `yaml:"file"`
	Tags        []string `yaml:"tags,omitempty"`
	IDESupport  []string `yaml:"ide_support,omitempty"`
}

func (i Instruction) Kind() Kind              { return KindInstruction }
func (i Instruction) ComponentName() string   { return i.Name }
func (i Instruction) SourceFile() string      { return i.File }
func (i Instruction) SupportedIDEs() []string { return i.IDESupport }

// CredentialDescriptor declares an environment variable an MCP server needs.
// A required credential never carries a default.
type CredentialDescriptor struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Default     string `yaml:"default,omitempty"`
}

// MCPServer is an MCP server config template with ${VAR} placeholders.
type MCPServer struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description,omitempty"`
	File        string                 `yaml:"file"`
	Credentials []CredentialDescriptor `yaml:"credentials,omitempty"`
	IDESupport  []string               `yaml:"ide_support,omitempty"`
}

func (m MCPServer) Kind() Kind              { return KindMCPServer }
func (m MCPServer) ComponentName() string   { return m.Name }
func (m MCPServer) SourceFile() string      { return m.File }
func (m MCPServer) SupportedIDEs() []string { return m.IDESupport }

// Hook is a lifecycle hook script.
type Hook struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	File        string   `yaml:"file"`
	HookType    string   `yaml:"hook_type"`
	IDESupport  []string `yaml:"ide_support,omitempty"`
}

func (h Hook) Kind() Kind              { return KindHook }
func (h Hook) ComponentName() string   { return h.Name }
func (h Hook) SourceFile() string      { return h.File }
func (h Hook) SupportedIDEs() []string { return h.IDESupport }

// Command is a slash-command definition.
type Command struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	File        string   `yaml:"file"`
	CommandType string   `yaml:"command_type,omitempty"`
	IDESupport  []string `yaml:"ide_support,omitempty"`
}

func (c Command) Kind() Kind              { return KindCommand }
func (c Command) ComponentName() string   { return c.Name }
func (c Command) SourceFile() string      { return c.File }
func (c Command) SupportedIDEs() []string { return c.IDESupport }

// Resource is an arbitrary file installed under the project's
// .instructionkit/resources directory.
type Resource struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	File        string   `yaml:"file"`
	InstallPath string   `yaml:"install_path,omitempty"`
	IDESupport  []string `yaml:"ide_support,omitempty"`

	// Filled in by the validator, not declared in the manifest.
	Checksum  string `yaml:"-"`
	SizeBytes int64  `yaml:"-"`
}

func (r Resource) Kind() Kind              { return KindResource }
func (r Resource) ComponentName() string   { return r.Name }
func (r Resource) SourceFile() string      { return r.File }
func (r Resource) SupportedIDEs() []string { return r.IDESupport }

// Components holds a package's declared components, partitioned by kind.
type Components struct {
	Instructions []Instruction `yaml:"instructions,omitempty"`
	MCPServers   []MCPServer   `yaml:"mcp_servers,omitempty"`
	Hooks        []Hook        `yaml:"hooks,omitempty"`
	Commands     []Command     `yaml:"commands,omitempty"`
	Resources    []Resource    `yaml:"resources,omitempty"`
}

// Package is a validated, immutable package manifest. A content change
// implies a new version string.
type Package struct {
	Name        string     `yaml:"name"`
	Version     string     `yaml:"version"`
	Description string     `yaml:"description"`
	Author      string     `yaml:"author"`
	Namespace   string     `yaml:"namespace"`
	License     string     `yaml:"license,omitempty"`
	Homepage    string     `yaml:"homepage,omitempty"`
	Repository  string     `yaml:"repository,omitempty"`
	Keywords    []string   `yaml:"keywords,omitempty"`
	Components  Components `yaml:"components"`

	// Dir is the base directory all file references resolve against.
	Dir string `yaml:"-"`
	// Warnings collected during validation (oversized resources etc).
	Warnings []string `yaml:"-"`
}

// AllComponents returns every component in manifest declaration order:
// instructions, MCP servers, hooks, commands, resources.
func (p *Package) AllComponents() []Component {
	var all []Component
	for _, c := range p.Components.Instructions {
		all = append(all, c)
	}
	for _, c := range p.Components.MCPServers {
		all = append(all, c)
	}
	for _, c := range p.Components.Hooks {
		all = append(all, c)
	}
	for _, c := range p.Components.Commands {
		all = append(all, c)
	}
	for _, c := range p.Components.Resources {
		all = append(all, c)
	}
	return all
}

// ComponentCount returns the total number of declared components.
func (p *Package) ComponentCount() int {
	return len(p.Components.Instructions) +
		len(p.Components.MCPServers) +
		len(p.Components.Hooks) +
		len(p.Components.Commands) +
		len(p.Components.Resources)
}
