// Package ide holds the static capability registry describing what each
// supported IDE can consume, and the translators that turn IDE-agnostic
// package components into concrete install artifacts.
package ide

import "sort"

// Capability describes one IDE's consumable component kinds and layout.
// Invariant: a true Supports flag has non-empty corresponding path fields.
type Capability struct {
	ID          string
	DisplayName string

	SupportsInstructions bool
	SupportsMCP          bool
	SupportsHooks        bool
	SupportsCommands     bool
	SupportsResources    bool

	// InstructionDir and InstructionExt build instruction target paths:
	// <InstructionDir>/<name><InstructionExt>.
	InstructionDir string
	InstructionExt string
	// MCPConfigPath is the IDE's MCP config file, merged into, never replaced.
	MCPConfigPath string
	HookDir       string
	CommandDir    string
}

// capabilities is the fixed lookup table. New IDEs are added here, never by
// branching on IDE identity in business logic.
var capabilities = map[string]Capability{
	"claude": {
		ID:                   "claude",
		DisplayName:          "Claude Code",
		SupportsInstructions: true,
		SupportsMCP:          true,
		SupportsHooks:        true,
		SupportsCommands:     true,
		SupportsResources:    true,
		InstructionDir:       ".claude/instructions",
		InstructionExt:       ".md",
		MCPConfigPath:        ".mcp.json",
		HookDir:              ".claude/hooks",
		CommandDir:           ".claude/commands",
	},
	"cursor": {
		ID:                   "cursor",
		DisplayName:          "Cursor",
		SupportsInstructions: true,
		SupportsMCP:          true,
		SupportsResources:    true,
		InstructionDir:       ".cursor/rules",
		InstructionExt:       ".mdc",
		MCPConfigPath:        ".cursor/mcp.json",
	},
	"windsurf": {
		ID:                   "windsurf",
		DisplayName:          "Windsurf",
		SupportsInstructions: true,
		SupportsResources:    true,
		InstructionDir:       ".windsurf/rules",
		InstructionExt:       ".md",
	},
	// Copilot only consumes instruction files; everything else is reported
	// as unsupported, including resources.
	"copilot": {
		ID:                   "copilot",
		DisplayName:          "GitHub Copilot",
		SupportsInstructions: true,
		InstructionDir:       ".github/instructions",
		InstructionExt:       ".instructions.md",
	},
}

// Lookup returns the capability entry for an IDE identifier.
func Lookup(id string) (Capability, bool) {
	c, ok := capabilities[id]
	return c, ok
}

// IDs returns all known IDE identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(capabilities))
	for id := range capabilities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
