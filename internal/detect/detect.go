// Package detect discovers which AI coding assistants a project is set up
// for, by probing for their well-known marker files.
package detect

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/instructionkit/instructionkit/internal/ide"
)

// markers maps an IDE id to the files or directories whose presence in a
// project root indicates that IDE is in use. Any single match counts.
var markers = map[string][]string{
	"claude": {
		".claude",
		"CLAUDE.md",
		".mcp.json",
	},
	"cursor": {
		".cursor",
		".cursorrules",
	},
	"windsurf": {
		".windsurf",
		".windsurfrules",
	},
	"copilot": {
		filepath.Join(".github", "copilot-instructions.md"),
		filepath.Join(".github", "instructions"),
	},
}

// DetectIDEs returns the ids of IDEs configured in the project at projectRoot,
// sorted. Only IDEs with a registered capability profile are reported.
func DetectIDEs(projectRoot string) []string {
	var found []string
	for id, paths := range markers {
		if _, ok := ide.Lookup(id); !ok {
			continue
		}
		for _, marker := range paths {
			if _, err := os.Stat(filepath.Join(projectRoot, marker)); err == nil {
				found = append(found, id)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

// Markers returns the marker paths checked for an IDE id, for diagnostics.
func Markers(id string) []string {
	out := make([]string, len(markers[id]))
	copy(out, markers[id])
	return out
}
