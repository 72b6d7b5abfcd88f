package conflict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MergeJSONFile deep-merges content (a JSON object) into the JSON document at
// path, creating it if absent. Existing keys not present in content are
// preserved, so merging one MCP server never drops its siblings. Returns
// false without touching the file when the merge changes nothing.
func MergeJSONFile(path string, content []byte) (bool, error) {
	var incoming map[string]any
	if err := json.Unmarshal(content, &incoming); err != nil {
		return false, fmt.Errorf("merge source is not a JSON object: %w", err)
	}

	existing := map[string]any{}
	raw, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(raw, &existing); err != nil {
			return false, fmt.Errorf("existing %s is not valid JSON: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return false, err
	}

	merged := deepMerge(existing, incoming)
	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return false, err
	}
	out = append(out, '\n')

	if raw != nil && bytes.Equal(raw, out) {
		return false, nil
	}
	return true, atomicWrite(path, out)
}

// MergeYAMLFile deep-merges content (a YAML mapping) into the YAML document
// at path, creating it if absent. Returns false without touching the file
// when the merge changes nothing.
func MergeYAMLFile(path string, content []byte) (bool, error) {
	var incoming map[string]any
	if err := yaml.Unmarshal(content, &incoming); err != nil {
		return false, fmt.Errorf("merge source is not a YAML mapping: %w", err)
	}

	existing := map[string]any{}
	raw, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(raw, &existing); err != nil {
			return false, fmt.Errorf("existing %s is not valid YAML: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return false, err
	}

	merged := deepMerge(existing, incoming)
	out, err := yaml.Marshal(merged)
	if err != nil {
		return false, err
	}

	if raw != nil && bytes.Equal(raw, out) {
		return false, nil
	}
	return true, atomicWrite(path, out)
}

// AppendFile appends content to path, creating it if absent. A separating
// newline is inserted when the existing file doesn't end with one.
func AppendFile(path string, content []byte) error {
	existing, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		return atomicWrite(path, content)
	}
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		existing = append(existing, '\n')
	}
	return atomicWrite(path, append(existing, content...))
}

// deepMerge merges b into a. Nested maps merge recursively; anything else in
// b wins. a is modified and returned.
func deepMerge(a, b map[string]any) map[string]any {
	for k, bv := range b {
		if am, ok := a[k].(map[string]any); ok {
			if bm, ok := bv.(map[string]any); ok {
				a[k] = deepMerge(am, bm)
				continue
			}
		}
		a[k] = bv
	}
	return a
}
