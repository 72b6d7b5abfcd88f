package registry

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/instructionkit/instructionkit/internal/tracker"
)

// DefaultScanDepth limits how deep Scan descends below the root.
const DefaultScanDepth = 3

// skippedDirs are never descended into during a scan.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"composer":     true,
}

// Scan walks rootDir up to maxDepth levels looking for project trackers and
// rebuilds the registry's project set from what it finds. Unreadable trackers
// are logged and skipped; the scan never fails on a single bad project.
func (r *Registry) Scan(rootDir string, maxDepth int) (found int, err error) {
	if maxDepth <= 0 {
		maxDepth = DefaultScanDepth
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return 0, err
	}

	var projects []ProjectRegistration

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Permission errors and the like: skip, keep scanning.
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		name := d.Name()
		if path != absRoot {
			if strings.HasPrefix(name, ".") || skippedDirs[name] {
				return fs.SkipDir
			}
			if depth(absRoot, path) > maxDepth {
				return fs.SkipDir
			}
		}

		if !tracker.Exists(path) {
			return nil
		}

		t, loadErr := tracker.Load(path)
		if loadErr != nil {
			r.logf("skipping project %s: %v", path, loadErr)
			return fs.SkipDir
		}
		reg := RegistrationFromTracker(path, t)
		reg.RegisteredAt = time.Now().UTC()
		reg.LastUpdated = reg.RegisteredAt
		projects = append(projects, reg)
		// A project root found; no nested projects expected below it.
		return fs.SkipDir
	})
	if walkErr != nil {
		return 0, walkErr
	}

	// Preserve original registration timestamps where known.
	existing := make(map[string]ProjectRegistration, len(r.data.Projects))
	for _, p := range r.data.Projects {
		existing[p.Path] = p
	}
	for i := range projects {
		if prev, ok := existing[projects[i].Path]; ok {
			projects[i].RegisteredAt = prev.RegisteredAt
		}
	}

	r.data.Projects = projects
	r.data.LastScan = time.Now().UTC()
	r.degraded = false
	if err := r.Save(); err != nil {
		return len(projects), err
	}
	return len(projects), nil
}

// RebuildFromTrackers is the last-resort recovery path: it discards the
// current project set and rescans the given roots.
func (r *Registry) RebuildFromTrackers(rootDirs []string, maxDepth int) (int, error) {
	r.data.Projects = nil
	total := 0
	for _, root := range rootDirs {
		n, err := r.scanInto(root, maxDepth)
		if err != nil {
			r.logf("rebuild: scanning %s: %v", root, err)
			continue
		}
		total += n
	}
	r.data.LastScan = time.Now().UTC()
	r.degraded = false
	if err := r.Save(); err != nil {
		return total, err
	}
	return total, nil
}

// scanInto appends found projects without replacing the existing set.
func (r *Registry) scanInto(rootDir string, maxDepth int) (int, error) {
	before := r.data.Projects
	n, err := r.Scan(rootDir, maxDepth)
	if err != nil {
		return 0, err
	}
	merged := before
	for _, p := range r.data.Projects {
		found := false
		for _, prev := range merged {
			if prev.Path == p.Path {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, p)
		}
	}
	r.data.Projects = merged
	return n, r.Save()
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}
