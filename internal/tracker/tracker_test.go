package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleRecord(name string) PackageInstallationRecord {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return PackageInstallationRecord{
		PackageName: name,
		Namespace:   "acme/platform",
		Version:     "1.0.0",
		InstalledAt: now,
		UpdatedAt:   now,
		Status:      StatusComplete,
		Components: []InstalledComponent{
			{
				Type:          "instruction",
				Name:          "standards",
				IDE:           "claude",
				InstalledPath: ".claude/instructions/standards.md",
				Checksum:      "sha256:abc",
				Status:        ComponentInstalled,
			},
		},
	}
}

func TestLoadEmptyProject(t *testing.T) {
	dir := t.TempDir()

	tr, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := tr.GetInstalled(); len(got) != 0 {
		t.Errorf("GetInstalled() = %v, want empty", got)
	}
}

func TestRecordAndReload(t *testing.T) {
	dir := t.TempDir()

	tr, _ := Load(dir)
	if err := tr.RecordInstallation(sampleRecord("go-standards")); err != nil {
		t.Fatalf("RecordInstallation() error: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	recs := reloaded.GetInstalled()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.PackageName != "go-standards" || rec.Version != "1.0.0" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Components) != 1 || rec.Components[0].Status != ComponentInstalled {
		t.Errorf("components = %+v", rec.Components)
	}
}

func TestRecordInstallationUpserts(t *testing.T) {
	dir := t.TempDir()
	tr, _ := Load(dir)

	tr.RecordInstallation(sampleRecord("pkg"))
	updated := sampleRecord("pkg")
	updated.Version = "2.0.0"
	tr.RecordInstallation(updated)

	recs := tr.GetInstalled()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 after upsert", len(recs))
	}
	if recs[0].Version != "2.0.0" {
		t.Errorf("version = %q, want 2.0.0", recs[0].Version)
	}
}

func TestUpdateVersion(t *testing.T) {
	dir := t.TempDir()
	tr, _ := Load(dir)
	tr.RecordInstallation(sampleRecord("pkg"))

	if err := tr.UpdateVersion("pkg", "1.1.0"); err != nil {
		t.Fatalf("UpdateVersion() error: %v", err)
	}

	rec, ok := tr.Get("pkg")
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Version != "1.1.0" {
		t.Errorf("version = %q, want 1.1.0", rec.Version)
	}
	if !rec.UpdatedAt.After(rec.InstalledAt) {
		t.Error("UpdatedAt not bumped")
	}

	if err := tr.UpdateVersion("ghost", "1.0.0"); err == nil {
		t.Error("UpdateVersion() should error for unknown package")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	tr, _ := Load(dir)
	tr.RecordInstallation(sampleRecord("a"))
	tr.RecordInstallation(sampleRecord("b"))

	if err := tr.Remove("a"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	recs := tr.GetInstalled()
	if len(recs) != 1 || recs[0].PackageName != "b" {
		t.Errorf("records after remove = %+v", recs)
	}

	if err := tr.Remove("a"); err == nil {
		t.Error("Remove() should error for unknown package")
	}
}

func TestLoadCorruptTracker(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, ProjectDir), 0755)
	os.WriteFile(Path(dir), []byte("{truncated"), 0644)

	if _, err := Load(dir); err == nil {
		t.Error("Load() should error for corrupt ledger")
	}
}

func TestSaveIsVersionedAndAtomic(t *testing.T) {
	dir := t.TempDir()
	tr, _ := Load(dir)
	tr.RecordInstallation(sampleRecord("pkg"))

	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatalf("ledger missing: %v", err)
	}
	if !strings.Contains(string(data), `"version": 1`) {
		t.Errorf("ledger missing version field:\n%s", data)
	}
	if _, err := os.Stat(Path(dir) + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
