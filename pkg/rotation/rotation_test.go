package rotation

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/deepfall-games/savevault/pkg/slot"
)

func newTestSystem(t *testing.T, mutate func(*Config)) (*System, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sys, err := New(dir, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sys, dir
}

// writeSave drops a fake save file with the given age. Content repeats so
// gzip backups come out smaller than the original.
func writeSave(t *testing.T, dir, name string, ageDays int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte("save data "), 200), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	mtime := time.Now().Add(-time.Duration(ageDays)*24*time.Hour - time.Hour)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func writeSidecar(t *testing.T, dir, saveName string, meta slot.Metadata) {
	t.Helper()
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal sidecar: %v", err)
	}
	metaName := saveName[:len(saveName)-len(".dat")] + ".meta"
	if err := os.WriteFile(filepath.Join(dir, metaName), data, 0o600); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
}

func survivors(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	out := map[string]bool{}
	for _, e := range entries {
		if !e.IsDir() && isSaveFile(e.Name()) {
			out[e.Name()] = true
		}
	}
	return out
}

func TestRotateByCount(t *testing.T) {
	sys, dir := newTestSystem(t, func(c *Config) {
		c.Strategy = CountBased
		c.MaxSavesPerSlot = 2
		c.BackupBeforeRotation = false
	})

	// Slot 1 has three files of increasing age, slot 2 has one.
	writeSave(t, dir, "save_001.dat", 0)
	writeSave(t, dir, "autosave_001.dat", 5)
	writeSave(t, dir, "quicksave_001.dat", 10)
	writeSave(t, dir, "save_002.dat", 20)

	result, err := sys.Rotate()
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(result.Deleted) != 1 {
		t.Fatalf("deleted %v, want exactly the oldest slot-1 file", result.Deleted)
	}

	left := survivors(t, dir)
	if left["quicksave_001.dat"] {
		t.Error("oldest slot-1 file survived")
	}
	for _, want := range []string{"save_001.dat", "autosave_001.dat", "save_002.dat"} {
		if !left[want] {
			t.Errorf("%s was deleted", want)
		}
	}
	if result.SpaceFreed <= 0 {
		t.Errorf("SpaceFreed = %d, want > 0", result.SpaceFreed)
	}
}

func TestRotateByTime(t *testing.T) {
	sys, dir := newTestSystem(t, func(c *Config) {
		c.Strategy = TimeBased
		c.MaxAgeDays = 7
		c.BackupBeforeRotation = false
	})

	writeSave(t, dir, "save_001.dat", 0)
	writeSave(t, dir, "save_002.dat", 3)
	writeSave(t, dir, "save_003.dat", 10)
	writeSave(t, dir, "save_004.dat", 30)

	result, err := sys.Rotate()
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(result.Deleted) != 2 {
		t.Fatalf("deleted %v, want the two over-age files", result.Deleted)
	}

	left := survivors(t, dir)
	if !left["save_001.dat"] || !left["save_002.dat"] {
		t.Error("in-age files were deleted")
	}
	if left["save_003.dat"] || left["save_004.dat"] {
		t.Error("over-age files survived")
	}
}

func TestRotateTimeWithCount(t *testing.T) {
	sys, dir := newTestSystem(t, func(c *Config) {
		c.Strategy = TimeBasedWithCount
		c.MaxAgeDays = 7
		c.MaxSavesPerSlot = 1
		c.BackupBeforeRotation = false
	})

	// Slot 1: one over-age file and two fresh ones. The time pass takes the
	// old file, the count pass trims the fresh pair to one.
	writeSave(t, dir, "save_001.dat", 0)
	writeSave(t, dir, "autosave_001.dat", 2)
	writeSave(t, dir, "quicksave_001.dat", 15)

	result, err := sys.Rotate()
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(result.Deleted) != 2 {
		t.Fatalf("deleted %v, want two files across both passes", result.Deleted)
	}

	left := survivors(t, dir)
	if !left["save_001.dat"] {
		t.Error("newest file did not survive")
	}
	if len(left) != 1 {
		t.Errorf("survivors = %v, want only the newest", left)
	}
}

func TestRotateByImportance(t *testing.T) {
	sys, dir := newTestSystem(t, func(c *Config) {
		c.Strategy = ImportanceBased
		c.MaxTotalSaves = 1
		c.BackupBeforeRotation = false
	})

	// A fresh manual save with progress against a stale autosave.
	writeSave(t, dir, "save_001.dat", 0)
	writeSidecar(t, dir, "save_001.dat", slot.Metadata{Level: 8, PlaytimeSeconds: 4 * 3600})
	writeSave(t, dir, "autosave_002.dat", 40)

	result, err := sys.Rotate()
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(result.Deleted) != 1 {
		t.Fatalf("deleted %v, want one file", result.Deleted)
	}

	left := survivors(t, dir)
	if !left["save_001.dat"] {
		t.Error("high-importance manual save was deleted")
	}
	if left["autosave_002.dat"] {
		t.Error("stale autosave survived a total cap of 1")
	}
}

func TestRotateUnderCapIsNoop(t *testing.T) {
	sys, dir := newTestSystem(t, func(c *Config) {
		c.Strategy = ImportanceBased
		c.MaxTotalSaves = 10
	})
	writeSave(t, dir, "save_001.dat", 0)

	result, err := sys.Rotate()
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(result.Deleted) != 0 || len(result.BackedUp) != 0 {
		t.Errorf("under-cap rotation did work: %+v", result)
	}
}

func TestBackupBeforeRotationAndManifest(t *testing.T) {
	sys, dir := newTestSystem(t, func(c *Config) {
		c.Strategy = TimeBased
		c.MaxAgeDays = 7
		c.BackupBeforeRotation = true
		c.CompressOldSaves = true
	})

	writeSave(t, dir, "save_001.dat", 20)

	result, err := sys.Rotate()
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(result.BackedUp) != 1 || len(result.Deleted) != 1 {
		t.Fatalf("result = %+v, want one backed-up deletion", result)
	}
	if result.Compressed != 1 {
		t.Errorf("Compressed = %d, want 1 for a compressible payload", result.Compressed)
	}

	backup := result.BackedUp[0]
	if filepath.Dir(backup) != sys.backupDir {
		t.Errorf("backup %s not in backup directory", backup)
	}
	fi, err := os.Stat(backup)
	if err != nil {
		t.Fatalf("stat backup: %v", err)
	}
	if fi.Size() == 0 {
		t.Error("backup is empty")
	}

	data, err := os.ReadFile(filepath.Join(sys.backupDir, manifestName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if len(m.Entries) != 1 {
		t.Fatalf("manifest entries = %d, want 1", len(m.Entries))
	}
	e := m.Entries[0]
	if e.Original != "save_001.dat" {
		t.Errorf("manifest original = %q", e.Original)
	}
	if e.Backup != filepath.Base(backup) {
		t.Errorf("manifest backup = %q, want %q", e.Backup, filepath.Base(backup))
	}
	if e.Strategy != "time" {
		t.Errorf("manifest strategy = %q, want time", e.Strategy)
	}

	// A second pass appends rather than overwrites.
	writeSave(t, dir, "save_002.dat", 20)
	if _, err := sys.Rotate(); err != nil {
		t.Fatalf("second Rotate: %v", err)
	}
	data, err = os.ReadFile(filepath.Join(sys.backupDir, manifestName))
	if err != nil {
		t.Fatalf("reread manifest: %v", err)
	}
	m = manifest{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("reparse manifest: %v", err)
	}
	if len(m.Entries) != 2 {
		t.Errorf("manifest entries after second pass = %d, want 2", len(m.Entries))
	}
}

func TestStatistics(t *testing.T) {
	sys, dir := newTestSystem(t, nil)

	writeSave(t, dir, "save_001.dat", 2)
	writeSave(t, dir, "autosave_001.dat", 10)
	writeSave(t, dir, "save_002.dat", 0)

	stats, err := sys.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, want 3", stats.TotalFiles)
	}
	if stats.ManualCount != 2 || stats.AutosaveCount != 1 {
		t.Errorf("counts = %d manual / %d autosave, want 2/1", stats.ManualCount, stats.AutosaveCount)
	}
	if stats.TotalSize <= 0 {
		t.Errorf("TotalSize = %d, want > 0", stats.TotalSize)
	}
	if stats.OldestAgeDays < 10 {
		t.Errorf("OldestAgeDays = %d, want >= 10", stats.OldestAgeDays)
	}
	if stats.NewestAgeDays != 0 {
		t.Errorf("NewestAgeDays = %d, want 0", stats.NewestAgeDays)
	}
}

func TestCleanupBackupsKeepsManifest(t *testing.T) {
	sys, _ := newTestSystem(t, nil)

	old := filepath.Join(sys.backupDir, "save_001.dat_1700000000.backup")
	if err := os.WriteFile(old, []byte("old backup"), 0o600); err != nil {
		t.Fatalf("write backup: %v", err)
	}
	stale := time.Now().Add(-100 * 24 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	fresh := filepath.Join(sys.backupDir, "save_002.dat_1800000000.backup")
	if err := os.WriteFile(fresh, []byte("fresh backup"), 0o600); err != nil {
		t.Fatalf("write backup: %v", err)
	}

	mpath := filepath.Join(sys.backupDir, manifestName)
	if err := os.WriteFile(mpath, []byte("updated_at: 2020-01-01T00:00:00Z\n"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := os.Chtimes(mpath, stale, stale); err != nil {
		t.Fatalf("chtimes manifest: %v", err)
	}

	removed, err := sys.CleanupBackups(90)
	if err != nil {
		t.Fatalf("CleanupBackups: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("stale backup survived")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh backup was removed")
	}
	if _, err := os.Stat(mpath); err != nil {
		t.Error("manifest was removed despite being old")
	}
}

func TestParseStrategyRoundTrip(t *testing.T) {
	for _, s := range []Strategy{CountBased, TimeBased, TimeBasedWithCount, ImportanceBased} {
		got, err := ParseStrategy(s.String())
		if err != nil {
			t.Fatalf("ParseStrategy(%s): %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStrategy(%s) = %s", s, got)
		}
	}
	if got, err := ParseStrategy(""); err != nil || got != TimeBasedWithCount {
		t.Errorf("ParseStrategy(\"\") = %v, %v, want time-count default", got, err)
	}
	if _, err := ParseStrategy("bogus"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg.MaxSavesPerSlot = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max saves per slot")
	}
	cfg = DefaultConfig()
	cfg.MaxTotalSaves = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative max total saves")
	}
	cfg = DefaultConfig()
	cfg.MaxAgeDays = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative max age days")
	}
}
