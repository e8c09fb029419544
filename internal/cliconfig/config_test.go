package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deepfall-games/savevault/pkg/rotation"
)

func TestValidateRequiresDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SaveDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing save directory")
	}
	cfg.SaveDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	cfg.Strategy = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestRotationConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = "importance"
	cfg.MaxTotalSaves = 7

	rc, err := cfg.RotationConfig()
	if err != nil {
		t.Fatalf("RotationConfig: %v", err)
	}
	if rc.Strategy != rotation.ImportanceBased {
		t.Errorf("strategy = %s, want importance", rc.Strategy)
	}
	if rc.MaxTotalSaves != 7 {
		t.Errorf("MaxTotalSaves = %d, want 7", rc.MaxTotalSaves)
	}
}

func TestLoadFileConfigAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
save_dir = "/tmp/game-saves"
current_version = "0.4.0"
max_slots = 20
rotation_strategy = "count"
auto_backup = false
compress_old_saves = false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}

	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc, map[string]bool{})

	if cfg.SaveDir != "/tmp/game-saves" {
		t.Errorf("SaveDir = %q", cfg.SaveDir)
	}
	if cfg.CurrentVersion != "0.4.0" {
		t.Errorf("CurrentVersion = %q", cfg.CurrentVersion)
	}
	if cfg.MaxSlots != 20 {
		t.Errorf("MaxSlots = %d", cfg.MaxSlots)
	}
	if cfg.Strategy != "count" {
		t.Errorf("Strategy = %q", cfg.Strategy)
	}
	if cfg.AutoBackup {
		t.Error("explicit auto_backup = false was not applied")
	}
	if cfg.CompressOldSaves {
		t.Error("explicit compress_old_saves = false was not applied")
	}
	// Keys absent from the file keep their defaults.
	if cfg.BackupCount != 3 || !cfg.BackupBeforeRotation {
		t.Errorf("absent keys changed defaults: %+v", cfg)
	}
}

func TestApplyFileConfigRespectsFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SaveDir = "/from/flag"
	cfg.MaxSlots = 5

	off := false
	fc := fileConfig{
		SaveDir:    "/from/file",
		MaxSlots:   20,
		AutoBackup: &off,
	}
	ApplyFileConfig(&cfg, fc, map[string]bool{"dir": true, "max-slots": true})

	if cfg.SaveDir != "/from/flag" {
		t.Errorf("SaveDir = %q, flag value should win", cfg.SaveDir)
	}
	if cfg.MaxSlots != 5 {
		t.Errorf("MaxSlots = %d, flag value should win", cfg.MaxSlots)
	}
	if cfg.AutoBackup {
		t.Error("unflagged auto_backup should come from the file")
	}
}

func TestLoadFileConfigRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("max_slots = [broken"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("SAVEVAULT_DIR", "/from/env")
	t.Setenv("SAVEVAULT_GAME_VERSION", "0.9.0")
	t.Setenv("SAVEVAULT_MAX_SLOTS", "15")
	t.Setenv("SAVEVAULT_ROTATION_STRATEGY", "time")
	t.Setenv("SAVEVAULT_COMPRESSION", "false")

	cfg := DefaultConfig()
	cfg.SaveDir = ""
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}

	if cfg.SaveDir != "/from/env" {
		t.Errorf("SaveDir = %q", cfg.SaveDir)
	}
	if cfg.CurrentVersion != "0.9.0" {
		t.Errorf("CurrentVersion = %q", cfg.CurrentVersion)
	}
	if cfg.MaxSlots != 15 {
		t.Errorf("MaxSlots = %d", cfg.MaxSlots)
	}
	if cfg.Strategy != "time" {
		t.Errorf("Strategy = %q", cfg.Strategy)
	}
	if cfg.Compression {
		t.Error("SAVEVAULT_COMPRESSION=false was not applied")
	}
}

func TestApplyEnvConfigRespectsFlags(t *testing.T) {
	t.Setenv("SAVEVAULT_DIR", "/from/env")
	t.Setenv("SAVEVAULT_MAX_SLOTS", "15")

	cfg := DefaultConfig()
	cfg.SaveDir = "/from/flag"
	cfg.MaxSlots = 5
	if err := ApplyEnvConfig(&cfg, map[string]bool{"dir": true, "max-slots": true}); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}

	if cfg.SaveDir != "/from/flag" || cfg.MaxSlots != 5 {
		t.Errorf("flag values lost: dir %q slots %d", cfg.SaveDir, cfg.MaxSlots)
	}
}

func TestApplyEnvConfigRejectsBadNumber(t *testing.T) {
	t.Setenv("SAVEVAULT_MAX_SLOTS", "many")
	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err == nil {
		t.Error("expected error for non-numeric SAVEVAULT_MAX_SLOTS")
	}
}
