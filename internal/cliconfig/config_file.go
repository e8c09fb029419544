package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config with TOML tags. Bools are pointers so an
// absent key is distinguishable from an explicit false.
type fileConfig struct {
	SaveDir        string `toml:"save_dir"`
	CurrentVersion string `toml:"current_version"`

	MaxSlots    int   `toml:"max_slots"`
	BackupCount int   `toml:"backup_count"`
	AutoBackup  *bool `toml:"auto_backup"`
	Compression *bool `toml:"compression"`

	MaxSavesPerSlot      int    `toml:"max_saves_per_slot"`
	MaxTotalSaves        int    `toml:"max_total_saves"`
	MaxAgeDays           int    `toml:"max_age_days"`
	Strategy             string `toml:"rotation_strategy"`
	BackupBeforeRotation *bool  `toml:"backup_before_rotation"`
	CompressOldSaves     *bool  `toml:"compress_old_saves"`

	BackupMaxAgeDays int `toml:"backup_max_age_days"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.savevault/config.toml if the user home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".savevault", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config,
// respecting flags that have been explicitly set.
func ApplyFileConfig(cfg *Config, fc fileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("dir", fc.SaveDir, &cfg.SaveDir)
	s.setString("game-version", fc.CurrentVersion, &cfg.CurrentVersion)
	s.setString("strategy", fc.Strategy, &cfg.Strategy)

	s.setInt("max-slots", fc.MaxSlots, &cfg.MaxSlots)
	s.setInt("backup-count", fc.BackupCount, &cfg.BackupCount)
	s.setInt("max-saves-per-slot", fc.MaxSavesPerSlot, &cfg.MaxSavesPerSlot)
	s.setInt("max-total-saves", fc.MaxTotalSaves, &cfg.MaxTotalSaves)
	s.setInt("max-age-days", fc.MaxAgeDays, &cfg.MaxAgeDays)
	s.setInt("backup-max-age-days", fc.BackupMaxAgeDays, &cfg.BackupMaxAgeDays)

	s.setBool("auto-backup", fc.AutoBackup, &cfg.AutoBackup)
	s.setBool("compression", fc.Compression, &cfg.Compression)
	s.setBool("backup-before-rotation", fc.BackupBeforeRotation, &cfg.BackupBeforeRotation)
	s.setBool("compress-old-saves", fc.CompressOldSaves, &cfg.CompressOldSaves)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
