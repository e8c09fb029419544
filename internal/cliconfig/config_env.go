package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (SAVEVAULT_*). It respects flags that have been explicitly set.
// Returns an error if a numeric variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("dir", os.Getenv("SAVEVAULT_DIR"), &cfg.SaveDir)
	s.setString("game-version", os.Getenv("SAVEVAULT_GAME_VERSION"), &cfg.CurrentVersion)
	s.setString("strategy", os.Getenv("SAVEVAULT_ROTATION_STRATEGY"), &cfg.Strategy)

	if err := s.setIntFromString("max-slots", os.Getenv("SAVEVAULT_MAX_SLOTS"), &cfg.MaxSlots); err != nil {
		return err
	}
	if err := s.setIntFromString("backup-count", os.Getenv("SAVEVAULT_BACKUP_COUNT"), &cfg.BackupCount); err != nil {
		return err
	}
	if err := s.setIntFromString("max-saves-per-slot", os.Getenv("SAVEVAULT_MAX_SAVES_PER_SLOT"), &cfg.MaxSavesPerSlot); err != nil {
		return err
	}
	if err := s.setIntFromString("max-total-saves", os.Getenv("SAVEVAULT_MAX_TOTAL_SAVES"), &cfg.MaxTotalSaves); err != nil {
		return err
	}
	if err := s.setIntFromString("max-age-days", os.Getenv("SAVEVAULT_MAX_AGE_DAYS"), &cfg.MaxAgeDays); err != nil {
		return err
	}
	if err := s.setIntFromString("backup-max-age-days", os.Getenv("SAVEVAULT_BACKUP_MAX_AGE_DAYS"), &cfg.BackupMaxAgeDays); err != nil {
		return err
	}

	s.setBoolFromString("auto-backup", os.Getenv("SAVEVAULT_AUTO_BACKUP"), &cfg.AutoBackup)
	s.setBoolFromString("compression", os.Getenv("SAVEVAULT_COMPRESSION"), &cfg.Compression)
	s.setBoolFromString("backup-before-rotation", os.Getenv("SAVEVAULT_BACKUP_BEFORE_ROTATION"), &cfg.BackupBeforeRotation)
	s.setBoolFromString("compress-old-saves", os.Getenv("SAVEVAULT_COMPRESS_OLD_SAVES"), &cfg.CompressOldSaves)

	return nil
}
