package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/deepfall-games/savevault/pkg/rotation"
)

// Config holds CLI configuration for savevault.
type Config struct {
	SaveDir        string
	CurrentVersion string

	MaxSlots    int
	BackupCount int
	AutoBackup  bool
	Compression bool

	MaxSavesPerSlot      int
	MaxTotalSaves        int
	MaxAgeDays           int
	Strategy             string
	BackupBeforeRotation bool
	CompressOldSaves     bool

	// BackupMaxAgeDays is the threshold used by the cleanup command.
	BackupMaxAgeDays int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	rc := rotation.DefaultConfig()
	return Config{
		CurrentVersion:       "0.1.0",
		MaxSlots:             10,
		BackupCount:          3,
		AutoBackup:           true,
		Compression:          true,
		MaxSavesPerSlot:      rc.MaxSavesPerSlot,
		MaxTotalSaves:        rc.MaxTotalSaves,
		MaxAgeDays:           rc.MaxAgeDays,
		Strategy:             rc.Strategy.String(),
		BackupBeforeRotation: rc.BackupBeforeRotation,
		CompressOldSaves:     rc.CompressOldSaves,
		BackupMaxAgeDays:     90,
		SaveDir:              os.Getenv("SAVEVAULT_DIR"),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SaveDir == "" {
		return fmt.Errorf("save directory is required (--dir, SAVEVAULT_DIR or config file)")
	}
	if c.MaxSlots <= 0 {
		return fmt.Errorf("max slots must be positive")
	}
	if c.BackupCount < 0 {
		return fmt.Errorf("backup count must not be negative")
	}
	if _, err := rotation.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	return nil
}

// RotationConfig converts the flat CLI fields into a rotation.Config.
func (c *Config) RotationConfig() (rotation.Config, error) {
	strategy, err := rotation.ParseStrategy(c.Strategy)
	if err != nil {
		return rotation.Config{}, err
	}
	return rotation.Config{
		MaxSavesPerSlot:      c.MaxSavesPerSlot,
		MaxTotalSaves:        c.MaxTotalSaves,
		MaxAgeDays:           c.MaxAgeDays,
		Strategy:             strategy,
		BackupBeforeRotation: c.BackupBeforeRotation,
		CompressOldSaves:     c.CompressOldSaves,
	}, nil
}

// Logger returns a console zerolog logger for CLI use.
func Logger() zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't
// been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, flag, err)
	}
	*dst = n
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	if b, err := strconv.ParseBool(value); err == nil {
		*dst = b
	}
}
