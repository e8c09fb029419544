package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/deepfall-games/savevault/pkg/slot"
)

// Strategy selects how a rotation pass decides what to delete.
type Strategy int

const (
	// CountBased keeps only the newest MaxSavesPerSlot files per slot.
	CountBased Strategy = iota
	// TimeBased deletes files older than MaxAgeDays regardless of slot.
	TimeBased
	// TimeBasedWithCount applies TimeBased, then CountBased to whatever
	// remains.
	TimeBasedWithCount
	// ImportanceBased keeps the MaxTotalSaves highest-scoring files.
	ImportanceBased
)

// String returns the strategy's configuration label.
func (s Strategy) String() string {
	switch s {
	case CountBased:
		return "count"
	case TimeBased:
		return "time"
	case TimeBasedWithCount:
		return "time-count"
	case ImportanceBased:
		return "importance"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses a configuration label into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "count":
		return CountBased, nil
	case "time":
		return TimeBased, nil
	case "time-count", "":
		return TimeBasedWithCount, nil
	case "importance":
		return ImportanceBased, nil
	default:
		return 0, fmt.Errorf("unknown rotation strategy %q", s)
	}
}

// Config holds the rotation configuration.
type Config struct {
	MaxSavesPerSlot      int
	MaxTotalSaves        int
	MaxAgeDays           int
	Strategy             Strategy
	BackupBeforeRotation bool
	CompressOldSaves     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxSavesPerSlot:      5,
		MaxTotalSaves:        50,
		MaxAgeDays:           30,
		Strategy:             TimeBasedWithCount,
		BackupBeforeRotation: true,
		CompressOldSaves:     true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxSavesPerSlot <= 0 {
		return fmt.Errorf("max saves per slot must be positive, got %d", c.MaxSavesPerSlot)
	}
	if c.MaxTotalSaves <= 0 {
		return fmt.Errorf("max total saves must be positive, got %d", c.MaxTotalSaves)
	}
	if c.MaxAgeDays < 0 {
		return fmt.Errorf("max age days must not be negative, got %d", c.MaxAgeDays)
	}
	return nil
}

// Result reports what one rotation pass did.
type Result struct {
	Deleted    []string
	BackedUp   []string
	Compressed int
	SpaceFreed int64
}

func (r *Result) merge(o Result) {
	r.Deleted = append(r.Deleted, o.Deleted...)
	r.BackedUp = append(r.BackedUp, o.BackedUp...)
	r.Compressed += o.Compressed
	r.SpaceFreed += o.SpaceFreed
}

// Statistics is a read-only snapshot of the save directory. It reflects
// whatever the filesystem showed at scan time and is safe to take
// concurrently with a rotation pass.
type Statistics struct {
	TotalFiles    int
	TotalSize     int64
	AutosaveCount int
	ManualCount   int
	OldestAgeDays int
	NewestAgeDays int
	BackupDirSize int64
}

// System runs rotation passes over one save directory.
type System struct {
	cfg       Config
	dir       string
	backupDir string
	logger    zerolog.Logger
}

// Option configures optional System behavior.
type Option func(*System)

// WithLogger sets the system's logger. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *System) {
		s.logger = l
	}
}

// New validates the configuration and creates the save and backup
// directories.
func New(dir string, cfg Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, fmt.Errorf("save directory is required")
	}
	backupDir := filepath.Join(dir, "backups")
	if err := os.MkdirAll(backupDir, 0o700); err != nil {
		return nil, err
	}
	s := &System{cfg: cfg, dir: dir, backupDir: backupDir, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the rotation configuration.
func (s *System) Config() Config {
	return s.cfg
}

// Rotate runs one pass with the configured strategy and records evicted
// files in the backup manifest when backups were taken.
func (s *System) Rotate() (Result, error) {
	files, err := s.scan()
	if err != nil {
		return Result{}, fmt.Errorf("scan save directory: %w", err)
	}

	var result Result
	switch s.cfg.Strategy {
	case CountBased:
		result, err = s.rotateByCount(files)
	case TimeBased:
		result, err = s.rotateByTime(files)
	case TimeBasedWithCount:
		result, err = s.rotateByTime(files)
		if err == nil {
			// Re-scan so the count pass sees only survivors; results merge
			// without double-counting because each file is deleted once.
			var remaining []FileInfo
			remaining, err = s.scan()
			if err == nil {
				var countResult Result
				countResult, err = s.rotateByCount(remaining)
				result.merge(countResult)
			}
		}
	case ImportanceBased:
		result, err = s.rotateByImportance(files)
	default:
		return Result{}, fmt.Errorf("unknown rotation strategy %d", s.cfg.Strategy)
	}
	if err != nil {
		return result, err
	}

	if len(result.BackedUp) > 0 {
		if merr := s.appendManifest(result); merr != nil {
			s.logger.Error().Err(merr).Msg("rotation manifest write failed")
		}
	}

	s.logger.Info().
		Str("strategy", s.cfg.Strategy.String()).
		Int("deleted", len(result.Deleted)).
		Int("backed_up", len(result.BackedUp)).
		Str("freed", slot.FormatBytes(result.SpaceFreed)).
		Msg("rotation completed")
	return result, nil
}

func (s *System) rotateByCount(files []FileInfo) (Result, error) {
	var result Result

	bySlot := make(map[int][]FileInfo)
	for _, f := range files {
		bySlot[f.SlotID] = append(bySlot[f.SlotID], f)
	}

	for _, group := range bySlot {
		sort.Slice(group, func(i, j int) bool {
			return group[i].ModTime.After(group[j].ModTime)
		})
		if len(group) <= s.cfg.MaxSavesPerSlot {
			continue
		}
		for _, f := range group[s.cfg.MaxSavesPerSlot:] {
			if err := s.removeFile(f, "over per-slot count", &result); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (s *System) rotateByTime(files []FileInfo) (Result, error) {
	var result Result
	for _, f := range files {
		if f.AgeDays > s.cfg.MaxAgeDays {
			reason := fmt.Sprintf("age %dd over %dd", f.AgeDays, s.cfg.MaxAgeDays)
			if err := s.removeFile(f, reason, &result); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (s *System) rotateByImportance(files []FileInfo) (Result, error) {
	var result Result
	if len(files) <= s.cfg.MaxTotalSaves {
		return result, nil
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Importance > files[j].Importance
	})
	for _, f := range files[s.cfg.MaxTotalSaves:] {
		reason := fmt.Sprintf("importance %d below cut", f.Importance)
		if err := s.removeFile(f, reason, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// removeFile deletes one save file, copying it into the backup directory
// first when configured. Backup-then-delete is not atomic: a crash in
// between leaves both the original and the backup, which over-preserves
// and is safe.
func (s *System) removeFile(f FileInfo, reason string, result *Result) error {
	backupName := ""
	if s.cfg.BackupBeforeRotation {
		path, compressed, err := s.backupFile(f.Path)
		if err != nil {
			return fmt.Errorf("backup %s: %w", f.Path, err)
		}
		result.BackedUp = append(result.BackedUp, path)
		if compressed {
			result.Compressed++
		}
		backupName = filepath.Base(path)
	}

	if err := os.Remove(f.Path); err != nil {
		return fmt.Errorf("remove %s: %w", f.Path, err)
	}
	result.Deleted = append(result.Deleted, f.Path)
	result.SpaceFreed += f.Size

	s.logger.Debug().
		Str("file", filepath.Base(f.Path)).
		Str("reason", reason).
		Str("backup", backupName).
		Msg("save rotated out")
	return nil
}

// backupFile copies a save into the backup directory. The backup name
// embeds the original filename and a timestamp to avoid collisions. When
// compression of old saves is enabled the copy is gzip-compressed.
func (s *System) backupFile(path string) (string, bool, error) {
	name := fmt.Sprintf("%s_%d.backup", filepath.Base(path), time.Now().Unix())
	dst := filepath.Join(s.backupDir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	compressed := false
	if s.cfg.CompressOldSaves {
		if gz, err := gzipData(data); err == nil && len(gz) < len(data) {
			data = gz
			compressed = true
		}
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return "", false, err
	}
	return dst, compressed, nil
}

// Statistics scans the directory and reports aggregate counts and sizes
// without mutating anything.
func (s *System) Statistics() (Statistics, error) {
	files, err := s.scan()
	if err != nil {
		return Statistics{}, fmt.Errorf("scan save directory: %w", err)
	}

	stats := Statistics{TotalFiles: len(files)}
	for i, f := range files {
		stats.TotalSize += f.Size
		if f.Autosave {
			stats.AutosaveCount++
		} else {
			stats.ManualCount++
		}
		if i == 0 || f.AgeDays > stats.OldestAgeDays {
			stats.OldestAgeDays = f.AgeDays
		}
		if i == 0 || f.AgeDays < stats.NewestAgeDays {
			stats.NewestAgeDays = f.AgeDays
		}
	}

	entries, err := os.ReadDir(s.backupDir)
	if err == nil {
		for _, e := range entries {
			if fi, err := e.Info(); err == nil && !e.IsDir() {
				stats.BackupDirSize += fi.Size()
			}
		}
	}
	return stats, nil
}

// CleanupBackups sweeps only the backup directory, deleting entries older
// than maxAgeDays. It returns the count removed. The rotation manifest is
// kept.
func (s *System) CleanupBackups(maxAgeDays int) (int, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || e.Name() == manifestName {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.backupDir, e.Name())); err != nil {
				return removed, err
			}
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Int("max_age_days", maxAgeDays).Msg("backups cleaned")
	}
	return removed, nil
}
