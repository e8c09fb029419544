package slot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the slot store configuration.
type Config struct {
	// Dir is the save directory. Created if missing.
	Dir string

	// MaxSlots is the number of numbered slots, ids 0..MaxSlots-1.
	MaxSlots int

	// BackupCount bounds the per-slot backup chain.
	BackupCount int

	// AutoBackup copies the current file into the backup chain before each
	// overwrite.
	AutoBackup bool

	// Compression gzip-compresses payloads before storing them.
	Compression bool
}

// DefaultConfig returns a Config with default values for the given save
// directory.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		MaxSlots:    10,
		BackupCount: 3,
		AutoBackup:  true,
		Compression: true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("save directory is required")
	}
	if c.MaxSlots <= 0 {
		return fmt.Errorf("max slots must be positive, got %d", c.MaxSlots)
	}
	if c.BackupCount < 0 {
		return fmt.Errorf("backup count must not be negative, got %d", c.BackupCount)
	}
	return nil
}

// Slot is the computed state of one numbered slot. It is derived by
// probing the filesystem, never stored.
type Slot struct {
	ID              int
	Metadata        Metadata
	Path            string
	Occupied        bool
	Corrupted       bool
	BackupAvailable bool
}

// Info summarizes the save directory.
type Info struct {
	Dir         string
	MaxSlots    int
	BackupCount int
	TotalSize   int64
	FileCount   int
	Compression bool
	AutoBackup  bool
}

// FormattedSize renders TotalSize in human units.
func (i Info) FormattedSize() string {
	return FormatBytes(i.TotalSize)
}

// Store owns the numbered save slots in one directory.
//
// Save publishes through an atomic rename, so concurrent readers of the
// same slot are safe; concurrent writers to the same slot are the
// caller's responsibility.
type Store struct {
	cfg    Config
	logger zerolog.Logger
}

// Option configures optional Store behavior.
type Option func(*Store)

// WithLogger sets the store's logger. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore validates the configuration, creates the save directory and
// returns a Store.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, classifyIO(err)
	}
	s := &Store{cfg: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the store configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Save writes a payload and its metadata into a slot. If the slot already
// holds a save and auto-backup is enabled, the old file is rotated into
// the backup chain first. The new file is written to a temporary path and
// atomically renamed into place, and a JSON sidecar is refreshed for fast
// enumeration.
func (s *Store) Save(slotID int, payload []byte, meta Metadata) error {
	if err := s.checkSlot(slotID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.LastSaved = now
	if meta.LastSaved.Before(meta.CreatedAt) {
		meta.CreatedAt = meta.LastSaved
	}

	path := s.savePath(slotID)
	if s.cfg.AutoBackup && pathExists(path) {
		if err := s.CreateBackup(slotID); err != nil {
			return fmt.Errorf("backup slot %d: %w", slotID, err)
		}
	}

	file, err := newFile(meta, payload, s.cfg.Compression)
	if err != nil {
		return err
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode save file: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return classifyIO(err)
	}

	if err := s.writeSidecar(slotID, meta); err != nil {
		return err
	}

	s.logger.Debug().
		Int("slot", slotID).
		Int("bytes", len(data)).
		Bool("compressed", s.cfg.Compression).
		Str("checksum", file.Checksum).
		Msg("slot saved")
	return nil
}

// Load reads and verifies the save in a slot. On checksum mismatch it
// falls back through the backup chain, newest first, and returns the
// first copy that verifies. ErrSlotNotFound is returned for empty slots,
// ErrCorruptedSave when nothing verifies.
func (s *Store) Load(slotID int) (*File, error) {
	if err := s.checkSlot(slotID); err != nil {
		return nil, err
	}

	file, err := readSaveFile(s.savePath(slotID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("slot %d: %w", slotID, ErrSlotNotFound)
	}
	if err == nil && file.Verify() {
		return file, nil
	}
	if err != nil {
		s.logger.Warn().Int("slot", slotID).Err(err).Msg("save unreadable, trying backups")
	} else {
		s.logger.Warn().Int("slot", slotID).Msg("checksum mismatch, trying backups")
	}

	backup, berr := s.LoadFromBackup(slotID)
	if berr != nil {
		return nil, fmt.Errorf("slot %d: %w", slotID, ErrCorruptedSave)
	}
	return backup, nil
}

// Slots enumerates all slots, probing occupancy, corruption and backup
// availability. Individual slot failures are reported as data on the
// Slot, never as an error, so a save browser can always render the list.
func (s *Store) Slots() []Slot {
	slots := make([]Slot, 0, s.cfg.MaxSlots)
	for id := 0; id < s.cfg.MaxSlots; id++ {
		path := s.savePath(id)
		sl := Slot{
			ID:              id,
			Path:            path,
			Occupied:        pathExists(path),
			BackupAvailable: pathExists(s.backupPath(id, 0)),
		}
		if sl.Occupied {
			file, err := readSaveFile(path)
			switch {
			case err == nil && file.Verify():
				sl.Metadata = file.Metadata
			default:
				// Canonical file is bad; a verifying backup still counts as
				// recoverable.
				if backup, berr := s.LoadFromBackup(id); berr == nil {
					sl.Metadata = backup.Metadata
				} else {
					sl.Corrupted = true
					if meta, merr := s.readSidecar(id); merr == nil {
						sl.Metadata = meta
					}
				}
			}
		}
		slots = append(slots, sl)
	}
	return slots
}

// Delete removes a slot's save, its backup chain and its sidecar.
// Deleting an empty slot is a no-op success.
func (s *Store) Delete(slotID int) error {
	if err := s.checkSlot(slotID); err != nil {
		return err
	}

	if err := removeIfExists(s.savePath(slotID)); err != nil {
		return classifyIO(err)
	}
	for k := 0; k < s.cfg.BackupCount; k++ {
		// Backup removal is best effort; the canonical file is already gone.
		_ = removeIfExists(s.backupPath(slotID, k))
	}
	_ = removeIfExists(s.metaPath(slotID))

	s.logger.Debug().Int("slot", slotID).Msg("slot deleted")
	return nil
}

// CreateBackup rotates the slot's backup chain down by one position and
// copies the current file into position 0. A slot without a current file
// is a no-op. Usable outside the save path, e.g. before a risky game
// operation.
func (s *Store) CreateBackup(slotID int) error {
	if err := s.checkSlot(slotID); err != nil {
		return err
	}
	src := s.savePath(slotID)
	if !pathExists(src) || s.cfg.BackupCount == 0 {
		return nil
	}

	for k := s.cfg.BackupCount - 1; k >= 1; k-- {
		from := s.backupPath(slotID, k-1)
		if pathExists(from) {
			// The oldest position falls off the end of the chain.
			_ = os.Rename(from, s.backupPath(slotID, k))
		}
	}
	if err := copyFile(src, s.backupPath(slotID, 0)); err != nil {
		return classifyIO(err)
	}
	return nil
}

// LoadFromBackup returns the newest backup in the slot's chain that
// passes checksum verification.
func (s *Store) LoadFromBackup(slotID int) (*File, error) {
	if err := s.checkSlot(slotID); err != nil {
		return nil, err
	}
	for k := 0; k < s.cfg.BackupCount; k++ {
		file, err := readSaveFile(s.backupPath(slotID, k))
		if err != nil {
			continue
		}
		if file.Verify() {
			s.logger.Info().Int("slot", slotID).Int("backup", k).Msg("restored from backup")
			return file, nil
		}
	}
	return nil, fmt.Errorf("slot %d: no valid backup: %w", slotID, ErrCorruptedSave)
}

// Info reports directory totals and echoes the configuration.
func (s *Store) Info() (Info, error) {
	info := Info{
		Dir:         s.cfg.Dir,
		MaxSlots:    s.cfg.MaxSlots,
		BackupCount: s.cfg.BackupCount,
		Compression: s.cfg.Compression,
		AutoBackup:  s.cfg.AutoBackup,
	}
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return Info{}, classifyIO(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		info.TotalSize += fi.Size()
		info.FileCount++
	}
	return info, nil
}

// CleanupTemp removes stray temporary files left behind by interrupted
// writes and returns the count removed.
func (s *Store) CleanupTemp() (int, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return 0, classifyIO(err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".tmp" {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.Dir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("temp files cleaned")
	}
	return removed, nil
}

func (s *Store) checkSlot(slotID int) error {
	if slotID < 0 || slotID >= s.cfg.MaxSlots {
		return fmt.Errorf("slot %d: %w", slotID, ErrSlotNotFound)
	}
	return nil
}

// Slot filenames are zero-padded so lexicographic order matches numeric
// order.

func (s *Store) savePath(slotID int) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("save_%03d.dat", slotID))
}

func (s *Store) backupPath(slotID, index int) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("save_%03d.bak%d", slotID, index))
}

func (s *Store) metaPath(slotID int) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("save_%03d.meta", slotID))
}

func (s *Store) writeSidecar(slotID int, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := writeFileAtomic(s.metaPath(slotID), data); err != nil {
		return classifyIO(err)
	}
	return nil
}

func (s *Store) readSidecar(slotID int) (Metadata, error) {
	data, err := os.ReadFile(s.metaPath(slotID))
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("decode sidecar: %w", err)
	}
	return meta, nil
}

func readSaveFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSaveFile, err)
	}
	return &file, nil
}

// writeFileAtomic writes to path+".tmp" and renames into place. The
// rename is the sole publication point, so the final name never holds a
// partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// FormatBytes renders a byte count in human units.
func FormatBytes(b int64) string {
	const (
		_          = iota
		kb float64 = 1 << (10 * iota)
		mb
		gb
	)
	fb := float64(b)
	switch {
	case fb >= gb:
		return fmt.Sprintf("%.2fGiB", fb/gb)
	case fb >= mb:
		return fmt.Sprintf("%.2fMiB", fb/mb)
	case fb >= kb:
		return fmt.Sprintf("%.2fKiB", fb/kb)
	default:
		return fmt.Sprintf("%dB", b)
	}
}
