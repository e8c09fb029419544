// Package savevault is a durable save engine for games: numbered save
// slots with atomic, checksum-verified writes and backup fallback,
// retention rotation over the accumulated save files, and schema
// migration for saves written by older builds.
//
// Example usage:
//
//	cfg := savevault.DefaultConfig("/path/to/saves")
//	cfg.CurrentVersion = "0.2.0"
//	engine, err := savevault.New(cfg,
//	    savevault.WithMigrations(version.Migration{
//	        From:  version.New(0, 1, 0),
//	        To:    version.New(0, 2, 0),
//	        Apply: migrateToV020,
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = engine.Save(0, payload, slot.NewMetadata("Camp", "Aster"))
//	data, meta, err := engine.Load(0) // migrated to 0.2.0 if needed
package savevault

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deepfall-games/savevault/pkg/rotation"
	"github.com/deepfall-games/savevault/pkg/save"
	"github.com/deepfall-games/savevault/pkg/slot"
	"github.com/deepfall-games/savevault/pkg/version"
)

// Config holds the engine configuration. Use DefaultConfig() for
// sensible defaults.
type Config struct {
	// Dir is the save directory.
	Dir string

	// CurrentVersion is the running schema version, e.g. "0.2.0".
	CurrentVersion string

	// MaxSlots, BackupCount, AutoBackup and Compression configure the slot
	// store; see the slot package.
	MaxSlots    int
	BackupCount int
	AutoBackup  bool
	Compression bool

	// Rotation configures retention; see the rotation package.
	Rotation rotation.Config
}

// DefaultConfig returns a Config with default values for the given save
// directory.
func DefaultConfig(dir string) Config {
	sc := slot.DefaultConfig(dir)
	return Config{
		Dir:            dir,
		CurrentVersion: "0.1.0",
		MaxSlots:       sc.MaxSlots,
		BackupCount:    sc.BackupCount,
		AutoBackup:     sc.AutoBackup,
		Compression:    sc.Compression,
		Rotation:       rotation.DefaultConfig(),
	}
}

func (c *Config) slotConfig() slot.Config {
	return slot.Config{
		Dir:         c.Dir,
		MaxSlots:    c.MaxSlots,
		BackupCount: c.BackupCount,
		AutoBackup:  c.AutoBackup,
		Compression: c.Compression,
	}
}

// Engine composes the slot store, the rotation system and the version
// manager behind one surface. Load returns payloads already migrated to
// the running version.
type Engine struct {
	current  version.SaveVersion
	store    *slot.Store
	versions *version.Manager
	rotation *rotation.System
	logger   zerolog.Logger
}

type options struct {
	logger     zerolog.Logger
	migrations []version.Migration
	rules      []compatRule
}

type compatRule struct {
	v version.SaveVersion
	c version.Compatibility
}

// Option configures optional Engine behavior.
type Option func(*options)

// WithLogger sets the logger used by all engine components. Defaults to
// a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMigrations registers migration edges at construction. Invalid
// edges fail New rather than a later load.
func WithMigrations(migs ...version.Migration) Option {
	return func(o *options) {
		o.migrations = append(o.migrations, migs...)
	}
}

// WithCompatibilityRule overrides the computed compatibility for one
// save version.
func WithCompatibilityRule(v version.SaveVersion, c version.Compatibility) Option {
	return func(o *options) {
		o.rules = append(o.rules, compatRule{v: v, c: c})
	}
}

// New validates the configuration and builds an Engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	current, err := version.Parse(cfg.CurrentVersion)
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}

	mgr := version.NewManager(current, version.WithLogger(o.logger))
	for _, mig := range o.migrations {
		if err := mgr.Register(mig); err != nil {
			return nil, err
		}
	}
	for _, rule := range o.rules {
		mgr.SetCompatibilityRule(rule.v, rule.c)
	}

	store, err := slot.NewStore(cfg.slotConfig(), slot.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	rot, err := rotation.New(cfg.Dir, cfg.Rotation, rotation.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	return &Engine{
		current:  current,
		store:    store,
		versions: mgr,
		rotation: rot,
		logger:   o.logger,
	}, nil
}

// Save stamps the payload and metadata with the running version, encodes
// the payload and writes it into the slot.
func (e *Engine) Save(slotID int, data *save.Data, meta slot.Metadata) error {
	data.Version = e.current.String()
	meta.GameVersion = e.current.String()

	payload, err := data.Encode()
	if err != nil {
		return err
	}
	return e.store.Save(slotID, payload, meta)
}

// Load reads a slot, decodes its payload and migrates it to the running
// version. TooNew and incompatible saves fail with a
// version.MismatchError; the on-disk file is never modified.
func (e *Engine) Load(slotID int) (*save.Data, slot.Metadata, error) {
	file, err := e.store.Load(slotID)
	if err != nil {
		return nil, slot.Metadata{}, err
	}
	body, err := file.Body()
	if err != nil {
		return nil, slot.Metadata{}, err
	}
	data, err := save.Decode(body)
	if err != nil {
		return nil, slot.Metadata{}, err
	}
	if _, err := e.versions.Migrate(data); err != nil {
		return nil, slot.Metadata{}, err
	}
	return data, file.Metadata, nil
}

// Slots enumerates the slot store.
func (e *Engine) Slots() []slot.Slot {
	return e.store.Slots()
}

// Delete removes a slot, its backups and its sidecar.
func (e *Engine) Delete(slotID int) error {
	return e.store.Delete(slotID)
}

// Rotate runs one rotation pass.
func (e *Engine) Rotate() (rotation.Result, error) {
	return e.rotation.Rotate()
}

// Store exposes the slot store for direct use.
func (e *Engine) Store() *slot.Store {
	return e.store
}

// Rotation exposes the rotation system for direct use.
func (e *Engine) Rotation() *rotation.System {
	return e.rotation
}

// Versions exposes the version manager for direct use.
func (e *Engine) Versions() *version.Manager {
	return e.versions
}
