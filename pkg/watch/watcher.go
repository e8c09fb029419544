package watch

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Op is the kind of slot change observed.
type Op int

const (
	// Saved means a complete save file became visible in the slot.
	Saved Op = iota
	// Removed means the slot's save file was deleted.
	Removed
)

// String returns a label for logging.
func (o Op) String() string {
	if o == Removed {
		return "removed"
	}
	return "saved"
}

// Event is one observed slot change.
type Event struct {
	SlotID int
	Path   string
	Op     Op
}

// Watcher reports slot changes in one save directory.
type Watcher struct {
	dir      string
	events   chan Event
	logger   zerolog.Logger
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Option configures optional Watcher behavior.
type Option func(*Watcher)

// WithLogger sets the watcher's logger. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDebounce sets how long to coalesce bursts of events for the same
// file. Defaults to 100ms.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a Watcher for the given save directory. Call Run to start
// it.
func New(dir string, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		events:   make(chan Event, 16),
		logger:   zerolog.Nop(),
		debounce: 100 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events returns the slot change stream. Events are dropped, with a
// warning, if the consumer falls behind.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run watches the save directory until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Debug().Str("dir", w.dir).Msg("watching save directory")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("save directory watch error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	slotID, ok := slotFile(name)
	if !ok {
		return
	}

	switch {
	case ev.Op&fsnotify.Remove != 0:
		w.cancelPending(ev.Name)
		w.emit(Event{SlotID: slotID, Path: ev.Name, Op: Removed})
	case ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0:
		// Editors and the store itself can touch a file several times in
		// quick succession; coalesce to one event per settle period.
		w.schedule(Event{SlotID: slotID, Path: ev.Name, Op: Saved})
	}
}

func (w *Watcher) schedule(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[ev.Path]; ok {
		t.Stop()
	}
	w.timers[ev.Path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, ev.Path)
		w.mu.Unlock()
		w.emit(ev)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn().Int("slot", ev.SlotID).Msg("watch event dropped, consumer behind")
	}
}

// slotFile reports whether name is a canonical slot file (save_NNN.dat)
// and extracts the slot id. Temp files, sidecars and backups never match.
func slotFile(name string) (int, bool) {
	if !strings.HasPrefix(name, "save_") || !strings.HasSuffix(name, ".dat") {
		return 0, false
	}
	idPart := strings.TrimSuffix(strings.TrimPrefix(name, "save_"), ".dat")
	id, err := strconv.Atoi(idPart)
	if err != nil {
		return 0, false
	}
	return id, true
}
