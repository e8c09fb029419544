package version

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deepfall-games/savevault/pkg/save"
)

// Transform rewrites a payload in place to move it one schema step
// forward. Transforms must be pure with respect to everything outside the
// payload; the manager hands them a clone, so a failure cannot corrupt
// the caller's data.
type Transform func(*save.Data) error

// Migration is a directed edge between two adjacent schema versions.
type Migration struct {
	From        SaveVersion
	To          SaveVersion
	Description string
	Apply       Transform
}

type edge struct {
	from SaveVersion
	to   SaveVersion
}

// Outcome states what Migrate did with a payload.
type Outcome int

const (
	// NotNeeded means the payload was already usable as-is.
	NotNeeded Outcome = iota
	// Migrated means one or more migrations were applied.
	Migrated
)

// Result describes a successful Migrate call.
type Result struct {
	Outcome Outcome
	// Applied lists the edges that ran, in order, as "from->to" labels.
	Applied []string
}

// Manager owns the running version, the migration registry and the
// per-version compatibility overrides. Register everything at startup;
// after that the manager is read-only and safe for concurrent use.
type Manager struct {
	current    SaveVersion
	migrations map[edge]Migration
	overrides  map[SaveVersion]Compatibility
	logger     zerolog.Logger
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for migration progress. Defaults to a
// no-op logger.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a Manager running at the given version.
func NewManager(current SaveVersion, opts ...ManagerOption) *Manager {
	m := &Manager{
		current:    current,
		migrations: make(map[edge]Migration),
		overrides:  make(map[SaveVersion]Compatibility),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the running version.
func (m *Manager) Current() SaveVersion {
	return m.current
}

// Register adds a migration edge. Edges are validated here rather than at
// lookup time: the transform must exist, the edge must move strictly
// forward within one major version, and duplicates are rejected.
func (m *Manager) Register(mig Migration) error {
	if mig.Apply == nil {
		return fmt.Errorf("migration %s->%s has no transform", mig.From, mig.To)
	}
	if mig.From.Compare(mig.To) >= 0 {
		return fmt.Errorf("migration %s->%s does not move forward", mig.From, mig.To)
	}
	if mig.From.Major != mig.To.Major {
		return fmt.Errorf("migration %s->%s crosses a major version", mig.From, mig.To)
	}
	key := edge{from: mig.From, to: mig.To}
	if _, ok := m.migrations[key]; ok {
		return fmt.Errorf("migration %s->%s already registered", mig.From, mig.To)
	}
	m.migrations[key] = mig
	return nil
}

// SetCompatibilityRule overrides the computed compatibility for a
// specific save version.
func (m *Manager) SetCompatibilityRule(v SaveVersion, c Compatibility) {
	m.overrides[v] = c
}

// CheckCompatibility classifies a save version, consulting explicit
// overrides before the default ordering rule.
func (m *Manager) CheckCompatibility(v SaveVersion) Compatibility {
	if c, ok := m.overrides[v]; ok {
		return c
	}
	return m.current.CompatibilityWith(v)
}

// Registered returns the labels of all registered edges, for diagnostics.
func (m *Manager) Registered() []string {
	labels := make([]string, 0, len(m.migrations))
	for e := range m.migrations {
		labels = append(labels, edgeLabel(e))
	}
	return labels
}

// Validate checks a payload's version tag without migrating. It fails for
// TooNew and Incompatible saves and for unparseable tags.
func (m *Manager) Validate(data *save.Data) error {
	v, err := Parse(data.Version)
	if err != nil {
		return fmt.Errorf("invalid save version: %w", err)
	}
	switch m.CheckCompatibility(v) {
	case TooNew, Incompatible:
		return &MismatchError{Expected: m.current.String(), Found: v.String()}
	default:
		return nil
	}
}

// Migrate brings a payload to the running version. Exact and Compatible
// payloads are returned untouched with NotNeeded. TooNew and Incompatible
// payloads fail with a MismatchError and are never transformed. For
// NeedsMigration, the registered edges along the path are applied in
// order to a clone; only when the whole chain succeeds is the input
// replaced and its version tag rewritten to the running version.
func (m *Manager) Migrate(data *save.Data) (Result, error) {
	from, err := Parse(data.Version)
	if err != nil {
		return Result{}, fmt.Errorf("invalid save version: %w", err)
	}

	switch m.CheckCompatibility(from) {
	case Exact, Compatible:
		return Result{Outcome: NotNeeded}, nil
	case TooNew, Incompatible:
		return Result{}, &MismatchError{Expected: m.current.String(), Found: from.String()}
	}

	path, err := m.findPath(from, m.current)
	if err != nil {
		return Result{}, err
	}

	work := data.Clone()
	applied := make([]string, 0, len(path))
	for _, e := range path {
		mig := m.migrations[e]
		m.logger.Debug().
			Str("from", e.from.String()).
			Str("to", e.to.String()).
			Str("description", mig.Description).
			Msg("applying save migration")
		if err := mig.Apply(work); err != nil {
			return Result{}, fmt.Errorf("migration %s failed: %w", edgeLabel(e), err)
		}
		applied = append(applied, edgeLabel(e))
	}

	work.Version = m.current.String()
	*data = *work

	m.logger.Info().
		Str("from", from.String()).
		Str("to", m.current.String()).
		Int("steps", len(applied)).
		Msg("save migrated")

	return Result{Outcome: Migrated, Applied: applied}, nil
}

// findPath walks registered edges from one version to another, greedily
// incrementing the minor version first and then the patch. Every step
// must have a registered edge; chains with gaps fail.
func (m *Manager) findPath(from, to SaveVersion) ([]edge, error) {
	var path []edge
	cur := from
	for cur.Compare(to) != 0 {
		next, err := nextStep(cur, to)
		if err != nil {
			return nil, fmt.Errorf("no migration path from %s to %s: %w", from, to, err)
		}
		e := edge{from: cur, to: next}
		if _, ok := m.migrations[e]; !ok {
			return nil, fmt.Errorf("no migration path from %s to %s: missing edge %s", from, to, edgeLabel(e))
		}
		path = append(path, e)
		cur = next
	}
	return path, nil
}

func nextStep(from, to SaveVersion) (SaveVersion, error) {
	if from.Minor < to.Minor {
		return New(from.Major, from.Minor+1, 0), nil
	}
	if from.Patch < to.Patch {
		return New(from.Major, from.Minor, from.Patch+1), nil
	}
	return SaveVersion{}, fmt.Errorf("cannot determine step after %s", from)
}

func edgeLabel(e edge) string {
	return e.from.String() + "->" + e.to.String()
}
