// Package version decides whether a save payload written by another build
// of the game is usable, and migrates it to the running schema when it is
// not.
//
// A SaveVersion is an ordered major.minor.patch triple with an optional
// pre-release tag. The Manager classifies a save's version against the
// running version (Exact, Compatible, NeedsMigration, TooNew or
// Incompatible) and, for NeedsMigration, applies a chain of registered
// migrations in order.
//
// # Usage
//
// Build a manager at the running version and register migrations once at
// startup:
//
//	mgr := version.NewManager(version.MustParse("0.3.0"))
//	err := mgr.Register(version.Migration{
//	    From:        version.New(0, 2, 0),
//	    To:          version.New(0, 3, 0),
//	    Description: "rework inventory records",
//	    Apply:       migrateInventory,
//	})
//
// Then run payloads through it after loading:
//
//	res, err := mgr.Migrate(data)
//
// Migration chains are applied all-or-nothing: a failure mid-chain leaves
// the input payload untouched and surfaces the error.
package version
