// Package rotation prunes accumulated save files so the save directory
// stays bounded.
//
// A rotation pass re-derives everything from the filesystem: it scans the
// save directory, classifies each file (slot, autosave vs manual, age,
// size, importance) and deletes what the configured strategy rejects,
// optionally copying each victim into a backup directory first. No index
// is kept between passes, which trades scan cost for always being
// correct relative to whatever last touched the directory, including
// manual file manipulation. That makes a pass safe to schedule as a
// periodic background job alongside live saves: it only acts on files it
// can stat, and a file overwritten via atomic rename always appears
// consistent.
package rotation
