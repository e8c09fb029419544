package slot

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Errors returned by the slot store. Wrapped errors can be checked with
// errors.Is.
var (
	// ErrSlotNotFound is returned for out-of-range slot ids and for loads
	// from empty slots.
	ErrSlotNotFound = errors.New("savevault: slot not found")

	// ErrInvalidSaveFile is returned when a stored file cannot be decoded.
	ErrInvalidSaveFile = errors.New("savevault: invalid save file")

	// ErrCorruptedSave is returned when checksum verification fails and no
	// backup in the chain verifies either.
	ErrCorruptedSave = errors.New("savevault: corrupted save")

	// ErrPermissionDenied is returned when the filesystem refuses access.
	ErrPermissionDenied = errors.New("savevault: permission denied")

	// ErrDiskFull is returned when the filesystem is out of space.
	ErrDiskFull = errors.New("savevault: disk full")
)

// classifyIO maps well-known filesystem failures onto the store's error
// taxonomy so callers can branch on errors.Is without inspecting errno.
func classifyIO(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, syscall.ENOSPC):
		return fmt.Errorf("%w: %v", ErrDiskFull, err)
	default:
		return err
	}
}
