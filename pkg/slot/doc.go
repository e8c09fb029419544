// Package slot stores save payloads in a fixed set of numbered slots on
// disk, with checksum verification and per-slot backup chains.
//
// Each slot holds at most one current save (save_NNN.dat), a bounded
// chain of prior copies (save_NNN.bakK, newest at K=0) and a JSON sidecar
// (save_NNN.meta) used for enumeration display. Writes go to a temporary
// file and are published with an atomic rename, so a reader sees either
// the old complete file or the new one, never a partial write. Loads
// verify a CRC32 checksum over the stored payload bytes and fall back
// through the backup chain on mismatch.
//
// The store assumes a single writer per slot; concurrent writes to
// different slots and concurrent reads are safe.
package slot
