// Package watch observes a save directory and reports slot changes as
// they land on disk.
//
// Because the slot store publishes saves with an atomic rename, the
// rename target's create event is the reliable signal that a complete
// save became visible; temp files, sidecars and backup-chain files are
// filtered out. A save-browser UI can consume the event stream to
// refresh its slot list without polling.
package watch
