package rotation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/deepfall-games/savevault/pkg/slot"
)

// FileInfo is the per-file classification record rebuilt on every scan.
// It exists only inside one rotation pass and is never persisted.
type FileInfo struct {
	Path       string
	SlotID     int
	Meta       slot.Metadata
	Size       int64
	ModTime    time.Time
	Autosave   bool
	AgeDays    int
	Importance int
}

// Manual reports whether the file is a manual save.
func (f FileInfo) Manual() bool {
	return !f.Autosave
}

// scan lists the save files in the rotation directory, newest first.
// Files that disappear or fail to stat mid-scan are skipped; a save
// happening concurrently is expected.
func (s *System) scan() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !isSaveFile(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(s.dir, e.Name())
		info := FileInfo{
			Path:     path,
			SlotID:   slotIDFromName(e.Name()),
			Size:     fi.Size(),
			ModTime:  fi.ModTime(),
			Autosave: isAutosaveName(e.Name()),
			AgeDays:  int(now.Sub(fi.ModTime()).Hours() / 24),
		}
		info.Meta = readMetaSidecar(path)
		info.Importance = importanceScore(info)
		files = append(files, info)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// isSaveFile matches the canonical save extension. Sidecars, backup
// chains and temp files are the slot store's concern, not rotation's.
func isSaveFile(name string) bool {
	return strings.HasSuffix(name, ".dat")
}

func isAutosaveName(name string) bool {
	return strings.Contains(name, "autosave") || strings.Contains(name, "auto")
}

// slotIDFromName parses the zero-padded id out of names like
// "save_003.dat" or "autosave_001.dat". Unparseable names fall into
// slot 0, matching how unknown files are grouped conservatively.
func slotIDFromName(name string) int {
	idx := strings.LastIndex(name, "save_")
	if idx < 0 {
		return 0
	}
	rest := name[idx+len("save_"):]
	end := strings.IndexByte(rest, '.')
	if end < 0 {
		end = len(rest)
	}
	id, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return id
}

// readMetaSidecar loads the slot store's JSON sidecar for a save file,
// if present. Missing or unreadable sidecars yield zero metadata; the
// file still rotates on filename and mtime alone.
func readMetaSidecar(savePath string) slot.Metadata {
	metaPath := strings.TrimSuffix(savePath, filepath.Ext(savePath)) + ".meta"
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return slot.Metadata{}
	}
	var meta slot.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return slot.Metadata{}
	}
	return meta
}

// importanceScore weighs a save for ImportanceBased rotation. Manual
// saves outrank autosaves, recency adds a decaying bonus, and character
// progress (level, hours played) adds further weight.
func importanceScore(f FileInfo) int {
	score := 0
	if f.Manual() {
		score += 100
	}
	switch {
	case f.AgeDays < 1:
		score += 50
	case f.AgeDays < 7:
		score += 30
	case f.AgeDays < 30:
		score += 10
	}
	score += f.Meta.Level
	score += int(f.Meta.PlaytimeSeconds / 3600)
	return score
}
