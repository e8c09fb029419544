package rotation

import (
	"testing"

	"github.com/deepfall-games/savevault/pkg/slot"
)

func TestSlotIDFromName(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"save_000.dat", 0},
		{"save_003.dat", 3},
		{"save_042.dat", 42},
		{"autosave_001.dat", 1},
		{"quicksave_007.dat", 7},
		{"random.dat", 0},
		{"save_abc.dat", 0},
	}
	for _, tt := range tests {
		if got := slotIDFromName(tt.name); got != tt.want {
			t.Errorf("slotIDFromName(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestIsAutosaveName(t *testing.T) {
	if !isAutosaveName("autosave_001.dat") {
		t.Error("autosave_001.dat not classified as autosave")
	}
	if !isAutosaveName("auto_backup_002.dat") {
		t.Error("auto_backup_002.dat not classified as autosave")
	}
	if isAutosaveName("save_001.dat") {
		t.Error("save_001.dat classified as autosave")
	}
}

func TestIsSaveFile(t *testing.T) {
	if !isSaveFile("save_001.dat") {
		t.Error("save_001.dat not classified as save file")
	}
	for _, name := range []string{"save_001.meta", "save_001.bak0", "save_001.dat.tmp", "manifest.yaml"} {
		if isSaveFile(name) {
			t.Errorf("%s classified as save file", name)
		}
	}
}

func TestImportanceScore(t *testing.T) {
	manualFresh := FileInfo{AgeDays: 0, Meta: slot.Metadata{Level: 5, PlaytimeSeconds: 2 * 3600}}
	// 100 manual + 50 fresh + 5 level + 2 hours.
	if got := importanceScore(manualFresh); got != 157 {
		t.Errorf("manual fresh score = %d, want 157", got)
	}

	autoOld := FileInfo{Autosave: true, AgeDays: 45, Meta: slot.Metadata{Level: 1}}
	// No manual bonus, no recency bonus, 1 level.
	if got := importanceScore(autoOld); got != 1 {
		t.Errorf("old autosave score = %d, want 1", got)
	}

	weekOld := FileInfo{AgeDays: 3}
	if got := importanceScore(weekOld); got != 130 {
		t.Errorf("week-old manual score = %d, want 130", got)
	}
	monthOld := FileInfo{AgeDays: 20}
	if got := importanceScore(monthOld); got != 110 {
		t.Errorf("month-old manual score = %d, want 110", got)
	}
}
