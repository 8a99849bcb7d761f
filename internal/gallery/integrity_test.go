package gallery

import (
	"fmt"
	"reflect"
	"testing"
)

// TestCheckIntegrity_Hysteresis verifies the two independent tolerances:
// strict equality for validity, and the drift threshold for auto-clean.
func TestCheckIntegrity_Hysteresis(t *testing.T) {
	tests := []struct {
		name            string
		media           []string
		names           []string
		wantValid       bool
		wantAutoClean   bool
		wantPlaceholder bool
	}{
		{
			name:      "aligned lists are valid",
			media:     []string{"a.jpg", "b.jpg"},
			names:     []string{"a", "b"},
			wantValid: true,
		},
		{
			name:          "drift of one: invalid but tolerated",
			media:         []string{"a.jpg", "b.jpg", "c.jpg"},
			names:         []string{"a", "b"},
			wantValid:     false,
			wantAutoClean: false,
		},
		{
			name:          "drift of two: invalid but tolerated",
			media:         []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"},
			names:         []string{"a", "b"},
			wantValid:     false,
			wantAutoClean: false,
		},
		{
			name:          "drift of three triggers auto-clean",
			media:         []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"},
			names:         []string{"a", "b"},
			wantValid:     false,
			wantAutoClean: true,
		},
		{
			name:          "names longer by three triggers auto-clean",
			media:         []string{"a.jpg"},
			names:         []string{"a", "b", "c", "d"},
			wantValid:     false,
			wantAutoClean: true,
		},
		{
			name:            "placeholder always triggers auto-clean",
			media:           []string{"a.jpg", "placeholder-1-processing"},
			names:           []string{"a"},
			wantValid:       false,
			wantAutoClean:   true,
			wantPlaceholder: true,
		},
		{
			name:          "empty media with names triggers auto-clean",
			media:         nil,
			names:         []string{"a"},
			wantValid:     false,
			wantAutoClean: true,
		},
		{
			name:      "both empty is valid",
			media:     nil,
			names:     nil,
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckIntegrity(tt.media, tt.names)
			if got.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (report %+v)", got.IsValid, tt.wantValid, got)
			}
			if got.ShouldAutoClean != tt.wantAutoClean {
				t.Errorf("ShouldAutoClean = %v, want %v (report %+v)", got.ShouldAutoClean, tt.wantAutoClean, got)
			}
			if got.HasPlaceholders != tt.wantPlaceholder {
				t.Errorf("HasPlaceholders = %v, want %v", got.HasPlaceholders, tt.wantPlaceholder)
			}
		})
	}
}

// TestCheckIntegrity_Band sweeps the full tolerance band: every drift
// below the threshold must be invalid without auto-clean, everything at
// or past it must auto-clean.
func TestCheckIntegrity_Band(t *testing.T) {
	for diff := 1; diff < AutoCleanDiffThreshold+2; diff++ {
		t.Run(fmt.Sprintf("diff_%d", diff), func(t *testing.T) {
			media := make([]string, diff+1)
			for i := range media {
				media[i] = fmt.Sprintf("img-%d.jpg", i)
			}
			names := []string{"only"}

			got := CheckIntegrity(media, names)
			if got.IsValid {
				t.Errorf("diff %d should never be valid", diff)
			}
			wantClean := diff >= AutoCleanDiffThreshold
			if got.ShouldAutoClean != wantClean {
				t.Errorf("diff %d: ShouldAutoClean = %v, want %v", diff, got.ShouldAutoClean, wantClean)
			}
		})
	}
}

// TestCheckIntegrity_Counts verifies the raw and cleaned counts.
func TestCheckIntegrity_Counts(t *testing.T) {
	media := []string{"a.jpg", "placeholder-1-processing", "", "b.jpg"}
	names := []string{"a", "b"}

	got := CheckIntegrity(media, names)

	if got.MediaCount != 4 {
		t.Errorf("MediaCount = %d, want 4", got.MediaCount)
	}
	if got.CleanedCount != 2 {
		t.Errorf("CleanedCount = %d, want 2", got.CleanedCount)
	}
	if got.NameCount != 2 {
		t.Errorf("NameCount = %d, want 2", got.NameCount)
	}
	if !got.NeedsCleanup {
		t.Error("NeedsCleanup should be true when stripping changes the list")
	}
}

// TestRestoreWithCleanup verifies positional cleanup, including the
// sequential name pairing when entries are dropped.
func TestRestoreWithCleanup(t *testing.T) {
	tests := []struct {
		name        string
		urls        []string
		names       []string
		wantURLs    []string
		wantNames   []string
		wantRemoved int
		wantRestore bool
	}{
		{
			name:        "drop marker and shift names",
			urls:        []string{"a", "placeholder-1-processing", "b"},
			names:       []string{"nameA", "nameB_stale", "nameB"},
			wantURLs:    []string{"a", "b"},
			wantNames:   []string{"nameA", "nameB_stale"},
			wantRemoved: 1,
			wantRestore: true,
		},
		{
			name:        "nothing to remove",
			urls:        []string{"a", "b"},
			names:       []string{"nameA", "nameB"},
			wantURLs:    []string{"a", "b"},
			wantNames:   []string{"nameA", "nameB"},
			wantRemoved: 0,
			wantRestore: true,
		},
		{
			name:        "all removed",
			urls:        []string{"placeholder-1-processing", ""},
			names:       []string{"nameA", "nameB"},
			wantURLs:    []string{},
			wantNames:   []string{},
			wantRemoved: 2,
			wantRestore: false,
		},
		{
			name:        "fewer names than survivors",
			urls:        []string{"a", "b", "c"},
			names:       []string{"nameA"},
			wantURLs:    []string{"a", "b", "c"},
			wantNames:   []string{"nameA"},
			wantRemoved: 0,
			wantRestore: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RestoreWithCleanup(tt.urls, tt.names)
			if !reflect.DeepEqual(got.CleanedURLs, tt.wantURLs) {
				t.Errorf("CleanedURLs = %v, want %v", got.CleanedURLs, tt.wantURLs)
			}
			if !reflect.DeepEqual(got.CleanedNames, tt.wantNames) {
				t.Errorf("CleanedNames = %v, want %v", got.CleanedNames, tt.wantNames)
			}
			if got.RemovedCount != tt.wantRemoved {
				t.Errorf("RemovedCount = %d, want %d", got.RemovedCount, tt.wantRemoved)
			}
			if got.IsRestored != tt.wantRestore {
				t.Errorf("IsRestored = %v, want %v", got.IsRestored, tt.wantRestore)
			}
		})
	}
}

// TestViewConfigClone verifies that Clone detaches the slice fields.
func TestViewConfigClone(t *testing.T) {
	orig := ViewConfig{
		SelectedImages: []string{"a.jpg"},
		MainImage:      "a.jpg",
		SliderImages:   []string{"a.jpg"},
		ClickOrder:     []int{0},
		Layout:         DefaultLayout(),
	}

	clone := orig.Clone()
	clone.SelectedImages[0] = "mutated.jpg"
	clone.ClickOrder[0] = 99

	if orig.SelectedImages[0] != "a.jpg" {
		t.Error("Clone shares SelectedImages backing array")
	}
	if orig.ClickOrder[0] != 0 {
		t.Error("Clone shares ClickOrder backing array")
	}
}
