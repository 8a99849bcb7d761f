package form

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// TestMemoryForm_SetAndGet verifies list and single-value accessors.
func TestMemoryForm_SetAndGet(t *testing.T) {
	f := NewMemoryForm()
	defer f.Close()

	f.SetValues(FieldMedia, []string{"a.jpg", "b.jpg"}, SetOptions{})
	f.SetString(FieldMainImage, "a.jpg", SetOptions{})

	if got := f.Values(FieldMedia); !reflect.DeepEqual(got, []string{"a.jpg", "b.jpg"}) {
		t.Errorf("Values(media) = %v", got)
	}
	if got := f.Value(FieldMainImage); got != "a.jpg" {
		t.Errorf("Value(mainImage) = %q, want %q", got, "a.jpg")
	}

	// Unset fields read as zero values.
	if got := f.Values(FieldSliderImages); len(got) != 0 {
		t.Errorf("Values(sliderImages) = %v, want empty", got)
	}
	if got := f.Value(FieldFileNames); got != "" {
		t.Errorf("Value(selectedFileNames) = %q, want empty", got)
	}
}

// TestMemoryForm_SnapshotDetached verifies the returned slice is the
// caller's to mutate.
func TestMemoryForm_SnapshotDetached(t *testing.T) {
	f := NewMemoryForm()
	defer f.Close()

	f.SetValues(FieldMedia, []string{"a.jpg"}, SetOptions{})
	got := f.Values(FieldMedia)
	got[0] = "mutated.jpg"

	if f.Values(FieldMedia)[0] != "a.jpg" {
		t.Error("Values() shares backing array with form state")
	}
}

// TestMemoryForm_Watch verifies change delivery and the empty-string
// clear on SetString.
func TestMemoryForm_Watch(t *testing.T) {
	f := NewMemoryForm()
	defer f.Close()

	ch := f.Watch(FieldMainImage)

	f.SetString(FieldMainImage, "a.jpg", SetOptions{Dirty: true})
	select {
	case change := <-ch:
		if change.Field != FieldMainImage {
			t.Errorf("change.Field = %q", change.Field)
		}
		if !reflect.DeepEqual(change.Values, []string{"a.jpg"}) {
			t.Errorf("change.Values = %v", change.Values)
		}
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	f.SetString(FieldMainImage, "", SetOptions{})
	select {
	case change := <-ch:
		if len(change.Values) != 0 {
			t.Errorf("clearing change.Values = %v, want empty", change.Values)
		}
	case <-time.After(time.Second):
		t.Fatal("no clearing change delivered")
	}

	if !f.Dirty(FieldMainImage) {
		t.Error("field should stay dirty after the first dirty write")
	}
}

// TestMemoryForm_Close verifies watcher channels close and later Watch
// calls return a closed channel.
func TestMemoryForm_Close(t *testing.T) {
	f := NewMemoryForm()
	ch := f.Watch(FieldMedia)
	f.Close()

	if _, ok := <-ch; ok {
		t.Error("watcher channel should be closed")
	}
	if _, ok := <-f.Watch(FieldMedia); ok {
		t.Error("Watch after Close should return a closed channel")
	}
}

// TestDraft_RoundTrip verifies save/load/apply of the draft document.
func TestDraft_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts", "post-1.json")

	draft := &Draft{
		Media:             []string{"a.jpg", "b.jpg"},
		MainImage:         "a.jpg",
		SliderImages:      []string{"b.jpg"},
		SelectedFileNames: []string{"a", "b"},
	}
	if err := draft.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := LoadDraft(path)
	if err != nil {
		t.Fatalf("LoadDraft() failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, draft) {
		t.Errorf("round trip mismatch: got %+v, want %+v", loaded, draft)
	}

	f := NewMemoryForm()
	defer f.Close()
	loaded.Apply(f)

	snap := Snapshot(f)
	if !reflect.DeepEqual(snap, draft) {
		t.Errorf("Apply/Snapshot mismatch: got %+v, want %+v", snap, draft)
	}
	if f.Dirty(FieldMedia) {
		t.Error("Apply must not mark fields dirty")
	}
}

// TestLoadDraft_Missing verifies a missing file yields an empty draft.
func TestLoadDraft_Missing(t *testing.T) {
	draft, err := LoadDraft(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadDraft() failed: %v", err)
	}
	if len(draft.Media) != 0 || draft.MainImage != "" {
		t.Errorf("missing draft should be empty, got %+v", draft)
	}
}

// TestLoadDraft_Malformed verifies parse failures are reported.
func TestLoadDraft_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDraft(path); err == nil {
		t.Error("LoadDraft() should fail on malformed JSON")
	}
}
