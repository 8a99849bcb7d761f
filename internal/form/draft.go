package form

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Draft is the on-disk mirror of the form fields. The editor application
// reads and writes this document; the daemon watches it for external
// changes and rewrites it when the form changes.
type Draft struct {
	Media             []string `json:"media"`
	MainImage         string   `json:"mainImage,omitempty"`
	SliderImages      []string `json:"sliderImages"`
	SelectedFileNames []string `json:"selectedFileNames"`
}

// LoadDraft reads and parses a draft document.
//
// A missing file is not an error: it returns an empty draft, matching a
// session that has not uploaded anything yet.
func LoadDraft(path string) (*Draft, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Draft{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to parse draft %s: %w", path, err)
	}
	return &draft, nil
}

// Save writes the draft document, creating parent directories as needed.
// The write goes through a temp file and rename so watchers never see a
// half-written document.
func (d *Draft) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create draft directory: %w", err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace draft: %w", err)
	}
	return nil
}

// Apply copies the draft's fields into the form. Writes are not marked
// dirty: the draft is the saved state.
func (d *Draft) Apply(f Form) {
	f.SetValues(FieldMedia, d.Media, SetOptions{})
	f.SetString(FieldMainImage, d.MainImage, SetOptions{})
	f.SetValues(FieldSliderImages, d.SliderImages, SetOptions{})
	f.SetValues(FieldFileNames, d.SelectedFileNames, SetOptions{})
}

// Snapshot captures the form's current fields as a draft document.
func Snapshot(f Form) *Draft {
	return &Draft{
		Media:             f.Values(FieldMedia),
		MainImage:         f.Value(FieldMainImage),
		SliderImages:      f.Values(FieldSliderImages),
		SelectedFileNames: f.Values(FieldFileNames),
	}
}
