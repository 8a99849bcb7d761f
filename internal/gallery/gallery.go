// Package gallery defines the media selection types shared by the draft
// form, the view store, and the reconciliation engine, along with the
// placeholder and integrity utilities used to sanitize them.
//
// A media selection is three related lists plus a designated main image:
//   - media URLs: the ordered set of uploaded images
//   - display names: positionally aligned with the media URLs
//   - slider images: an ordered subset of the media URLs for the carousel
//
// The main image is mutually exclusive with slider membership. While an
// upload is in flight its slot is held by a placeholder marker of the form
// "placeholder-<id>-processing"; markers must never survive into a
// committed selection.
package gallery

// GridType selects how the gallery lays out its images.
type GridType string

const (
	// GridTypeGrid is a uniform column grid.
	GridTypeGrid GridType = "grid"
	// GridTypeMasonry is a packed variable-height layout.
	GridTypeMasonry GridType = "masonry"
)

// Layout describes the gallery grid configuration.
type Layout struct {
	Columns  int      `json:"columns"`
	GridType GridType `json:"gridType"`
}

// DefaultLayout returns the layout used when none has been chosen.
func DefaultLayout() Layout {
	return Layout{Columns: 3, GridType: GridTypeGrid}
}

// ViewConfig is the gallery view store's configuration object.
//
// SelectedImages is the full media list, MainImage the designated
// representative image (empty string means none), and SliderImages the
// carousel subset. ClickOrder records the order images were picked in the
// layout builder and Filter the active gallery filter; both are carried
// through reconciliation untouched.
type ViewConfig struct {
	SelectedImages []string `json:"selectedImages"`
	MainImage      string   `json:"mainImage"`
	SliderImages   []string `json:"sliderImages"`
	ClickOrder     []int    `json:"clickOrder"`
	Layout         Layout   `json:"layout"`
	Filter         string   `json:"filter"`
}

// Clone returns a deep copy of the config so callers can mutate it freely.
func (c ViewConfig) Clone() ViewConfig {
	out := c
	out.SelectedImages = append([]string(nil), c.SelectedImages...)
	out.SliderImages = append([]string(nil), c.SliderImages...)
	out.ClickOrder = append([]int(nil), c.ClickOrder...)
	return out
}
