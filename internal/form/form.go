// Package form provides the draft form field accessor: the authoring
// application's view of the media selection.
//
// The form holds four named fields. Three are string lists (media URLs,
// slider images, display names) and one is a single string (the main
// image). The reconciliation engine reads and writes the fields through
// the Form interface; watchers subscribe to change notifications.
package form

// Field names a form field.
type Field string

const (
	// FieldMedia is the ordered media URL list.
	FieldMedia Field = "media"
	// FieldMainImage is the designated main image (single value).
	FieldMainImage Field = "mainImage"
	// FieldSliderImages is the carousel subset.
	FieldSliderImages Field = "sliderImages"
	// FieldFileNames is the display-name list, positionally aligned
	// with FieldMedia.
	FieldFileNames Field = "selectedFileNames"
)

// SetOptions controls the bookkeeping flags applied on a write.
type SetOptions struct {
	// Dirty marks the field as modified relative to the saved draft.
	Dirty bool
	// Touch marks the field as interacted with.
	Touch bool
}

// Change describes a field write delivered to watchers.
type Change struct {
	Field  Field
	Values []string
}

// Form is the field accessor contract.
//
// Single-valued fields (FieldMainImage) are exposed through Value and
// SetString; list fields through Values and SetValues. Reading a field
// with the wrong accessor returns the zero value rather than panicking.
type Form interface {
	// Values returns a snapshot of a list field. The caller owns the
	// returned slice.
	Values(field Field) []string

	// Value returns the current value of a single-valued field.
	Value(field Field) string

	// SetValues replaces a list field.
	SetValues(field Field, values []string, opts SetOptions)

	// SetString replaces a single-valued field.
	SetString(field Field, value string, opts SetOptions)

	// Watch subscribes to writes on a field. Sends never block the
	// writer; a slow subscriber drops changes. Each Change carries a
	// full snapshot, so a dropped change is recovered by the next one.
	Watch(field Field) <-chan Change

	// Dirty reports whether any write marked the field dirty.
	Dirty(field Field) bool

	// Close releases all watcher channels.
	Close()
}
