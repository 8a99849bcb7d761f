package form

import "sync"

// watchBuffer is the per-subscriber channel depth. Writes beyond a full
// buffer are dropped; the next write delivers a fresh snapshot.
const watchBuffer = 16

// MemoryForm is the reference Form implementation: an in-memory field
// map with subscriber channels. Safe for concurrent use.
type MemoryForm struct {
	mu       sync.RWMutex
	fields   map[Field][]string
	dirty    map[Field]bool
	touched  map[Field]bool
	watchers map[Field][]chan Change
	closed   bool
}

// NewMemoryForm creates an empty form.
func NewMemoryForm() *MemoryForm {
	return &MemoryForm{
		fields:   make(map[Field][]string),
		dirty:    make(map[Field]bool),
		touched:  make(map[Field]bool),
		watchers: make(map[Field][]chan Change),
	}
}

// Values implements Form.Values.
func (f *MemoryForm) Values(field Field) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.fields[field]...)
}

// Value implements Form.Value.
func (f *MemoryForm) Value(field Field) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if vals := f.fields[field]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// SetValues implements Form.SetValues.
func (f *MemoryForm) SetValues(field Field, values []string, opts SetOptions) {
	f.set(field, append([]string(nil), values...), opts)
}

// SetString implements Form.SetString.
func (f *MemoryForm) SetString(field Field, value string, opts SetOptions) {
	if value == "" {
		f.set(field, nil, opts)
		return
	}
	f.set(field, []string{value}, opts)
}

func (f *MemoryForm) set(field Field, values []string, opts SetOptions) {
	f.mu.Lock()
	f.fields[field] = values
	if opts.Dirty {
		f.dirty[field] = true
	}
	if opts.Touch {
		f.touched[field] = true
	}
	subscribers := append([]chan Change(nil), f.watchers[field]...)
	f.mu.Unlock()

	change := Change{Field: field, Values: append([]string(nil), values...)}
	for _, ch := range subscribers {
		select {
		case ch <- change:
		default:
		}
	}
}

// Watch implements Form.Watch.
func (f *MemoryForm) Watch(field Field) <-chan Change {
	ch := make(chan Change, watchBuffer)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.watchers[field] = append(f.watchers[field], ch)
	return ch
}

// Dirty implements Form.Dirty.
func (f *MemoryForm) Dirty(field Field) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dirty[field]
}

// Close implements Form.Close.
func (f *MemoryForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for field, subscribers := range f.watchers {
		for _, ch := range subscribers {
			close(ch)
		}
		delete(f.watchers, field)
	}
}
