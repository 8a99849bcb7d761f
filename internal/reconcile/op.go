package reconcile

import (
	"time"

	"github.com/google/uuid"
)

// OpType identifies a reconciliation operation.
type OpType int

const (
	// OpInitialize seeds empty form fields from the store and backup and
	// marks the engine initialized.
	OpInitialize OpType = iota
	// OpFormToStore pushes the form's media selection into the view
	// store, overwriting it.
	OpFormToStore
	// OpStoreToForm pulls the view store's selection into the form.
	OpStoreToForm
	// OpMainImageSync writes a validated main image into the view store
	// only; the form is untouched.
	OpMainImageSync
	// OpForceSync compares both sides and lets the longer media list
	// overwrite the shorter.
	OpForceSync
	// OpIntegrityCheck samples the form's media/name alignment and
	// auto-cleans severe drift, subject to the circuit breaker.
	OpIntegrityCheck
	// OpPlaceholderCleanup strips placeholder markers from the form's
	// media/name pair.
	OpPlaceholderCleanup
)

// String returns a human-readable representation of the operation type.
func (t OpType) String() string {
	switch t {
	case OpInitialize:
		return "initialize"
	case OpFormToStore:
		return "form_to_store"
	case OpStoreToForm:
		return "store_to_form"
	case OpMainImageSync:
		return "main_image_sync"
	case OpForceSync:
		return "force_sync"
	case OpIntegrityCheck:
		return "integrity_check"
	case OpPlaceholderCleanup:
		return "placeholder_cleanup"
	default:
		return "unknown"
	}
}

// Payload carries the optional inputs of an operation. Fields the
// operation does not use are ignored; a nil Media on OpFormToStore means
// "read the form's current media".
type Payload struct {
	// Media is an explicit media list for OpFormToStore.
	Media []string

	// MainImage is the candidate value for OpMainImageSync, or the main
	// image accompanying an explicit Media list.
	MainImage string

	// HasMainImage distinguishes "no candidate supplied" from an
	// explicit empty candidate (clear the main image).
	HasMainImage bool
}

// Operation is a queue entry: created once by a producer, consumed
// exactly once by the engine worker, never mutated after creation.
type Operation struct {
	ID        string
	Type      OpType
	Payload   Payload
	Timestamp time.Time
}

// NewOperation creates an operation with a fresh ID and timestamp.
func NewOperation(t OpType, p Payload) Operation {
	return Operation{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   p,
		Timestamp: time.Now(),
	}
}
