// Package store provides the gallery view store: the reactive
// configuration object the gallery rendering layer reads.
//
// The store is one of the three replicas of the media selection (the
// others being the draft form and the main-image backup). The
// reconciliation engine is its only writer once the daemon is running;
// the store itself never reaches into the form or the backup.
package store

import (
	"context"

	"github.com/formstep/mediasync/internal/gallery"
)

// Store is the view store contract consumed by the reconciliation engine.
//
// Implementations must be safe for concurrent use: the engine worker,
// watchers, and the dashboard all read the config.
type Store interface {
	// Config returns a snapshot of the current view configuration.
	// Callers may mutate the returned value freely.
	Config() gallery.ViewConfig

	// SetConfig replaces the entire configuration.
	SetConfig(cfg gallery.ViewConfig)

	// UpdateConfig applies a partial update. The mutator receives the
	// current configuration and modifies it in place; only the fields it
	// touches change.
	UpdateConfig(apply func(*gallery.ViewConfig))

	// Initialize loads any previously stored images into the config.
	// It is idempotent: subsequent calls after a successful load are
	// no-ops.
	Initialize(ctx context.Context) error

	// Initialized reports whether Initialize has completed successfully.
	Initialized() bool
}
