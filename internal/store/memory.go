package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/formstep/mediasync/internal/gallery"
)

// Loader supplies the seed configuration for MemoryStore.Initialize.
// A nil result with a nil error means there is nothing stored.
type Loader func(ctx context.Context) (*gallery.ViewConfig, error)

// MemoryStore is the reference Store implementation: a mutex-guarded
// in-memory view config with a pluggable initialization loader.
type MemoryStore struct {
	mu          sync.RWMutex
	cfg         gallery.ViewConfig
	initialized bool
	loader      Loader
}

// NewMemoryStore creates a store with the default layout and no images.
// loader may be nil, in which case Initialize marks the store ready
// without loading anything.
func NewMemoryStore(loader Loader) *MemoryStore {
	return &MemoryStore{
		cfg:    gallery.ViewConfig{Layout: gallery.DefaultLayout()},
		loader: loader,
	}
}

// Config implements Store.Config.
func (s *MemoryStore) Config() gallery.ViewConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// SetConfig implements Store.SetConfig.
func (s *MemoryStore) SetConfig(cfg gallery.ViewConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Clone()
}

// UpdateConfig implements Store.UpdateConfig.
func (s *MemoryStore) UpdateConfig(apply func(*gallery.ViewConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg.Clone()
	apply(&cfg)
	s.cfg = cfg
}

// Initialize implements Store.Initialize.
func (s *MemoryStore) Initialize(ctx context.Context) error {
	s.mu.RLock()
	done := s.initialized
	s.mu.RUnlock()
	if done {
		return nil
	}

	var seed *gallery.ViewConfig
	if s.loader != nil {
		loaded, err := s.loader(ctx)
		if err != nil {
			return fmt.Errorf("failed to load stored images: %w", err)
		}
		seed = loaded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if seed != nil {
		s.cfg = seed.Clone()
	}
	s.initialized = true
	return nil
}

// Initialized implements Store.Initialized.
func (s *MemoryStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}
