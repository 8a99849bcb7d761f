package store

import (
	"context"
	"errors"
	"testing"

	"github.com/formstep/mediasync/internal/gallery"
)

// TestMemoryStore_SetAndGet verifies snapshot semantics: the returned
// config is detached from the store's copy.
func TestMemoryStore_SetAndGet(t *testing.T) {
	s := NewMemoryStore(nil)

	s.SetConfig(gallery.ViewConfig{
		SelectedImages: []string{"a.jpg", "b.jpg"},
		MainImage:      "a.jpg",
		Layout:         gallery.DefaultLayout(),
	})

	got := s.Config()
	got.SelectedImages[0] = "mutated.jpg"

	if s.Config().SelectedImages[0] != "a.jpg" {
		t.Error("Config() snapshot shares backing array with store")
	}
}

// TestMemoryStore_UpdateConfig verifies the partial update leaves
// untouched fields alone.
func TestMemoryStore_UpdateConfig(t *testing.T) {
	s := NewMemoryStore(nil)
	s.SetConfig(gallery.ViewConfig{
		SelectedImages: []string{"a.jpg"},
		MainImage:      "a.jpg",
		Filter:         "all",
	})

	s.UpdateConfig(func(cfg *gallery.ViewConfig) {
		cfg.MainImage = "b.jpg"
	})

	cfg := s.Config()
	if cfg.MainImage != "b.jpg" {
		t.Errorf("MainImage = %q, want %q", cfg.MainImage, "b.jpg")
	}
	if cfg.Filter != "all" {
		t.Errorf("Filter = %q, untouched field changed", cfg.Filter)
	}
	if len(cfg.SelectedImages) != 1 {
		t.Errorf("SelectedImages = %v, untouched field changed", cfg.SelectedImages)
	}
}

// TestMemoryStore_Initialize verifies loader seeding and idempotence.
func TestMemoryStore_Initialize(t *testing.T) {
	calls := 0
	loader := func(ctx context.Context) (*gallery.ViewConfig, error) {
		calls++
		return &gallery.ViewConfig{
			SelectedImages: []string{"stored.jpg"},
			Layout:         gallery.DefaultLayout(),
		}, nil
	}

	s := NewMemoryStore(loader)
	if s.Initialized() {
		t.Fatal("store should not be initialized before Initialize()")
	}

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if !s.Initialized() {
		t.Error("store should be initialized after Initialize()")
	}
	if got := s.Config().SelectedImages; len(got) != 1 || got[0] != "stored.jpg" {
		t.Errorf("seed config not applied, got %v", got)
	}

	// Second call must not invoke the loader again.
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

// TestMemoryStore_InitializeError verifies a failing loader leaves the
// store uninitialized so a later attempt can retry.
func TestMemoryStore_InitializeError(t *testing.T) {
	wantErr := errors.New("backend down")
	s := NewMemoryStore(func(ctx context.Context) (*gallery.ViewConfig, error) {
		return nil, wantErr
	})

	err := s.Initialize(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Initialize() error = %v, want wrapped %v", err, wantErr)
	}
	if s.Initialized() {
		t.Error("store should not be initialized after loader failure")
	}
}
