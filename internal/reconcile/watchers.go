package reconcile

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/formstep/mediasync/internal/form"
	"github.com/formstep/mediasync/internal/gallery"
)

// WatcherConfig holds the debounce windows for the form watchers.
type WatcherConfig struct {
	// MainImageDebounce is how long a main-image change must sit quiet
	// before it is backed up and synced to the store.
	MainImageDebounce time.Duration

	// IntegrityInterval is how often the media/name alignment is sampled.
	IntegrityInterval time.Duration

	// PlaceholderDebounce is how long media changes containing
	// placeholder markers must sit quiet before cleanup is enqueued.
	PlaceholderDebounce time.Duration

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultWatcherConfig returns the production debounce windows.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		MainImageDebounce:   200 * time.Millisecond,
		IntegrityInterval:   1 * time.Second,
		PlaceholderDebounce: 500 * time.Millisecond,
		Logger:              log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watchers observes the form and feeds the engine's queue.
//
// Three observers run, each on its own goroutine:
//
//   - main image: change-driven, debounced; backs the value up and
//     enqueues a store-side sync once it settles.
//   - integrity: interval sampler; enqueues a check only when the
//     sampled state already looks severe enough to auto-clean, so the
//     queue is not flooded with no-op checks.
//   - placeholders: change-driven, debounced; enqueues a cleanup when
//     media changes still carry markers after the window.
//
// Debouncing is tick-based: a change records a pending value and its
// arrival time, and a ticker fires the action once the value has been
// stable for the window. Rapid changes keep refreshing the arrival time,
// so only the final value acts.
type Watchers struct {
	engine *Engine
	form   form.Form
	config *WatcherConfig
	logger *log.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewWatchers creates watchers over the form, feeding the engine.
func NewWatchers(engine *Engine, f form.Form, config *WatcherConfig) (*Watchers, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if f == nil {
		return nil, fmt.Errorf("form cannot be nil")
	}
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}

	return &Watchers{
		engine: engine,
		form:   f,
		config: config,
		logger: config.Logger,
		stop:   make(chan struct{}),
	}, nil
}

// Start launches the watcher goroutines.
func (w *Watchers) Start() {
	w.wg.Add(3)
	go w.watchMainImage()
	go w.watchIntegrity()
	go w.watchPlaceholders()
	w.logger.Println("Watchers started")
}

// Stop shuts all watchers down and waits for them to exit.
func (w *Watchers) Stop() {
	close(w.stop)
	w.wg.Wait()
	w.logger.Println("Watchers stopped")
}

func (w *Watchers) watchMainImage() {
	defer w.wg.Done()

	ch := w.form.Watch(form.FieldMainImage)
	ticker := time.NewTicker(w.config.MainImageDebounce / 2)
	defer ticker.Stop()

	var pending string
	var pendingAt time.Time
	var has bool

	for {
		select {
		case <-w.stop:
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			pending = ""
			if len(change.Values) > 0 {
				pending = change.Values[0]
			}
			pendingAt = time.Now()
			has = true
		case <-ticker.C:
			if !has || time.Since(pendingAt) < w.config.MainImageDebounce {
				continue
			}
			has = false
			w.logger.Printf("Main image settled: %q", pending)
			w.engine.NoteMainImageChange(pending)
		}
	}
}

func (w *Watchers) watchIntegrity() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.IntegrityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			media := w.form.Values(form.FieldMedia)
			names := w.form.Values(form.FieldFileNames)
			report := gallery.CheckIntegrity(media, names)
			if !report.ShouldAutoClean {
				continue
			}
			w.logger.Printf("Integrity drift detected (media=%d names=%d), enqueueing check",
				report.MediaCount, report.NameCount)
			_ = w.engine.Trigger(OpIntegrityCheck)
		}
	}
}

func (w *Watchers) watchPlaceholders() {
	defer w.wg.Done()

	ch := w.form.Watch(form.FieldMedia)
	ticker := time.NewTicker(w.config.PlaceholderDebounce / 2)
	defer ticker.Stop()

	var pendingAt time.Time
	var has bool

	for {
		select {
		case <-w.stop:
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			if !gallery.HasPlaceholders(change.Values) {
				has = false
				continue
			}
			pendingAt = time.Now()
			has = true
		case <-ticker.C:
			if !has || time.Since(pendingAt) < w.config.PlaceholderDebounce {
				continue
			}
			has = false
			// Re-check: the upload may have committed during the window.
			if !gallery.HasPlaceholders(w.form.Values(form.FieldMedia)) {
				continue
			}
			w.logger.Println("Placeholders still present after debounce, enqueueing cleanup")
			_ = w.engine.Trigger(OpPlaceholderCleanup)
		}
	}
}
