package reconcile

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DraftWatcher watches the on-disk draft file and enqueues an immediate
// store-to-form restore when an external writer replaces it.
//
// This path is deliberately not debounced: a restored draft means the
// form was just repopulated wholesale, and the view store must win the
// race against whatever half-state the file carried.
//
// The parent directory is watched rather than the file itself, because
// draft saves go through a temp-file rename and a direct file watch
// would be dropped on the first replacement.
type DraftWatcher struct {
	engine  *Engine
	path    string
	watcher *fsnotify.Watcher
	logger  *log.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewDraftWatcher creates a watcher for the draft file at path.
func NewDraftWatcher(engine *Engine, path string, logger *log.Logger) (*DraftWatcher, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if path == "" {
		return nil, fmt.Errorf("draft path cannot be empty")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[draftwatch] ", log.LstdFlags)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve draft path: %w", err)
	}

	return &DraftWatcher{
		engine: engine,
		path:   abs,
		logger: logger,
		stop:   make(chan struct{}),
	}, nil
}

// Start begins watching. The draft's directory must exist.
func (d *DraftWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create draft watcher: %w", err)
	}

	dir := filepath.Dir(d.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch draft directory %s: %w", dir, err)
	}

	d.watcher = watcher
	d.wg.Add(1)
	go d.run()

	d.logger.Printf("Watching draft file: %s", d.path)
	return nil
}

// Stop shuts the watcher down.
func (d *DraftWatcher) Stop() {
	close(d.stop)
	if d.watcher != nil {
		_ = d.watcher.Close()
	}
	d.wg.Wait()
}

func (d *DraftWatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stop:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Name != d.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			d.logger.Printf("Draft file changed (%s), restoring from store", event.Op)
			_ = d.engine.Trigger(OpStoreToForm)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Printf("Draft watcher error: %v", err)
		}
	}
}
