package reconcile

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/formstep/mediasync/internal/form"
	"github.com/formstep/mediasync/internal/gallery"
)

// Backup is the slice of the backup store the engine needs. The
// concrete implementation lives in internal/backup.
type Backup interface {
	// WriteBackup persists the main image; best-effort, never fails.
	WriteBackup(mainImage, source string)
	// ReadBackup returns a usable backed-up main image, if any.
	ReadBackup() (string, bool)
	// Purge removes the live record and all legacy keys.
	Purge()
}

// Store is the slice of the gallery view store the engine needs; it
// matches internal/store.Store.
type Store interface {
	Config() gallery.ViewConfig
	SetConfig(cfg gallery.ViewConfig)
	UpdateConfig(apply func(*gallery.ViewConfig))
	Initialize(ctx context.Context) error
	Initialized() bool
}

// Config holds engine configuration.
//
// The integrity constants were tuned empirically in production; there is
// no derivation behind 10/30s/3s, so they are exposed as configuration
// rather than re-derived.
type Config struct {
	// QueueSize is the operation queue capacity. Producers whose
	// operations do not fit are dropped with an IssueQueueFull.
	QueueSize int

	// IntegrityMaxChecks is how many integrity checks may run in quick
	// succession before the circuit breaker trips.
	IntegrityMaxChecks int

	// IntegrityDisableWindow is how long integrity checking stays
	// disabled after the breaker trips.
	IntegrityDisableWindow time.Duration

	// CleanupCooldown is the minimum spacing between destructive
	// auto-cleans, and the spacing that resets the breaker's counter.
	CleanupCooldown time.Duration

	// IssueHistory is how many recent issues to retain.
	IssueHistory int

	// Logger for engine activity.
	Logger *log.Logger

	// OnOperation, if set, is called after every executed operation.
	OnOperation func(op Operation, err error)

	// OnIssue, if set, is called for every recorded issue.
	OnIssue func(issue Issue)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		QueueSize:              256,
		IntegrityMaxChecks:     10,
		IntegrityDisableWindow: 30 * time.Second,
		CleanupCooldown:        3 * time.Second,
		IssueHistory:           100,
		Logger:                 log.New(os.Stderr, "[reconcile] ", log.LstdFlags),
	}
}

// Stats is a snapshot of engine activity for inspection and the
// dashboard.
type Stats struct {
	Executed               map[string]int `json:"executed"`
	Errors                 int            `json:"errors"`
	Issues                 int            `json:"issues"`
	QueueDepth             int            `json:"queue_depth"`
	Initialized            bool           `json:"initialized"`
	IntegrityDisabledUntil time.Time      `json:"integrity_disabled_until,omitempty"`
}

// Engine serializes reconciliation operations across the view store,
// the draft form, and the backup store.
//
// All operations flow through one buffered FIFO queue drained by a
// single worker goroutine, so at most one operation is in flight and
// enqueue order is execution order. Only the worker touches the three
// replicas on the engine's behalf; producers just enqueue.
//
// Side effects are never rolled back: if an operation fails after
// writing one replica, the writes stand, the error is recorded as an
// Issue, and the queue keeps draining.
type Engine struct {
	store  Store
	form   form.Form
	backup Backup
	config *Config
	logger *log.Logger

	queue chan Operation

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	executed    map[OpType]int
	errCount    int
	issueCount  int
	issues      []Issue
	initialized bool

	// integrity circuit breaker state
	checkCount    int
	lastCheckAt   time.Time
	lastCleanAt   time.Time
	disabledUntil time.Time

	now func() time.Time
}

// New creates an engine over the three replicas.
//
// Use Start() to begin draining the queue. Operations may be enqueued
// before Start; they wait in the queue.
func New(viewStore Store, draftForm form.Form, bak Backup, config *Config) (*Engine, error) {
	if viewStore == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if draftForm == nil {
		return nil, fmt.Errorf("form cannot be nil")
	}
	if bak == nil {
		return nil, fmt.Errorf("backup cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		store:    viewStore,
		form:     draftForm,
		backup:   bak,
		config:   config,
		logger:   config.Logger,
		queue:    make(chan Operation, config.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		executed: make(map[OpType]int),
		now:      time.Now,
	}, nil
}

// Start launches the worker goroutine. It returns immediately.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
	e.logger.Println("Engine started")
}

// Stop shuts the worker down and waits for the in-flight operation to
// finish. Queued operations that have not started are discarded.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	e.logger.Println("Engine stopped")
}

// run is the single consumer loop: strict FIFO, one operation at a time.
func (e *Engine) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case op := <-e.queue:
			e.execute(op)
		}
	}
}

// Enqueue appends an operation to the queue. If the queue is full the
// operation is dropped and recorded as an issue; the caller may retry.
func (e *Engine) Enqueue(op Operation) error {
	select {
	case e.queue <- op:
		return nil
	default:
		e.recordIssue(Issue{
			Kind:   IssueQueueFull,
			Op:     op.Type,
			Detail: fmt.Sprintf("queue at capacity %d, operation %s dropped", cap(e.queue), op.ID),
			Time:   e.now(),
		})
		return fmt.Errorf("operation queue full (capacity %d)", cap(e.queue))
	}
}

// Trigger enqueues a payload-less operation of the given type.
func (e *Engine) Trigger(t OpType) error {
	return e.Enqueue(NewOperation(t, Payload{}))
}

// execute runs one operation, records stats, and reports the outcome.
func (e *Engine) execute(op Operation) {
	var err error

	switch op.Type {
	case OpInitialize:
		err = e.handleInitialize()
	case OpFormToStore:
		err = e.handleFormToStore(op)
	case OpStoreToForm:
		err = e.handleStoreToForm()
	case OpMainImageSync:
		err = e.handleMainImageSync(op)
	case OpForceSync:
		err = e.handleForceSync()
	case OpIntegrityCheck:
		err = e.handleIntegrityCheck()
	case OpPlaceholderCleanup:
		err = e.handlePlaceholderCleanup()
	default:
		err = fmt.Errorf("unknown operation type %d", op.Type)
	}

	e.mu.Lock()
	e.executed[op.Type]++
	if err != nil {
		e.errCount++
	}
	e.mu.Unlock()

	if err != nil {
		e.recordIssue(Issue{
			Kind:   IssueOperationFailed,
			Op:     op.Type,
			Detail: "operation failed, queue continues",
			Err:    err,
			Time:   e.now(),
		})
	}

	if cb := e.config.OnOperation; cb != nil {
		cb(op, err)
	}
}

// handleInitialize seeds empty form fields from the store (and, with
// higher priority for the main image, the backup record).
func (e *Engine) handleInitialize() error {
	if !e.store.Initialized() {
		if err := e.store.Initialize(e.ctx); err != nil {
			return fmt.Errorf("store initialization failed: %w", err)
		}
	}

	cfg := e.store.Config()

	if len(gallery.StripPlaceholders(e.form.Values(form.FieldMedia))) == 0 {
		if stored := gallery.StripPlaceholders(cfg.SelectedImages); len(stored) > 0 {
			e.logger.Printf("Seeding form media from store (%d images)", len(stored))
			e.form.SetValues(form.FieldMedia, stored, form.SetOptions{})
		}
	}

	if e.form.Value(form.FieldMainImage) == "" {
		main := ""
		if backed, ok := e.backup.ReadBackup(); ok {
			main = backed
			e.logger.Printf("Seeding main image from backup: %s", main)
		} else if cfg.MainImage != "" && !gallery.IsPlaceholder(cfg.MainImage) {
			main = cfg.MainImage
			e.logger.Printf("Seeding main image from store: %s", main)
		}
		if main != "" {
			e.form.SetString(form.FieldMainImage, main, form.SetOptions{})
		}
	}

	if len(e.form.Values(form.FieldSliderImages)) == 0 {
		if slider := gallery.StripPlaceholders(cfg.SliderImages); len(slider) > 0 {
			e.form.SetValues(form.FieldSliderImages, slider, form.SetOptions{})
		}
	}

	e.mu.Lock()
	e.initialized = true
	e.mu.Unlock()

	e.logger.Println("Engine initialized")
	return nil
}

// handleFormToStore pushes the (sanitized) form selection into the view
// store, fully overwriting its media, slider, and main-image fields.
func (e *Engine) handleFormToStore(op Operation) error {
	media := op.Payload.Media
	if media == nil {
		media = e.form.Values(form.FieldMedia)
	}
	media = gallery.StripPlaceholders(media)

	main := ""
	if op.Payload.HasMainImage {
		main = op.Payload.MainImage
	} else {
		main = e.form.Value(form.FieldMainImage)
	}
	if main != "" && gallery.IsPlaceholder(main) {
		e.recordIssue(Issue{
			Kind:   IssuePlaceholderRejected,
			Op:     OpFormToStore,
			Detail: "placeholder offered as main image, writing null instead",
			Time:   e.now(),
		})
		main = ""
	}

	inMedia := make(map[string]bool, len(media))
	for _, url := range media {
		inMedia[url] = true
	}

	var slider []string
	for _, url := range e.form.Values(form.FieldSliderImages) {
		if url == "" || gallery.IsPlaceholder(url) {
			continue
		}
		if !inMedia[url] || url == main {
			continue
		}
		slider = append(slider, url)
	}

	e.store.UpdateConfig(func(cfg *gallery.ViewConfig) {
		cfg.SelectedImages = media
		cfg.SliderImages = slider
		cfg.MainImage = main
	})

	e.logger.Printf("Form -> store: %d media, %d slider, main=%q", len(media), len(slider), main)
	return nil
}

// handleStoreToForm pulls the view store's selection into the form.
// Main-image precedence: a fresh backup record fills in only when the
// store has none; otherwise the store value stands.
func (e *Engine) handleStoreToForm() error {
	cfg := e.store.Config()

	main := cfg.MainImage
	if main == "" {
		if backed, ok := e.backup.ReadBackup(); ok {
			main = backed
			e.logger.Printf("Store has no main image, restoring from backup: %s", main)
		}
	}
	if gallery.IsPlaceholder(main) {
		main = ""
	}

	e.form.SetValues(form.FieldMedia, gallery.StripPlaceholders(cfg.SelectedImages), form.SetOptions{Dirty: true})
	e.form.SetValues(form.FieldSliderImages, gallery.StripPlaceholders(cfg.SliderImages), form.SetOptions{Dirty: true})
	e.form.SetString(form.FieldMainImage, main, form.SetOptions{Dirty: true, Touch: true})

	e.logger.Printf("Store -> form: %d media, main=%q", len(cfg.SelectedImages), main)
	return nil
}

// handleMainImageSync writes a validated candidate into the view store
// only. An empty or placeholder candidate writes null.
func (e *Engine) handleMainImageSync(op Operation) error {
	candidate := op.Payload.MainImage
	if candidate != "" && gallery.IsPlaceholder(candidate) {
		e.recordIssue(Issue{
			Kind:   IssuePlaceholderRejected,
			Op:     OpMainImageSync,
			Detail: fmt.Sprintf("placeholder candidate %q, writing null", candidate),
			Time:   e.now(),
		})
		candidate = ""
	}

	e.store.UpdateConfig(func(cfg *gallery.ViewConfig) {
		cfg.MainImage = candidate
	})

	e.logger.Printf("Main image sync: store main=%q", candidate)
	return nil
}

// handleForceSync lets the side with strictly more (cleaned) media
// overwrite the other, carrying the winner's main image along when it
// is usable.
func (e *Engine) handleForceSync() error {
	cfg := e.store.Config()
	storeMedia := gallery.StripPlaceholders(cfg.SelectedImages)
	formMedia := gallery.StripPlaceholders(e.form.Values(form.FieldMedia))

	switch {
	case len(storeMedia) > len(formMedia):
		e.logger.Printf("Force sync: store wins (%d > %d)", len(storeMedia), len(formMedia))
		e.form.SetValues(form.FieldMedia, storeMedia, form.SetOptions{Dirty: true})
		if main := usableMain(cfg.MainImage, e.form.Value(form.FieldMainImage)); main != "" {
			e.form.SetString(form.FieldMainImage, main, form.SetOptions{Dirty: true})
		}

	case len(formMedia) > len(storeMedia):
		e.logger.Printf("Force sync: form wins (%d > %d)", len(formMedia), len(storeMedia))
		main := usableMain(e.form.Value(form.FieldMainImage), cfg.MainImage)
		e.store.UpdateConfig(func(c *gallery.ViewConfig) {
			c.SelectedImages = formMedia
			if main != "" {
				c.MainImage = main
			}
		})

	default:
		e.logger.Printf("Force sync: both sides have %d media, nothing to do", len(formMedia))
	}

	return nil
}

// usableMain returns the first candidate that is non-empty and not a
// placeholder.
func usableMain(candidates ...string) string {
	for _, c := range candidates {
		if c != "" && !gallery.IsPlaceholder(c) {
			return c
		}
	}
	return ""
}

// handleIntegrityCheck samples the form's media/name alignment. Severe
// drift is destructively cleaned, subject to the per-clean cooldown;
// runaway check loops trip a circuit breaker that disables checking for
// the configured window.
func (e *Engine) handleIntegrityCheck() error {
	now := e.now()

	e.mu.Lock()
	if now.Before(e.disabledUntil) {
		until := e.disabledUntil
		e.mu.Unlock()
		e.logger.Printf("Integrity check skipped, disabled until %s", until.Format(time.RFC3339))
		return nil
	}
	if now.Sub(e.lastCheckAt) >= e.config.CleanupCooldown {
		e.checkCount = 0
	}
	e.checkCount++
	e.lastCheckAt = now
	if e.checkCount >= e.config.IntegrityMaxChecks {
		e.disabledUntil = now.Add(e.config.IntegrityDisableWindow)
		e.checkCount = 0
		e.mu.Unlock()
		e.recordIssue(Issue{
			Kind:   IssueIntegrityDisabled,
			Op:     OpIntegrityCheck,
			Detail: fmt.Sprintf("circuit breaker tripped, disabled for %s", e.config.IntegrityDisableWindow),
			Time:   now,
		})
		return nil
	}
	lastClean := e.lastCleanAt
	e.mu.Unlock()

	media := e.form.Values(form.FieldMedia)
	names := e.form.Values(form.FieldFileNames)
	report := gallery.CheckIntegrity(media, names)

	if report.IsValid {
		return nil
	}

	if !report.ShouldAutoClean {
		e.recordIssue(Issue{
			Kind:   IssueIntegrityMismatch,
			Op:     OpIntegrityCheck,
			Detail: fmt.Sprintf("media=%d names=%d cleaned=%d, within tolerance", report.MediaCount, report.NameCount, report.CleanedCount),
			Time:   now,
		})
		return nil
	}

	if now.Sub(lastClean) < e.config.CleanupCooldown {
		e.logger.Printf("Auto-clean wanted but cooling down (%s since last)", now.Sub(lastClean).Round(time.Millisecond))
		return nil
	}

	result := gallery.RestoreWithCleanup(media, names)
	e.form.SetValues(form.FieldMedia, result.CleanedURLs, form.SetOptions{Dirty: true})
	e.form.SetValues(form.FieldFileNames, result.CleanedNames, form.SetOptions{Dirty: true})
	e.backup.Purge()

	e.mu.Lock()
	e.lastCleanAt = now
	e.mu.Unlock()

	e.recordIssue(Issue{
		Kind:   IssueIntegrityCleaned,
		Op:     OpIntegrityCheck,
		Detail: fmt.Sprintf("removed %d entries, %d remain", result.RemovedCount, len(result.CleanedURLs)),
		Time:   now,
	})
	return nil
}

// handlePlaceholderCleanup strips markers from the form's media/name
// pair, writing back only if something changed.
func (e *Engine) handlePlaceholderCleanup() error {
	media := e.form.Values(form.FieldMedia)
	names := e.form.Values(form.FieldFileNames)

	result := gallery.RestoreWithCleanup(media, names)
	if result.RemovedCount == 0 && len(result.CleanedNames) == len(names) {
		return nil
	}

	e.form.SetValues(form.FieldMedia, result.CleanedURLs, form.SetOptions{Dirty: true})
	e.form.SetValues(form.FieldFileNames, result.CleanedNames, form.SetOptions{Dirty: true})

	e.logger.Printf("Placeholder cleanup: removed %d entries", result.RemovedCount)
	return nil
}

// SetMainImage is the user-facing main-image change: it updates the
// form, evicts the url from the slider subset (main image and slider
// membership are mutually exclusive), backs the choice up, and enqueues
// the store-side sync.
//
// An empty url clears the main image. A placeholder url is rejected.
func (e *Engine) SetMainImage(url string) error {
	if url != "" && gallery.IsPlaceholder(url) {
		e.recordIssue(Issue{
			Kind:   IssuePlaceholderRejected,
			Op:     OpMainImageSync,
			Detail: fmt.Sprintf("refused placeholder main image %q", url),
			Time:   e.now(),
		})
		return fmt.Errorf("cannot use placeholder %q as main image", url)
	}

	e.form.SetString(form.FieldMainImage, url, form.SetOptions{Dirty: true, Touch: true})

	if url != "" {
		slider := e.form.Values(form.FieldSliderImages)
		filtered := make([]string, 0, len(slider))
		for _, s := range slider {
			if s != url {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) != len(slider) {
			e.form.SetValues(form.FieldSliderImages, filtered, form.SetOptions{Dirty: true})
		}
	}

	e.backup.WriteBackup(url, "set_main_image")

	return e.Enqueue(NewOperation(OpMainImageSync, Payload{MainImage: url, HasMainImage: true}))
}

// UpdateMedia is the user-facing media change: it replaces the form's
// media (and, when provided, display names) and enqueues the store-side
// push.
func (e *Engine) UpdateMedia(media, names []string) error {
	e.form.SetValues(form.FieldMedia, media, form.SetOptions{Dirty: true, Touch: true})
	if names != nil {
		e.form.SetValues(form.FieldFileNames, names, form.SetOptions{Dirty: true})
	}
	return e.Enqueue(NewOperation(OpFormToStore, Payload{Media: append([]string(nil), media...)}))
}

// NoteMainImageChange is the watcher entry point for debounced form
// main-image changes: back the value up and sync it to the store.
func (e *Engine) NoteMainImageChange(url string) {
	e.backup.WriteBackup(url, "main_image_watch")
	_ = e.Enqueue(NewOperation(OpMainImageSync, Payload{MainImage: url, HasMainImage: true}))
}

// Initialized reports whether an Initialize operation has completed.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Stats returns a snapshot of engine activity.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	executed := make(map[string]int, len(e.executed))
	for t, n := range e.executed {
		executed[t.String()] = n
	}

	return Stats{
		Executed:               executed,
		Errors:                 e.errCount,
		Issues:                 e.issueCount,
		QueueDepth:             len(e.queue),
		Initialized:            e.initialized,
		IntegrityDisabledUntil: e.disabledUntil,
	}
}

// Issues returns the retained recent issues, oldest first.
func (e *Engine) Issues() []Issue {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Issue(nil), e.issues...)
}

// recordIssue retains, logs, and publishes an issue.
func (e *Engine) recordIssue(issue Issue) {
	e.mu.Lock()
	e.issueCount++
	e.issues = append(e.issues, issue)
	if max := e.config.IssueHistory; max > 0 && len(e.issues) > max {
		e.issues = e.issues[len(e.issues)-max:]
	}
	e.mu.Unlock()

	e.logger.Printf("Issue: %s", issue)

	if cb := e.config.OnIssue; cb != nil {
		cb(issue)
	}
}
