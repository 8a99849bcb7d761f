package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/formstep/mediasync/internal/backup"
	"github.com/formstep/mediasync/internal/config"
	"github.com/formstep/mediasync/internal/dashboard"
	"github.com/formstep/mediasync/internal/form"
	"github.com/formstep/mediasync/internal/gallery"
	"github.com/formstep/mediasync/internal/reconcile"
	"github.com/formstep/mediasync/internal/store"
	"github.com/formstep/mediasync/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reconciliation daemon",
	Long: `Start the reconciliation daemon.

The daemon:
  1. Loads the draft document and gallery state from disk
  2. Seeds empty form fields from the store and backup
  3. Watches the form and the draft file, feeding the operation queue
  4. Optionally serves a WebSocket dashboard of engine activity

Stop it with Ctrl-C or SIGTERM; state is persisted on the way out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runDaemon(cfg)
	},
}

// galleryStatePath is where the view store persists under the data dir.
func galleryStatePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "gallery.json")
}

// newLogWriter returns the daemon log destination: stderr, teed into a
// rotating file when one is configured.
func newLogWriter(cfg *config.Config) io.Writer {
	if cfg.Log.File == "" {
		return os.Stderr
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
	return io.MultiWriter(os.Stderr, rotator)
}

// loadGalleryState reads the persisted view config. Missing file means a
// fresh store.
func loadGalleryState(path string) (*gallery.ViewConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery state: %w", err)
	}

	var state gallery.ViewConfig
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse gallery state %s: %w", path, err)
	}
	return &state, nil
}

// saveGalleryState persists the view config through a temp-file rename.
func saveGalleryState(path string, state gallery.ViewConfig) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal gallery state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write gallery state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace gallery state: %w", err)
	}
	return nil
}

func runDaemon(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logWriter := newLogWriter(cfg)
	logger := log.New(logWriter, "[mediasync] ", log.LstdFlags)

	// Backup store.
	bak, err := backup.Open(cfg.BackupDBPath(), log.New(logWriter, "[backup] ", log.LstdFlags))
	if err != nil {
		return err
	}
	defer func() {
		if err := bak.Close(); err != nil {
			logger.Printf("Warning: %v", err)
		}
	}()

	// View store, seeded lazily from the persisted gallery state.
	statePath := galleryStatePath(cfg)
	viewStore := store.NewMemoryStore(func(ctx context.Context) (*gallery.ViewConfig, error) {
		return loadGalleryState(statePath)
	})

	// Draft form, seeded from the on-disk draft document.
	draftForm := form.NewMemoryForm()
	draft, err := form.LoadDraft(cfg.DraftPath)
	if err != nil {
		return err
	}
	draft.Apply(draftForm)

	// Engine.
	engineCfg := &reconcile.Config{
		QueueSize:              cfg.Engine.QueueSize,
		IntegrityMaxChecks:     cfg.Engine.IntegrityMaxChecks,
		IntegrityDisableWindow: cfg.Engine.IntegrityDisableWindow,
		CleanupCooldown:        cfg.Engine.CleanupCooldown,
		IssueHistory:           cfg.Engine.IssueHistory,
		Logger:                 log.New(logWriter, "[reconcile] ", log.LstdFlags),
	}

	// Dashboard, wired into the engine callbacks when enabled.
	var dash *dashboard.Server
	engine, err := reconcile.New(viewStore, draftForm, bak, engineCfg)
	if err != nil {
		return err
	}
	if cfg.Dashboard.Enabled {
		dash = dashboard.NewServer(&dashboard.Config{
			Port:          cfg.Dashboard.Port,
			StatsInterval: cfg.Dashboard.StatsInterval,
			Logger:        log.New(logWriter, "[dashboard] ", log.LstdFlags),
		}, engine.Stats)
		engineCfg.OnOperation = dash.PublishOperation
		engineCfg.OnIssue = dash.PublishIssue

		if err := dash.Start(); err != nil {
			return err
		}
		fmt.Printf("%s\n", ui.KV("Dashboard", fmt.Sprintf("http://%s", dash.GetAddr())))
	}

	engine.Start()

	if err := engine.Trigger(reconcile.OpInitialize); err != nil {
		return err
	}

	// Watchers.
	watchers, err := reconcile.NewWatchers(engine, draftForm, &reconcile.WatcherConfig{
		MainImageDebounce:   cfg.Watch.MainImageDebounce,
		IntegrityInterval:   cfg.Watch.IntegrityInterval,
		PlaceholderDebounce: cfg.Watch.PlaceholderDebounce,
		Logger:              log.New(logWriter, "[watch] ", log.LstdFlags),
	})
	if err != nil {
		return err
	}
	watchers.Start()

	draftWatcher, err := reconcile.NewDraftWatcher(engine, cfg.DraftPath,
		log.New(logWriter, "[draftwatch] ", log.LstdFlags))
	if err != nil {
		return err
	}
	if err := draftWatcher.Start(); err != nil {
		return err
	}

	fmt.Printf("%s\n", ui.Pass("Daemon running"))
	fmt.Printf("%s\n", ui.KV("Draft", cfg.DraftPath))
	fmt.Printf("%s\n", ui.KV("Data", cfg.DataDir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Println("Shutting down")

	// Producers first, engine second, so nothing mutates the replicas
	// while the final state is written out.
	draftWatcher.Stop()
	watchers.Stop()
	engine.Stop()

	if err := form.Snapshot(draftForm).Save(cfg.DraftPath); err != nil {
		logger.Printf("Warning: failed to save draft: %v", err)
	}
	if err := saveGalleryState(statePath, viewStore.Config()); err != nil {
		logger.Printf("Warning: failed to save gallery state: %v", err)
	}

	if dash != nil {
		if err := dash.Stop(); err != nil {
			logger.Printf("Warning: %v", err)
		}
	}

	return nil
}
