package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/formstep/mediasync/internal/backup"
	"github.com/formstep/mediasync/internal/config"
	"github.com/formstep/mediasync/internal/form"
	"github.com/formstep/mediasync/internal/gallery"
	"github.com/formstep/mediasync/internal/ui"
)

var statusAsYAML bool

// statusReport is the machine-readable shape of 'mediasync status'.
type statusReport struct {
	DraftPath    string `yaml:"draft_path"`
	MediaCount   int    `yaml:"media_count"`
	NameCount    int    `yaml:"name_count"`
	MainImage    string `yaml:"main_image,omitempty"`
	SliderCount  int    `yaml:"slider_count"`
	Placeholders bool   `yaml:"placeholders"`
	Valid        bool   `yaml:"valid"`
	AutoClean    bool   `yaml:"auto_clean_pending"`
	BackupImage  string `yaml:"backup_image,omitempty"`
	BackupFresh  bool   `yaml:"backup_fresh"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show draft and backup state",
	Long: `Display the current draft document, its integrity, and the backup
record.

Shows media/name alignment the same way the daemon's integrity check
sees it, so drift is visible before the daemon acts on it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		draft, err := form.LoadDraft(cfg.DraftPath)
		if err != nil {
			return err
		}

		report := gallery.CheckIntegrity(draft.Media, draft.SelectedFileNames)

		status := statusReport{
			DraftPath:    cfg.DraftPath,
			MediaCount:   report.MediaCount,
			NameCount:    report.NameCount,
			MainImage:    draft.MainImage,
			SliderCount:  len(draft.SliderImages),
			Placeholders: report.HasPlaceholders,
			Valid:        report.IsValid,
			AutoClean:    report.ShouldAutoClean,
		}

		// Backup state is optional: a missing database just means no
		// daemon has run yet.
		if _, err := os.Stat(cfg.BackupDBPath()); err == nil {
			bak, err := backup.Open(cfg.BackupDBPath(), log.New(io.Discard, "", 0))
			if err != nil {
				return err
			}
			defer bak.Close()
			if img, ok := bak.ReadBackup(); ok {
				status.BackupImage = img
				status.BackupFresh = true
			}
		}

		if statusAsYAML {
			return yaml.NewEncoder(os.Stdout).Encode(status)
		}

		printStatus(status)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusAsYAML, "yaml", false, "emit machine-readable YAML")
}

func printStatus(s statusReport) {
	fmt.Printf("\n%s\n\n", ui.Title("Media Sync Status"))
	fmt.Printf("%s\n", ui.KV("Draft", s.DraftPath))
	fmt.Printf("%s\n", ui.KV("Media", fmt.Sprintf("%d", s.MediaCount)))
	fmt.Printf("%s\n", ui.KV("Names", fmt.Sprintf("%d", s.NameCount)))
	if s.MainImage != "" {
		fmt.Printf("%s\n", ui.KV("Main image", s.MainImage))
	}
	fmt.Printf("%s\n", ui.KV("Slider", fmt.Sprintf("%d", s.SliderCount)))

	switch {
	case s.Valid:
		fmt.Printf("\n%s\n", ui.Pass("Media and names aligned"))
	case s.AutoClean:
		fmt.Printf("\n%s\n", ui.Fail("Severe drift, daemon will auto-clean"))
	default:
		fmt.Printf("\n%s\n", ui.Warn("Drift within tolerance"))
	}
	if s.Placeholders {
		fmt.Printf("%s\n", ui.Warn("Placeholder markers present"))
	}

	if s.BackupFresh {
		fmt.Printf("%s\n", ui.KV("Backup", s.BackupImage))
	} else {
		fmt.Printf("%s\n", ui.Muted("No fresh backup record"))
	}
	fmt.Println()
}
