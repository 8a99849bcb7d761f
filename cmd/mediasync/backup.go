package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/formstep/mediasync/internal/backup"
	"github.com/formstep/mediasync/internal/config"
	"github.com/formstep/mediasync/internal/ui"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect and manage the main-image backup store",
}

var backupShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the backup record and any leftover keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		bak, err := openBackup()
		if err != nil {
			return err
		}
		defer bak.Close()

		fmt.Printf("\n%s\n\n", ui.Title("Backup Store"))
		fmt.Printf("%s\n", ui.KV("Database", bak.Path()))

		if img, ok := bak.ReadBackup(); ok {
			fmt.Printf("%s\n", ui.KV("Main image", img))
		} else {
			fmt.Printf("%s\n", ui.Muted("No usable backup record"))
		}

		keys, err := bak.Keys(context.Background())
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			fmt.Printf("\n%s\n", ui.Title("Keys"))
			for _, key := range keys {
				raw, err := bak.Raw(key)
				if err != nil {
					return err
				}
				fmt.Printf("  %s = %s\n", key, raw)
			}
		}
		fmt.Println()
		return nil
	},
}

var backupClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the backup record and all legacy keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		bak, err := openBackup()
		if err != nil {
			return err
		}
		defer bak.Close()

		bak.Purge()
		fmt.Printf("%s\n", ui.Pass("Backup store cleared"))
		return nil
	},
}

var backupSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete only the legacy keys, keeping the live record",
	RunE: func(cmd *cobra.Command, args []string) error {
		bak, err := openBackup()
		if err != nil {
			return err
		}
		defer bak.Close()

		bak.SweepLegacyKeys()
		fmt.Printf("%s\n", ui.Pass("Legacy keys swept"))
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupShowCmd)
	backupCmd.AddCommand(backupClearCmd)
	backupCmd.AddCommand(backupSweepCmd)
}

func openBackup() (*backup.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.BackupDBPath()); os.IsNotExist(err) {
		return nil, fmt.Errorf("no backup database at %s (daemon has not run yet)", cfg.BackupDBPath())
	}
	return backup.Open(cfg.BackupDBPath(), log.New(io.Discard, "", 0))
}
