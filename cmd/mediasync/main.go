// Command mediasync runs the blog media reconciliation daemon and its
// inspection tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mediasync",
	Short: "Blog media state reconciliation",
	Long: `mediasync keeps a blog post's media selection converged across the
draft form, the gallery view store, and the main-image backup store.

Run the daemon with 'mediasync run', inspect state with
'mediasync status', and manage the backup store with 'mediasync backup'.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default: ./mediasync.yaml, then ~/.mediasync/mediasync.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
