// Command evault is the extractvault CLI: a cobra root command wiring the
// catalog, archiver, media relocator, ingestion orchestrator, HTTP receiver,
// note-server supervisor and preflight validator together under one
// signal-aware root context.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dogebooch/extractvault/internal/config"
	"github.com/dogebooch/extractvault/internal/debug"
)

var (
	cfg        *config.Config
	rootCtx    context.Context
	rootCancel context.CancelFunc
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "evault",
	Short: "evault - archives scraped questions and catalogs them for flashcard review",
	Long: `extractvault receives extracted question pages from a browser userscript,
archives them to disk, catalogs them in SQLite, and supervises the local
note-server integration used to author flashcards from them.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		debug.SetEnabled(debugFlag || os.Getenv("EVAULT_DEBUG") != "")

		loaded, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable verbose stderr debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// databasePath strips a leading "file:" from DATABASE_URL, since the
// catalog's sqlite package opens a bare filesystem path rather than a URL.
// Any other scheme is passed through unchanged.
func databasePath(databaseURL string) string {
	return strings.TrimPrefix(databaseURL, "file:")
}
