package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dogebooch/extractvault/internal/archive"
	"github.com/dogebooch/extractvault/internal/catalog/sqlite"
	"github.com/dogebooch/extractvault/internal/httpapi"
	"github.com/dogebooch/extractvault/internal/ingest"
	"github.com/dogebooch/extractvault/internal/logsink"
	"github.com/dogebooch/extractvault/internal/media"
	"github.com/dogebooch/extractvault/internal/notesrv"
	"github.com/dogebooch/extractvault/internal/preflight"
)

// noteServerBinary is the executable name the supervisor looks up on PATH.
const noteServerBinary = "note-server"

var (
	serveAddr          string
	serveSkipPreflight bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP receiver, note-server supervisor and preflight checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.Open(databasePath(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer func() { _ = store.Close() }()

		logger := logsink.New(store, logsink.LevelInfo)

		skipPreflight := serveSkipPreflight || cfg.SkipPreflight
		if !skipPreflight {
			report := preflight.Run(rootCtx, preflight.Options{
				Cfg: cfg, Catalog: store, Headless: true,
				NoteServerURL: fmt.Sprintf("http://127.0.0.1:%d/", cfg.NoteServerPort),
			})
			fmt.Fprint(os.Stderr, report.ToSummary())
			if report.HasFatal() {
				return fmt.Errorf("preflight failed with fatal errors")
			}
		}

		archiver, err := archive.New(cfg.ArchiveRoot)
		if err != nil {
			return fmt.Errorf("init archiver: %w", err)
		}
		relocator, err := media.New(cfg.MediaRoot)
		if err != nil {
			return fmt.Errorf("init media relocator: %w", err)
		}
		orch := ingest.New(archiver, relocator, store, logger)

		sup, supErr := notesrv.New(noteServerBinary, cfg.NoteServerPort, cfg.NotesDir)
		if supErr != nil {
			logger.Warnf(rootCtx, "serve", "note-server supervisor unavailable: %v", supErr)
		} else {
			// Subprocess management runs independently of request handling;
			// a note server that never comes up degrades to IsRunning()==false
			// without delaying the receiver.
			go func() {
				if err := sup.Start(rootCtx); err != nil {
					logger.Warnf(rootCtx, "serve", "note-server failed to start: %v", err)
				}
			}()
			defer sup.Stop()
		}

		server := httpapi.New(orch, store, logger, serveAddr)
		fmt.Fprintf(os.Stderr, "listening on %s\n", serveAddr)
		if err := server.Start(rootCtx); err != nil {
			return fmt.Errorf("http receiver: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8420", "HTTP receiver listen address")
	serveCmd.Flags().BoolVar(&serveSkipPreflight, "skip-preflight", false, "bypass the startup preflight validator")
	rootCmd.AddCommand(serveCmd)
}
