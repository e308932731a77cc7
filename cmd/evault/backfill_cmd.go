package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dogebooch/extractvault/internal/archive"
	"github.com/dogebooch/extractvault/internal/backfill"
	"github.com/dogebooch/extractvault/internal/catalog/sqlite"
	"github.com/dogebooch/extractvault/internal/ingest"
	"github.com/dogebooch/extractvault/internal/logsink"
	"github.com/dogebooch/extractvault/internal/media"
)

var backfillWatch bool

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "replay archived extractions that never made it into the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.Open(databasePath(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer func() { _ = store.Close() }()

		logger := logsink.New(store, logsink.LevelInfo)

		archiver, err := archive.New(cfg.ArchiveRoot)
		if err != nil {
			return fmt.Errorf("init archiver: %w", err)
		}
		relocator, err := media.New(cfg.MediaRoot)
		if err != nil {
			return fmt.Errorf("init media relocator: %w", err)
		}
		orch := ingest.New(archiver, relocator, store, logger)

		printReport := func(r *backfill.Report) {
			fmt.Printf("scanned=%d ingested=%d skipped=%d errors=%d\n",
				r.Scanned, r.Ingested, r.Skipped, len(r.Errors))
			for _, e := range r.Errors {
				fmt.Printf("  error: %s\n", e)
			}
		}

		if backfillWatch {
			return backfill.Watch(rootCtx, cfg.ArchiveRoot, orch, logger, printReport)
		}

		report, err := backfill.Run(rootCtx, cfg.ArchiveRoot, orch, logger)
		if err != nil {
			return fmt.Errorf("backfill run: %w", err)
		}
		printReport(report)
		return nil
	},
}

func init() {
	backfillCmd.Flags().BoolVar(&backfillWatch, "watch", false, "keep running, replaying new archive drops as they appear")
	rootCmd.AddCommand(backfillCmd)
}
