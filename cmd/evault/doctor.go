package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dogebooch/extractvault/internal/catalog/sqlite"
	"github.com/dogebooch/extractvault/internal/preflight"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "run the preflight validator standalone and report results",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.Open(databasePath(cfg.DatabaseURL))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open catalog for doctor checks: %v\n", err)
		}

		opts := preflight.Options{
			Cfg:           cfg,
			Headless:      true,
			NoteServerURL: fmt.Sprintf("http://127.0.0.1:%d/", cfg.NoteServerPort),
		}
		if store != nil {
			opts.Catalog = store
		}

		report := preflight.Run(rootCtx, opts)
		fmt.Print(report.ToSummary())

		if store != nil {
			_ = store.Close()
		}

		// Exit codes: 0 all clear, 1 one or more FATAL, 2 only WARNs.
		switch {
		case report.HasFatal():
			os.Exit(1)
		case report.HasWarnings():
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
