package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dogebooch/extractvault/internal/notesrv"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "manage the note-server subprocess directly, outside of `serve`",
}

var notesStartCmd = &cobra.Command{
	Use:   "start",
	Short: "start the note server and wait for it to become healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := notesrv.New(noteServerBinary, cfg.NoteServerPort, cfg.NotesDir)
		if err != nil {
			return err
		}
		if err := sup.Start(rootCtx); err != nil {
			return fmt.Errorf("start note server: %w", err)
		}
		fmt.Printf("note server %s on port %d\n", sup.State(), cfg.NoteServerPort)
		return nil
	},
}

var notesStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "report whether a note server is running and which process owns it",
	// A Supervisor owns its subprocess handle in-memory only, and this
	// command runs in a fresh process with no handle, so it sends no signal:
	// it probes the port and reports what it finds. Stopping the note server
	// means stopping the `evault serve` process that spawned it.
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := notesrv.New(noteServerBinary, cfg.NoteServerPort, cfg.NotesDir)
		if err != nil {
			return err
		}
		if !sup.Probe() {
			fmt.Println("note server is not responding on its port; nothing to stop")
			return nil
		}
		fmt.Println("note server is running under a different process; stop the `evault serve` process that owns it")
		return nil
	},
}

var notesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "report whether the note server is answering on its configured port",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := notesrv.New(noteServerBinary, cfg.NoteServerPort, cfg.NotesDir)
		if err != nil {
			return err
		}
		if sup.Probe() {
			fmt.Printf("RUNNING (port %d)\n", cfg.NoteServerPort)
		} else {
			fmt.Println("STOPPED")
		}
		return nil
	},
}

func init() {
	notesCmd.AddCommand(notesStartCmd, notesStopCmd, notesStatusCmd)
	rootCmd.AddCommand(notesCmd)
}
