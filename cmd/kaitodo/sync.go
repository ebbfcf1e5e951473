package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kaitodo/kaitodo/internal/daemon"
)

var syncCmd = &cobra.Command{
	Use:   "sync [list-id]",
	Short: "Pull remote state for shared lists",
	Long: `Pull the current remote task state for shared lists.

With a list ID, pulls just that list. Without one, pulls every shared list;
one list's failure does not stop the others.

A pull replaces the local task set with the remote one. Local edits that
were never pushed successfully are discarded by the pull.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if len(args) == 1 {
			list, err := a.sync.Pull(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Pulled %q: %d tasks\n", list.Name, len(list.Tasks))
			return nil
		}

		report := a.sync.PullAll(cmd.Context())
		fmt.Printf("Pulled %d lists\n", report.Pulled)
		if !report.OK() {
			fmt.Fprintf(os.Stderr, "Failed: %s\n", report.Summary())
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the watch daemon",
	Long: `Keep shared lists fresh in the background.

The daemon subscribes to the record service's change feed and pulls when a
shared list changes, falls back to an interval refresh, and reloads local
state when another kaitodo command writes the store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		cfg := daemon.DefaultConfig()
		cfg.RefreshInterval = a.cfg.RefreshInterval
		cfg.Logger = a.cfg.Logger("[daemon] ")

		d := daemon.New(a.repo, a.sync, a.remote.EventsURL(), a.store.Path(), cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return d.Start(ctx)
	},
}
