// Command kaitodo is the shared to-do list CLI: private lists, task
// tracking, and list sharing through invite codes backed by a record
// service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaitodo/kaitodo/internal/celebrate"
	"github.com/kaitodo/kaitodo/internal/config"
	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/profile"
	"github.com/kaitodo/kaitodo/internal/propagate"
	"github.com/kaitodo/kaitodo/internal/remote"
	"github.com/kaitodo/kaitodo/internal/repo"
	"github.com/kaitodo/kaitodo/internal/share"
	"github.com/kaitodo/kaitodo/internal/store"
	"github.com/kaitodo/kaitodo/internal/syncer"
)

var rootCmd = &cobra.Command{
	Use:   "kaitodo",
	Short: "Shared to-do lists with invite codes",
	Long: `kaitodo keeps private task lists and lets you share a list with
other people via a short invite code. Participants see and complete tasks
collaboratively; changes sync through the kaitodo record service.`,
	SilenceUsage: true,
}

// app bundles the wired components for one command invocation. Each is
// constructed once and passed by handle; there are no package-level
// singletons.
type app struct {
	cfg         *config.Config
	store       *store.Store
	repo        *repo.Repository
	profiles    *profile.Manager
	remote      *remote.Client
	share       *share.Coordinator
	sync        *syncer.Engine
	push        *propagate.Propagator
	celebration *celebrate.Signal
}

// openApp loads config and wires the component graph.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}

	signal := celebrate.New()
	r, err := repo.Load(st, repo.WithCelebration(signal.Trigger))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	profiles, err := profile.Load(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client := remote.NewClient(cfg.ServerURL)

	return &app{
		cfg:         cfg,
		store:       st,
		repo:        r,
		profiles:    profiles,
		remote:      client,
		share:       share.New(r, client, cfg.Logger("[share] ")),
		sync:        syncer.New(r, client, cfg.Logger("[sync] ")),
		push:        propagate.New(client, cfg.Logger("[push] ")),
		celebration: signal,
	}, nil
}

// close flushes outstanding pushes and releases the store.
func (a *app) close() {
	a.push.Stop()
	_ = a.store.Close()
}

// requireUser returns the logged-in profile or a friendly onboarding hint.
func (a *app) requireUser() (model.UserProfile, error) {
	p, err := a.profiles.Current()
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("no profile yet; run 'kaitodo profile init <nickname>' first")
	}
	return p, nil
}

// propagateUpsert pushes a task write for shared lists with a remote
// identity. Private or unsynced lists need no remote writes.
func (a *app) propagateUpsert(list model.TodoList, task model.TodoTask) {
	if list.IsShared && list.CloudRecordID != "" {
		a.push.SubmitUpsert(list.CloudRecordID, task)
	}
}

func (a *app) propagateDelete(list model.TodoList, taskID string) {
	if list.IsShared && list.CloudRecordID != "" {
		a.push.SubmitDelete(list.CloudRecordID, taskID)
	}
}

func main() {
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(participantsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
