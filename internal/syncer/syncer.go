// Package syncer implements the sync merge engine: reconciling a shared
// list's local task set against the remote record store.
//
// The policy is pull-replace, not merge: the remote task set is
// authoritative at pull time and replaces the local sequence wholesale.
// Completion attribution is single-writer-per-field, so last-successful-pull
// wins without per-field reconciliation. Local edits made between the last
// push and a pull are discarded when the pull completes first; that window
// is part of the contract, not a defect.
package syncer

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/remote"
	"github.com/kaitodo/kaitodo/internal/repo"
	"github.com/kaitodo/kaitodo/internal/share"
)

// Engine pulls remote task state into the local repository.
type Engine struct {
	repo   *repo.Repository
	remote remote.Store
	logger *log.Logger

	mu         sync.Mutex
	inProgress bool
	lastError  string
}

// New creates an engine. If logger is nil, a default logger writing to
// stderr is used.
func New(r *repo.Repository, rs remote.Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{repo: r, remote: rs, logger: logger}
}

// Pull fetches the full remote task set for the list and replaces the local
// sequence, then persists. Pulling a list that is not shared or has no
// remote identity is a no-op returning the list unchanged.
func (e *Engine) Pull(ctx context.Context, listID string) (model.TodoList, error) {
	list, ok := e.repo.Get(listID)
	if !ok {
		return model.TodoList{}, fmt.Errorf("list %s not found", listID)
	}
	if !list.IsShared || list.CloudRecordID == "" {
		return list, nil
	}

	taskRecords, err := e.remote.Query(ctx, remote.TypeSharedTask, remote.FieldListID, list.CloudRecordID)
	if err != nil {
		return model.TodoList{}, fmt.Errorf("failed to fetch tasks for list %s: %w", listID, err)
	}

	list.Tasks = share.TasksFromRecords(taskRecords)
	if err := e.repo.Update(list); err != nil {
		return model.TodoList{}, fmt.Errorf("failed to persist pulled list: %w", err)
	}

	e.logger.Printf("Pulled list %s (%s): %d tasks", list.ID, list.Name, len(list.Tasks))
	return list, nil
}

// Failure records one list whose pull failed during PullAll.
type Failure struct {
	ListID   string
	ListName string
	Err      error
}

// Report summarizes a PullAll run.
type Report struct {
	Pulled   int
	Failures []Failure
}

// OK reports whether every list pulled successfully.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Summary renders the failure list for display, empty when all succeeded.
func (r Report) Summary() string {
	if r.OK() {
		return ""
	}
	parts := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.ListName, f.Err))
	}
	return strings.Join(parts, "; ")
}

// PullAll pulls every shared list with a remote identity. Each list's pull
// is independent: one failure does not abort the others. The syncing flag is
// set for the duration and the last-error summary is recorded on
// completion.
func (e *Engine) PullAll(ctx context.Context) Report {
	e.setInProgress(true)
	defer e.setInProgress(false)

	var report Report
	for _, list := range e.repo.Lists() {
		if !list.IsShared || list.CloudRecordID == "" {
			continue
		}
		if _, err := e.Pull(ctx, list.ID); err != nil {
			e.logger.Printf("WARNING: pull failed for list %s: %v", list.ID, err)
			report.Failures = append(report.Failures, Failure{ListID: list.ID, ListName: list.Name, Err: err})
			continue
		}
		report.Pulled++
	}

	e.mu.Lock()
	e.lastError = report.Summary()
	e.mu.Unlock()
	return report
}

// Syncing reports whether a PullAll is in flight.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inProgress
}

// LastError returns the failure summary of the most recent PullAll, empty
// when it fully succeeded.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

func (e *Engine) setInProgress(v bool) {
	e.mu.Lock()
	e.inProgress = v
	e.mu.Unlock()
}
