// Package repo implements the list repository: the single owner of the
// in-memory list collection for this device.
//
// Every mutating operation updates memory, then persists the full collection
// to the local store before returning. Operations on missing list or task
// IDs are deliberate no-ops: the UI may race a sync that removed the target,
// and idempotent failure is the contract callers rely on.
//
// The repository assumes serialized access from a single caller; the
// internal mutex only guards against the watch daemon reading concurrently.
package repo

import (
	"fmt"
	"sync"

	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/store"
)

// Repository owns the canonical in-memory list collection.
type Repository struct {
	mu    sync.Mutex
	store *store.Store
	lists []model.TodoList

	// onCelebrate fires on a false->true completion transition. Optional.
	onCelebrate func()
}

// Option configures a Repository.
type Option func(*Repository)

// WithCelebration installs the hook fired when a task is completed.
func WithCelebration(fn func()) Option {
	return func(r *Repository) { r.onCelebrate = fn }
}

// Load constructs a repository from the persisted collection.
func Load(st *store.Store, opts ...Option) (*Repository, error) {
	lists, err := st.LoadLists()
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	r := &Repository{store: st, lists: lists}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Reload replaces the in-memory collection with the persisted one. Used by
// the watch daemon when another process has written the store.
func (r *Repository) Reload() error {
	lists, err := r.store.LoadLists()
	if err != nil {
		return fmt.Errorf("failed to reload lists: %w", err)
	}
	r.mu.Lock()
	r.lists = lists
	r.mu.Unlock()
	return nil
}

// persist writes the full collection. Callers hold r.mu.
func (r *Repository) persist() error {
	return r.store.SaveLists(r.lists)
}

// index returns the position of the list with the given ID, or -1.
// Callers hold r.mu.
func (r *Repository) index(listID string) int {
	for i := range r.lists {
		if r.lists[i].ID == listID {
			return i
		}
	}
	return -1
}

// Lists returns a copy of the collection in insertion order.
func (r *Repository) Lists() []model.TodoList {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TodoList, len(r.lists))
	copy(out, r.lists)
	return out
}

// Get returns the list with the given ID.
func (r *Repository) Get(listID string) (model.TodoList, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(listID); i >= 0 {
		return r.lists[i], true
	}
	return model.TodoList{}, false
}

// GetByCloudRecordID returns the list with the given remote identity.
func (r *Repository) GetByCloudRecordID(recordID string) (model.TodoList, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.lists {
		if r.lists[i].CloudRecordID == recordID {
			return r.lists[i], true
		}
	}
	return model.TodoList{}, false
}

// CreateList appends a new private list and persists.
func (r *Repository) CreateList(name, color string) (model.TodoList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := model.NewList(name, color)
	r.lists = append(r.lists, list)
	if err := r.persist(); err != nil {
		return model.TodoList{}, err
	}
	return list, nil
}

// RenameList updates the list name. Missing list is a no-op.
func (r *Repository) RenameList(listID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(listID)
	if i < 0 {
		return nil
	}
	r.lists[i].Name = name
	return r.persist()
}

// RecolorList updates the list color. Missing list is a no-op.
func (r *Repository) RecolorList(listID, color string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(listID)
	if i < 0 {
		return nil
	}
	r.lists[i].Color = color
	return r.persist()
}

// DeleteList removes the list. Missing list is a no-op.
func (r *Repository) DeleteList(listID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(listID)
	if i < 0 {
		return nil
	}
	r.lists = append(r.lists[:i], r.lists[i+1:]...)
	return r.persist()
}

// AddTask appends a new task to the list and returns it.
// Missing list is a no-op returning ok=false.
func (r *Repository) AddTask(listID, text string) (model.TodoTask, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(listID)
	if i < 0 {
		return model.TodoTask{}, false, nil
	}
	task := model.NewTask(text)
	r.lists[i].Tasks = append(r.lists[i].Tasks, task)
	if err := r.persist(); err != nil {
		return model.TodoTask{}, false, err
	}
	return task, true, nil
}

// ToggleTask flips completion, attributing a completion to the acting user.
// Completing (false->true) fires the celebration hook; un-completing does
// not. Missing list or task is a no-op.
func (r *Repository) ToggleTask(listID, taskID, userID, userName string) (model.TodoTask, bool, error) {
	r.mu.Lock()
	i := r.index(listID)
	if i < 0 {
		r.mu.Unlock()
		return model.TodoTask{}, false, nil
	}
	j := r.lists[i].TaskIndex(taskID)
	if j < 0 {
		r.mu.Unlock()
		return model.TodoTask{}, false, nil
	}

	task := &r.lists[i].Tasks[j]
	completed := false
	if task.IsCompleted {
		task.Uncomplete()
	} else {
		task.Complete(userID, userName)
		completed = true
	}
	result := *task
	err := r.persist()
	celebrate := r.onCelebrate
	r.mu.Unlock()

	if err != nil {
		return model.TodoTask{}, false, err
	}
	if completed && celebrate != nil {
		celebrate()
	}
	return result, true, nil
}

// EditTask replaces the task text. Missing list or task is a no-op.
func (r *Repository) EditTask(listID, taskID, text string) (model.TodoTask, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(listID)
	if i < 0 {
		return model.TodoTask{}, false, nil
	}
	j := r.lists[i].TaskIndex(taskID)
	if j < 0 {
		return model.TodoTask{}, false, nil
	}
	r.lists[i].Tasks[j].SetText(text)
	if err := r.persist(); err != nil {
		return model.TodoTask{}, false, err
	}
	return r.lists[i].Tasks[j], true, nil
}

// DeleteTask removes the task. Missing list or task is a no-op.
func (r *Repository) DeleteTask(listID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(listID)
	if i < 0 {
		return nil
	}
	j := r.lists[i].TaskIndex(taskID)
	if j < 0 {
		return nil
	}
	r.lists[i].Tasks = append(r.lists[i].Tasks[:j], r.lists[i].Tasks[j+1:]...)
	return r.persist()
}

// Update replaces the stored list with the given value, matched by ID, and
// persists. Used by the share coordinator and sync engine, which compute the
// next list state as a whole. Missing list is a no-op.
func (r *Repository) Update(list model.TodoList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(list.ID)
	if i < 0 {
		return nil
	}
	r.lists[i] = list
	return r.persist()
}

// Append adds an externally constructed list (a joined shared list) to the
// collection and persists. This is the one cross-component write that does
// not go through a single-list operation.
func (r *Repository) Append(list model.TodoList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, list)
	return r.persist()
}

// TotalCompletedTasks sums completed tasks across all lists.
func (r *Repository) TotalCompletedTasks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.lists {
		n += r.lists[i].CompletedTaskCount()
	}
	return n
}

// TotalTasks sums tasks across all lists.
func (r *Repository) TotalTasks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.lists {
		n += r.lists[i].TotalTaskCount()
	}
	return n
}

// ParticipantStats returns completion counts keyed by completer name for
// one list. Missing list yields an empty map.
func (r *Repository) ParticipantStats(listID string) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := make(map[string]int)
	i := r.index(listID)
	if i < 0 {
		return stats
	}
	for _, t := range r.lists[i].Tasks {
		if t.IsCompleted && t.CompletedByName != "" {
			stats[t.CompletedByName]++
		}
	}
	return stats
}
