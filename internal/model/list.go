// Package model defines the data structures shared across the kaitodo core:
// lists, tasks, participants, the user profile, and invite codes.
//
// The structures are designed for whole-value JSON snapshots: the local
// store persists the full list collection on every mutation, and the sync
// engine replaces a shared list's task sequence wholesale on pull. Fields
// therefore carry no partial-update bookkeeping beyond per-task timestamps.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ShareType describes how this device relates to a list.
type ShareType string

const (
	// ShareTypeLocal is a private list that has never been published.
	ShareTypeLocal ShareType = "local"

	// ShareTypeOwned is a list this device published. A list moves
	// local -> owned exactly once and never back.
	ShareTypeOwned ShareType = "owned"

	// ShareTypeParticipant is a list joined via invite code. A device
	// either owns or participates in a given shared list, never both.
	ShareTypeParticipant ShareType = "participant"
)

// Participant is a user who joined a shared list.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// TodoList is a named, colored, ordered sequence of tasks plus the sharing
// envelope. Task order is insertion order and is meaningful for display.
type TodoList struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Color string     `json:"color"`
	Tasks []TodoTask `json:"tasks"`

	// Sharing envelope. Invariant: ShareType == local iff !IsShared; a
	// CloudRecordID appears only on shared lists, though a shared list may
	// lack one until its publish lands.
	CloudRecordID string        `json:"cloudRecordID,omitempty"`
	IsShared      bool          `json:"isShared"`
	ShareType     ShareType     `json:"shareType"`
	OwnerID       string        `json:"ownerID,omitempty"`
	OwnerName     string        `json:"ownerName,omitempty"`
	Participants  []Participant `json:"participants,omitempty"`
	InviteCode    string        `json:"inviteCode,omitempty"`
}

// NewList creates a private list with a fresh ID and no tasks.
func NewList(name, color string) TodoList {
	return TodoList{
		ID:        uuid.New().String(),
		Name:      name,
		Color:     color,
		Tasks:     []TodoTask{},
		ShareType: ShareTypeLocal,
	}
}

// TaskIndex returns the position of the task with the given ID, or -1.
func (l *TodoList) TaskIndex(taskID string) int {
	for i := range l.Tasks {
		if l.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

// HasParticipant reports whether a participant with the given ID is present.
func (l *TodoList) HasParticipant(id string) bool {
	for _, p := range l.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

// AddParticipant appends a participant unless one with the same ID exists.
// Returns true if the set changed.
func (l *TodoList) AddParticipant(p Participant) bool {
	if l.HasParticipant(p.ID) {
		return false
	}
	l.Participants = append(l.Participants, p)
	return true
}

// RemoveParticipant deletes the participant with the given ID.
// Returns true if the set changed.
func (l *TodoList) RemoveParticipant(id string) bool {
	for i, p := range l.Participants {
		if p.ID == id {
			l.Participants = append(l.Participants[:i], l.Participants[i+1:]...)
			return true
		}
	}
	return false
}

// CompletedTaskCount returns the number of completed tasks.
func (l *TodoList) CompletedTaskCount() int {
	n := 0
	for i := range l.Tasks {
		if l.Tasks[i].IsCompleted {
			n++
		}
	}
	return n
}

// TotalTaskCount returns the number of tasks.
func (l *TodoList) TotalTaskCount() int {
	return len(l.Tasks)
}

// CompletionProgress returns the fraction of tasks completed, 0 for an
// empty list.
func (l *TodoList) CompletionProgress() float64 {
	if len(l.Tasks) == 0 {
		return 0
	}
	return float64(l.CompletedTaskCount()) / float64(len(l.Tasks))
}

// Validate checks the sharing envelope invariant and every task.
func (l *TodoList) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("id is required")
	}
	local := l.ShareType == ShareTypeLocal || l.ShareType == ""
	if local != !l.IsShared {
		return fmt.Errorf("list %s: shareType %q disagrees with isShared=%v", l.ID, l.ShareType, l.IsShared)
	}
	// A shared list may lack a CloudRecordID while a remote publish is
	// pending or failed ("shared-but-unsynced"), but a local list must
	// never carry one.
	if local && l.CloudRecordID != "" {
		return fmt.Errorf("list %s: local list carries cloudRecordID %q", l.ID, l.CloudRecordID)
	}
	for i := range l.Tasks {
		if err := l.Tasks[i].Validate(); err != nil {
			return fmt.Errorf("list %s: %w", l.ID, err)
		}
	}
	return nil
}
