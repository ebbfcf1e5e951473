package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TodoTask is a single task within a list.
//
// Completion attribution (CompletedBy, CompletedByName, CompletedAt) is
// written only by the user who toggles the task, and the three fields are
// always set or cleared together with IsCompleted. ModifiedAt is bumped on
// every field change; CreatedAt never changes after construction.
type TodoTask struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted"`

	// Completion attribution, present iff IsCompleted.
	CompletedBy     string     `json:"completedBy,omitempty"`
	CompletedByName string     `json:"completedByName,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// NewTask creates an incomplete task with a fresh ID and current timestamps.
func NewTask(text string) TodoTask {
	now := time.Now()
	return TodoTask{
		ID:         uuid.New().String(),
		Text:       text,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// Complete marks the task done and records who did it.
func (t *TodoTask) Complete(userID, userName string) {
	now := time.Now()
	t.IsCompleted = true
	t.CompletedBy = userID
	t.CompletedByName = userName
	t.CompletedAt = &now
	t.ModifiedAt = now
}

// Uncomplete clears the done flag and all attribution fields.
func (t *TodoTask) Uncomplete() {
	t.IsCompleted = false
	t.CompletedBy = ""
	t.CompletedByName = ""
	t.CompletedAt = nil
	t.ModifiedAt = time.Now()
}

// SetText updates the task text and bumps ModifiedAt.
func (t *TodoTask) SetText(text string) {
	t.Text = text
	t.ModifiedAt = time.Now()
}

// Validate checks the completion attribution invariant: IsCompleted and the
// presence of all three attribution fields must agree.
func (t *TodoTask) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	hasAttribution := t.CompletedBy != "" && t.CompletedByName != "" && t.CompletedAt != nil
	noAttribution := t.CompletedBy == "" && t.CompletedByName == "" && t.CompletedAt == nil
	if t.IsCompleted && !hasAttribution {
		return fmt.Errorf("task %s is completed but missing attribution", t.ID)
	}
	if !t.IsCompleted && !noAttribution {
		return fmt.Errorf("task %s is incomplete but carries attribution", t.ID)
	}
	return nil
}
