// Package share implements the share coordinator: publishing a list to the
// remote record store, resolving invite codes to shared lists, and
// maintaining the participant set.
package share

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/remote"
	"github.com/kaitodo/kaitodo/internal/repo"
)

var (
	// ErrListNotFound means the list ID does not exist locally.
	ErrListNotFound = errors.New("list not found")

	// ErrAlreadyShared means publish was called on a shared list.
	ErrAlreadyShared = errors.New("list is already shared")

	// ErrCodeNotFound means no shared list matches the invite code.
	ErrCodeNotFound = errors.New("no list found for that invite code")
)

// Coordinator publishes lists, redeems invite codes, and manages
// participants.
type Coordinator struct {
	repo   *repo.Repository
	remote remote.Store
	logger *log.Logger
}

// New creates a coordinator. If logger is nil, a default logger writing to
// stderr is used.
func New(r *repo.Repository, rs remote.Store, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[share] ", log.LstdFlags)
	}
	return &Coordinator{repo: r, remote: rs, logger: logger}
}

// Publish shares a local list: generates an invite code, marks the list
// owned, persists locally, then creates the remote list record, one task
// record per existing task, and the invitation record.
//
// Local state is never rolled back on remote failure. When the returned
// code is non-empty alongside a non-nil error, the list is shared locally
// but not (fully) visible remotely; the next publish retry or push will
// catch the remote side up.
func (c *Coordinator) Publish(ctx context.Context, listID, ownerID, ownerName string) (string, error) {
	list, ok := c.repo.Get(listID)
	if !ok {
		return "", ErrListNotFound
	}
	if list.IsShared {
		return "", ErrAlreadyShared
	}

	code := model.GenerateInviteCode()
	list.IsShared = true
	list.ShareType = model.ShareTypeOwned
	list.OwnerID = ownerID
	list.OwnerName = ownerName
	list.InviteCode = code
	if err := c.repo.Update(list); err != nil {
		return "", fmt.Errorf("failed to persist shared list: %w", err)
	}

	if err := c.publishRemote(ctx, list); err != nil {
		c.logger.Printf("Remote publish failed for list %s: %v", list.ID, err)
		return code, fmt.Errorf("list shared locally, but remote publish failed: %w", err)
	}

	c.logger.Printf("Published list %s (%s) with code %s", list.ID, list.Name, code)
	return code, nil
}

// publishRemote creates the remote record graph for a freshly shared list.
// There are no multi-record transactions, so a failure partway leaves a
// partial graph; the invitation record is written last so a resolvable code
// implies the list record exists.
func (c *Coordinator) publishRemote(ctx context.Context, list model.TodoList) error {
	recordID, err := c.remote.Create(ctx, remote.TypeSharedList, remote.Fields{
		remote.FieldName:         list.Name,
		remote.FieldColor:        list.Color,
		remote.FieldOwnerID:      list.OwnerID,
		remote.FieldOwnerName:    list.OwnerName,
		remote.FieldInviteCode:   list.InviteCode,
		remote.FieldParticipants: []string{},
	})
	if err != nil {
		return fmt.Errorf("failed to create list record: %w", err)
	}

	list.CloudRecordID = recordID
	if err := c.repo.Update(list); err != nil {
		return fmt.Errorf("failed to persist remote identity: %w", err)
	}

	for _, task := range list.Tasks {
		if _, err := c.remote.Create(ctx, remote.TypeSharedTask, TaskFields(recordID, task)); err != nil {
			return fmt.Errorf("failed to create task record for %q: %w", task.Text, err)
		}
	}

	if _, err := c.remote.Create(ctx, remote.TypeInvitation, remote.Fields{
		remote.FieldCode:   list.InviteCode,
		remote.FieldListID: recordID,
	}); err != nil {
		return fmt.Errorf("failed to create invitation record: %w", err)
	}

	return nil
}

// Redeem resolves an invite code to a shared list, registers the redeeming
// user as a participant on the remote record, and appends the list to the
// local repository. Redeeming a code for a list this device already holds
// (matched by remote identity) is idempotent and returns the existing list.
func (c *Coordinator) Redeem(ctx context.Context, code, userID, userName string) (model.TodoList, error) {
	normalized, err := model.NormalizeInviteCode(code)
	if err != nil {
		return model.TodoList{}, err
	}

	records, err := c.remote.Query(ctx, remote.TypeSharedList, remote.FieldInviteCode, normalized)
	if err != nil {
		return model.TodoList{}, fmt.Errorf("failed to look up invite code: %w", err)
	}
	if len(records) == 0 {
		return model.TodoList{}, ErrCodeNotFound
	}
	listRec := records[0]

	if existing, ok := c.repo.GetByCloudRecordID(listRec.ID); ok {
		c.logger.Printf("Already joined list %s, skipping duplicate", listRec.ID)
		return existing, nil
	}

	taskRecords, err := c.remote.Query(ctx, remote.TypeSharedTask, remote.FieldListID, listRec.ID)
	if err != nil {
		return model.TodoList{}, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	list := model.NewList(listRec.Fields.Str(remote.FieldName), listRec.Fields.Str(remote.FieldColor))
	list.CloudRecordID = listRec.ID
	list.IsShared = true
	list.ShareType = model.ShareTypeParticipant
	list.OwnerID = listRec.Fields.Str(remote.FieldOwnerID)
	list.OwnerName = listRec.Fields.Str(remote.FieldOwnerName)
	list.InviteCode = normalized
	list.Tasks = TasksFromRecords(taskRecords)
	list.AddParticipant(model.Participant{ID: userID, Name: userName, JoinedAt: time.Now()})

	// Append-if-absent on the remote participant set. Failure here leaves
	// the join usable locally, so it is logged rather than surfaced.
	if err := c.registerParticipant(ctx, listRec, userID); err != nil {
		c.logger.Printf("Failed to register participant on list %s: %v", listRec.ID, err)
	}

	if err := c.repo.Append(list); err != nil {
		return model.TodoList{}, fmt.Errorf("failed to persist joined list: %w", err)
	}

	c.logger.Printf("Joined list %s (%s) as %s", listRec.ID, list.Name, userName)
	return list, nil
}

func (c *Coordinator) registerParticipant(ctx context.Context, listRec remote.Record, userID string) error {
	participants := listRec.Fields.Strings(remote.FieldParticipants)
	for _, id := range participants {
		if id == userID {
			return nil
		}
	}
	participants = append(participants, userID)
	return c.remote.Update(ctx, listRec.ID, remote.Fields{
		remote.FieldParticipants: participants,
	})
}

// RemoveParticipant removes a participant from the local set and persists.
// Remote removal is a propagation concern, not handled here. Missing list
// or participant is a no-op.
func (c *Coordinator) RemoveParticipant(listID, participantID string) error {
	list, ok := c.repo.Get(listID)
	if !ok {
		return nil
	}
	if !list.RemoveParticipant(participantID) {
		return nil
	}
	return c.repo.Update(list)
}

// TaskFields encodes a task as remote record fields, referencing its list
// record.
func TaskFields(listRecordID string, task model.TodoTask) remote.Fields {
	fields := remote.Fields{
		remote.FieldListID:      listRecordID,
		remote.FieldTaskID:      task.ID,
		remote.FieldText:        task.Text,
		remote.FieldIsCompleted: task.IsCompleted,
	}
	if task.IsCompleted {
		fields[remote.FieldCompletedBy] = task.CompletedBy
		fields[remote.FieldCompletedByName] = task.CompletedByName
		if task.CompletedAt != nil {
			fields[remote.FieldCompletedAt] = task.CompletedAt.Format(time.RFC3339Nano)
		}
	}
	return fields
}

// TasksFromRecords decodes remote task records into local tasks, ordered by
// record creation time so every device sees the same sequence. The taskID
// field carries the originating device's task identity; records written by
// clients that omit it fall back to the record ID.
func TasksFromRecords(records []remote.Record) []model.TodoTask {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	tasks := make([]model.TodoTask, 0, len(records))
	for _, rec := range records {
		taskID := rec.Fields.Str(remote.FieldTaskID)
		if taskID == "" {
			taskID = rec.ID
		}
		task := model.TodoTask{
			ID:          taskID,
			Text:        rec.Fields.Str(remote.FieldText),
			IsCompleted: rec.Fields.Bool(remote.FieldIsCompleted),
			CreatedAt:   rec.CreatedAt,
			ModifiedAt:  rec.ModifiedAt,
		}
		if task.IsCompleted {
			task.CompletedBy = rec.Fields.Str(remote.FieldCompletedBy)
			task.CompletedByName = rec.Fields.Str(remote.FieldCompletedByName)
			if at := rec.Fields.Time(remote.FieldCompletedAt); !at.IsZero() {
				task.CompletedAt = &at
			}
		}
		tasks = append(tasks, task)
	}
	return tasks
}
