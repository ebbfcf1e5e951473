// Package remote defines the remote record store contract: typed record
// CRUD plus predicate queries over the four record kinds the sharing engine
// uses. There are no multi-record transactions; each write is independently
// durable once acknowledged, and callers must tolerate partial completion
// across the several writes a logical operation issues.
package remote

import (
	"context"
	"errors"
	"time"
)

// Record kinds.
const (
	TypeSharedList  = "SharedList"
	TypeSharedTask  = "SharedTask"
	TypeUserProfile = "UserProfile"
	TypeInvitation  = "Invitation"
)

// Well-known field names.
const (
	FieldName            = "name"
	FieldColor           = "color"
	FieldOwnerID         = "ownerID"
	FieldOwnerName       = "ownerName"
	FieldInviteCode      = "inviteCode"
	FieldParticipants    = "participants"
	FieldListID          = "listID"
	FieldTaskID          = "taskID"
	FieldText            = "text"
	FieldIsCompleted     = "isCompleted"
	FieldCompletedBy     = "completedBy"
	FieldCompletedByName = "completedByName"
	FieldCompletedAt     = "completedAt"
	FieldCode            = "code"
	FieldNickname        = "nickname"
	FieldDeviceToken     = "deviceToken"
)

// ErrNotFound is returned for operations on a record ID that does not exist.
var ErrNotFound = errors.New("record not found")

// Fields is the schemaless field set of a record. Values survive a JSON
// round trip, so use the typed accessors when reading.
type Fields map[string]any

// Record is a stored record plus server-maintained metadata.
type Record struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Fields     Fields    `json:"fields"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Store is the remote record store. Implementations: Client (HTTP) and
// MemStore (in-memory, for tests and offline runs).
type Store interface {
	// Create stores a new record and returns its assigned ID.
	Create(ctx context.Context, recordType string, fields Fields) (string, error)

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Update merges fields into an existing record, or ErrNotFound.
	Update(ctx context.Context, id string, fields Fields) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Query returns all records of the given type whose field equals value.
	Query(ctx context.Context, recordType, field string, value any) ([]Record, error)
}

// Str returns a string field, or "" when absent or mistyped.
func (f Fields) Str(key string) string {
	s, _ := f[key].(string)
	return s
}

// Bool returns a boolean field. JSON numbers 0/1 are accepted too, matching
// how older clients encoded completion flags.
func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	}
	return false
}

// Time returns a time field encoded as RFC 3339, or the zero time.
func (f Fields) Time(key string) time.Time {
	s, ok := f[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Strings returns a string-array field. JSON decodes arrays as []any, so
// both representations are handled.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
