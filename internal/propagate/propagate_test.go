package propagate

import (
	"context"
	"testing"

	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/remote"
)

func TestSubmitUpsert_CreatesThenUpdates(t *testing.T) {
	rs := remote.NewMemStore()
	p := New(rs, nil)
	defer p.Stop()

	task := model.NewTask("Milk")
	p.SubmitUpsert("list-rec-1", task)
	p.Flush()

	records, err := rs.Query(context.Background(), remote.TypeSharedTask, remote.FieldTaskID, task.ID)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Fields.Str(remote.FieldText) != "Milk" {
		t.Errorf("text = %q", records[0].Fields.Str(remote.FieldText))
	}

	// Second submit for the same task must update, not duplicate.
	task.Complete("u1", "Alice")
	p.SubmitUpsert("list-rec-1", task)
	p.Flush()

	records, _ = rs.Query(context.Background(), remote.TypeSharedTask, remote.FieldTaskID, task.ID)
	if len(records) != 1 {
		t.Fatalf("records after update = %d, want 1", len(records))
	}
	if !records[0].Fields.Bool(remote.FieldIsCompleted) {
		t.Error("completion did not propagate")
	}
	if records[0].Fields.Str(remote.FieldCompletedByName) != "Alice" {
		t.Errorf("completedByName = %q", records[0].Fields.Str(remote.FieldCompletedByName))
	}
}

func TestSubmitDelete_RemovesRecord(t *testing.T) {
	rs := remote.NewMemStore()
	p := New(rs, nil)
	defer p.Stop()

	task := model.NewTask("Milk")
	p.SubmitUpsert("list-rec-1", task)
	p.Flush()

	p.SubmitDelete("list-rec-1", task.ID)
	p.Flush()

	records, _ := rs.Query(context.Background(), remote.TypeSharedTask, remote.FieldTaskID, task.ID)
	if len(records) != 0 {
		t.Errorf("records = %d after delete, want 0", len(records))
	}
}

// TestSubmit_FailureIsSwallowed verifies the single-attempt policy: a
// failed push is logged and dropped, and the worker keeps serving later
// submissions.
func TestSubmit_FailureIsSwallowed(t *testing.T) {
	rs := remote.NewMemStore()
	rs.FailNext = 1
	p := New(rs, nil)
	defer p.Stop()

	failed := model.NewTask("Lost")
	p.SubmitUpsert("list-rec-1", failed)
	p.Flush()

	if rs.Len() != 0 {
		t.Errorf("records = %d after failed push, want 0 (no retry)", rs.Len())
	}

	// The worker is still alive for the next push.
	ok := model.NewTask("Kept")
	p.SubmitUpsert("list-rec-1", ok)
	p.Flush()

	records, _ := rs.Query(context.Background(), remote.TypeSharedTask, remote.FieldTaskID, ok.ID)
	if len(records) != 1 {
		t.Errorf("later push did not land: records = %d", len(records))
	}
}
