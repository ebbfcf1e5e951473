package syncer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/propagate"
	"github.com/kaitodo/kaitodo/internal/remote"
	"github.com/kaitodo/kaitodo/internal/repo"
	"github.com/kaitodo/kaitodo/internal/share"
	"github.com/kaitodo/kaitodo/internal/store"
)

func testRepo(t *testing.T) *repo.Repository {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kaitodo.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	r, err := repo.Load(st)
	if err != nil {
		t.Fatalf("repo.Load() failed: %v", err)
	}
	return r
}

func taskTexts(tasks []model.TodoTask) map[string]bool {
	texts := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		texts[task.Text] = true
	}
	return texts
}

func TestPull_UnsharedListIsNoOp(t *testing.T) {
	r := testRepo(t)
	e := New(r, remote.NewMemStore(), nil)

	list, _ := r.CreateList("Private", "000000")
	r.AddTask(list.ID, "Secret")

	got, err := e.Pull(context.Background(), list.ID)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Text != "Secret" {
		t.Errorf("no-op pull changed tasks: %+v", got.Tasks)
	}
}

// TestPull_ReplacesLocalEdits asserts the data-loss-by-design window: local
// edits made since the last push are discarded when a pull completes.
func TestPull_ReplacesLocalEdits(t *testing.T) {
	rs := remote.NewMemStore()
	r := testRepo(t)
	coord := share.New(r, rs, nil)

	list, _ := r.CreateList("Groceries", "7161EF")
	r.AddTask(list.ID, "Milk")
	if _, err := coord.Publish(context.Background(), list.ID, "u1", "Alice"); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	// Local edit that never reaches the remote store.
	r.AddTask(list.ID, "UnpushedEggs")

	e := New(r, rs, nil)
	got, err := e.Pull(context.Background(), list.ID)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}

	texts := taskTexts(got.Tasks)
	if len(got.Tasks) != 1 || !texts["Milk"] {
		t.Errorf("pulled tasks = %v, want exactly the remote set [Milk]", texts)
	}
	if texts["UnpushedEggs"] {
		t.Error("unpushed local edit survived the pull")
	}
}

// TestPull_FailedPushInvisibleToOthers: device A
// completes Milk but its push fails; device B pulls and still sees Milk
// incomplete, while A's own state is untouched.
func TestPull_FailedPushInvisibleToOthers(t *testing.T) {
	rs := remote.NewMemStore()

	deviceA := testRepo(t)
	coordA := share.New(deviceA, rs, nil)
	listA, _ := deviceA.CreateList("Groceries", "7161EF")
	milk, _, _ := deviceA.AddTask(listA.ID, "Milk")
	code, err := coordA.Publish(context.Background(), listA.ID, "u1", "Alice")
	if err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	deviceB := testRepo(t)
	coordB := share.New(deviceB, rs, nil)
	listB, err := coordB.Redeem(context.Background(), code, "u2", "Bob")
	if err != nil {
		t.Fatalf("Redeem() failed: %v", err)
	}

	// A toggles Milk complete, but the push hits a remote outage.
	sharedA, _ := deviceA.Get(listA.ID)
	toggled, _, err := deviceA.ToggleTask(listA.ID, milk.ID, "u1", "Alice")
	if err != nil {
		t.Fatalf("ToggleTask() failed: %v", err)
	}

	rs.FailNext = 1 // the push's lookup query fails
	push := propagate.New(rs, nil)
	push.SubmitUpsert(sharedA.CloudRecordID, toggled)
	push.Stop()

	// B pulls: Milk must still be incomplete remotely.
	engineB := New(deviceB, rs, nil)
	pulledB, err := engineB.Pull(context.Background(), listB.ID)
	if err != nil {
		t.Fatalf("Pull() on device B failed: %v", err)
	}
	if len(pulledB.Tasks) != 1 || pulledB.Tasks[0].IsCompleted {
		t.Errorf("device B sees %+v, want one incomplete Milk", pulledB.Tasks)
	}

	// A's own state was never overwritten.
	gotA, _ := deviceA.Get(listA.ID)
	if !gotA.Tasks[0].IsCompleted {
		t.Error("device A lost its local completion")
	}
}

// TestPull_SuccessfulPushVisibleToOthers is the happy-path counterpart.
func TestPull_SuccessfulPushVisibleToOthers(t *testing.T) {
	rs := remote.NewMemStore()

	deviceA := testRepo(t)
	coordA := share.New(deviceA, rs, nil)
	listA, _ := deviceA.CreateList("Groceries", "7161EF")
	milk, _, _ := deviceA.AddTask(listA.ID, "Milk")
	code, _ := coordA.Publish(context.Background(), listA.ID, "u1", "Alice")

	deviceB := testRepo(t)
	coordB := share.New(deviceB, rs, nil)
	listB, _ := coordB.Redeem(context.Background(), code, "u2", "Bob")

	sharedA, _ := deviceA.Get(listA.ID)
	toggled, _, _ := deviceA.ToggleTask(listA.ID, milk.ID, "u1", "Alice")

	push := propagate.New(rs, nil)
	push.SubmitUpsert(sharedA.CloudRecordID, toggled)
	push.Stop()

	engineB := New(deviceB, rs, nil)
	pulledB, err := engineB.Pull(context.Background(), listB.ID)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if len(pulledB.Tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(pulledB.Tasks))
	}
	task := pulledB.Tasks[0]
	if !task.IsCompleted || task.CompletedBy != "u1" || task.CompletedByName != "Alice" || task.CompletedAt == nil {
		t.Errorf("completion attribution did not survive the round trip: %+v", task)
	}
}

// TestPullAll_PartialFailureIsIndependent verifies one list's failure does
// not abort the others and the report names the failed list.
func TestPullAll_PartialFailureIsIndependent(t *testing.T) {
	rs := remote.NewMemStore()
	r := testRepo(t)
	coord := share.New(r, rs, nil)

	first, _ := r.CreateList("First", "111111")
	second, _ := r.CreateList("Second", "222222")
	if _, err := coord.Publish(context.Background(), first.ID, "u1", "Alice"); err != nil {
		t.Fatalf("Publish(first) failed: %v", err)
	}
	if _, err := coord.Publish(context.Background(), second.ID, "u1", "Alice"); err != nil {
		t.Fatalf("Publish(second) failed: %v", err)
	}

	e := New(r, rs, nil)
	rs.FailNext = 1 // first list's task fetch fails

	report := e.PullAll(context.Background())
	if report.OK() {
		t.Fatal("report.OK() = true despite a failed pull")
	}
	if report.Pulled != 1 {
		t.Errorf("Pulled = %d, want 1", report.Pulled)
	}
	if len(report.Failures) != 1 || report.Failures[0].ListID != first.ID {
		t.Errorf("Failures = %+v, want the first list", report.Failures)
	}
	if e.LastError() == "" {
		t.Error("LastError() empty after failure")
	}

	rs.FailNext = 0
	report = e.PullAll(context.Background())
	if !report.OK() || report.Pulled != 2 {
		t.Errorf("clean PullAll report = %+v", report)
	}
	if e.LastError() != "" {
		t.Errorf("LastError() = %q after clean run, want empty", e.LastError())
	}
}
