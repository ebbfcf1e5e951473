package share

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/remote"
	"github.com/kaitodo/kaitodo/internal/repo"
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

func TestPublish_FreshList(t *testing.T) {
	r := testRepo(t)
	rs := remote.NewMemStore()
	c := New(r, rs, nil)

	list, _ := r.CreateList("Groceries", "7161EF")
	r.AddTask(list.ID, "Milk")
	r.AddTask(list.ID, "Eggs")

	code, err := c.Publish(context.Background(), list.ID, "u1", "Alice")
	if err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if len(code) != model.InviteCodeLen {
		t.Errorf("code %q has length %d, want %d", code, len(code), model.InviteCodeLen)
	}
	for _, ch := range code {
		if !strings.ContainsRune(model.InviteCodeAlphabet, ch) {
			t.Errorf("code %q contains %q, not in alphabet", code, ch)
		}
	}

	got, _ := r.Get(list.ID)
	if got.ShareType != model.ShareTypeOwned || !got.IsShared {
		t.Errorf("list not owned after publish: %+v", got)
	}
	if got.CloudRecordID == "" {
		t.Error("CloudRecordID not set after successful publish")
	}
	if got.OwnerID != "u1" || got.OwnerName != "Alice" {
		t.Errorf("owner = %s/%s", got.OwnerID, got.OwnerName)
	}

	// One list record, two task records, one invitation record.
	if rs.Len() != 4 {
		t.Errorf("remote records = %d, want 4", rs.Len())
	}
}

func TestPublish_AlreadySharedRejected(t *testing.T) {
	r := testRepo(t)
	rs := remote.NewMemStore()
	c := New(r, rs, nil)

	list, _ := r.CreateList("Groceries", "7161EF")
	if _, err := c.Publish(context.Background(), list.ID, "u1", "Alice"); err != nil {
		t.Fatalf("first Publish() failed: %v", err)
	}
	before, _ := r.Get(list.ID)

	_, err := c.Publish(context.Background(), list.ID, "u1", "Alice")
	if !errors.Is(err, ErrAlreadyShared) {
		t.Fatalf("second Publish() error = %v, want ErrAlreadyShared", err)
	}

	after, _ := r.Get(list.ID)
	if after.InviteCode != before.InviteCode || after.CloudRecordID != before.CloudRecordID {
		t.Error("rejected publish mutated state")
	}
}

func TestPublish_MissingList(t *testing.T) {
	r := testRepo(t)
	c := New(r, remote.NewMemStore(), nil)
	if _, err := c.Publish(context.Background(), "nope", "u1", "Alice"); !errors.Is(err, ErrListNotFound) {
		t.Errorf("Publish() error = %v, want ErrListNotFound", err)
	}
}

// TestPublish_RemoteFailureLeavesSharedUnsynced covers the availability
// trade-off: local state shows the list shared even though the remote
// publish failed, and the code is still returned for a later retry.
func TestPublish_RemoteFailureLeavesSharedUnsynced(t *testing.T) {
	r := testRepo(t)
	rs := remote.NewMemStore()
	rs.FailNext = 10
	c := New(r, rs, nil)

	list, _ := r.CreateList("Groceries", "7161EF")
	code, err := c.Publish(context.Background(), list.ID, "u1", "Alice")
	if err == nil {
		t.Fatal("Publish() succeeded despite remote outage")
	}
	if code == "" {
		t.Fatal("Publish() returned no code despite local share")
	}

	got, _ := r.Get(list.ID)
	if !got.IsShared || got.ShareType != model.ShareTypeOwned {
		t.Errorf("list not shared locally after remote failure: %+v", got)
	}
	if got.CloudRecordID != "" {
		t.Errorf("CloudRecordID = %q, want empty (unsynced)", got.CloudRecordID)
	}
}

// TestRedeem_SecondDevice: publish Groceries with
// Milk and Eggs on device A, then join from device B with the lower-cased
// code.
func TestRedeem_SecondDevice(t *testing.T) {
	rs := remote.NewMemStore()

	deviceA := testRepo(t)
	coordA := New(deviceA, rs, nil)
	list, _ := deviceA.CreateList("Groceries", "7161EF")
	deviceA.AddTask(list.ID, "Milk")
	deviceA.AddTask(list.ID, "Eggs")
	code, err := coordA.Publish(context.Background(), list.ID, "u1", "Alice")
	if err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	deviceB := testRepo(t)
	coordB := New(deviceB, rs, nil)
	joined, err := coordB.Redeem(context.Background(), strings.ToLower(code), "u2", "Bob")
	if err != nil {
		t.Fatalf("Redeem() failed: %v", err)
	}

	if joined.ShareType != model.ShareTypeParticipant {
		t.Errorf("ShareType = %q, want participant", joined.ShareType)
	}
	if len(joined.Tasks) != 2 {
		t.Errorf("tasks = %d, want 2", len(joined.Tasks))
	}
	if joined.OwnerID != "u1" || joined.OwnerName != "Alice" {
		t.Errorf("owner attribution = %s/%s", joined.OwnerID, joined.OwnerName)
	}
	if joined.Name != "Groceries" || joined.Color != "7161EF" {
		t.Errorf("list identity = %s/%s", joined.Name, joined.Color)
	}

	// Bob registered on the remote participant set.
	listRec, err := rs.Get(context.Background(), joined.CloudRecordID)
	if err != nil {
		t.Fatalf("remote Get() failed: %v", err)
	}
	participants := listRec.Fields.Strings(remote.FieldParticipants)
	if len(participants) != 1 || participants[0] != "u2" {
		t.Errorf("remote participants = %v, want [u2]", participants)
	}
}

func TestRedeem_UnknownCode(t *testing.T) {
	r := testRepo(t)
	c := New(r, remote.NewMemStore(), nil)

	_, err := c.Redeem(context.Background(), "XJ7K2M", "u2", "Bob")
	if !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("Redeem() error = %v, want ErrCodeNotFound", err)
	}
	if len(r.Lists()) != 0 {
		t.Error("failed redeem mutated the local repository")
	}
}

func TestRedeem_MalformedCodeRejectedBeforeRemote(t *testing.T) {
	r := testRepo(t)
	rs := remote.NewMemStore()
	rs.FailNext = 10 // any remote call would fail loudly
	c := New(r, rs, nil)

	if _, err := c.Redeem(context.Background(), "SHORT", "u2", "Bob"); err == nil {
		t.Fatal("Redeem() accepted a 5-character code")
	}
	if rs.FailNext != 10 {
		t.Error("malformed code reached the remote store")
	}
}

func TestRedeem_TwiceIsIdempotent(t *testing.T) {
	rs := remote.NewMemStore()

	deviceA := testRepo(t)
	coordA := New(deviceA, rs, nil)
	list, _ := deviceA.CreateList("Groceries", "7161EF")
	code, _ := coordA.Publish(context.Background(), list.ID, "u1", "Alice")

	deviceB := testRepo(t)
	coordB := New(deviceB, rs, nil)
	first, err := coordB.Redeem(context.Background(), code, "u2", "Bob")
	if err != nil {
		t.Fatalf("first Redeem() failed: %v", err)
	}
	second, err := coordB.Redeem(context.Background(), code, "u2", "Bob")
	if err != nil {
		t.Fatalf("second Redeem() failed: %v", err)
	}
	if first.ID != second.ID {
		t.Error("second redeem returned a different local list")
	}
	if len(deviceB.Lists()) != 1 {
		t.Errorf("local lists = %d, want 1 (no duplicate)", len(deviceB.Lists()))
	}
}

func TestRemoveParticipant_LocalOnly(t *testing.T) {
	r := testRepo(t)
	rs := remote.NewMemStore()
	c := New(r, rs, nil)

	list, _ := r.CreateList("Groceries", "7161EF")
	code, _ := c.Publish(context.Background(), list.ID, "u1", "Alice")
	_ = code

	got, _ := r.Get(list.ID)
	got.AddParticipant(model.Participant{ID: "u2", Name: "Bob"})
	if err := r.Update(got); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	recordsBefore := rs.Len()
	if err := c.RemoveParticipant(list.ID, "u2"); err != nil {
		t.Fatalf("RemoveParticipant() failed: %v", err)
	}
	after, _ := r.Get(list.ID)
	if after.HasParticipant("u2") {
		t.Error("participant not removed locally")
	}
	if rs.Len() != recordsBefore {
		t.Error("RemoveParticipant touched the remote store")
	}

	// Missing list and missing participant are no-ops.
	if err := c.RemoveParticipant("nope", "u2"); err != nil {
		t.Errorf("RemoveParticipant on missing list: %v", err)
	}
	if err := c.RemoveParticipant(list.ID, "u2"); err != nil {
		t.Errorf("RemoveParticipant on missing participant: %v", err)
	}
}
