package recordserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/kaitodo/kaitodo/internal/remote"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := NewServer(db, nil)
	t.Cleanup(srv.Stop)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// TestServer_RecordRoundtrip drives the HTTP API through the same client the
// devices use.
func TestServer_RecordRoundtrip(t *testing.T) {
	_, ts := newTestServer(t)
	client := remote.NewClient(ts.URL)
	ctx := context.Background()

	id, err := client.Create(ctx, remote.TypeSharedList, remote.Fields{
		remote.FieldName:      "Groceries",
		remote.FieldInviteCode: "ABCDEF",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if id == "" {
		t.Fatal("Create() returned empty id")
	}

	rec, err := client.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rec.Type != remote.TypeSharedList || rec.Fields.Str(remote.FieldName) != "Groceries" {
		t.Errorf("Get() = %+v", rec)
	}

	records, err := client.Query(ctx, remote.TypeSharedList, remote.FieldInviteCode, "ABCDEF")
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != id {
		t.Fatalf("Query() = %+v, want the created record", records)
	}

	if err := client.Update(ctx, id, remote.Fields{remote.FieldName: "Errands"}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	rec, _ = client.Get(ctx, id)
	if rec.Fields.Str(remote.FieldName) != "Errands" {
		t.Errorf("name after update = %q", rec.Fields.Str(remote.FieldName))
	}
	// Update merges; untouched fields survive.
	if rec.Fields.Str(remote.FieldInviteCode) != "ABCDEF" {
		t.Errorf("inviteCode after update = %q", rec.Fields.Str(remote.FieldInviteCode))
	}

	if err := client.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := client.Get(ctx, id); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	// Deleting again is fine.
	if err := client.Delete(ctx, id); err != nil {
		t.Errorf("second Delete() failed: %v", err)
	}
}

func TestServer_DuplicateInviteCodeConflicts(t *testing.T) {
	_, ts := newTestServer(t)
	client := remote.NewClient(ts.URL)
	ctx := context.Background()

	fields := remote.Fields{remote.FieldCode: "XJ7K2M", remote.FieldListID: "rec-1"}
	if _, err := client.Create(ctx, remote.TypeInvitation, fields); err != nil {
		t.Fatalf("first Create() failed: %v", err)
	}

	_, err := client.Create(ctx, remote.TypeInvitation, remote.Fields{
		remote.FieldCode: "XJ7K2M", remote.FieldListID: "rec-2",
	})
	if err == nil {
		t.Fatal("duplicate invitation code was accepted")
	}
	if !strings.Contains(err.Error(), "409") {
		t.Errorf("duplicate code error = %v, want 409 conflict", err)
	}
}

func TestServer_QueryMissingParams(t *testing.T) {
	_, ts := newTestServer(t)
	client := remote.NewClient(ts.URL)

	if _, err := client.Query(context.Background(), "", remote.FieldInviteCode, "ABCDEF"); err == nil {
		t.Error("Query() with empty type succeeded")
	}
}

// waitForSubscriber blocks until the hub has registered a client, so a
// broadcast cannot slip past an in-flight subscription.
func waitForSubscriber(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestServer_EventsFeed subscribes over websocket and checks that a create
// shows up on the change feed.
func TestServer_EventsFeed(t *testing.T) {
	srv, ts := newTestServer(t)
	client := remote.NewClient(ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket.Dial() failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitForSubscriber(t, srv)

	id, err := client.Create(ctx, remote.TypeSharedTask, remote.Fields{remote.FieldText: "Milk"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("websocket read failed: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("event decode failed: %v", err)
	}
	if ev.Action != "created" || ev.RecordType != remote.TypeSharedTask || ev.RecordID != id {
		t.Errorf("event = %+v, want created %s %s", ev, remote.TypeSharedTask, id)
	}
}
