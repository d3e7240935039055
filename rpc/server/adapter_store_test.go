package server

import (
	"encoding/json"
	"testing"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/db/engines/linden"
	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/jhartmann-dev/dLock/lib/store/lstore"
	"github.com/jhartmann-dev/dLock/rpc/common"
)

func newTestStore(t *testing.T) store.ICoordinationStore {
	t.Helper()
	st := lstore.NewLocalStore(func() db.SessionKV { return linden.NewLindenDB(nil) })
	if closer, ok := st.(interface{ Close() error }); ok {
		t.Cleanup(func() { _ = closer.Close() })
	}
	return st
}

func TestAdapterNilStore(t *testing.T) {
	adapter := NewStoreServerAdapter()
	resp := adapter.Handle(common.NewGetRequest("key"), nil)
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("expected error response for nil store, got %+v", resp)
	}
}

func TestAdapterUnsupportedMessageType(t *testing.T) {
	adapter := NewStoreServerAdapter()
	resp := adapter.Handle(&common.Message{MsgType: common.MsgTSuccess}, newTestStore(t))
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("expected error response for unsupported type, got %+v", resp)
	}
}

func TestAdapterSessionLifecycle(t *testing.T) {
	adapter := NewStoreServerAdapter()
	st := newTestStore(t)

	// Create a session
	resp := adapter.Handle(common.NewSessionCreateRequest(60, 0, db.BehaviorDelete), st)
	if resp.Err != "" {
		t.Fatalf("session create failed: %s", resp.Err)
	}
	if resp.SessionID == "" {
		t.Fatal("session create returned empty session id")
	}
	sessionID := resp.SessionID

	// Look it up
	resp = adapter.Handle(common.NewSessionGetRequest(sessionID), st)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("session get failed: %+v", resp)
	}
	var session db.Session
	if err := json.Unmarshal(resp.Value, &session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if session.Behavior != db.BehaviorDelete {
		t.Errorf("unexpected session behavior: %v", session.Behavior)
	}

	// Destroy it
	resp = adapter.Handle(common.NewSessionDestroyRequest(sessionID), st)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("session destroy failed: %+v", resp)
	}

	// A second destroy reports not found
	resp = adapter.Handle(common.NewSessionDestroyRequest(sessionID), st)
	if resp.Err != "" {
		t.Fatalf("second destroy errored: %s", resp.Err)
	}
	if resp.Ok {
		t.Error("second destroy should report session not found")
	}
}

func TestAdapterSessionCreateInvalidTTL(t *testing.T) {
	adapter := NewStoreServerAdapter()
	resp := adapter.Handle(common.NewSessionCreateRequest(5, 0, db.BehaviorDelete), newTestStore(t))
	if resp.Err == "" {
		t.Fatal("expected error for ttl below the minimum")
	}
}

func TestAdapterAcquireAndContention(t *testing.T) {
	adapter := NewStoreServerAdapter()
	st := newTestStore(t)

	createSession := func() string {
		resp := adapter.Handle(common.NewSessionCreateRequest(60, 0, db.BehaviorDelete), st)
		if resp.Err != "" {
			t.Fatalf("session create failed: %s", resp.Err)
		}
		return resp.SessionID
	}

	owner := createSession()
	rival := createSession()

	// Owner acquires the key
	resp := adapter.Handle(common.NewAcquireRequest("locks/ephemeral/job", []byte("v1"), owner), st)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("acquire failed: %+v", resp)
	}

	// Rival is refused without an error
	resp = adapter.Handle(common.NewAcquireRequest("locks/ephemeral/job", []byte("v2"), rival), st)
	if resp.Err != "" {
		t.Fatalf("contended acquire errored: %s", resp.Err)
	}
	if resp.Ok {
		t.Fatal("contended acquire should not succeed")
	}

	// The key is visible with the owner's value
	resp = adapter.Handle(common.NewGetRequest("locks/ephemeral/job"), st)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("get failed: %+v", resp)
	}
	if string(resp.Value) != "v1" {
		t.Errorf("unexpected value: %s", resp.Value)
	}

	resp = adapter.Handle(common.NewHasRequest("locks/ephemeral/job"), st)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("has failed: %+v", resp)
	}

	// Destroying the owner's session removes the key (delete behavior)
	resp = adapter.Handle(common.NewSessionDestroyRequest(owner), st)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("session destroy failed: %+v", resp)
	}

	resp = adapter.Handle(common.NewHasRequest("locks/ephemeral/job"), st)
	if resp.Err != "" {
		t.Fatalf("has after destroy errored: %s", resp.Err)
	}
	if resp.Ok {
		t.Error("key should be gone after session destruction")
	}

	// Now the rival can acquire
	resp = adapter.Handle(common.NewAcquireRequest("locks/ephemeral/job", []byte("v2"), rival), st)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("acquire after destroy failed: %+v", resp)
	}
}

func TestAdapterAcquireUnknownSession(t *testing.T) {
	adapter := NewStoreServerAdapter()
	resp := adapter.Handle(common.NewAcquireRequest("key", []byte("v"), "no-such-session"), newTestStore(t))
	if resp.Err == "" {
		t.Fatal("expected error for unknown session")
	}
}

func TestAdapterDelete(t *testing.T) {
	adapter := NewStoreServerAdapter()
	st := newTestStore(t)

	resp := adapter.Handle(common.NewSessionCreateRequest(60, 0, db.BehaviorDelete), st)
	if resp.Err != "" {
		t.Fatalf("session create failed: %s", resp.Err)
	}
	sessionID := resp.SessionID

	resp = adapter.Handle(common.NewAcquireRequest("key", []byte("v"), sessionID), st)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("acquire failed: %+v", resp)
	}

	resp = adapter.Handle(common.NewDeleteRequest("key"), st)
	if resp.Err != "" {
		t.Fatalf("delete failed: %s", resp.Err)
	}

	resp = adapter.Handle(common.NewHasRequest("key"), st)
	if resp.Err != "" {
		t.Fatalf("has after delete errored: %s", resp.Err)
	}
	if resp.Ok {
		t.Error("key should be gone after delete")
	}
}
