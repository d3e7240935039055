package lstore

import (
	"errors"
	"testing"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/db/engines/linden"
	"github.com/jhartmann-dev/dLock/lib/store"
)

func newTestStore(t *testing.T) store.ICoordinationStore {
	t.Helper()
	s := NewLocalStore(func() db.SessionKV { return linden.NewLindenDB(nil) })
	t.Cleanup(func() {
		if closer, ok := s.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	})
	return s
}

func TestSessionTTLValidation(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		ttl     uint64
		wantErr bool
	}{
		{9, true},
		{10, false},
		{3600, false},
		{3601, true},
	}

	for _, tc := range cases {
		id, err := s.CreateSession(tc.ttl, 0, db.BehaviorDelete)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ttl=%d: expected error, got session %s", tc.ttl, id)
				continue
			}
			var storeErr *store.Error
			if !errors.As(err, &storeErr) || storeErr.Code != store.RetCInvalidTTL {
				t.Errorf("ttl=%d: expected RetCInvalidTTL, got %v", tc.ttl, err)
			}
		} else if err != nil {
			t.Errorf("ttl=%d: unexpected error %v", tc.ttl, err)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateSession(10, 0, db.BehaviorDelete)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if id == "" {
		t.Fatal("CreateSession returned an empty id")
	}

	session, found, err := s.GetSession(id)
	if err != nil || !found {
		t.Fatalf("GetSession: found=%v err=%v", found, err)
	}
	if session.TTLMillis != 10_000 {
		t.Errorf("expected ttl 10000ms, got %d", session.TTLMillis)
	}

	found, err = s.DestroySession(id)
	if err != nil {
		t.Fatalf("DestroySession failed: %v", err)
	}
	if !found {
		t.Error("DestroySession should report found for a live session")
	}

	// second destroy is a no-op
	found, err = s.DestroySession(id)
	if err != nil {
		t.Fatalf("second DestroySession failed: %v", err)
	}
	if found {
		t.Error("second DestroySession should report not found")
	}
}

func TestAcquireContentionAndRelease(t *testing.T) {
	s := newTestStore(t)

	a, err := s.CreateSession(10, 0, db.BehaviorDelete)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	b, err := s.CreateSession(10, 0, db.BehaviorDelete)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	res, err := s.AcquireKey("locks/key1", []byte("a"), a)
	if err != nil || res != store.AcquireResultAcquired {
		t.Fatalf("first acquire: res=%s err=%v", res, err)
	}

	res, err = s.AcquireKey("locks/key1", []byte("b"), b)
	if err != nil {
		t.Fatalf("contended acquire returned error: %v", err)
	}
	if res != store.AcquireResultHeld {
		t.Errorf("contended acquire: expected Held, got %s", res)
	}

	// destroying the holder frees the key (delete behavior removes it)
	if _, err := s.DestroySession(a); err != nil {
		t.Fatalf("DestroySession failed: %v", err)
	}

	if loaded, err := s.HasKey("locks/key1"); err != nil || loaded {
		t.Errorf("key should be gone after holder destroy: loaded=%v err=%v", loaded, err)
	}

	res, err = s.AcquireKey("locks/key1", []byte("b"), b)
	if err != nil || res != store.AcquireResultAcquired {
		t.Errorf("acquire after release: res=%s err=%v", res, err)
	}
}

func TestAcquireUnknownSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AcquireKey("locks/key1", nil, "no-such-session")
	if err == nil {
		t.Fatal("acquire with unknown session should fail")
	}

	var storeErr *store.Error
	if !errors.As(err, &storeErr) || storeErr.Code != store.RetCUnknownSession {
		t.Errorf("expected RetCUnknownSession, got %v", err)
	}
}

func TestKeyOperations(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateSession(10, 0, db.BehaviorDelete)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if _, err := s.AcquireKey("locks/key1", []byte("payload"), id); err != nil {
		t.Fatalf("AcquireKey failed: %v", err)
	}

	v, loaded, err := s.GetKey("locks/key1")
	if err != nil || !loaded || string(v) != "payload" {
		t.Errorf("GetKey: value=%q loaded=%v err=%v", v, loaded, err)
	}

	if err := s.DeleteKey("locks/key1"); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}

	if loaded, err := s.HasKey("locks/key1"); err != nil || loaded {
		t.Errorf("HasKey after delete: loaded=%v err=%v", loaded, err)
	}

	info, err := s.GetStoreInfo()
	if err != nil {
		t.Fatalf("GetStoreInfo failed: %v", err)
	}
	if info.Implementation != db.ImplLinden {
		t.Errorf("expected linden implementation, got %s", info.Implementation)
	}
}
