package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/db/engines/linden"
	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/jhartmann-dev/dLock/lib/store/lstore"
)

// newIntegrationStore backs the locks with a real local store and engine.
func newIntegrationStore(t *testing.T) store.ICoordinationStore {
	t.Helper()
	st := lstore.NewLocalStore(func() db.SessionKV {
		return linden.NewLindenDB(&linden.DBOptions{NumShards: 4})
	})
	t.Cleanup(func() {
		if closer, ok := st.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	})
	return st
}

func newIntegrationLock(t *testing.T, st store.ICoordinationStore, key string, acquireTimeout time.Duration) *EphemeralLock {
	t.Helper()
	l, err := New(key, NewConfig(st).
		WithLockTimeout(10).
		WithAcquireTimeout(acquireTimeout))
	if err != nil {
		t.Fatalf("failed to create lock: %v", err)
	}
	return l
}

// TestMutualExclusion runs the full single-key scenario: A holds, B is
// refused without waiting, A releases, C succeeds.
func TestMutualExclusion(t *testing.T) {
	st := newIntegrationStore(t)

	lockA := newIntegrationLock(t, st, "key1", 0)
	ok, err := lockA.Acquire(false)
	if err != nil {
		t.Fatalf("lock A failed: %v", err)
	}
	if !ok {
		t.Fatal("lock A should acquire a free key")
	}

	lockB := newIntegrationLock(t, st, "key1", 0)
	ok, err = lockB.Acquire(false)
	if err != nil {
		t.Fatalf("lock B failed: %v", err)
	}
	if ok {
		t.Fatal("lock B must not acquire a held key")
	}

	if _, err := lockA.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	lockC := newIntegrationLock(t, st, "key1", 0)
	ok, err = lockC.Acquire(false)
	if err != nil {
		t.Fatalf("lock C failed: %v", err)
	}
	if !ok {
		t.Fatal("lock C should acquire after release")
	}
}

// TestKeyIndependence acquires locks on distinct keys concurrently.
func TestKeyIndependence(t *testing.T) {
	st := newIntegrationStore(t)
	keys := []string{"key1", "key2", "key3", "key4"}

	var wg sync.WaitGroup
	errs := make([]error, len(keys))
	oks := make([]bool, len(keys))

	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			l := newIntegrationLock(t, st, key, 0)
			oks[i], errs[i] = l.Acquire(false)
		}(i, key)
	}
	wg.Wait()

	for i, key := range keys {
		if errs[i] != nil {
			t.Errorf("lock on %s failed: %v", key, errs[i])
		}
		if !oks[i] {
			t.Errorf("lock on %s should not contend with other keys", key)
		}
	}
}

// TestWaitThenAcquire blocks a lock behind a holder that releases shortly
// after, well within the waiter's acquire timeout.
func TestWaitThenAcquire(t *testing.T) {
	st := newIntegrationStore(t)

	holder := newIntegrationLock(t, st, "key1", 0)
	if ok, err := holder.Acquire(false); err != nil || !ok {
		t.Fatalf("holder failed to acquire: ok=%v err=%v", ok, err)
	}

	released := make(chan struct{})
	go func() {
		time.Sleep(150 * time.Millisecond)
		_, _ = holder.Release()
		close(released)
	}()

	waiter := newIntegrationLock(t, st, "key1", 5*time.Second)
	ok, err := waiter.Acquire(false)
	if err != nil {
		t.Fatalf("waiter failed: %v", err)
	}
	if !ok {
		t.Fatal("waiter should acquire once the holder releases")
	}

	<-released
}

// TestHoldAgainstLocalStore exercises the scoped wrapper end to end: the key
// exists while held and disappears once the session is destroyed.
func TestHoldAgainstLocalStore(t *testing.T) {
	st := newIntegrationStore(t)
	l := newIntegrationLock(t, st, "key1", 0)

	err := l.Hold(func() error {
		found, err := st.HasKey(l.FullKey())
		if err != nil {
			return err
		}
		if !found {
			t.Error("lock key missing while held")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	found, err := st.HasKey(l.FullKey())
	if err != nil {
		t.Fatalf("HasKey failed: %v", err)
	}
	if found {
		t.Error("lock key must be deleted once the session is destroyed")
	}
}
