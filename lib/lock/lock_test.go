package lock

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/store"
)

// --------------------------------------------------------------------------
// Test doubles
// --------------------------------------------------------------------------

// fakeClock advances its notion of time only through Sleep, so backoff
// accounting can be asserted exactly.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

// fakeStore scripts AcquireKey outcomes and records all calls.
type fakeStore struct {
	createErr  error
	acquireErr error

	// acquireScript is consumed one entry per AcquireKey call; once
	// exhausted, the last entry repeats.
	acquireScript []store.AcquireResult

	createCalls  int
	acquireCalls int
	acquireKeys  []string
	destroyed    []string
	sessionSeq   int
}

func (f *fakeStore) CreateSession(ttlSeconds, lockDelaySeconds uint64, behavior db.Behavior) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.sessionSeq++
	return string(rune('a' + f.sessionSeq - 1)), nil
}

func (f *fakeStore) DestroySession(sessionID string) (bool, error) {
	f.destroyed = append(f.destroyed, sessionID)
	return true, nil
}

func (f *fakeStore) AcquireKey(key string, value []byte, sessionID string) (store.AcquireResult, error) {
	f.acquireCalls++
	f.acquireKeys = append(f.acquireKeys, key)
	if f.acquireErr != nil {
		return store.AcquireResultHeld, f.acquireErr
	}
	idx := f.acquireCalls - 1
	if idx >= len(f.acquireScript) {
		idx = len(f.acquireScript) - 1
	}
	if idx < 0 {
		return store.AcquireResultAcquired, nil
	}
	return f.acquireScript[idx], nil
}

func (f *fakeStore) GetKey(key string) ([]byte, bool, error) { return nil, false, nil }
func (f *fakeStore) HasKey(key string) (bool, error)         { return false, nil }
func (f *fakeStore) DeleteKey(key string) error              { return nil }

func (f *fakeStore) GetSession(sessionID string) (db.Session, bool, error) {
	return db.Session{}, false, nil
}
func (f *fakeStore) GetStoreInfo() (db.StoreInfo, error) { return db.StoreInfo{}, nil }

func testConfig(f *fakeStore, clk Clock) Config {
	return NewConfig(f).
		WithLockTimeout(10).
		WithClock(clk)
}

// --------------------------------------------------------------------------
// Construction and configuration
// --------------------------------------------------------------------------

func TestNewValidation(t *testing.T) {
	st := &fakeStore{}

	tests := []struct {
		name    string
		key     string
		cfg     Config
		wantErr bool
	}{
		{"valid with minimum ttl", "key1", NewConfig(st).WithLockTimeout(10), false},
		{"valid with maximum ttl", "key1", NewConfig(st).WithLockTimeout(3600), false},
		{"ttl below minimum", "key1", NewConfig(st).WithLockTimeout(9), true},
		{"ttl above maximum", "key1", NewConfig(st).WithLockTimeout(3601), true},
		{"empty key", "", NewConfig(st), true},
		{"missing store", "key1", NewConfig(nil), true},
		{"pattern without verb", "key1", NewConfig(st).WithKeyPattern("locks"), true},
		{"nil value generator", "key1", NewConfig(st).WithValueGenerator(nil), true},
		{"nil clock", "key1", NewConfig(st).WithClock(nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.key, tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("expected ErrConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l == nil {
				t.Fatal("expected a lock instance")
			}
		})
	}
}

func TestFullKeyPattern(t *testing.T) {
	l, err := New("key1", testConfig(&fakeStore{}, newFakeClock()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.FullKey() != "locks/ephemeral/key1" {
		t.Errorf("FullKey() = %q, want %q", l.FullKey(), "locks/ephemeral/key1")
	}
	if l.Key() != "key1" {
		t.Errorf("Key() = %q, want %q", l.Key(), "key1")
	}
}

func TestDefaultValueGenerator(t *testing.T) {
	var payload struct {
		LockedAt string `json:"locked_at"`
	}
	if err := json.Unmarshal(DefaultValueGenerator(), &payload); err != nil {
		t.Fatalf("default payload is not valid JSON: %v", err)
	}
	if payload.LockedAt == "" {
		t.Error("default payload has no locked_at timestamp")
	}
}

func TestConfigImmutability(t *testing.T) {
	base := NewConfig(&fakeStore{})
	derived := base.WithLockTimeout(30).WithAcquireTimeout(time.Second)

	if base.lockTimeoutSeconds != DefaultLockTimeoutSeconds {
		t.Errorf("base config mutated: lockTimeoutSeconds = %d", base.lockTimeoutSeconds)
	}
	if base.acquireTimeout != 0 {
		t.Errorf("base config mutated: acquireTimeout = %v", base.acquireTimeout)
	}
	if derived.lockTimeoutSeconds != 30 || derived.acquireTimeout != time.Second {
		t.Error("derived config missing overrides")
	}
}

// --------------------------------------------------------------------------
// Acquisition
// --------------------------------------------------------------------------

func TestAcquireFirstTry(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultAcquired}}
	clk := newFakeClock()

	l, _ := New("key1", testConfig(st, clk))
	ok, err := l.Acquire(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected acquisition to succeed")
	}
	if st.acquireCalls != 1 {
		t.Errorf("acquire calls = %d, want 1", st.acquireCalls)
	}
	if len(clk.sleeps) != 0 {
		t.Errorf("expected no sleeps, got %v", clk.sleeps)
	}
	if st.acquireKeys[0] != "locks/ephemeral/key1" {
		t.Errorf("acquired key = %q", st.acquireKeys[0])
	}
}

func TestAcquireZeroTimeoutSingleAttempt(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultHeld}}
	clk := newFakeClock()

	l, _ := New("key1", testConfig(st, clk))
	ok, err := l.Acquire(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected acquisition to fail")
	}
	if st.acquireCalls != 1 {
		t.Errorf("acquire calls = %d, want exactly 1 with zero timeout", st.acquireCalls)
	}
	if len(clk.sleeps) != 0 {
		t.Errorf("expected no sleeps with zero timeout, got %v", clk.sleeps)
	}
}

// TestAcquireBackoffAccounting verifies the exact retry schedule against a
// lock that is never released: sleeps of 50*n*n ms clamped to the remaining
// budget, with the loop stopping the moment the budget is spent.
func TestAcquireBackoffAccounting(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultHeld}}
	clk := newFakeClock()
	start := clk.Now()

	cfg := testConfig(st, clk).WithAcquireTimeout(time.Second)
	l, _ := New("key1", cfg)

	ok, err := l.Acquire(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected acquisition to fail")
	}

	// Attempts 0..3 sleep the unclamped quadratic backoff (0, 50, 200,
	// 450ms = 700ms total), attempt 4 gets clamped to the 300ms left, and
	// attempt 5 finds the budget spent and stops.
	wantSleeps := []time.Duration{
		0,
		50 * time.Millisecond,
		200 * time.Millisecond,
		450 * time.Millisecond,
		300 * time.Millisecond,
	}
	if len(clk.sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", clk.sleeps, wantSleeps)
	}
	for i, want := range wantSleeps {
		if clk.sleeps[i] != want {
			t.Errorf("sleep[%d] = %v, want %v", i, clk.sleeps[i], want)
		}
	}
	if st.acquireCalls != 6 {
		t.Errorf("acquire calls = %d, want 6", st.acquireCalls)
	}

	// Total simulated wait equals the acquire timeout exactly.
	if elapsed := clk.Now().Sub(start); elapsed != time.Second {
		t.Errorf("elapsed = %v, want exactly 1s", elapsed)
	}
}

func TestAcquireSucceedsAfterContention(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{
		store.AcquireResultHeld,
		store.AcquireResultHeld,
		store.AcquireResultAcquired,
	}}
	clk := newFakeClock()

	cfg := testConfig(st, clk).WithAcquireTimeout(time.Second)
	l, _ := New("key1", cfg)

	ok, err := l.Acquire(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected acquisition to succeed on the third attempt")
	}
	if st.acquireCalls != 3 {
		t.Errorf("acquire calls = %d, want 3", st.acquireCalls)
	}
	wantSleeps := []time.Duration{0, 50 * time.Millisecond}
	if len(clk.sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", clk.sleeps, wantSleeps)
	}
}

func TestAcquireFailHard(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultHeld}}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	ok, err := l.Acquire(true)
	if ok {
		t.Fatal("expected acquisition to fail")
	}
	if !errors.Is(err, ErrAcquireFailed) {
		t.Fatalf("expected ErrAcquireFailed, got %v", err)
	}
}

func TestAcquireReuseGuard(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultAcquired}}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	if _, err := l.Acquire(false); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if _, err := l.Acquire(false); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if st.createCalls != 1 {
		t.Errorf("second acquire must not create another session, got %d", st.createCalls)
	}
}

func TestAcquireSessionCreateErrorPropagates(t *testing.T) {
	storeErr := store.NewError(store.RetCInternalError, "no quorum")
	st := &fakeStore{createErr: storeErr}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	_, err := l.Acquire(false)
	var se *store.Error
	if !errors.As(err, &se) || se.Code != store.RetCInternalError {
		t.Fatalf("expected the store error to propagate, got %v", err)
	}
	if st.acquireCalls != 0 {
		t.Error("acquire must not be attempted without a session")
	}
}

func TestAcquireStoreErrorNotRetried(t *testing.T) {
	storeErr := store.NewError(store.RetCInternalError, "connection lost")
	st := &fakeStore{acquireErr: storeErr}

	// A generous timeout must not matter: store errors abort immediately.
	cfg := testConfig(st, newFakeClock()).WithAcquireTimeout(time.Minute)
	l, _ := New("key1", cfg)

	_, err := l.Acquire(false)
	var se *store.Error
	if !errors.As(err, &se) {
		t.Fatalf("expected the store error to propagate, got %v", err)
	}
	if st.acquireCalls != 1 {
		t.Errorf("acquire calls = %d, store errors must not be retried", st.acquireCalls)
	}
}

func TestAcquireUsesValueGenerator(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultAcquired}}
	called := false

	cfg := testConfig(st, newFakeClock()).WithValueGenerator(func() []byte {
		called = true
		return []byte("custom")
	})
	l, _ := New("key1", cfg)

	if _, err := l.Acquire(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("configured value generator was not used")
	}
}

// --------------------------------------------------------------------------
// Release
// --------------------------------------------------------------------------

func TestReleaseNeverStarted(t *testing.T) {
	st := &fakeStore{}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	ok, err := l.Release()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("release of a never-started lock must report false")
	}
	if len(st.destroyed) != 0 || st.createCalls != 0 {
		t.Error("release of a never-started lock must not touch the store")
	}
}

func TestReleaseDestroysSession(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultAcquired}}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	if _, err := l.Acquire(false); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	ok, err := l.Release()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected release to report true")
	}
	if len(st.destroyed) != 1 || st.destroyed[0] != l.sessionID {
		t.Errorf("destroyed sessions = %v, want [%q]", st.destroyed, l.sessionID)
	}
}

// --------------------------------------------------------------------------
// Hold
// --------------------------------------------------------------------------

func TestHoldRunsWhileHeldAndReleases(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultAcquired}}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	ran := false
	err := l.Hold(func() error {
		ran = true
		if len(st.destroyed) != 0 {
			t.Error("session destroyed before the critical section finished")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("critical section never ran")
	}
	if len(st.destroyed) != 1 {
		t.Errorf("destroyed sessions = %v, want exactly one", st.destroyed)
	}
}

func TestHoldReturnsCallbackError(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultAcquired}}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	want := errors.New("critical section failed")
	err := l.Hold(func() error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if len(st.destroyed) != 1 {
		t.Error("lock must be released even when the callback fails")
	}
}

func TestHoldReleasesOnPanic(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultAcquired}}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		_ = l.Hold(func() error { panic("boom") })
	}()

	if len(st.destroyed) != 1 {
		t.Error("lock must be released when the callback panics")
	}
}

func TestHoldAcquireFailureSkipsCallback(t *testing.T) {
	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultHeld}}
	l, _ := New("key1", testConfig(st, newFakeClock()))

	err := l.Hold(func() error {
		t.Error("callback must not run without the lock")
		return nil
	})
	if !errors.Is(err, ErrAcquireFailed) {
		t.Fatalf("expected ErrAcquireFailed, got %v", err)
	}
	if len(st.destroyed) != 0 {
		t.Error("a failed acquisition must not trigger a release")
	}
}

// --------------------------------------------------------------------------
// Process-wide defaults
// --------------------------------------------------------------------------

func TestNewFromDefaults(t *testing.T) {
	t.Cleanup(func() {
		defaultsMu.Lock()
		defaults = nil
		defaultsMu.Unlock()
	})

	defaultsMu.Lock()
	defaults = nil
	defaultsMu.Unlock()

	if _, err := NewFromDefaults("key1"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without defaults, got %v", err)
	}

	st := &fakeStore{acquireScript: []store.AcquireResult{store.AcquireResultAcquired}}
	SetDefaults(testConfig(st, newFakeClock()).WithLockTimeout(30))

	l, err := NewFromDefaults("key1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.cfg.lockTimeoutSeconds != 30 {
		t.Errorf("lockTimeoutSeconds = %d, want 30", l.cfg.lockTimeoutSeconds)
	}
}
