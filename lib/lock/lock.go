package lock

import (
	"errors"
	"fmt"
	"time"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/store"
)

// maxAcquireAttempts caps the retry loop so a misbehaving clock or store
// cannot spin forever.
const maxAcquireAttempts = 1000

var (
	// ErrConfiguration reports an invalid or incomplete lock configuration.
	// It is returned at construction time and never retried.
	ErrConfiguration = errors.New("invalid lock configuration")

	// ErrAlreadyStarted reports a second Acquire call on the same instance.
	// Locks are single use; create a new instance to lock again.
	ErrAlreadyStarted = errors.New("lock can only be acquired once")

	// ErrAcquireFailed reports that the acquire timeout elapsed without
	// obtaining the lock. It is only returned from fail-hard acquisition and
	// is distinguishable from store errors via errors.Is.
	ErrAcquireFailed = errors.New("lock acquisition failed")
)

// EphemeralLock exclusively holds one logical key, exactly once. Its liveness
// is delegated entirely to the backing store's session TTL: if the holder
// crashes, the session expires and the key disappears with it. There is no
// renewal or heartbeat.
//
// An instance is single use: Acquire may be called at most once, then
// optionally Release, then the instance is discarded. Instances are not safe
// for concurrent use; the cross-process mutual exclusion comes from the
// store, not from this type.
type EphemeralLock struct {
	cfg       Config
	key       string
	fullKey   string
	sessionID string
	started   bool
}

// New creates an EphemeralLock for the given logical key. The key is rendered
// through the Config's key pattern to form the store key. Configuration
// violations (empty key, missing store, session TTL outside the store's
// range) fail here with ErrConfiguration, never at acquire time.
func New(key string, cfg Config) (*EphemeralLock, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("%w: key is required for locking", ErrConfiguration)
	}
	return &EphemeralLock{
		cfg:     cfg,
		key:     key,
		fullKey: fmt.Sprintf(cfg.keyPattern, key),
	}, nil
}

// Key returns the logical key this lock was created for.
func (l *EphemeralLock) Key() string { return l.key }

// FullKey returns the store key the lock operates on.
func (l *EphemeralLock) FullKey() string { return l.fullKey }

// SessionID returns the id of the session backing this lock. It is empty
// until Acquire has been called.
func (l *EphemeralLock) SessionID() string { return l.sessionID }

// Acquire attempts to obtain exclusive ownership of the lock's key. It may be
// called at most once per instance; a second call returns ErrAlreadyStarted.
//
// Acquire first creates a session (no lock delay, TTL from the configured
// lock timeout, delete behavior so the key vanishes if the session dies) and
// then retries a session-conditional acquire of the key with quadratically
// growing backoff until it succeeds or the acquire timeout is spent. The
// backoff is deterministic: attempt n is followed by a sleep of 50*n*n
// milliseconds, clamped to the remaining timeout budget. An acquire timeout
// of zero means exactly one attempt without waiting.
//
// Contention is not an error: with failHard false, Acquire returns false when
// the timeout elapses with the lock still held elsewhere. With failHard true
// that outcome becomes an ErrAcquireFailed error instead. Store failures
// (session creation, transport, consensus) propagate unmodified and are
// never retried.
func (l *EphemeralLock) Acquire(failHard bool) (bool, error) {
	if l.started {
		return false, ErrAlreadyStarted
	}
	start := l.cfg.clock.Now()

	// The session is throwaway: it exists only to bound this one lock's
	// lifetime. Delete behavior removes the key when the session is
	// destroyed or expires, so a crashed holder leaves nothing behind.
	sessionID, err := l.cfg.store.CreateSession(l.cfg.lockTimeoutSeconds, 0, db.BehaviorDelete)
	if err != nil {
		return false, err
	}
	l.sessionID = sessionID
	l.started = true

	acquired := false
	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		res, err := l.cfg.store.AcquireKey(l.fullKey, l.cfg.generateValue(), l.sessionID)
		if err != nil {
			// A store failure is not "someone else holds it" and is not retried.
			return false, err
		}
		acquired = res == store.AcquireResultAcquired

		sleep := time.Duration(50*attempt*attempt) * time.Millisecond
		timeLeft := l.cfg.acquireTimeout - l.cfg.clock.Now().Sub(start)
		if sleep > timeLeft {
			sleep = timeLeft
		}

		if !acquired && timeLeft > 0 {
			l.cfg.clock.Sleep(sleep)
		} else {
			break
		}
	}

	if !acquired && failHard {
		return false, fmt.Errorf("%w: %s", ErrAcquireFailed, l.fullKey)
	}
	return acquired, nil
}

// Release releases the lock immediately by destroying its session. Calling
// Release on an instance that never started acquiring is a no-op returning
// false without touching the store.
//
// The key is never deleted directly: the lock may not actually hold it
// anymore (the session may have expired and the key been re-acquired by
// someone else), so deleting it could steal another holder's lock. Destroying
// the session only invalidates what this instance created; the session's
// delete behavior removes the key exactly when this lock still owns it.
func (l *EphemeralLock) Release() (bool, error) {
	if !l.started {
		return false, nil
	}
	return l.cfg.store.DestroySession(l.sessionID)
}

// Hold acquires the lock fail-hard, runs fn while holding it, and releases on
// every exit path of fn, including panics. If acquisition itself fails, fn is
// never run and Release is not called (the TTL cleans up the session). An
// error from fn takes precedence over a release error.
func (l *EphemeralLock) Hold(fn func() error) (err error) {
	if _, err := l.Acquire(true); err != nil {
		return err
	}
	defer func() {
		_, releaseErr := l.Release()
		if err == nil {
			err = releaseErr
		}
	}()
	return fn()
}
