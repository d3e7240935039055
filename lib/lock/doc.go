// Package lock implements short-lived, single-use distributed locks on top of
// the ephemeral-session primitive of a store.ICoordinationStore backend. It
// is designed for preventing race conditions in application hot spots:
// relatively short critical sections where the caller wants exclusive access
// to a logical resource across processes or machines, with automatic cleanup
// if the holder crashes.
//
// Core Concepts:
//
//   - Single Use: an EphemeralLock wraps one key and one acquisition attempt.
//     Acquire may be called at most once per instance, Release at most once
//     after it. Locking the same key again means creating a new instance.
//
//   - Session-Backed: acquiring creates a session in the store with a bounded
//     TTL and delete behavior, then performs a session-conditional acquire of
//     the key. The store guarantees at most one live session holds a key.
//     If the holding process dies, the session TTL expires and the store
//     removes the key. There is no renewal or heartbeat; liveness is entirely
//     the TTL's job.
//
//   - Release via Session Destruction: releasing destroys the session rather
//     than deleting the key. Deleting the key directly would be unsafe since
//     the lock may have expired and been re-acquired by another holder in the
//     meantime. Destroying the session only ever invalidates this lock's own
//     state.
//
// Acquisition Protocol:
//
//	Acquire retries a conditional put in a bounded loop (capped at 1000
//	iterations) with deterministic quadratic backoff: attempt n is followed
//	by a sleep of 50*n*n milliseconds, clamped to the remaining acquire
//	timeout budget. No jitter is applied, which keeps retry timing
//	reproducible in tests. An acquire timeout of zero performs exactly one
//	attempt without waiting. Contention is an expected outcome and is
//	reported as a false return (or ErrAcquireFailed under fail-hard
//	acquisition); store failures propagate unmodified and are never
//	retried.
//
// Configuration:
//
//	All collaborators are carried by an immutable Config value constructed
//	with NewConfig and refined through With* copies. A process-wide default
//	Config can be installed with SetDefaults as a convenience, but passing a
//	Config explicitly into New is the primary API. The Config also carries a
//	Clock abstraction so tests can drive the backoff loop deterministically.
//
// Error Handling:
//
//	Three sentinel errors cover the non-store failure modes, each matchable
//	with errors.Is: ErrConfiguration (construction-time validation),
//	ErrAlreadyStarted (instance reuse) and ErrAcquireFailed (fail-hard
//	acquisition timed out). Errors from the backing store keep their type,
//	so callers can still inspect them with errors.As.
//
// Usage Example:
//
//	cfg := lock.NewConfig(st).
//		WithAcquireTimeout(5 * time.Second).
//		WithLockTimeout(30)
//
//	l, err := lock.New("orders/1234", cfg)
//	if err != nil {
//		// Handle configuration error
//	}
//
//	err = l.Hold(func() error {
//		// Critical section, exclusive across the cluster
//		return nil
//	})
//	if errors.Is(err, lock.ErrAcquireFailed) {
//		// Someone else held the lock for the whole acquire timeout
//	}
//
// Backend Considerations:
//
//	Any store.ICoordinationStore implementation works: lstore for
//	single-process coordination and tests, dstore for consensus-backed
//	locking across a cluster, or the rpc client for locking against a
//	remote server. The mutual exclusion guarantee is exactly as strong as
//	the backend's session-conditional acquire.
package lock
