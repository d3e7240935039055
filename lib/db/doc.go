// Package db defines the SessionKV interface for session-aware key-value
// engines and the shared types (Session, Behavior, AcquireCode, Feature)
// every engine implementation works with.
//
// The package focuses on:
//   - A unified interface for session and key operations
//   - Feature discovery through capability flags
//   - Standardized persistence operations (Save/Load)
//   - Engine metadata reporting via StoreInfo
//
// Key Components:
//
//   - SessionKV Interface: The core interface all engines must satisfy. It
//     covers session lifecycle (CreateSession, DestroySession, GetSession),
//     session-conditional key acquisition (Acquire), plain key access
//     (Get, Has, Delete), clock advancement (Tick) and persistence.
//
//   - Sessions: An engine-level session is an id with a TTL, a lock delay
//     and an invalidation Behavior. Keys written through Acquire are bound
//     to a session; when the session expires or is destroyed the behavior
//     decides whether the keys are deleted or merely unbound.
//
//   - Feature Flags: The Feature type defines capability flags that
//     implementations advertise through SupportsFeature, so callers can
//     discover supported operations at runtime.
//
// Note on Time:
//
// Engines never read the wall clock. Every operation carries a
// caller-supplied timestamp in milliseconds, and the engine clock is the
// maximum timestamp seen so far (it never moves backwards). This makes an
// engine a pure function of its operation stream: replaying the same stream
// (for example from a consensus log, where every node must reach the same
// state) reproduces the same state, including session expirations. Whoever
// owns the engine is responsible for driving Tick often enough that expired
// sessions are invalidated promptly.
//
// Read operations also take a timestamp so that a read can never observe a
// session that is already past its deadline, even if no Tick has run yet.
// Reads never mutate state: an expired-but-uncollected session is simply
// filtered out of the result.
//
// Related Packages:
//
// The engines/linden package (github.com/jhartmann-dev/dLock/lib/db/engines/linden)
// provides the default sharded in-memory implementation of the SessionKV
// interface. The util package (github.com/jhartmann-dev/dLock/lib/db/util)
// contains the supporting data structures (deadline heap, hash helpers,
// size statistics).
package db
