// Package linden implements the default session-aware key-value engine
// behind the db.SessionKV interface. It combines sharded concurrent key
// storage with a central session table, and is designed to run both
// standalone (driven by a wall-clock ticker) and inside a consensus state
// machine (driven by replicated timestamps).
//
// The package focuses on:
//   - Concurrent key access through sharding and xsync concurrent maps
//   - Session lifecycle management with TTL deadlines and invalidation behaviors
//   - Deterministic state: every mutation is a pure function of (operation, timestamp)
//   - Persistent storage with fuzzy snapshots and compact binary encoding
//
// Key Components:
//
//   - lindenImpl: The central engine structure implementing db.SessionKV.
//     Key entries live in per-shard xsync maps so unrelated keys never
//     contend; session state and the deadline heap are guarded by a single
//     mutex, which is cheap because session operations are orders of
//     magnitude rarer than key operations in lock workloads.
//
//   - Entry: A stored value plus its binding metadata: the owning session id
//     (empty when unbound), an optional lock-delay deadline, and the clock
//     value of the last write.
//
//   - SessionState: The public session data plus the set of keys currently
//     bound to the session, used to apply the invalidation behavior without
//     scanning the key space.
//
// Internal Mechanisms:
//
//   - Sharding Strategy: String keys are hashed to 64-bit integers using
//     FNV-1a with an engine-specific seed, then right-shifted by 7 bits and
//     reduced modulo the shard count. Only the hashed representation is
//     stored.
//
//   - Logical Clock: The engine clock is the maximum timestamp seen across
//     all mutating operations and Tick calls. It never moves backwards.
//     Since expiry is evaluated against incoming timestamps instead of the
//     wall clock, replaying the same operation stream (e.g. from a RAFT
//     log) always reproduces the same state.
//
//   - Session Expiry: Session deadlines are tracked in a min-heap keyed by
//     session id. Every mutating operation first pops and invalidates all
//     sessions whose deadline has passed, so mutations never observe a
//     stale binding. Reads do not mutate; they filter expired state out of
//     their results instead (a key owned by an expired delete-behavior
//     session is invisible even before the next Tick collects it).
//
//   - Invalidation Behaviors: A session is created with one of two
//     behaviors. BehaviorDelete removes every bound key when the session
//     ends. BehaviorRelease keeps the keys but clears the binding; if the
//     session ended by TTL expiry (not explicit destruction) the configured
//     lock delay blocks re-acquisition of those keys until the delay has
//     passed.
//
//   - Persistence Format: Snapshots use a compact binary format: the magic
//     number "LINDEN\x00", a version byte, the hash seed, the clock, the
//     session table, and all entries (hashed key, session id, lock-delay
//     deadline, write index, value). Snapshots are fuzzy: concurrent key
//     writes during Save are neither blocked nor atomically captured, which
//     matches how consensus libraries pair snapshots with log replay.
//
// The engine runs no background goroutines. Whoever owns it drives Tick:
// the local store uses a wall-clock ticker, the distributed store proposes
// tick commands through the consensus log so all replicas expire sessions
// at the same point in the operation stream.
package linden
