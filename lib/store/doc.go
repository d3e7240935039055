// Package store provides a high-level interface for coordination operations:
// ephemeral sessions, session-bound key acquisition and unified error
// handling. It serves as an abstraction layer over the lower-level
// db.SessionKV engines, adding timestamp management, session id generation
// and standardized error reporting.
//
// The package focuses on:
//   - A unified interface (ICoordinationStore) across different backends
//   - Pluggable storage backend architecture through the DBFactory pattern
//   - A shared session TTL bound ([10, 3600] seconds) enforced by every implementation
//
// Key Components:
//
//   - ICoordinationStore Interface: The core abstraction for interacting with
//     a session-capable store. All implementations share this common interface,
//     allowing applications to switch between local and distributed backends
//     without code changes. Methods return custom Error values that carry a
//     typed return code alongside the message.
//
//   - AcquireResult: Acquisition is modeled as a tagged result (Acquired or
//     Held) rather than a bare boolean buried next to an error. Contention is
//     an expected outcome; only transport or store failures surface as errors.
//
//   - Error System: A structured error reporting mechanism using typed error
//     codes (internal error, unsupported operation, unknown session, invalid
//     TTL, ...) so callers can react to specific conditions with errors.As.
//
//   - DBFactory: A function type that abstracts the creation of underlying
//     db.SessionKV instances, providing dependency injection and flexible
//     configuration of storage backends.
//
// Implementations:
//
//	The package includes two implementations of the ICoordinationStore interface:
//
//	- Local Store (lstore): A single-node implementation that drives a
//	  db.SessionKV engine with wall-clock timestamps and a background expiry
//	  ticker. Suitable for single-process locking and tests.
//	  Available in the "github.com/jhartmann-dev/dLock/lib/store/lstore" package.
//
//	- Distributed Store (dstore): An implementation built on the Dragonboat
//	  RAFT consensus library. Operations are proposed to a replicated state
//	  machine with strong consistency guarantees; timestamps travel with the
//	  commands so every replica expires sessions identically.
//	  Available in the "github.com/jhartmann-dev/dLock/lib/store/dstore" package.
//
// The rpc/client package provides a third implementation that speaks to a
// remote server over the wire, so lock holders do not need to participate in
// the consensus cluster themselves.
package store
