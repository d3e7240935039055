// Package lstore implements a local, in-memory, single-node coordination
// store based on the store.ICoordinationStore interface. It is a thin
// wrapper around any db.SessionKV engine: operation timestamps come from
// the wall clock, and a background ticker drives session expiry so
// sessions invalidate on time even while the store is idle.
//
// Key Features:
//   - Pure in-memory storage without persistence
//   - Direct integration with db.SessionKV engines via the store.DBFactory pattern
//   - Wall-clock timestamps, expiry ticker (100ms resolution)
//   - Feature detection to handle unsupported operations gracefully
//   - Thread-safe operations for concurrent access
//
// Session ids are generated locally (crypto-random, hex encoded) before
// being handed to the engine, mirroring how the distributed store keeps id
// generation outside the deterministic state machine.
//
// Usage Example:
//
//	factory := func() db.SessionKV { return linden.NewLindenDB(nil) }
//	st := lstore.NewLocalStore(factory)
//
//	sessionID, err := st.CreateSession(15, 0, db.BehaviorDelete)
//	result, err := st.AcquireKey("locks/ephemeral/my-key", payload, sessionID)
//	found, err := st.DestroySession(sessionID)
//
// Suitable Use Cases:
//
//	The local store is ideal for:
//	- Single-process locking without a coordination cluster
//	- Testing and development environments
//	- Embedding lock semantics into an application without network hops
//
// For locks that must be honored across multiple nodes, use the dstore
// package instead, which provides a RAFT-based implementation of the same
// interface with strong consistency guarantees.
package lstore
