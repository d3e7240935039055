// Package dstore implements a distributed, fault-tolerant coordination store
// using the Dragonboat RAFT consensus library. It provides a strongly
// consistent implementation of the store.ICoordinationStore interface that
// can operate across multiple nodes while maintaining linearizable
// consistency.
//
// Architecture:
//
// The dstore implementation consists of three main components:
//
//   - Store Client: Implements the store.ICoordinationStore interface and
//     communicates with the RAFT cluster. It serializes operations into
//     commands, stamps them with the proposer's wall-clock time, sends them
//     to the consensus layer, and interprets the results.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine implementation that
//     processes commands and queries on each node. The state machine contains
//     the actual db.SessionKV engine and applies operations to it.
//
//   - Communication Protocol: Defined in the internal package, this consists
//     of Command and Query structures with serialization logic for
//     transmitting operations across the network.
//
// Time and Session Expiry:
//
//	Session TTLs are wall-clock durations, but a replicated state machine must
//	not read its own clock (replicas would diverge). dstore resolves this by
//	carrying the proposer's timestamp inside every command: the engine's clock
//	is the maximum replicated timestamp, and sessions expire when that clock
//	passes their deadline. StartClock proposes dedicated Tick commands at a
//	fixed interval so the clock also advances through quiet periods. Because
//	ticks are ordinary log entries, every replica invalidates a session at
//	exactly the same log position and the cluster state never diverges.
//
// Write Operations:
//
//	All write operations (CreateSession, DestroySession, AcquireKey, DeleteKey)
//	follow this flow:
//
//	1. The operation is serialized into a Command structure
//	2. The Command is proposed to the RAFT cluster via SyncPropose
//	3. The leader node replicates the command to a majority of followers
//	4. Once committed, the command is executed on the state machine on each node
//	5. The result is returned to the client
//
//	Session ids are generated on the proposing client (crypto-random) and travel
//	through the log as payload, keeping randomness off the deterministic path.
//
// Read Operations:
//
// Read operations (GetKey, HasKey, GetSession) use SyncRead by default, which
// guarantees the processing node has applied all committed log entries before
// answering. GetStoreInfo uses StaleRead for lower latency since the
// information is advisory anyway.
//
// Error Handling and Retries:
//
//	When Dragonboat reports ErrSystemBusy the operation is retried after a
//	short delay, up to five attempts. All operations carry a configurable
//	timeout. Acquisition contention is not an error: the state machine returns
//	a dedicated Held code which the client maps to store.AcquireResultHeld.
//
// Snapshotting and Recovery:
//
// The state machine implements Dragonboat's snapshotting interface via the
// engine's Save/Load: snapshots are fuzzy (taken without pausing operations)
// and recovery pairs the snapshot with replay of the log entries committed
// after it, which converges every node to the same state.
//
// Usage:
//
//	  // Create NodeHost (RAFT client)
//	  nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	  if err != nil { ... }
//
//	  // Engine factory for the state machine
//	  dbFactory := func() db.SessionKV { return linden.NewLindenDB(nil) }
//
//	  // Create and start shard (RAFT server)
//	  err := nh.StartConcurrentReplica(
//	      clusterMembers,
//	      false,
//	      dstore.CreateStateMachineFactory(dbFactory),
//	      shardConfig)
//	  if err != nil { ... }
//
//	  // Create store with appropriate timeout, and drive the clock
//	  st := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//	  stopClock := dstore.StartClock(nh, shardID, time.Second, 5*time.Second)
//	  defer stopClock()
//
// Deployment Recommendations:
//
//   - Node Count: Deploy with an odd number of nodes (typically 3, 5, or 7) to
//     ensure majority consensus is always possible.
//
//   - Network Quality: Operation latency is dominated by replication round
//     trips; adjust timeouts to expected network performance.
//
// Limitations:
//
//   - Majority Requirement: Operations cannot proceed if a majority of nodes are unavailable
//   - Leader Dependency: Write operations require the leader to be available
//
// For scenarios where distributed consensus is not required, consider using
// the simpler and faster lstore package, which provides a single-node
// implementation of the same interface.
package dstore
