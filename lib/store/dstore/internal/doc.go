// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the wire format used to transmit operations
// between the store client and the distributed state machine.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Defines write operations (SessionCreate, SessionDestroy,
//     Acquire, Delete, Tick) that modify the state of the engine. Commands are
//     serialized and proposed to the RAFT cluster, executed on the state machine,
//     and produce results that are returned to the client. The Command structure
//     includes efficient binary serialization.
//
//   - Query System: Defines read operations (Get, Has, GetSession, GetStoreInfo)
//     that retrieve data without modifying state. Queries are executed locally on
//     the state machine and therefore do not require serialization.
//
// Time in the Protocol:
//
//	Every command carries the proposer's wall-clock timestamp (Unix, milliseconds).
//	The state machine derives all time from these replicated timestamps instead of
//	reading its own clock, so session expiry happens at the same log position on
//	every replica. The dedicated Tick command exists purely to move this clock
//	forward while no other writes arrive.
//
// Command Format:
//
//	Commands are serialized into a binary format with the following structure:
//
//	- 1 byte: Command type
//	- 8 bytes: Proposer timestamp (uint64, big endian, milliseconds)
//	- 8 bytes: Session TTL (uint64, big endian, milliseconds)
//	- 8 bytes: Session lock delay (uint64, big endian, milliseconds)
//	- 1 byte: Session behavior
//	- 4 bytes: Key length (uint32, big endian)
//	- 4 bytes: Session id length (uint32, big endian)
//	- N bytes: Key data
//	- M bytes: Session id data
//	- K bytes: Value data (optional, only present for Acquire operations)
//
//	This format ensures efficient storage in the RAFT log while providing all
//	necessary information for the operation.
//
// Query Format:
//
//	Queries use a simpler structure as they are not persisted in the RAFT log:
//
//	- Type: The query operation to perform
//	- Key: The key or session id to query (empty for GetStoreInfo)
//	- Unix: The reader timestamp used to filter expired state
//
// Thread Safety:
//
//	The types in this package are not thread-safe and should not be shared
//	across goroutines without external synchronization. However, this is not
//	typically an issue as the RAFT protocol ensures sequential processing of
//	commands on the state machine.
package internal
