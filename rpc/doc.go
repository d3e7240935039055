// Package rpc provides a comprehensive framework for remote procedure calls
// in the distributed lock service. It acts as the communication layer
// between clients and servers, enabling lock coordination across network
// boundaries without requiring lock holders to join the consensus cluster.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: An RPC-backed store.ICoordinationStore implementation, allowing
//     lib/lock instances to coordinate against a remote server transparently.
//
//   - server: RPC server components that route requests to shard-local stores,
//     each backed by a single-node or RAFT replicated coordination store.
package rpc
