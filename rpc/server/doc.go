// Package server implements the RPC server for the distributed lock service.
// It provides an adapter for handling RPC requests against coordination stores,
// along with the core server implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for session and key operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Flexible shard configuration with support for local and distributed stores
//   - Prometheus-compatible request metrics per shard and operation
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a
//     store.ICoordinationStore.
//
//   - NewStoreServerAdapter: Factory function creating the adapter that translates
//     RPC requests (session create/destroy/get, acquire, get, has, delete) to
//     coordination store method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Type: common.ShardTypeLocalStore},
//	  },
//	  Endpoint: "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server supports two types of shards, which can be mixed within a single server:
//
//   - ShardTypeLocalStore: A single-node store implementation, suitable for
//     single-node deployments or development environments. Session expiry is
//     driven by a local wall-clock ticker.
//
//   - ShardTypeDistributedStore: A replicated store implementation using Raft
//     consensus, providing strong consistency across multiple nodes. When using
//     this type, RAFT configuration (RTTMillisecond, SnapshotEntries,
//     CompactionOverhead, DataDir, ReplicaID, and ClusterMembers) must be
//     properly configured. Session expiry is driven by replicated clock ticks
//     proposed every ClockIntervalMS milliseconds.
//
// Metrics:
//
//	When MetricsEndpoint is set in the server configuration, the server exposes
//	request counters (rpc_requests_total, rpc_request_errors_total) in Prometheus
//	text format under /metrics.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently.
//	The Listen method is not thread-safe and should be called only once.
package server
