// Package client implements the RPC client for the distributed lock service.
// It provides an implementation of the store.ICoordinationStore interface
// that communicates with remote servers via RPC, so locks can be taken
// against a remote coordination store exactly like against a local one.
//
// The package focuses on:
//   - Transparent RPC access to coordination store implementations
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the
//     store.ICoordinationStore interface. This client forwards all operations to
//     remote servers via the configured transport layer.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:5000"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	// Create store client
//	st, _ := client.NewRPCStore(100, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//
//	// Take an ephemeral lock against the remote store
//	l, _ := lock.New("migrations", lock.NewConfig(st))
//	err := l.Hold(func() error {
//	  // ... critical section ...
//	  return nil
//	})
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
