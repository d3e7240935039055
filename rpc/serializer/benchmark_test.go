package serializer

import (
	"testing"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"SmallKeyOnly": {
			MsgType: common.MsgTKVGet,
			Key:     "k",
		},
		"MediumKeyOnly": {
			MsgType: common.MsgTKVGet,
			Key:     "medium-length-key-for-testing",
		},
		"LargeKeyOnly": {
			MsgType: common.MsgTKVGet,
			Key:     "this-is-a-very-large-key-that-could-be-used-for-storing-data-or-as-a-document-id-in-some-cases",
		},
		"SessionCreate": {
			MsgType:   common.MsgTSessionCreate,
			TTL:       180,
			LockDelay: 15,
			Behavior:  db.BehaviorRelease,
		},
		"SmallAcquire": {
			MsgType:   common.MsgTKVAcquire,
			Key:       "key",
			SessionID: "8e1b3f4a9c2d5e6f8e1b3f4a9c2d5e6f",
			Value:     []byte("v"),
		},
		"MediumAcquire": {
			MsgType:   common.MsgTKVAcquire,
			Key:       "locks/ephemeral/medium-key",
			SessionID: "8e1b3f4a9c2d5e6f8e1b3f4a9c2d5e6f",
			Value:     []byte(`{"locked_at":"2026-01-01T00:00:00.000000Z"}`),
		},
		"LargeValue": {
			MsgType:   common.MsgTKVAcquire,
			Key:       "key",
			SessionID: "8e1b3f4a9c2d5e6f8e1b3f4a9c2d5e6f",
			Value:     make([]byte, 1024), // 1KB of data
		},
		"VeryLargeValue": {
			MsgType:   common.MsgTKVAcquire,
			Key:       "key",
			SessionID: "8e1b3f4a9c2d5e6f8e1b3f4a9c2d5e6f",
			Value:     make([]byte, 1024*16), // 16KB of data
		},
		"CompleteMessage": {
			MsgType:   common.MsgTKVAcquire,
			Key:       "complete-test-key",
			SessionID: "8e1b3f4a9c2d5e6f8e1b3f4a9c2d5e6f",
			TTL:       180,
			LockDelay: 15,
			Behavior:  db.BehaviorRelease,
			Value:     []byte("test-value-data"),
			Ok:        true,
			Err:       "This is a test error message",
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
