package internal

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jhartmann-dev/dLock/lib/db"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name: "Acquire command with key, session and value",
			command: Command{
				Type:      CommandTAcquire,
				Key:       "testkey",
				SessionID: "abcd",
				Unix:      100,
				Value:     []byte("testvalue"),
			},
			expected: headerSize + 7 + 4 + 9, // header + key + session id + value
		},
		{
			name: "Tick command without key or value",
			command: Command{
				Type: CommandTTick,
				Unix: 100,
			},
			expected: headerSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.command.SizeBytes()
			if size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name: "Session create command",
			command: Command{
				Type:      CommandTSessionCreate,
				SessionID: "6c1b27f0e2a14b7d9f3a5c8e0b2d4f61",
				Unix:      1712345678901,
				TTL:       15_000,
				LockDelay: 5_000,
				Behavior:  db.BehaviorRelease,
			},
		},
		{
			name: "Acquire command with value",
			command: Command{
				Type:      CommandTAcquire,
				Key:       "locks/ephemeral/my-key",
				SessionID: "abcd",
				Unix:      1712345678901,
				Value:     []byte(`{"locked_at": "2024-04-05"}`),
			},
		},
		{
			name: "Delete command without value",
			command: Command{
				Type: CommandTDelete,
				Key:  "testkey",
				Unix: 100,
			},
		},
		{
			name: "Command with empty value",
			command: Command{
				Type:      CommandTAcquire,
				Key:       "testkey",
				SessionID: "abcd",
				Unix:      100,
				Value:     []byte{},
			},
		},
		{
			name: "Command with max timestamps",
			command: Command{
				Type:      CommandTSessionCreate,
				SessionID: "abcd",
				Unix:      18446744073709551615,
				TTL:       18446744073709551615,
				LockDelay: 18446744073709551615,
			},
		},
		{
			name: "Command with binary value",
			command: Command{
				Type:      CommandTAcquire,
				Key:       "binary",
				SessionID: "abcd",
				Unix:      100,
				Value:     []byte{0, 1, 2, 3, 254, 255},
			},
		},
		{
			name: "Command with Unicode key",
			command: Command{
				Type:      CommandTAcquire,
				Key:       "你好世界", // Hello World in Chinese
				SessionID: "abcd",
				Unix:      100,
				Value:     []byte("unicode test"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Serialize
			data := tt.command.Serialize()

			// Deserialize into a new command
			var newCommand Command
			err := newCommand.Deserialize(data)
			if err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			// Compare original and deserialized command
			if newCommand.Type != tt.command.Type {
				t.Errorf("Type mismatch: got %v, want %v", newCommand.Type, tt.command.Type)
			}
			if newCommand.Key != tt.command.Key {
				t.Errorf("Key mismatch: got %q, want %q", newCommand.Key, tt.command.Key)
			}
			if newCommand.SessionID != tt.command.SessionID {
				t.Errorf("SessionID mismatch: got %q, want %q", newCommand.SessionID, tt.command.SessionID)
			}
			if newCommand.Unix != tt.command.Unix {
				t.Errorf("Unix mismatch: got %v, want %v", newCommand.Unix, tt.command.Unix)
			}
			if newCommand.TTL != tt.command.TTL {
				t.Errorf("TTL mismatch: got %v, want %v", newCommand.TTL, tt.command.TTL)
			}
			if newCommand.LockDelay != tt.command.LockDelay {
				t.Errorf("LockDelay mismatch: got %v, want %v", newCommand.LockDelay, tt.command.LockDelay)
			}
			if newCommand.Behavior != tt.command.Behavior {
				t.Errorf("Behavior mismatch: got %v, want %v", newCommand.Behavior, tt.command.Behavior)
			}

			// Value comparison handling nil case
			if tt.command.Value == nil {
				if newCommand.Value != nil && len(newCommand.Value) != 0 {
					t.Errorf("Value should be nil or empty, got %v", newCommand.Value)
				}
			} else if !bytes.Equal(newCommand.Value, tt.command.Value) {
				t.Errorf("Value mismatch: got %v, want %v", newCommand.Value, tt.command.Value)
			}

			// Verify that SizeBytes matches the serialized data length
			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d",
					tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectedErr: "data too short for command",
		},
		{
			name:        "Data too short (less than header)",
			data:        []byte{1, 2, 3, 4, 5},
			expectedErr: "data too short for command",
		},
		{
			name: "Invalid key length",
			data: func() []byte {
				data := make([]byte, headerSize) // Just the header
				data[0] = byte(CommandTAcquire)
				// Set key length to a large value that exceeds the data
				binary.BigEndian.PutUint32(data[26:30], 1000)
				return data
			}(),
			expectedErr: "data too short for key of length 1000 and session id of length 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)

			// Check if we got the expected error
			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %q", tt.expectedErr, err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{
		Type:      CommandTAcquire,
		Key:       "testkey",
		SessionID: "sid1",
		Unix:      12345,
		Value:     []byte("testvalue"),
	}

	// Manually create the expected byte array
	expected := make([]byte, cmd.SizeBytes())
	expected[0] = byte(CommandTAcquire)
	binary.BigEndian.PutUint64(expected[1:9], 12345) // Unix
	// TTL and LockDelay stay zero
	binary.BigEndian.PutUint32(expected[26:30], 7) // "testkey" length
	binary.BigEndian.PutUint32(expected[30:34], 4) // "sid1" length
	copy(expected[34:41], "testkey")
	copy(expected[41:45], "sid1")
	copy(expected[45:], "testvalue")

	serialized := cmd.Serialize()
	if !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
}

// TestBufferReuse tests that the Deserialize method reuses buffers when possible
func TestBufferReuse(t *testing.T) {
	cmd := Command{
		Type:      CommandTAcquire,
		Key:       "key",
		SessionID: "sid",
		Unix:      100,
		Value:     []byte("original value"),
	}

	originalBuffer := cmd.Value

	// Create a new serialized command with a different value but same length
	cmd2 := Command{
		Type:      CommandTAcquire,
		Key:       "key",
		SessionID: "sid",
		Unix:      100,
		Value:     []byte("changed value"),
	}
	serialized2 := cmd2.Serialize()

	if err := cmd.Deserialize(serialized2); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	if cap(cmd.Value) != cap(originalBuffer) {
		t.Logf("Buffer capacity changed from %d to %d", cap(originalBuffer), cap(cmd.Value))
	}

	if !bytes.Equal(cmd.Value, []byte("changed value")) {
		t.Errorf("Value not correctly deserialized: got %q, want %q",
			string(cmd.Value), "changed value")
	}

	// Now test with a larger value to ensure capacity increases
	cmd3 := Command{
		Type:      CommandTAcquire,
		Key:       "key",
		SessionID: "sid",
		Unix:      100,
		Value:     []byte("this is a much longer value that won't fit in the original buffer"),
	}
	serialized3 := cmd3.Serialize()

	beforeCap := cap(cmd.Value)

	if err := cmd.Deserialize(serialized3); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	if cap(cmd.Value) <= beforeCap {
		t.Errorf("Buffer capacity did not increase for larger value: still %d", cap(cmd.Value))
	}

	if !bytes.Equal(cmd.Value, cmd3.Value) {
		t.Errorf("Value not correctly deserialized")
	}
}
