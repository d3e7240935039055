package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/jhartmann-dev/dLock/lib/db"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTSessionCreate  CommandType = iota // Register an ephemeral session.
	CommandTSessionDestroy                    // Invalidate a session and apply its behavior.
	CommandTAcquire                           // Write a key bound to a session.
	CommandTDelete                            // Delete an entry regardless of binding.
	CommandTTick                              // Advance the replicated clock.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTSessionCreate:
		return "SessionCreate"
	case CommandTSessionDestroy:
		return "SessionDestroy"
	case CommandTAcquire:
		return "Acquire"
	case CommandTDelete:
		return "Delete"
	case CommandTTick:
		return "Tick"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// ToDBFeature converts a CommandType to the corresponding db.Feature.
// This can be used for checking if the engine supports a certain operation.
func (ct CommandType) ToDBFeature() (db.Feature, error) {
	switch ct {
	case CommandTSessionCreate, CommandTSessionDestroy:
		return db.FeatureSessions, nil
	case CommandTAcquire:
		return db.FeatureAcquire, nil
	case CommandTDelete:
		return db.FeatureDelete, nil
	case CommandTTick:
		return db.FeatureTick, nil
	default:
		return 0, fmt.Errorf("unknown command type %d", ct)
	}
}

// Command represents a command to be executed by the state machine (a single
// entry in the raft log). Unix carries the proposer's wall-clock time in
// milliseconds: the state machine never reads its own clock, it derives all
// time from the replicated command stream so every replica expires sessions
// at the same log position.
type Command struct {
	Type      CommandType
	Key       string
	SessionID string
	Unix      uint64 // Proposer timestamp (ms)
	TTL       uint64 // Session TTL (ms), session commands only
	LockDelay uint64 // Session lock delay (ms), session commands only
	Behavior  db.Behavior
	Value     []byte
}

// headerSize is the fixed part of the serialized command:
// Type + Unix + TTL + LockDelay + Behavior + KeyLen + SessionIDLen
const headerSize = 1 + 8 + 8 + 8 + 1 + 4 + 4

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := headerSize + len(command.Key) + len(command.SessionID)
	if command.Value != nil {
		size += len(command.Value)
	}
	return size
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for the proposer timestamp,
// 8 bytes for the ttl,
// 8 bytes for the lock delay,
// 1 byte for the behavior,
// 4 bytes for key length (big endian),
// 4 bytes for session id length (big endian),
// N bytes for key data,
// N bytes for session id data,
// N bytes for value data (optional)
func (command *Command) Serialize() []byte {
	totalSize := command.SizeBytes()
	result := make([]byte, totalSize)

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], command.Unix)
	binary.BigEndian.PutUint64(result[9:17], command.TTL)
	binary.BigEndian.PutUint64(result[17:25], command.LockDelay)
	result[25] = byte(command.Behavior)
	binary.BigEndian.PutUint32(result[26:30], uint32(len(command.Key)))
	binary.BigEndian.PutUint32(result[30:34], uint32(len(command.SessionID)))

	pos := headerSize
	copy(result[pos:], command.Key)
	pos += len(command.Key)
	copy(result[pos:], command.SessionID)
	pos += len(command.SessionID)

	if command.Value != nil {
		copy(result[pos:], command.Value)
	}

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Unix = binary.BigEndian.Uint64(data[1:9])
	command.TTL = binary.BigEndian.Uint64(data[9:17])
	command.LockDelay = binary.BigEndian.Uint64(data[17:25])
	command.Behavior = db.Behavior(data[25])

	keyLen := binary.BigEndian.Uint32(data[26:30])
	sidLen := binary.BigEndian.Uint32(data[30:34])

	if len(data) < headerSize+int(keyLen)+int(sidLen) {
		return fmt.Errorf("data too short for key of length %d and session id of length %d", keyLen, sidLen)
	}

	pos := headerSize
	command.Key = string(data[pos : pos+int(keyLen)])
	pos += int(keyLen)
	command.SessionID = string(data[pos : pos+int(sidLen)])
	pos += int(sidLen)

	// Extract value if present
	if len(data) > pos {
		valueLen := len(data) - pos
		// Reuse existing buffer if possible to reduce allocations
		if command.Value == nil || cap(command.Value) < valueLen {
			command.Value = make([]byte, valueLen)
		} else {
			command.Value = command.Value[:valueLen]
		}
		copy(command.Value, data[pos:])
	} else {
		command.Value = nil
	}

	return nil
}
