package common

import (
	"encoding/json"
	"fmt"

	"github.com/jhartmann-dev/dLock/lib/db"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key       string      `json:"key,omitempty"`        // Used for: Acquire, Get, Has, Delete
	SessionID string      `json:"session_id,omitempty"` // Used for: session operations, Acquire; SessionCreate response
	TTL       uint64      `json:"ttl,omitempty"`        // Used for: SessionCreate (seconds)
	LockDelay uint64      `json:"lock_delay,omitempty"` // Used for: SessionCreate (seconds)
	Behavior  db.Behavior `json:"behavior,omitempty"`   // Used for: SessionCreate
	Value     []byte      `json:"value,omitempty"`      // Used for: Acquire (request), Get and SessionGet (response)

	// Response only fields
	Ok  bool   `json:"ok,omitempty"`  // Used for: Get, Has, Acquire, SessionDestroy, SessionGet responses
	Err string `json:"err,omitempty"` // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSessionCreateRequest creates a new SessionCreate request.
// TTL and lock delay are given in seconds.
func NewSessionCreateRequest(ttlSeconds, lockDelaySeconds uint64, behavior db.Behavior) *Message {
	return &Message{
		MsgType:   MsgTSessionCreate,
		TTL:       ttlSeconds,
		LockDelay: lockDelaySeconds,
		Behavior:  behavior,
	}
}

// NewSessionCreateResponse creates a new SessionCreate response carrying the
// id of the created session
func NewSessionCreateResponse(sessionID string, err error) *Message {
	msg := &Message{
		MsgType:   MsgTSessionCreate,
		SessionID: sessionID,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewSessionDestroyRequest creates a new SessionDestroy request
func NewSessionDestroyRequest(sessionID string) *Message {
	return &Message{
		MsgType:   MsgTSessionDestroy,
		SessionID: sessionID,
	}
}

// NewSessionDestroyResponse creates a new SessionDestroy response.
// Ok reports whether the session existed.
func NewSessionDestroyResponse(found bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTSessionDestroy,
		Ok:      found,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewSessionGetRequest creates a new SessionGet request
func NewSessionGetRequest(sessionID string) *Message {
	return &Message{
		MsgType:   MsgTSessionGet,
		SessionID: sessionID,
	}
}

// NewSessionGetResponse creates a new SessionGet response. The session is
// carried JSON encoded in the value field so the message stays flat for all
// serializers.
func NewSessionGetResponse(session db.Session, found bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTSessionGet,
		Ok:      found,
	}
	if err != nil {
		msg.Err = err.Error()
		return msg
	}
	if found {
		data, jsonErr := json.Marshal(session)
		if jsonErr != nil {
			msg.Err = jsonErr.Error()
			return msg
		}
		msg.Value = data
	}
	return msg
}

// NewAcquireRequest creates a new Acquire request
func NewAcquireRequest(key string, value []byte, sessionID string) *Message {
	return &Message{
		MsgType:   MsgTKVAcquire,
		Key:       key,
		SessionID: sessionID,
		Value:     value,
	}
}

// NewAcquireResponse creates a new Acquire response.
// Ok reports whether the key was acquired; false with an empty error means
// the key is held by another session.
func NewAcquireResponse(acquired bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVAcquire,
		Ok:      acquired,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVGet,
		Ok:      ok,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewHasRequest creates a new Has request
func NewHasRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVHas,
		Key:     key,
	}
}

// NewHasResponse creates a new Has response
func NewHasResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVHas,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVDelete,
		Key:     key,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVDelete,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTSessionCreate:
		return "sessionCreate"
	case MsgTSessionDestroy:
		return "sessionDestroy"
	case MsgTSessionGet:
		return "sessionGet"
	case MsgTKVAcquire:
		return "acquire"
	case MsgTKVGet:
		return "get"
	case MsgTKVHas:
		return "has"
	case MsgTKVDelete:
		return "delete"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "sessionCreate":
		*t = MsgTSessionCreate
	case "sessionDestroy":
		*t = MsgTSessionDestroy
	case "sessionGet":
		*t = MsgTSessionGet
	case "acquire":
		*t = MsgTKVAcquire
	case "get":
		*t = MsgTKVGet
	case "has":
		*t = MsgTKVHas
	case "delete":
		*t = MsgTKVDelete
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Session operations

	MsgTSessionCreate  // Create an ephemeral session
	MsgTSessionDestroy // Destroy a session, applying its behavior to bound keys
	MsgTSessionGet     // Look up a session by id

	// Key operations

	MsgTKVAcquire // Session-conditional put on a key
	MsgTKVGet     // Get a value by key
	MsgTKVHas     // Check if a key exists
	MsgTKVDelete  // Delete a key-value pair
)
