package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jhartmann-dev/dLock/lib/db"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// SessionTTLMinSeconds and SessionTTLMaxSeconds bound the session TTL
	// every implementation must enforce. The lower bound protects against
	// sessions that expire before their first acquisition can complete, the
	// upper bound against sessions that outlive any reasonable lock holder.
	SessionTTLMinSeconds = 10
	SessionTTLMaxSeconds = 3600
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new engine used by the store.
// This is used to abstract the creation of the engine from the store implementation.
type DBFactory func() db.SessionKV

// AcquireResult is the outcome of a successful AcquireKey round trip.
// Contention is a result, not an error: only transport or store failures
// are reported through the error return.
type AcquireResult uint8

const (
	AcquireResultAcquired AcquireResult = iota // The key is now bound to the session
	AcquireResultHeld                          // The key is held by another session (or lock-delayed)
)

func (r AcquireResult) String() string {
	switch r {
	case AcquireResultAcquired:
		return "Acquired"
	case AcquireResultHeld:
		return "Held"
	default:
		return "Unknown"
	}
}

// ICoordinationStore is the generic interface for interacting with a
// session-capable coordination store. All operations return a *Error
// (nil on success) alongside their result.
type ICoordinationStore interface {
	// CreateSession registers a new ephemeral session and returns its id.
	// ttlSeconds must lie within [SessionTTLMinSeconds, SessionTTLMaxSeconds].
	// lockDelaySeconds is the re-acquisition block applied to the session's
	// keys after a TTL invalidation (only meaningful with db.BehaviorRelease).
	CreateSession(ttlSeconds, lockDelaySeconds uint64, behavior db.Behavior) (sessionID string, err error)
	// DestroySession invalidates a session, applying its behavior to all
	// bound keys. Returns false if the session is unknown or already expired.
	DestroySession(sessionID string) (found bool, err error)
	// AcquireKey writes value under key bound to the given session, if the
	// key is free. The result distinguishes acquisition from contention.
	AcquireKey(key string, value []byte, sessionID string) (result AcquireResult, err error)
	// GetKey returns the value for a key. The boolean return value indicates
	// whether a value for the key was found.
	GetKey(key string) (value []byte, loaded bool, err error)
	// HasKey returns whether a key exists in the store.
	HasKey(key string) (loaded bool, err error)
	// DeleteKey removes a key-value pair regardless of session bindings.
	// Lock holders should prefer DestroySession over deleting lock keys.
	DeleteKey(key string) (err error)
	// GetSession returns the session for the given id if it is still live.
	GetSession(sessionID string) (session db.Session, found bool, err error)
	// GetStoreInfo returns metadata about the engine underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetStoreInfo() (info db.StoreInfo, err error)
}

// --------------------------------------------------------------------------
// Session ID Generation
// --------------------------------------------------------------------------

// GenerateSessionID creates a new unique session id: 128 bits from the
// system entropy source, hex encoded. Ids are generated by the store
// client (not inside any replicated state machine) so that id generation
// stays off the deterministic code path.
func GenerateSessionID() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}

// ValidateSessionTTL checks the TTL bound shared by all implementations.
func ValidateSessionTTL(ttlSeconds uint64) error {
	if ttlSeconds < SessionTTLMinSeconds || ttlSeconds > SessionTTLMaxSeconds {
		return NewError(RetCInvalidTTL, fmt.Sprintf(
			"session ttl must be between %d and %d seconds, got %d",
			SessionTTLMinSeconds, SessionTTLMaxSeconds, ttlSeconds))
	}
	return nil
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCUnsupportedOperation:
		errorCode = "UnsupportedOperation"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	case RetCUnknownSession:
		errorCode = "UnknownSession"
	case RetCInvalidTTL:
		errorCode = "InvalidTTL"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("CoordinationStoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying engine.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCUnknownSession                      // 4: The referenced session does not exist (or expired).
	RetCInvalidTTL                          // 5: The session TTL is outside the allowed range.
	RetCHeld                                // 6: Acquisition refused, the key is held. Internal, mapped to AcquireResultHeld.
)
