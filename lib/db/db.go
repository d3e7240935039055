package db

import "io"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplLinden Implementation = "linden"
)

// Feature represents engine features as bit flags
type Feature uint64

const (
	FeatureSessions Feature = 1 << iota // Support for CreateSession, DestroySession and GetSession
	FeatureAcquire                      // Support for session-conditional key acquisition
	FeatureGet                          // Support for Get operations
	FeatureHas                          // Support for Has operations
	FeatureDelete                       // Support for Delete operations
	FeatureSave                         // Support for Save operations
	FeatureLoad                         // Support for Load operations
	FeatureTick                         // Support for timestamp-driven session expiry
)

func (f Feature) String() string {
	switch f {
	case FeatureSessions:
		return "Sessions"
	case FeatureAcquire:
		return "Acquire"
	case FeatureGet:
		return "Get"
	case FeatureHas:
		return "Has"
	case FeatureDelete:
		return "Delete"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	case FeatureTick:
		return "Tick"
	default:
		return "Unknown"
	}
}

// Behavior controls what happens to the keys bound to a session
// when the session is invalidated (TTL expiry) or destroyed.
type Behavior uint8

const (
	// BehaviorDelete removes every key the session holds.
	BehaviorDelete Behavior = iota
	// BehaviorRelease keeps the keys but clears their binding; after an
	// invalidation (not an explicit destroy) the lock delay starts.
	BehaviorRelease
)

func (b Behavior) String() string {
	switch b {
	case BehaviorDelete:
		return "delete"
	case BehaviorRelease:
		return "release"
	default:
		return "unknown"
	}
}

// ParseBehavior converts the wire/CLI representation back to a Behavior.
func ParseBehavior(s string) (Behavior, bool) {
	switch s {
	case "delete":
		return BehaviorDelete, true
	case "release":
		return BehaviorRelease, true
	default:
		return BehaviorDelete, false
	}
}

// Session is the engine-level view of an ephemeral session.
// All timestamps are milliseconds on the engine's logical clock.
type Session struct {
	ID              string   `json:"id"`
	TTLMillis       uint64   `json:"ttl_ms"`
	LockDelayMillis uint64   `json:"lock_delay_ms"`
	Behavior        Behavior `json:"behavior"`
	CreatedAt       uint64   `json:"created_at"`
	ExpiresAt       uint64   `json:"expires_at"`
}

// AcquireCode is the outcome of a session-conditional acquisition.
type AcquireCode uint8

const (
	AcquireOK        AcquireCode = iota // the key is now bound to the session
	AcquireHeld                         // the key is bound to another live session (or lock-delayed)
	AcquireNoSession                    // the session is unknown or already invalidated
)

func (c AcquireCode) String() string {
	switch c {
	case AcquireOK:
		return "OK"
	case AcquireHeld:
		return "Held"
	case AcquireNoSession:
		return "NoSession"
	default:
		return "Unknown"
	}
}

type StoreInfo struct {
	Implementation    Implementation `json:"implementation"`
	Keys              int            `json:"keys"`
	Sessions          int            `json:"sessions"`
	ClockMillis       uint64         `json:"clock_ms"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// SessionKV defines the interface for session-aware key-value engines.
// Keys are plain KV entries that can additionally be bound to a session;
// a bound key acts as a lock that is lost when the session goes away.
//
// Every mutating operation takes a caller-supplied timestamp (milliseconds).
// The engine never reads the wall clock itself: with timestamps coming in
// through the operation stream the engine stays deterministic when the same
// stream is replayed (e.g. by a consensus log). The engine clock only moves
// forward; stale timestamps are accepted but do not rewind anything.
type SessionKV interface {

	// --------------------------------------------------------------------------
	// Session Operations
	// --------------------------------------------------------------------------

	// CreateSession registers a session under the given (caller-generated) id.
	// ttlMillis is the session lifetime, lockDelayMillis the re-acquisition
	// block applied to its keys after an invalidation (behavior release only).
	// An existing session with the same id is overwritten.
	CreateSession(id string, ttlMillis, lockDelayMillis uint64, behavior Behavior, now uint64)

	// DestroySession removes a session and applies its behavior to all bound
	// keys. Explicit destruction never starts the lock delay.
	// Returns false if the session is unknown (or already expired).
	DestroySession(id string, now uint64) (found bool)

	// GetSession returns the session for the given id if it is still live.
	GetSession(id string, now uint64) (session Session, found bool)

	// --------------------------------------------------------------------------
	// Key Operations
	// --------------------------------------------------------------------------

	// Acquire writes value under key and binds the key to the session, but
	// only if the key is not currently bound to another live session and not
	// within a lock-delay window. Re-acquiring with the owning session
	// succeeds and overwrites the value.
	Acquire(key string, value []byte, sessionID string, now uint64) (code AcquireCode)

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	Get(key string, now uint64) (value []byte, loaded bool)

	// Has checks whether a key exists in the engine.
	Has(key string, now uint64) (loaded bool)

	// Delete removes an entry with the specified key regardless of any
	// session binding. The binding bookkeeping is cleaned up as well.
	Delete(key string, now uint64)

	// --------------------------------------------------------------------------
	// Clock Operations
	// --------------------------------------------------------------------------

	// Tick advances the engine clock and invalidates every session whose
	// deadline has passed. The owner of the engine decides how often this is
	// driven (wall-clock ticker, consensus-proposed tick, ...).
	Tick(now uint64)

	// Clock returns the highest timestamp the engine has seen so far.
	Clock() (now uint64)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the engine to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load restores the engine state from the data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine implementation supports the specified feature.
	// Multiple features can be checked at once using the bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the engine.
	GetInfo() (info StoreInfo)

	// Close releases all engine resources.
	Close() (err error)
}
