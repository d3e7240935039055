package internal

import (
	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Entry Type (key-value pair with session binding metadata)
// --------------------------------------------------------------------------

// Entry stores a value together with its session binding metadata
type Entry struct {
	Value      []byte // Stored data
	Session    string // Owning session id, "" when unbound
	DelayUntil uint64 // Re-acquisition blocked until this timestamp (0 = no delay)
	Index      uint64 // Engine clock value when this entry was last written
}

// Bound reports whether the entry is currently bound to a session
func (e Entry) Bound() bool { return e.Session != "" }

// Delayed reports whether the entry is inside a lock-delay window at the given time
func (e Entry) Delayed(now uint64) bool {
	return e.DelayUntil != 0 && now < e.DelayUntil
}

// --------------------------------------------------------------------------
// SessionState Type (session bookkeeping)
// --------------------------------------------------------------------------

// SessionState couples the public session data with the set of keys
// currently bound to the session. The key set is maintained under the
// engine's session mutex.
type SessionState struct {
	db.Session
	Keys map[util.UintKey]struct{}
}

// Expired reports whether the session deadline has passed at the given time
func (s *SessionState) Expired(now uint64) bool {
	return now >= s.ExpiresAt
}

// --------------------------------------------------------------------------
// Shard Type (partition of the key space)
// --------------------------------------------------------------------------

// Shard represents a partition of the key space.
// Each shard has its own concurrent map so unrelated keys never contend.
type Shard struct {
	Data *xsync.MapOf[util.UintKey, Entry]
}

// NewShard creates a new shard with the provided hash function
func NewShard(hasher func(util.UintKey, uint64) uint64) *Shard {
	return &Shard{
		Data: xsync.NewMapOfWithHasher[util.UintKey, Entry](hasher),
	}
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key util.UintKey, shards []*T) *T {
	// Shift right by 7 bits to use higher-quality bits for distribution
	shiftedKey := uint64(key) >> 7
	shardPos := shiftedKey % uint64(len(shards))
	return shards[shardPos]
}
