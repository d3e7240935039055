package internal

import "github.com/jhartmann-dev/dLock/lib/db"

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTGet          QueryType = iota // Retrieve an entry by key.
	QueryTHas                           // Check if a key exists.
	QueryTGetSession                    // Retrieve a session by id.
	QueryTGetStoreInfo                  // Retrieve metadata about the engine underlying the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTGet:
		return "Get"
	case QueryTHas:
		return "Has"
	case QueryTGetSession:
		return "GetSession"
	case QueryTGetStoreInfo:
		return "GetStoreInfo"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or StaleRead.
// Key carries the key or session id, depending on the query type.
type Query struct {
	Type QueryType // The type of Query to perform.
	Key  string    // The key or session id (empty for some queries).
	Unix uint64    // Reader timestamp (ms) used to filter expired state.
}

// QueryResult is the result of a QueryTGet operation.
// All other query results are primitive types or predefined structs (bool, db.StoreInfo).
type QueryResult struct {
	Ok    bool
	Value []byte
}

// SessionQueryResult is the result of a QueryTGetSession operation.
type SessionQueryResult struct {
	Found   bool
	Session db.Session
}
