package dstore

import (
	"fmt"
	"io"
	"time"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/jhartmann-dev/dLock/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// SessionKVStateMachine is a state machine implementation for Dragonboat RAFT.
// Time never comes from the local node: every command carries the proposer's
// timestamp, so all replicas expire sessions at the same log position.
type SessionKVStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.SessionKV // the actual data storage
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// The factory pattern is used to enable the caller to pass an interchangeable dbFactory.
func CreateStateMachineFactory(dbFactory store.DBFactory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &SessionKVStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  dbFactory(),
		}
	}
}

// Lookup handles read-only queries by mapping each Query operation to the corresponding SessionKV method.
func (fsm *SessionKVStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	// Handle different Query types
	switch q.Type {
	case internal.QueryTGet:
		if !fsm.database.SupportsFeature(db.FeatureGet) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
		}
		val, ok := fsm.database.Get(q.Key, q.Unix)
		return internal.QueryResult{
			Value: val,
			Ok:    ok,
		}, nil
	case internal.QueryTHas:
		if !fsm.database.SupportsFeature(db.FeatureHas) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Has operation is not supported")
		}
		return fsm.database.Has(q.Key, q.Unix), nil
	case internal.QueryTGetSession:
		if !fsm.database.SupportsFeature(db.FeatureSessions) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "GetSession operation is not supported")
		}
		session, found := fsm.database.GetSession(q.Key, q.Unix)
		return internal.SessionQueryResult{
			Found:   found,
			Session: session,
		}, nil
	case internal.QueryTGetStoreInfo:
		return fsm.database.GetInfo(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}

// Update handles write commands on the SessionKV instance.
// All write operations are serialized into []byte and are accessible via the entries struct.
func (fsm *SessionKVStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		// Handle each entry
		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}
			continue
		}

		// Deserialize the command
		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
			continue
		}

		// Check if the engine supports the operation
		feat, err := cmd.Type.ToDBFeature()
		if err != nil {
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCInvalidOperation),
				Data:  []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type)),
			}
			continue
		}
		if !fsm.database.SupportsFeature(feat) {
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCUnsupportedOperation),
				Data:  []byte(fmt.Sprintf("%s operation is not supported", cmd.Type)),
			}
			continue
		}

		switch cmd.Type {
		case internal.CommandTSessionCreate:
			fsm.database.CreateSession(cmd.SessionID, cmd.TTL, cmd.LockDelay, cmd.Behavior, cmd.Unix)
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCSuccess),
				Data:  []byte(fmt.Sprintf("session created: id=%s", cmd.SessionID)),
			}
		case internal.CommandTSessionDestroy:
			found := fsm.database.DestroySession(cmd.SessionID, cmd.Unix)
			data := []byte{0}
			if found {
				data = []byte{1}
			}
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCSuccess),
				Data:  data,
			}
		case internal.CommandTAcquire:
			switch code := fsm.database.Acquire(cmd.Key, cmd.Value, cmd.SessionID, cmd.Unix); code {
			case db.AcquireOK:
				entries[idx].Result = sm.Result{
					Value: uint64(store.RetCSuccess),
					Data:  []byte(fmt.Sprintf("acquired: key=%s", cmd.Key)),
				}
			case db.AcquireHeld:
				entries[idx].Result = sm.Result{
					Value: uint64(store.RetCHeld),
					Data:  []byte(fmt.Sprintf("held: key=%s", cmd.Key)),
				}
			case db.AcquireNoSession:
				entries[idx].Result = sm.Result{
					Value: uint64(store.RetCUnknownSession),
					Data:  []byte(fmt.Sprintf("session %s does not exist", cmd.SessionID)),
				}
			}
		case internal.CommandTDelete:
			fsm.database.Delete(cmd.Key, cmd.Unix)
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCSuccess),
				Data:  []byte(fmt.Sprintf("deleted key=%s", cmd.Key)),
			}
		case internal.CommandTTick:
			fsm.database.Tick(cmd.Unix)
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCSuccess),
				Data:  []byte("tick"),
			}
		default:
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCInvalidOperation),
				Data:  []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type)),
			}
		}
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms:", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// PrepareSnapshot is not used. We don't need to prepare anything since we use fuzzy snapshotting
func (fsm *SessionKVStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot saves a fuzzy engine snapshot to the writer
func (fsm *SessionKVStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureSave) {
		return fmt.Errorf("the used SessionKV implementation does not support Save() operations")
	}
	return fsm.database.Save(writer)
}

// RecoverFromSnapshot restores the engine state from a snapshot.
func (fsm *SessionKVStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureLoad) {
		return fmt.Errorf("the used SessionKV implementation does not support Load() operations")
	}
	return fsm.database.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *SessionKVStateMachine) Close() error {
	return fsm.database.Close()
}
