package dstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/jhartmann-dev/dLock/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

var (
	retries = 5
	log     = logger.GetLogger("store")
)

// storeImpl is the distributed implementation of store.ICoordinationStore.
// It encapsulates a Dragonboat NodeHost which is used to communicate with the state machine.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// NewDistributedStore creates a new distributed store instance which uses raft consensus
// to ensure strict linearizability across multiple nodes.
//
// Session deadlines advance with the timestamps carried by proposed commands.
// Run StartClock alongside the store (once per shard, any node) so sessions
// also expire while no client is proposing anything.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) store.ICoordinationStore {
	cs := nh.GetNoOPSession(shardID)
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		cs:      cs,
		timeout: timeout,
	}
}

// StartClock starts a goroutine that periodically proposes tick commands to
// the given shard, driving session expiry through the replicated log. The
// returned function stops the clock.
func StartClock(nh *dragonboat.NodeHost, shardID uint64, interval, timeout time.Duration) (stop func()) {
	cs := nh.GetNoOPSession(shardID)
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cmd := internal.Command{
					Type: internal.CommandTTick,
					Unix: nowMillis(),
				}
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				_, err := nh.SyncPropose(ctx, cs, cmd.Serialize())
				cancel()
				if err != nil && !errors.Is(err, dragonboat.ErrSystemBusy) {
					log.Warningf("tick proposal for shard %d failed: %v", shardID, err)
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}

// nowMillis returns the proposer's wall-clock time in milliseconds.
func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// propose serializes a Command and sends it via SyncPropose.
// It returns the raw state machine result so callers can interpret
// operation-specific return codes, and an error for transport failures.
func (s *storeImpl) propose(cmd internal.Command) (sm.Result, error) {
	cmd.Unix = nowMillis()

	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)

		res, err := s.nh.SyncPropose(ctx, s.cs, cmd.Serialize())
		cancel()

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}

		if err != nil {
			return sm.Result{}, store.NewError(store.RetCInternalError, err.Error())
		}
		return res, nil
	}
	return sm.Result{}, store.NewError(store.RetCInternalError, "timeout")
}

// write proposes a command and requires a plain success result.
func (s *storeImpl) write(cmd internal.Command) error {
	res, err := s.propose(cmd)
	if err != nil {
		return err
	}
	if res.Value != uint64(store.RetCSuccess) {
		return store.NewError(store.RetCode(res.Value), string(res.Data))
	}
	return nil
}

// read is a generic helper function that queries the state machine
// and attempts to convert the response into the expected type R.
//
// This function uses the SyncRead function (dragonboat) by default to query the state machine.
// If linearizability is not required, the stale parameter can be set to true to use the faster StaleRead function.
//
// If the read operation fails due to a system busy error, the function retries up to 5 times.
func read[R any](r *storeImpl, q internal.Query, stale bool) (R, error) {
	var zero R
	q.Unix = nowMillis()

	for i := 0; i < retries; i++ {

		var res interface{}
		var err error

		// Query the state machine, use StaleRead if stale is set otherwise use SyncRead (default)
		if stale {
			res, err = r.nh.StaleRead(r.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			res, err = r.nh.SyncRead(ctx, r.shardID, q)
			cancel()
		}

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(r.timeout / 10)
			continue
		}

		if err != nil {
			var storeErr *store.Error
			if errors.As(err, &storeErr) {
				return zero, storeErr
			}
			return zero, store.NewError(store.RetCInternalError, err.Error())
		}

		// The state machine is expected to return the response in the expected type R.
		casted, ok := res.(R)
		if !ok {
			return zero, store.NewError(store.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, store.NewError(store.RetCInternalError, "timeout")
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) CreateSession(ttlSeconds, lockDelaySeconds uint64, behavior db.Behavior) (string, error) {
	if err := store.ValidateSessionTTL(ttlSeconds); err != nil {
		return "", err
	}

	// The id is generated on the proposer so the state machine stays
	// deterministic; the id travels through the log like any other payload.
	id, err := store.GenerateSessionID()
	if err != nil {
		return "", store.NewError(store.RetCInternalError, "failed to generate session id: "+err.Error())
	}

	if err := s.write(internal.Command{
		Type:      internal.CommandTSessionCreate,
		SessionID: id,
		TTL:       ttlSeconds * 1000,
		LockDelay: lockDelaySeconds * 1000,
		Behavior:  behavior,
	}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *storeImpl) DestroySession(sessionID string) (bool, error) {
	res, err := s.propose(internal.Command{
		Type:      internal.CommandTSessionDestroy,
		SessionID: sessionID,
	})
	if err != nil {
		return false, err
	}
	if res.Value != uint64(store.RetCSuccess) {
		return false, store.NewError(store.RetCode(res.Value), string(res.Data))
	}
	return len(res.Data) == 1 && res.Data[0] == 1, nil
}

func (s *storeImpl) AcquireKey(key string, value []byte, sessionID string) (store.AcquireResult, error) {
	res, err := s.propose(internal.Command{
		Type:      internal.CommandTAcquire,
		Key:       key,
		SessionID: sessionID,
		Value:     value,
	})
	if err != nil {
		return store.AcquireResultHeld, err
	}

	switch store.RetCode(res.Value) {
	case store.RetCSuccess:
		return store.AcquireResultAcquired, nil
	case store.RetCHeld:
		return store.AcquireResultHeld, nil
	default:
		return store.AcquireResultHeld, store.NewError(store.RetCode(res.Value), string(res.Data))
	}
}

func (s *storeImpl) DeleteKey(key string) error {
	return s.write(internal.Command{
		Type: internal.CommandTDelete,
		Key:  key,
	})
}

func (s *storeImpl) GetKey(key string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type: internal.QueryTGet,
		Key:  key,
	}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (s *storeImpl) HasKey(key string) (bool, error) {
	return read[bool](s, internal.Query{
		Type: internal.QueryTHas,
		Key:  key,
	}, false)
}

func (s *storeImpl) GetSession(sessionID string) (db.Session, bool, error) {
	res, err := read[internal.SessionQueryResult](s, internal.Query{
		Type: internal.QueryTGetSession,
		Key:  sessionID,
	}, false)
	if err != nil {
		return db.Session{}, false, err
	}
	return res.Session, res.Found, nil
}

func (s *storeImpl) GetStoreInfo() (db.StoreInfo, error) {
	return read[db.StoreInfo](
		s,
		internal.Query{
			Type: internal.QueryTGetStoreInfo,
		},
		true, // Note: allow for stale reads
	)
}
