package lstore

import (
	"sync"
	"time"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/store"
)

// defaultTickInterval is how often the store drives session expiry in the
// underlying engine.
const defaultTickInterval = 100 * time.Millisecond

type storeImpl struct {
	db       db.SessionKV
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// Timestamps come from the wall clock and a background ticker drives session
// expiry in the engine.
func NewLocalStore(factory store.DBFactory) store.ICoordinationStore {
	s := &storeImpl{
		db:   factory(),
		stop: make(chan struct{}),
	}

	go s.runTicker()

	return s
}

// now returns the current wall-clock time in milliseconds.
func (s *storeImpl) now() uint64 {
	return uint64(time.Now().UnixMilli())
}

// runTicker periodically advances the engine clock so sessions expire even
// while no operations arrive.
func (s *storeImpl) runTicker() {
	ticker := time.NewTicker(defaultTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.db.Tick(s.now())
		case <-s.stop:
			return
		}
	}
}

// Close stops the expiry ticker and closes the underlying engine.
func (s *storeImpl) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.db.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) CreateSession(ttlSeconds, lockDelaySeconds uint64, behavior db.Behavior) (string, error) {
	if !s.db.SupportsFeature(db.FeatureSessions) {
		return "", store.NewError(store.RetCUnsupportedOperation, "CreateSession operation is not supported")
	}

	if err := store.ValidateSessionTTL(ttlSeconds); err != nil {
		return "", err
	}

	id, err := store.GenerateSessionID()
	if err != nil {
		return "", store.NewError(store.RetCInternalError, "failed to generate session id: "+err.Error())
	}

	s.db.CreateSession(id, ttlSeconds*1000, lockDelaySeconds*1000, behavior, s.now())
	return id, nil
}

func (s *storeImpl) DestroySession(sessionID string) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureSessions) {
		return false, store.NewError(store.RetCUnsupportedOperation, "DestroySession operation is not supported")
	}
	return s.db.DestroySession(sessionID, s.now()), nil
}

func (s *storeImpl) AcquireKey(key string, value []byte, sessionID string) (store.AcquireResult, error) {
	if !s.db.SupportsFeature(db.FeatureAcquire) {
		return store.AcquireResultHeld, store.NewError(store.RetCUnsupportedOperation, "AcquireKey operation is not supported")
	}

	switch code := s.db.Acquire(key, value, sessionID, s.now()); code {
	case db.AcquireOK:
		return store.AcquireResultAcquired, nil
	case db.AcquireHeld:
		return store.AcquireResultHeld, nil
	case db.AcquireNoSession:
		return store.AcquireResultHeld, store.NewError(store.RetCUnknownSession, "session "+sessionID+" does not exist")
	default:
		return store.AcquireResultHeld, store.NewError(store.RetCInternalError, "unexpected acquire code "+code.String())
	}
}

func (s *storeImpl) GetKey(key string) ([]byte, bool, error) {
	if !s.db.SupportsFeature(db.FeatureGet) {
		return nil, false, store.NewError(store.RetCUnsupportedOperation, "GetKey operation is not supported")
	}
	val, ok := s.db.Get(key, s.now())
	return val, ok, nil
}

func (s *storeImpl) HasKey(key string) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureHas) {
		return false, store.NewError(store.RetCUnsupportedOperation, "HasKey operation is not supported")
	}
	return s.db.Has(key, s.now()), nil
}

func (s *storeImpl) DeleteKey(key string) error {
	if !s.db.SupportsFeature(db.FeatureDelete) {
		return store.NewError(store.RetCUnsupportedOperation, "DeleteKey operation is not supported")
	}
	s.db.Delete(key, s.now())
	return nil
}

func (s *storeImpl) GetSession(sessionID string) (db.Session, bool, error) {
	if !s.db.SupportsFeature(db.FeatureSessions) {
		return db.Session{}, false, store.NewError(store.RetCUnsupportedOperation, "GetSession operation is not supported")
	}
	session, found := s.db.GetSession(sessionID, s.now())
	return session, found, nil
}

func (s *storeImpl) GetStoreInfo() (db.StoreInfo, error) {
	return s.db.GetInfo(), nil
}
