package client

import (
	"encoding/json"
	"fmt"

	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/jhartmann-dev/dLock/rpc/common"
	"github.com/jhartmann-dev/dLock/rpc/serializer"
	"github.com/jhartmann-dev/dLock/rpc/transport"
)

// NewRPCStore creates a new RPC-backed coordination store
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a store.ICoordinationStore and an error
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.ICoordinationStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) CreateSession(ttlSeconds, lockDelaySeconds uint64, behavior db.Behavior) (string, error) {
	req := common.NewSessionCreateRequest(ttlSeconds, lockDelaySeconds, behavior)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (i *rpcStore) DestroySession(sessionID string) (bool, error) {
	req := common.NewSessionDestroyRequest(sessionID)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) AcquireKey(key string, value []byte, sessionID string) (store.AcquireResult, error) {
	req := common.NewAcquireRequest(key, value, sessionID)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return store.AcquireResultHeld, err
	}
	if resp.Ok {
		return store.AcquireResultAcquired, nil
	}
	return store.AcquireResultHeld, nil
}

func (i *rpcStore) GetKey(key string) (value []byte, loaded bool, err error) {
	req := common.NewGetRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) HasKey(key string) (loaded bool, err error) {
	req := common.NewHasRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) DeleteKey(key string) (err error) {
	req := common.NewDeleteRequest(key)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) GetSession(sessionID string) (db.Session, bool, error) {
	req := common.NewSessionGetRequest(sessionID)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return db.Session{}, false, err
	}
	if !resp.Ok {
		return db.Session{}, false, nil
	}

	// The session travels JSON encoded in the value field
	var session db.Session
	if err := json.Unmarshal(resp.Value, &session); err != nil {
		return db.Session{}, false, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, true, nil
}

// GetStoreInfo is not implemented for rpc
func (i *rpcStore) GetStoreInfo() (info db.StoreInfo, err error) {
	return db.StoreInfo{}, fmt.Errorf("the GetStoreInfo() method is not implemented in the rpc client adapter")
}
