package server

import (
	"fmt"

	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/jhartmann-dev/dLock/rpc/common"
)

func NewStoreServerAdapter() IRPCServerAdapter {
	return &storeServerAdapterImpl{}
}

type storeServerAdapterImpl struct{}

func (adapter *storeServerAdapterImpl) Handle(req *common.Message, st store.ICoordinationStore) *common.Message {
	// Check for nil store
	if st == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTSessionCreate:
		sessionID, err := st.CreateSession(req.TTL, req.LockDelay, req.Behavior)
		return common.NewSessionCreateResponse(sessionID, err)
	case common.MsgTSessionDestroy:
		found, err := st.DestroySession(req.SessionID)
		return common.NewSessionDestroyResponse(found, err)
	case common.MsgTSessionGet:
		session, found, err := st.GetSession(req.SessionID)
		return common.NewSessionGetResponse(session, found, err)
	case common.MsgTKVAcquire:
		result, err := st.AcquireKey(req.Key, req.Value, req.SessionID)
		return common.NewAcquireResponse(result == store.AcquireResultAcquired, err)
	case common.MsgTKVGet:
		val, ok, err := st.GetKey(req.Key)
		return common.NewGetResponse(val, ok, err)
	case common.MsgTKVHas:
		ok, err := st.HasKey(req.Key)
		return common.NewHasResponse(ok, err)
	case common.MsgTKVDelete:
		err := st.DeleteKey(req.Key)
		return common.NewDeleteResponse(err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC StoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
