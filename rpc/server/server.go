package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/lib/db/engines/linden"
	"github.com/jhartmann-dev/dLock/lib/store"
	"github.com/jhartmann-dev/dLock/lib/store/dstore"
	"github.com/jhartmann-dev/dLock/lib/store/lstore"
	"github.com/jhartmann-dev/dLock/rpc/common"
	"github.com/jhartmann-dev/dLock/rpc/serializer"
	"github.com/jhartmann-dev/dLock/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// defaultClockIntervalMS is used for distributed shards when no clock
// interval is configured. It bounds the session expiry granularity.
const defaultClockIntervalMS = 1000

// serverShard is a struct that represents a shard in the RPC server
// It contains the shard ID, the store it encapsulates and the adapter
// that handles requests for the store
type serverShard struct {
	Store   store.ICoordinationStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate shard
		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Count the request per shard and operation
				metrics.GetOrCreateCounter(fmt.Sprintf(
					`rpc_requests_total{shard=%q,op=%q}`, fmt.Sprint(shardId), msg.MsgType.String(),
				)).Inc()

				// Let the adapter handle the request
				respMsg = *shard.Adapter.Handle(&msg, shard.Store)
			}
		}

		if respMsg.Err != "" {
			metrics.GetOrCreateCounter(fmt.Sprintf(
				`rpc_request_errors_total{shard=%q}`, fmt.Sprint(shardId),
			)).Inc()
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response: %s", err)
			return nil
		}
		return val
	})
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	// Function to create a new database instance
	dbFactory := func() db.SessionKV { return linden.NewLindenDB(nil) }

	// Create the Dragonboat NodeHost
	var nodeHost *dragonboat.NodeHost
	var err error
	if s.config.HasDistributedShard() {
		// Only create the NodeHost if we have distributed shards
		nodeHost, err = dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
	}

	// Configure the timeout for the distributed store
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	// Configure the replicated clock interval
	clockInterval := time.Duration(s.config.ClockIntervalMS) * time.Millisecond
	if clockInterval <= 0 {
		clockInterval = defaultClockIntervalMS * time.Millisecond
	}

	// CREATE SHARDS

	/*
		Note: A single RPC Server can have any number of local and or distributed
		shards. Each shard is an independent coordination store with its own
		sessions and keys. The following loop creates all the shards and stores
		them for the RPC server.
	*/

	for _, shardConfig := range s.config.Shards {

		switch shardConfig.Type {

		// Case local store
		case common.ShardTypeLocalStore:
			s.shards.Store(shardConfig.ShardID, serverShard{
				Store:   lstore.NewLocalStore(dbFactory),
				Adapter: NewStoreServerAdapter(),
			})
			Logger.Infof("created local store for shard %d", shardConfig.ShardID)

		// Case distributed store
		case common.ShardTypeDistributedStore:
			if nodeHost == nil {
				return fmt.Errorf("node host is nil, cannot create distributed store")
			}

			// Start Raft for the shard
			if err := nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false, dstore.CreateStateMachineFactory(dbFactory), s.config.ToDragonboatConfig(shardConfig.ShardID)); err != nil {
				return fmt.Errorf("failed to start shard %v: %v", shardConfig.ShardID, err)
			}

			// Drive session expiry with replicated clock ticks
			dstore.StartClock(nodeHost, shardConfig.ShardID, clockInterval, timeout)

			s.shards.Store(shardConfig.ShardID, serverShard{
				Store:   dstore.NewDistributedStore(nodeHost, shardConfig.ShardID, timeout),
				Adapter: NewStoreServerAdapter(),
			})
			Logger.Infof("created distributed store for shard %d", shardConfig.ShardID)

		default:
			return fmt.Errorf("invalid shard type: %s", shardConfig.Type)
		}
	}

	Logger.Infof("dLock setup completed successfully")

	// Start the metrics endpoint if configured
	if s.config.MetricsEndpoint != "" {
		go s.serveMetrics()
	}

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// serveMetrics exposes all collected metrics in Prometheus text format
func (s *rpcServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	Logger.Infof("Starting metrics endpoint on %s", s.config.MetricsEndpoint)
	if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
		Logger.Errorf("metrics endpoint failed: %v", err)
	}
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}
