package agent

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/intakehq/autoflow/analytics"
	"github.com/intakehq/autoflow/config"
	"github.com/intakehq/autoflow/dispatch"
	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/flow"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/metadata"
	"github.com/intakehq/autoflow/notify"
	"github.com/intakehq/autoflow/persistence/redis"
	"github.com/intakehq/autoflow/rest"
	"github.com/intakehq/autoflow/rpc"
	"github.com/intakehq/autoflow/util"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// entityBackend is what the agent needs from an entity store: the run-time view and the
// admin view.
type entityBackend interface {
	entity.Store
	entity.Repository
}

type Agent struct {
	Config          config.Config
	metadataStorage metadata.MetadataStorage
	metadataService *metadata.MetadataServiceImpl
	entities        entityBackend
	notifier        notify.Notifier
	collector       analytics.RunDataCollector
	dispatcher      *dispatch.Dispatcher
	asyncWorker     *util.Worker
	httpServer      *rest.Server
	grpcServer      *grpc.Server
	closers         []func() error
	shutdown        bool
	shutdownLock    sync.Mutex
	wg              sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupStorage,
		a.setupNotifier,
		a.setupCollector,
		a.setupDispatcher,
		a.setupAsyncWorker,
		a.setupHttpServer,
		a.setupGrpcServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

// OpenMetadataStorage returns the definition storage selected by conf and a function
// releasing it.
func OpenMetadataStorage(conf config.Config) (metadata.MetadataStorage, func() error, error) {
	switch conf.StorageType {
	case config.STORAGE_TYPE_REDIS:
		s := redis.NewRedisMetadataStorage(conf.RedisConfig)
		if err := s.Ping(context.Background()); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return s, s.Close, nil
	case config.STORAGE_TYPE_INMEM:
		return metadata.NewMemoryMetadataStorage(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage implementation %q", conf.StorageType)
}

func (a *Agent) setupStorage() error {
	storage, closeFn, err := OpenMetadataStorage(a.Config)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeFn)
	a.metadataStorage = storage
	a.metadataService = metadata.NewMetadataService(storage, a.Config.FlowCacheTTL)

	if a.Config.StorageType == config.STORAGE_TYPE_REDIS {
		store := redis.NewRedisEntityStore(a.Config.RedisConfig)
		a.closers = append(a.closers, store.Close)
		a.entities = store
	} else {
		a.entities = entity.NewMemoryStore()
	}
	logger.Info("storage ready", zap.String("impl", string(a.Config.StorageType)))
	return nil
}

func (a *Agent) setupNotifier() error {
	switch a.Config.NotifierType {
	case config.NOTIFIER_TYPE_REDIS:
		n := redis.NewRedisNotifier(a.Config.RedisConfig)
		a.closers = append(a.closers, n.Close)
		a.notifier = n
		logger.Info("publishing notifications", zap.String("channel", n.Channel()))
	default:
		a.notifier = notify.LogNotifier{}
	}
	return nil
}

func (a *Agent) setupCollector() error {
	collector, err := analytics.NewDataCollector(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	if lc, ok := collector.(*analytics.LogFileDataCollector); ok {
		a.closers = append(a.closers, lc.Close)
	}
	a.collector = collector
	return nil
}

func (a *Agent) setupDispatcher() error {
	dc := a.Config.DispatchConfig
	runner := flow.NewRunner(a.entities, a.notifier, flow.WithMaxDepth(dc.MaxDepth), flow.WithMaxSteps(dc.MaxSteps))
	a.dispatcher = dispatch.NewDispatcher(a.metadataService, runner,
		dispatch.WithParallelism(dc.Parallelism),
		dispatch.WithCollector(a.collector),
	)
	return nil
}

func (a *Agent) setupAsyncWorker() error {
	if a.Config.DispatchConfig.AsyncCapacity == 0 {
		return nil
	}
	a.asyncWorker = util.NewWorker("async-dispatch", &a.wg, rest.AsyncDispatchHandler(a.dispatcher), a.Config.DispatchConfig.AsyncCapacity)
	a.asyncWorker.Start()
	return nil
}

func (a *Agent) setupHttpServer() error {
	var async rest.TaskSubmitter
	if a.asyncWorker != nil {
		async = a.asyncWorker
	}
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.metadataService, a.dispatcher, a.entities, async)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) setupGrpcServer() error {
	var err error
	conf := &rpc.GrpcConfig{
		Dispatcher: a.dispatcher,
	}
	a.grpcServer, err = rpc.NewGrpcServer(conf)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.Config.GrpcPort))
	if err != nil {
		return err
	}
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()

	go func() {
		logger.Info("starting grpc server on", zap.Int("port", a.Config.GrpcPort))
		if err := a.grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			logger.Info("stopping grpc server")
			a.grpcServer.GracefulStop()
			return nil
		},
		func() error {
			if a.asyncWorker != nil {
				a.asyncWorker.Stop()
			}
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return a.close()
}

func (a *Agent) close() error {
	var err error
	for _, fn := range a.closers {
		err = multierr.Append(err, fn())
	}
	a.closers = nil
	return err
}
