package dependency

import (
	"time"

	"buildhub-client/src/clients"
	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/lifecycle"
	"buildhub-client/src/internal/push"
	"buildhub-client/src/internal/realtime"
	"buildhub-client/src/internal/routeguard"
	"buildhub-client/src/internal/session"
	"buildhub-client/src/internal/storage"

	"github.com/sirupsen/logrus"
)

type Manager struct {
	Config      *config.Configuration
	Store       *session.Store
	Persistence *session.Persistence
	Guard       *routeguard.Guard
	Registrar   *push.Registrar
	Realtime    *realtime.Connection
	Backend     *clients.BackendClient
	RabbitMQ    *clients.RabbitMQ
	Runtime     *lifecycle.Runtime
}

// NewDependencyManager wires the session runtime. Storage and broker
// backends are best-effort: an unreachable backend degrades to in-memory
// storage or disabled listeners instead of failing the boot.
func NewDependencyManager(cfg *config.Configuration, platform push.Platform) *Manager {
	store := session.NewStore()
	backend := clients.NewBackendClient(cfg)

	snapshotStorage := newStorage(cfg)
	persistence := session.NewPersistence(store, snapshotStorage, time.Duration(cfg.App.Timeout)*time.Second)

	guard := routeguard.New(&cfg.Routes)

	rabbitMQ, broker := newBroker(cfg)
	registrar := push.NewRegistrar(store, backend, platform, broker, cfg)

	connection := realtime.NewConnection(cfg)
	runtime := lifecycle.NewRuntime(store, persistence, guard, registrar, connection)

	return &Manager{
		Config:      cfg,
		Store:       store,
		Persistence: persistence,
		Guard:       guard,
		Registrar:   registrar,
		Realtime:    connection,
		Backend:     backend,
		RabbitMQ:    rabbitMQ,
		Runtime:     runtime,
	}
}

// Close releases the broker connection. The runtime releases everything
// else through Stop.
func (m *Manager) Close() {
	if m.RabbitMQ != nil {
		if err := m.RabbitMQ.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close RabbitMQ")
		}
	}
}

func newStorage(cfg *config.Configuration) storage.Storage {
	switch cfg.Storage.Driver {
	case "redis":
		redisClient, err := clients.NewRedisClient(cfg)
		if err != nil {
			logrus.WithError(err).Warn("Redis unavailable, session will not survive restarts")
			return storage.NewMemory()
		}
		return storage.NewRedis(redisClient.Client, cfg.Storage.Namespace)
	case "mongo":
		mongodb, err := clients.NewMongoDB(cfg)
		if err != nil {
			logrus.WithError(err).Warn("MongoDB unavailable, session will not survive restarts")
			return storage.NewMemory()
		}
		return storage.NewMongo(mongodb.Database.Collection(cfg.Storage.Mongo.Collection), cfg.Storage.Namespace)
	default:
		return storage.NewMemory()
	}
}

func newBroker(cfg *config.Configuration) (*clients.RabbitMQ, push.Broker) {
	if cfg.Queue.RabbitMQ.Url == "" {
		return nil, nil
	}

	rabbitMQ, err := clients.NewRabbitMQ(&cfg.Queue)
	if err != nil {
		logrus.WithError(err).Warn("RabbitMQ unavailable, notification listeners disabled")
		return nil, nil
	}
	if err := rabbitMQ.SetupExchange(); err != nil {
		logrus.WithError(err).Warn("Failed to declare notifications exchange, listeners disabled")
		return rabbitMQ, nil
	}

	return rabbitMQ, push.NewAMQPBroker(rabbitMQ)
}
