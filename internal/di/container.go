package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"userdb/internal/events"
	"userdb/internal/shared/eventbus"
	"userdb/internal/shared/logger"
	"userdb/internal/users"
	"userdb/internal/users/config"
)

// Container wires the application's dependencies with proper lifecycle
// management. Components are initialized once and shared.
type Container struct {
	mu sync.Mutex

	// Configuration
	Config      *config.Config
	RedisConfig *config.RedisConfig

	// Database connections
	MongoClient *mongo.Client
	MongoDB     *mongo.Database
	RedisClient *redis.Client

	// Shared components
	Logger   logger.Logger
	EventBus *eventbus.EventBus

	// Event pipeline
	EventStore *events.RedisEventStore
	Bridge     *events.Bridge

	// Module instances
	UsersModule *users.Module
}

// NewContainer creates an empty container with a configured logger.
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{Logger: log}
}

// Initialize builds the full dependency graph: configuration, MongoDB,
// Redis, the event pipeline and the users module. Redis is optional;
// when it is unreachable the service runs without event streaming.
func (c *Container) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c.Config = cfg

	if err := c.initMongo(ctx); err != nil {
		return err
	}

	c.EventBus = eventbus.NewEventBus(c.Logger)

	c.initRedis(ctx)

	module, err := users.NewModule(ctx, c.MongoDB, c.Config, c.EventBus, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize users module: %w", err)
	}
	c.UsersModule = module

	return nil
}

func (c *Container) initMongo(ctx context.Context) error {
	opts := options.Client().
		ApplyURI(c.Config.MongoDBURI).
		SetMaxPoolSize(c.Config.MongoMaxPoolSize).
		SetMinPoolSize(c.Config.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	c.MongoClient = client
	c.MongoDB = client.Database(c.Config.DatabaseName)
	c.Logger.WithFields(map[string]interface{}{
		"database": c.Config.DatabaseName,
	}).Info("Connected to MongoDB")
	return nil
}

// initRedis connects Redis and attaches the event bridge. Failures are
// logged, not fatal: the CRUD surface works without the event stream.
func (c *Container) initRedis(ctx context.Context) {
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		c.Logger.WithFields(map[string]interface{}{"error": err.Error()}).
			Warn("Invalid Redis configuration, event streaming disabled")
		return
	}
	c.RedisConfig = redisCfg

	client := config.NewRedisClient(redisCfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		c.Logger.WithFields(map[string]interface{}{
			"addr":  redisCfg.GetAddr(),
			"error": err.Error(),
		}).Warn("Redis unreachable, event streaming disabled")
		_ = client.Close()
		return
	}

	c.RedisClient = client
	c.EventStore = events.NewRedisEventStore(client, redisCfg.StreamMaxLength, c.Logger)
	c.Bridge = events.NewBridge(c.EventStore, c.Logger)
	c.Bridge.Attach(c.EventBus)

	c.Logger.WithFields(map[string]interface{}{
		"addr": redisCfg.GetAddr(),
	}).Info("Connected to Redis, event streaming enabled")
}

// HealthStatus reports the health of each backing service.
type HealthStatus struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

// HealthCheck pings MongoDB and, when configured, Redis.
func (c *Container) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Healthy: true,
		Checks:  make(map[string]string),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if c.MongoClient == nil {
		status.Healthy = false
		status.Checks["mongodb"] = "not initialized"
	} else if err := c.MongoClient.Ping(pingCtx, nil); err != nil {
		status.Healthy = false
		status.Checks["mongodb"] = err.Error()
	} else {
		status.Checks["mongodb"] = "ok"
	}

	if c.RedisClient == nil {
		status.Checks["redis"] = "disabled"
	} else if err := c.RedisClient.Ping(pingCtx).Err(); err != nil {
		status.Healthy = false
		status.Checks["redis"] = err.Error()
	} else {
		status.Checks["redis"] = "ok"
	}

	return status
}

// Close releases all connections in reverse initialization order.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close Redis client: %w", err)
		}
		c.RedisClient = nil
	}

	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to disconnect MongoDB: %w", err)
		}
		c.MongoClient = nil
	}

	return firstErr
}
