// Package storage provides durable key/value storage for client-side state.
// The interface mirrors browser localStorage: string keys, string values,
// whole-value overwrites. Drivers: file (default), sqlite, redis, memory, none.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Common errors for storage operations.
var (
	ErrNotFound      = errors.New("storage key not found")
	ErrUnavailable   = errors.New("storage unavailable")
	ErrInvalidConfig = errors.New("invalid storage configuration")
	ErrInvalidDriver = errors.New("invalid storage driver")
	ErrClosed        = errors.New("storage closed")
)

// Storage is a durable string key/value store.
type Storage interface {
	// GetItem returns the value stored under key.
	// Returns ErrNotFound if nothing is stored.
	GetItem(ctx context.Context, key string) (string, error)

	// SetItem overwrites the value stored under key.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Close releases any resources held by the driver.
	Close() error
}

// Driver names a storage backend.
type Driver string

const (
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
	DriverMemory Driver = "memory"
	DriverNone   Driver = "none"
)

// Option is a functional option for configuring a storage driver.
type Option func(*options)

type options struct {
	path        string
	redisClient *redis.Client
	redisAddr   string
	redisDB     int
	redisTTL    time.Duration
	logger      *zap.Logger
}

// WithPath sets the directory (file driver) or database file (sqlite driver).
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithRedisClient supplies an existing redis client.
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// WithRedisAddr makes the redis driver dial addr/db itself.
func WithRedisAddr(addr string, db int) Option {
	return func(o *options) {
		o.redisAddr = addr
		o.redisDB = db
	}
}

// WithRedisTTL sets the TTL for redis keys. Zero means no expiry.
func WithRedisTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.redisTTL = ttl
	}
}

// WithLogger sets the driver logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Storage for the given driver.
// file and sqlite require WithPath; redis requires WithRedisClient or WithRedisAddr.
func New(driver Driver, opts ...Option) (Storage, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	switch driver {
	case DriverFile:
		if o.path == "" {
			return nil, fmt.Errorf("%w: file driver needs a directory", ErrInvalidConfig)
		}
		fs, err := NewFileStorage(o.path, o.logger)
		if err != nil {
			return nil, err
		}
		return fs, nil

	case DriverSQLite:
		if o.path == "" {
			return nil, fmt.Errorf("%w: sqlite driver needs a database path", ErrInvalidConfig)
		}
		db, err := NewSQLiteStorage(o.path)
		if err != nil {
			return nil, err
		}
		return db, nil

	case DriverRedis:
		client := o.redisClient
		if client == nil {
			if o.redisAddr == "" {
				return nil, fmt.Errorf("%w: redis driver needs a client or address", ErrInvalidConfig)
			}
			client = redis.NewClient(&redis.Options{Addr: o.redisAddr, DB: o.redisDB})
		}
		return NewRedisStorage(client, o.redisTTL), nil

	case DriverMemory:
		return NewMemoryStorage(), nil

	case DriverNone:
		return Unavailable{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, driver)
	}
}

// Unavailable is a Storage with no backend behind it, the equivalent of running
// without browser storage. Every call fails with ErrUnavailable.
type Unavailable struct{}

func (Unavailable) GetItem(context.Context, string) (string, error) { return "", ErrUnavailable }
func (Unavailable) SetItem(context.Context, string, string) error { return ErrUnavailable }
func (Unavailable) RemoveItem(context.Context, string) error { return ErrUnavailable }
func (Unavailable) Close() error { return nil }
