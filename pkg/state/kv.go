// Package state provides persistent key-value storage with a file or
// Redis backend.
package state

import "context"

// KV is the interface for key-value storage backends. Values survive as
// JSON, so numbers read back as float64 and maps as map[string]any.
type KV interface {
	// Get retrieves a value from the store.
	Get(ctx context.Context, key string) (any, bool, error)

	// GetString retrieves a string value.
	GetString(ctx context.Context, key string) (string, bool, error)

	// Set stores a value.
	Set(ctx context.Context, key string, value any) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys in the store.
	Keys(ctx context.Context) ([]string, error)

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// UpdateFunc applies fn to the current value and stores the result
	// atomically with respect to other UpdateFunc calls on the key.
	UpdateFunc(ctx context.Context, key string, fn func(current any) any) error

	// Close flushes and closes the store.
	Close() error
}

// BackendType selects the storage backend.
type BackendType string

const (
	BackendFile  BackendType = "file"
	BackendRedis BackendType = "redis"
)

// Config configures the state store.
type Config struct {
	Backend BackendType

	// File backend.
	FilePath      string
	AutoSave      bool
	SaveIntervalS int

	// Redis backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}
