// Package cache keeps the last successfully extracted copy of each dataset
// so a later run can continue when the source is unreachable.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Driver names accepted by Open.
const (
	DriverFS     = "fs"
	DriverS3     = "s3"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Store persists opaque payloads by key. Put overwrites existing entries.
type Store interface {
	Driver() string
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Config selects and configures a Store.
type Config struct {
	Driver string
	Dir    string
	S3     S3Config
}

// Open builds the configured store. DriverNone returns a nil Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverFS:
		return NewFS(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	case DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Driver)
	}
}

// DatasetKey is the cache key of a dataset's CSV copy.
func DatasetKey(name string) string {
	return name + ".csv"
}
