package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrSerialization = errors.New("serialization failed")
	ErrUnavailable   = errors.New("storage unavailable")
)

// Backend is the raw persistent key-value primitive.
// Set may fail with ErrQuotaExceeded when the backend is full.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Cleaner frees space when a write hits the quota.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// CleanerFunc adapts a function to Cleaner.
type CleanerFunc func(ctx context.Context) error

func (f CleanerFunc) Cleanup(ctx context.Context) error { return f(ctx) }

// StorageError names the failing operation and key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsQuota reports whether err is (or wraps) a quota failure.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
