package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/infrastructure/metrics"
)

// SchemaVersion is written into every record envelope. Records without an
// envelope predate versioning and are read as version 0.
const SchemaVersion = 1

type envelope struct {
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

// Adapter namespaces keys, serializes values as JSON and applies the
// quota policy: one cleanup pass and one retry, then a StorageError.
type Adapter struct {
	backend   Backend
	namespace string
	logger    *zap.Logger
	metrics   *metrics.Metrics

	cleanMu  sync.Mutex
	cleaner  Cleaner
	cleaning atomic.Bool
}

func NewAdapter(b Backend, namespace string, logger *zap.Logger, m *metrics.Metrics) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		backend:   b,
		namespace: namespace,
		logger:    logger,
		metrics:   m,
	}
}

// SetCleaner registers the pass run when a write exceeds the quota.
func (a *Adapter) SetCleaner(c Cleaner) {
	a.cleanMu.Lock()
	a.cleaner = c
	a.cleanMu.Unlock()
}

func (a *Adapter) fullKey(key string) string {
	return a.namespace + ":" + key
}

// GetJSON loads key into v. A missing key returns ErrKeyNotFound.
func (a *Adapter) GetJSON(ctx context.Context, key string, v any) error {
	raw, err := a.backend.Get(ctx, a.fullKey(key))
	if errors.Is(err, ErrKeyNotFound) {
		return ErrKeyNotFound
	}
	if err != nil {
		return &StorageError{Op: "get", Key: key, Err: err}
	}
	if err := decode(raw, v); err != nil {
		return &StorageError{Op: "decode", Key: key, Err: err}
	}
	return nil
}

func decode(raw []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Data == nil {
		// legacy record without envelope
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return nil
	}
	if env.Version > SchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than %d", ErrSerialization, env.Version, SchemaVersion)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

// SetJSON stores v under key.
func (a *Adapter) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: fmt.Errorf("%w: %v", ErrSerialization, err)}
	}
	raw, err := json.Marshal(envelope{Version: SchemaVersion, Data: data})
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: fmt.Errorf("%w: %v", ErrSerialization, err)}
	}

	full := a.fullKey(key)
	err = a.backend.Set(ctx, full, raw)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		return &StorageError{Op: "set", Key: key, Err: err}
	}

	a.metrics.QuotaExceeded()
	a.logger.Warn("storage quota exceeded, running cleanup", zap.String("key", key), zap.Int("bytes", len(raw)))

	if cerr := a.cleanup(ctx); cerr != nil {
		a.logger.Error("storage cleanup failed", zap.Error(cerr))
	}

	if err := a.backend.Set(ctx, full, raw); err != nil {
		a.metrics.StorageFailure("set")
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	a.logger.Info("write succeeded after cleanup", zap.String("key", key))
	return nil
}

func (a *Adapter) cleanup(ctx context.Context) error {
	// writes issued by the cleaner itself must not start another pass
	if !a.cleaning.CompareAndSwap(false, true) {
		return nil
	}
	defer a.cleaning.Store(false)

	a.cleanMu.Lock()
	c := a.cleaner
	a.cleanMu.Unlock()
	if c == nil {
		return nil
	}
	a.metrics.Cleanup()
	return c.Cleanup(ctx)
}

func (a *Adapter) Delete(ctx context.Context, key string) error {
	if err := a.backend.Delete(ctx, a.fullKey(key)); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Keys lists keys under prefix with the namespace stripped, sorted.
func (a *Adapter) Keys(ctx context.Context, prefix string) ([]string, error) {
	full, err := a.backend.Keys(ctx, a.fullKey(prefix))
	if err != nil {
		return nil, &StorageError{Op: "keys", Key: prefix, Err: err}
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, a.namespace+":"))
	}
	sort.Strings(keys)
	return keys, nil
}
