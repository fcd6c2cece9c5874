package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/store"
)

var ErrNotFound = errors.New("not found")

const (
	sessionPrefix = "sessions/"
	resultPrefix  = "results/"
	prefsKey      = "preferences"
	flagPrefix    = "flags/"
)

// get loads key into v, translating a missing key into ErrNotFound.
func get(ctx context.Context, kv *store.Adapter, key string, v any) error {
	err := kv.GetJSON(ctx, key, v)
	if errors.Is(err, store.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// scan decodes every record under prefix. Records that fail to decode are
// logged and skipped so one bad entry never hides the rest of a collection.
func scan[T any](ctx context.Context, kv *store.Adapter, logger *zap.Logger, prefix string, valid func(*T) bool) ([]*T, error) {
	keys, err := kv.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(keys))
	for _, key := range keys {
		var v T
		err := kv.GetJSON(ctx, key, &v)
		switch {
		case errors.Is(err, store.ErrKeyNotFound):
			continue
		case errors.Is(err, store.ErrSerialization):
			logger.Warn("skipping malformed record", zap.String("key", key), zap.Error(err))
			continue
		case err != nil:
			return nil, err
		}
		if valid != nil && !valid(&v) {
			logger.Warn("skipping invalid record", zap.String("key", key))
			continue
		}
		out = append(out, &v)
	}
	return out, nil
}
