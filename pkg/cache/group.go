package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoadFunc builds the value for a key on a cache miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Group is a typed, TTL-bound cache over a Store. Concurrent misses for the same
// key share one LoadFunc call; the others wait for its result.
type Group[T any] struct {
	name   string
	store  Store
	ttl    time.Duration
	flight singleflight.Group
	logger *zap.Logger
}

// NewGroup creates a cache group. Keys are namespaced by name inside store.
func NewGroup[T any](name string, store Store, ttl time.Duration, logger *zap.Logger) *Group[T] {
	return &Group[T]{
		name:   name,
		store:  store,
		ttl:    ttl,
		logger: logger.Named("cache").With(zap.String("group", name)),
	}
}

// loadTimeout bounds a shared load once it no longer follows any caller's context.
const loadTimeout = 2 * time.Minute

// Get returns the cached value for key or loads, stores and returns it.
// Store failures are logged and fall through to load; a broken cache never
// fails a request on its own. The load is detached from ctx so one caller
// going away does not fail the others waiting on it. Each caller still stops
// waiting when its own ctx is done.
func (g *Group[T]) Get(ctx context.Context, key string, load LoadFunc[T]) (T, error) {
	var zero T

	if v, ok := g.lookup(ctx, key); ok {
		return v, nil
	}

	ch := g.flight.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		// Another flight may have filled the entry while we waited to start.
		if v, ok := g.lookup(loadCtx, key); ok {
			return v, nil
		}

		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}

		encoded, err := json.Marshal(v)
		if err != nil {
			return v, fmt.Errorf("encode %s cache entry: %w", g.name, err)
		}
		if err := g.store.Set(loadCtx, g.storeKey(key), encoded, g.ttl); err != nil {
			g.logger.Warn("Failed to store cache entry", zap.String("key", key), zap.Error(err))
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			g.logger.Debug("Shared in-flight load", zap.String("key", key))
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (g *Group[T]) lookup(ctx context.Context, key string) (T, bool) {
	var v T

	raw, ok, err := g.store.Get(ctx, g.storeKey(key))
	if err != nil {
		g.logger.Warn("Failed to read cache entry", zap.String("key", key), zap.Error(err))
		return v, false
	}
	if !ok {
		return v, false
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		g.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, true
}

func (g *Group[T]) storeKey(key string) string {
	return g.name + ":" + key
}
