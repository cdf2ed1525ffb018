package embedding

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/metric"
	"github.com/c360/sousschef/natsclient"
	"github.com/c360/sousschef/pkg/cache"
)

// RemoteStore is the slice of the KV store the cache needs for its remote
// tier. Implemented by *natsclient.KVStore.
type RemoteStore interface {
	Get(ctx context.Context, key string) (*natsclient.KVEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// TieredConfig configures a TieredCache.
type TieredConfig struct {
	// Provider computes embeddings on cache misses. Required.
	Provider Embedder

	// Remote is the shared KV tier. Nil runs the cache local-only from
	// the start (reported as degraded).
	Remote RemoteStore

	// Local overrides the local tier, e.g. to attach cache metrics.
	// Defaults to an unbounded in-memory map.
	Local cache.Cache[[][]float32]

	// Logger for degraded-path warnings (optional, defaults to slog.Default()).
	Logger *slog.Logger

	// Metrics optionally registers hit/miss/downgrade counters.
	Metrics *metric.MetricsRegistry
}

// TieredCache memoizes embedding batches under their canonical batch key.
//
// Lookups try the shared remote KV tier first. The first remote failure
// that is not a plain key miss permanently downgrades the cache to its
// process-local tier; there is no recovery probe, a restart is the way
// back. Writes are best-effort on both tiers and never fail a call.
type TieredCache struct {
	provider Embedder
	remote   RemoteStore
	local    cache.Cache[[][]float32]
	degraded atomic.Bool
	logger   *slog.Logger
	metrics  *tieredMetrics
}

// NewTieredCache creates a tiered embedding cache.
func NewTieredCache(cfg TieredConfig) (*TieredCache, error) {
	if cfg.Provider == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "embedding", "NewTieredCache", "provider is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	local := cfg.Local
	if local == nil {
		var err error
		local, err = cache.NewSimple[[][]float32]()
		if err != nil {
			return nil, errors.WrapTransient(err, "embedding", "NewTieredCache", "local tier setup")
		}
	}

	metrics, err := newTieredMetrics(cfg.Metrics)
	if err != nil {
		return nil, errors.WrapTransient(err, "embedding", "NewTieredCache", "metrics registration")
	}

	t := &TieredCache{
		provider: cfg.Provider,
		remote:   cfg.Remote,
		local:    local,
		logger:   logger,
		metrics:  metrics,
	}

	if cfg.Remote == nil {
		t.degraded.Store(true)
	}

	return t, nil
}

// GetOrCompute returns one embedding vector per input text, in input order.
//
// The batch is the caching unit: an identical batch returns the memoized
// vectors without a provider call, and in the local tier concurrent calls
// for the same batch compute at most once. Provider failures propagate
// with the provider-unavailable kind; no synthetic vectors are returned.
func (t *TieredCache) GetOrCompute(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	key := BatchKey(texts)

	if t.remoteActive() {
		vectors, found, err := t.remoteGet(ctx, key)
		switch {
		case err != nil:
			t.downgrade("lookup", err)
		case found:
			t.metrics.recordHit("remote")
			return vectors, nil
		}
	}

	// Remote miss: compute, then write behind.
	if t.remoteActive() {
		t.metrics.recordMiss()
		vectors, err := t.generate(ctx, texts)
		if err != nil {
			return nil, err
		}
		t.storeRemote(ctx, key, vectors)
		return vectors, nil
	}

	vectors, computed, err := t.local.GetOrCompute(key, func() ([][]float32, error) {
		return t.generate(ctx, texts)
	})
	if err != nil {
		return nil, err
	}

	if computed {
		t.metrics.recordMiss()
	} else {
		t.metrics.recordHit("local")
	}
	return vectors, nil
}

// Degraded reports whether the cache has fallen back to the local tier.
func (t *TieredCache) Degraded() bool {
	return t.degraded.Load()
}

func (t *TieredCache) remoteActive() bool {
	return t.remote != nil && !t.degraded.Load()
}

// remoteGet looks up key in the remote tier. A missing key is a plain miss
// (nil, false, nil); an unreachable tier returns a cache-tier-down error.
func (t *TieredCache) remoteGet(ctx context.Context, key string) ([][]float32, bool, error) {
	entry, err := t.remote.Get(ctx, key)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, errors.WithKind(errors.ErrCacheTierDown, err)
	}

	var vectors [][]float32
	if err := json.Unmarshal(entry.Value, &vectors); err != nil {
		// Corrupt entry: recompute rather than downgrade
		t.logger.Warn("cached embedding entry is corrupt, recomputing", "key", key, "error", err)
		return nil, false, nil
	}

	return vectors, true, nil
}

// storeRemote writes the batch to the remote tier. A write failure
// downgrades the cache and seeds the local tier with the just-computed
// entry so the next identical batch does not recompute.
func (t *TieredCache) storeRemote(ctx context.Context, key string, vectors [][]float32) {
	data, err := json.Marshal(vectors)
	if err != nil {
		t.logger.Warn("embedding cache write skipped", "key", key, "error", err)
		return
	}

	if _, err := t.remote.Put(ctx, key, data); err != nil {
		t.downgrade("write", errors.WithKind(errors.ErrCacheTierDown, err))
		if _, seedErr := t.local.Set(key, vectors); seedErr != nil {
			t.logger.Warn("local cache seed failed", "key", key, "error", seedErr)
		}
	}
}

// generate calls the provider, tagging failures with the provider kind so
// callers can match them through the cache boundary.
func (t *TieredCache) generate(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := t.provider.Generate(ctx, texts)
	if err != nil {
		return nil, errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, err),
			"embedding", "generate", "provider call")
	}
	return vectors, nil
}

// downgrade permanently switches the cache to the local tier. The first
// caller wins; the transition is logged and counted exactly once.
func (t *TieredCache) downgrade(operation string, err error) {
	if t.degraded.CompareAndSwap(false, true) {
		t.metrics.recordDowngrade()
		t.logger.Warn("remote cache tier unavailable, downgrading to local tier",
			"operation", operation,
			"error", err)
	}
}
