// Package cache stores merged analysis results for a short, fixed time.
//
// Results are addressed by a fingerprint of the analysis type and the
// normalized request text, so identical requests within the TTL are served
// without calling any vendor.
//
// Two Store implementations exist:
//
// - MemoryStore keeps entries in process memory (default)
// - RedisStore keeps entries in Redis with a native key TTL
//
// Both treat an entry as valid while now is before its Expires time and
// evict expired entries when they are read.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore()
//
//	key := cache.NewKey(provider.Sentiment, text)
//
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		data, _ := merged.Encode()
//		_ = store.Set(ctx, key, cache.NewEntry(data, 5*time.Minute))
//	}
//
// MemoryStore does not shrink on its own. Run Sweep periodically to drop
// entries nobody asks for again.
//
// # Metrics
//
//   - insight_cache_hits_total{backend}
//   - insight_cache_misses_total{backend}
//   - insight_cache_entries{backend}
//   - insight_cache_evictions_total{reason}
//   - insight_cache_errors_total{operation}
package cache
