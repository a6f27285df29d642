// Package cache provides a small key/value store with per-entry expiry, backed by Redis
// for sharing between processes or by memory for a single process.
//
// The iCIMS client uses it to share the OAuth access token between every process that talks
// to the same customer: iCIMS throttles or disables clients that request more than 500
// access tokens in 10 minutes, so bulk jobs running in parallel must not each mint their own.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewManager(redisClient)
//
//	key := cache.Key{Namespace: "token", ID: clientID}
//
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// exchange credentials, then
//		_ = store.Set(ctx, key, &cache.Entry{Data: []byte(tok), Expires: expiresAt})
//	}
//
// After the API rejects a token, CompareAndDelete removes it only if no other process has
// already replaced it:
//
//	_, _ = store.CompareAndDelete(ctx, key, []byte(rejected))
//
// A MemoryStore offers the same contract without Redis and accepts an injected clock,
// which is what the unit tests use.
//
// # Metrics
//
//   - icims_cache_hits_total{layer} - hits by layer (redis, memory)
//   - icims_cache_misses_total{layer} - misses by layer
//   - icims_cache_errors_total{operation} - store errors (get, set, delete, compare_delete)
package cache
