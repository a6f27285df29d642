package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a key/value store with per-entry expiry.
type Store interface {
	// Get returns the entry for key, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key Key) (*Entry, error)

	// Set stores entry under key until entry.Expires. Expired entries are not stored.
	Set(ctx context.Context, key Key, entry *Entry) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// CompareAndDelete removes key only while its entry still holds data, and reports
	// whether it did.
	CompareAndDelete(ctx context.Context, key Key, data []byte) (bool, error)
}

// Manager is a Store backed by Redis, shared by every process pointing at the same server.
type Manager struct {
	redis *redis.Client
}

var _ Store = (*Manager)(nil)

// NewManager returns a Store on top of redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get retrieves the entry stored under key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		CacheMisses.WithLabelValues(layerRedis).Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	// Redis expiry has second granularity; the entry's own deadline is authoritative.
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.WithLabelValues(layerRedis).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(layerRedis).Inc()
	return entry, nil
}

// Set stores entry with a Redis TTL derived from entry.Expires.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// CompareAndDelete removes key inside a WATCH/MULTI transaction, so a value written by
// another process between the read and the delete is left alone.
func (m *Manager) CompareAndDelete(ctx context.Context, key Key, data []byte) (bool, error) {
	k := key.String()
	deleted := false

	err := m.redis.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		entry, err := decodeEntry(raw)
		if err != nil {
			return err
		}
		if !bytes.Equal(entry.Data, data) {
			return nil
		}

		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			return nil
		}); err != nil {
			return err
		}
		deleted = true
		return nil
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		// key changed under WATCH: whatever is there now is not the value we compared
		return false, nil
	}
	if err != nil {
		CacheErrors.WithLabelValues("compare_delete").Inc()
		return false, fmt.Errorf("redis compare-and-delete %s: %w", key, err)
	}
	return deleted, nil
}

func decodeEntry(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}
