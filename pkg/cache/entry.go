package cache

import (
	"time"
)

// Entry is a cached value together with its expiry.
type Entry struct {
	// Data is the cached payload.
	Data []byte `json:"data"`

	// Expires is the instant after which the entry must not be served.
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired reports whether the entry has expired relative to the wall clock.
func (e *Entry) IsExpired() bool {
	return e.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the entry has expired at now. An entry expires the moment
// now reaches Expires.
func (e *Entry) IsExpiredAt(now time.Time) bool {
	return !now.Before(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	return e.TTLAt(time.Now())
}

// TTLAt returns the time between now and expiration, or 0 if already expired.
func (e *Entry) TTLAt(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
