// Package auth obtains and caches iCIMS OAuth access tokens.
//
// A TokenCache is an explicit object owned by the API client: it holds one token together
// with the instant it stops being served, and exchanges credentials again once the clock
// reaches that instant. Tokens issued by iCIMS are valid for 24 hours; the cache keeps
// them for DefaultLifetime so they are replaced well before the server rejects them.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/icims-client/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLifetime is how long a token is served before a new one is requested.
const DefaultLifetime = 8 * time.Hour

var tokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "icims_token_refreshes_total",
	Help: "Token cache refreshes by result (success, failure, shared)",
}, []string{"result"})

// CachedToken is an access token and the instant it stops being served.
type CachedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Header returns the Authorization header value for the token.
func (t CachedToken) Header() string {
	return "Bearer " + t.Value
}

// ValidAt reports whether the token may still be served at now.
func (t CachedToken) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// TokenCache memoizes an access token for a fixed lifetime.
type TokenCache struct {
	mu sync.Mutex

	exchanger Exchanger
	lifetime  time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	shared    cache.Store
	sharedKey cache.Key

	token CachedToken
}

// Option configures a TokenCache.
type Option func(*TokenCache)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(c *TokenCache) {
		if d > 0 {
			c.lifetime = d
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for refresh events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *TokenCache) {
		c.logger = logger
	}
}

// WithSharedStore makes the cache publish and reuse tokens through store under key, so
// several processes with the same credentials share a single token.
func WithSharedStore(store cache.Store, key cache.Key) Option {
	return func(c *TokenCache) {
		c.shared = store
		c.sharedKey = key
	}
}

// NewTokenCache returns an empty cache that obtains tokens from exchanger.
func NewTokenCache(exchanger Exchanger, opts ...Option) *TokenCache {
	c := &TokenCache{
		exchanger: exchanger,
		lifetime:  DefaultLifetime,
		now:       time.Now,
		logger:    log.With().Str("component", "auth").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthHeader returns the Authorization header value, exchanging credentials when the
// cached token is missing or expired.
func (c *TokenCache) AuthHeader(ctx context.Context) (string, error) {
	tok, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.Header(), nil
}

// Token returns the cached token, refreshing it when now >= ExpiresAt.
// On failure nothing is cached and the error matches ErrAuthentication.
func (c *TokenCache) Token(ctx context.Context) (CachedToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token.ValidAt(now) {
		return c.token, nil
	}

	if tok, ok := c.loadShared(ctx, now); ok {
		c.token = tok
		tokenRefreshesTotal.WithLabelValues("shared").Inc()
		c.logger.Debug().Time("expires_at", tok.ExpiresAt).Msg("Using shared access token")
		return tok, nil
	}

	grant, err := c.exchanger.Exchange(ctx)
	if err != nil {
		c.token = CachedToken{}
		tokenRefreshesTotal.WithLabelValues("failure").Inc()
		c.logger.Error().Err(err).Msg("Access token exchange failed")

		var authErr *AuthError
		if !errors.As(err, &authErr) {
			err = &AuthError{Message: "exchange credentials", Err: err}
		}
		return CachedToken{}, err
	}
	if grant == nil || grant.AccessToken == "" {
		c.token = CachedToken{}
		tokenRefreshesTotal.WithLabelValues("failure").Inc()
		return CachedToken{}, &AuthError{Message: "exchange returned no access token"}
	}

	lifetime := c.lifetime
	if grant.ExpiresIn > 0 && grant.ExpiresIn < lifetime {
		lifetime = grant.ExpiresIn
	}

	// Re-read the clock: the exchange may have taken a while.
	issued := c.now()
	c.token = CachedToken{Value: grant.AccessToken, ExpiresAt: issued.Add(lifetime)}
	tokenRefreshesTotal.WithLabelValues("success").Inc()

	c.logger.Info().
		Time("expires_at", c.token.ExpiresAt).
		Dur("lifetime", lifetime).
		Msg("Access token refreshed")

	c.storeShared(ctx, c.token)

	return c.token, nil
}

// Invalidate drops the cached token so the next call exchanges credentials again. Used
// after the API rejects a token with 401. The shared copy is removed only while it still
// holds the rejected token; a replacement published by another process is kept.
func (c *TokenCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rejected := c.token.Value
	c.token = CachedToken{}
	if c.shared == nil || rejected == "" {
		return
	}

	deleted, err := c.shared.CompareAndDelete(ctx, c.sharedKey, []byte(rejected))
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to delete shared access token")
		return
	}
	if deleted {
		c.logger.Debug().Msg("Removed rejected shared access token")
	}
}

// Peek returns the cached token without refreshing it.
func (c *TokenCache) Peek() (CachedToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.token.ValidAt(c.now())
}

func (c *TokenCache) loadShared(ctx context.Context, now time.Time) (CachedToken, bool) {
	if c.shared == nil {
		return CachedToken{}, false
	}

	entry, err := c.shared.Get(ctx, c.sharedKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Msg("Shared token lookup failed, exchanging credentials")
		}
		return CachedToken{}, false
	}

	tok := CachedToken{Value: string(entry.Data), ExpiresAt: entry.Expires}
	if !tok.ValidAt(now) {
		return CachedToken{}, false
	}
	return tok, true
}

func (c *TokenCache) storeShared(ctx context.Context, tok CachedToken) {
	if c.shared == nil {
		return
	}

	entry := &cache.Entry{
		Data:     []byte(tok.Value),
		Expires:  tok.ExpiresAt,
		CachedAt: c.now(),
	}
	if err := c.shared.Set(ctx, c.sharedKey, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to publish access token to shared store")
	}
}

// SharedKey returns the store key used for a client id and audience.
func SharedKey(clientID, audience string) cache.Key {
	if audience == "" {
		audience = DefaultAudience
	}
	return cache.Key{
		Namespace: "token",
		ID:        clientID,
		Params:    map[string]string{"audience": audience},
	}
}
