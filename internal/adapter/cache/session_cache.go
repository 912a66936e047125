// Package cache puts an in-process read-through cache in front of a
// session repository so the guard does not hit the database on every
// request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"

	"librarycat/internal/domain"
)

// DefaultLifeWindow bounds how long a cached session may outlive its
// durable row (for example after a cascade delete).
const DefaultLifeWindow = 5 * time.Minute

var _ domain.SessionRepository = (*SessionCache)(nil)

type xxHasher struct{}

func (xxHasher) Sum64(key string) uint64 { return xxhash.Sum64String(key) }

// SessionCache wraps a domain.SessionRepository.
type SessionCache struct {
	next  domain.SessionRepository
	cache *bigcache.BigCache
	now   func() time.Time
}

// NewSessionCache builds the cache. A non-positive lifeWindow uses
// DefaultLifeWindow.
func NewSessionCache(next domain.SessionRepository, lifeWindow time.Duration) (*SessionCache, error) {
	if lifeWindow <= 0 {
		lifeWindow = DefaultLifeWindow
	}
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.Shards = 64
	cfg.CleanWindow = time.Minute
	cfg.MaxEntriesInWindow = 10000
	cfg.MaxEntrySize = 256
	cfg.HardMaxCacheSize = 32
	cfg.Hasher = xxHasher{}
	c, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	return &SessionCache{next: next, cache: c, now: time.Now}, nil
}

// Close releases the cache.
func (c *SessionCache) Close() error {
	return c.cache.Close()
}

// Create stores the session durably, then caches it.
func (c *SessionCache) Create(ctx context.Context, s *domain.Session) error {
	if err := c.next.Create(ctx, s); err != nil {
		return err
	}
	c.put(s)
	return nil
}

// GetByToken serves from cache when possible. Absent sessions are not
// cached.
func (c *SessionCache) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if buf, err := c.cache.Get(token); err == nil {
		var s domain.Session
		if json.Unmarshal(buf, &s) == nil {
			if c.now().Before(s.ExpiresAt) {
				return &s, nil
			}
			_ = c.cache.Delete(token)
		}
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, fmt.Errorf("session cache: %w", err)
	}

	s, err := c.next.GetByToken(ctx, token)
	if err != nil || s == nil {
		return s, err
	}
	c.put(s)
	return s, nil
}

// Delete evicts the token and removes the durable session.
func (c *SessionCache) Delete(ctx context.Context, token string) error {
	if err := c.cache.Delete(token); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("session cache: %w", err)
	}
	return c.next.Delete(ctx, token)
}

// DeleteExpired delegates to the durable store. Cached copies are checked
// against ExpiresAt on read.
func (c *SessionCache) DeleteExpired(ctx context.Context) (int64, error) {
	return c.next.DeleteExpired(ctx)
}

func (c *SessionCache) put(s *domain.Session) {
	buf, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.cache.Set(s.Token, buf)
}
