// Package cache holds short-lived sanitized user records so the session
// middleware does not hit the credential store on every authenticated
// request. Password hashes are never cached.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/libraryhub/internal/domain/user"
)

type Users interface {
	Get(ctx context.Context, id string) (user.Public, bool)
	Set(ctx context.Context, u user.Public)
	Delete(ctx context.Context, id string)
}

type entry struct {
	val user.Public
	exp time.Time
}

// MemoryUsers is the in-process adapter: a TTL map guarded by a RWMutex.
type MemoryUsers struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
}

func NewMemoryUsers(ttl time.Duration) *MemoryUsers {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &MemoryUsers{
		ttl: ttl,
		m:   make(map[string]entry),
	}
}

func (c *MemoryUsers) Get(ctx context.Context, id string) (user.Public, bool) {
	now := time.Now()
	c.mu.RLock()
	e, ok := c.m[id]
	c.mu.RUnlock()

	if !ok {
		return user.Public{}, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, id)
		c.mu.Unlock()
		return user.Public{}, false
	}

	return e.val, true
}

func (c *MemoryUsers) Set(ctx context.Context, u user.Public) {
	c.mu.Lock()
	c.m[u.ID] = entry{val: u, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryUsers) Delete(ctx context.Context, id string) {
	c.mu.Lock()
	delete(c.m, id)
	c.mu.Unlock()
}
