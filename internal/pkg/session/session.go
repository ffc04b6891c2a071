// Package session tracks revoked access tokens until they would have expired anyway.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	redispkg "github.com/qalam-news/core/internal/pkg/redis"
)

const keyPrefix = "qalam:revoked:"

// Denylist records revoked token ids.
type Denylist interface {
	// Revoke marks tokenID as revoked until expiresAt.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisDenylist stores revocations as expiring redis keys.
type RedisDenylist struct {
	rdb *redispkg.Client
	now func() time.Time
}

func NewRedisDenylist(rdb *redispkg.Client) *RedisDenylist {
	return &RedisDenylist{rdb: rdb, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return nil
	}
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	// exp is inclusive, keep the key one extra second.
	return d.rdb.Set(ctx, keyPrefix+tokenID, "1", ttl+time.Second)
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	return d.rdb.Exists(ctx, keyPrefix+tokenID)
}

// MemoryDenylist is the in-process Denylist used without redis.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces the time source. Tests only.
func (d *MemoryDenylist) WithClock(now func() time.Time) *MemoryDenylist {
	d.now = now
	return d
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	d.revoked[tokenID] = expiresAt
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if d.now().After(exp) {
		delete(d.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (d *MemoryDenylist) sweepLocked() {
	now := d.now()
	for id, exp := range d.revoked {
		if now.After(exp) {
			delete(d.revoked, id)
		}
	}
}
