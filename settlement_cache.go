package settler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// SettlementCache provides idempotency for settle operations by caching
// applied settlement records and tracking in-flight requests per payment
// reference. A retried settlement with the same paymentRef returns the
// original record instead of debiting the vault twice.
type SettlementCache struct {
	mu       sync.Mutex
	results  map[string]*SettlementRecord
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

// NewSettlementCache creates a settlement cache with the specified TTL for
// cached records. The TTL is the deduplication window for retries.
func NewSettlementCache(ttl time.Duration) *SettlementCache {
	return &SettlementCache{
		results:  make(map[string]*SettlementRecord),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// GenerateSettlementKey builds the dedup key for a settlement attempt.
// The key scopes the caller-supplied paymentRef to one vault, so the same
// reference against different vaults does not collide.
func GenerateSettlementKey(vaultID VaultID, paymentRef string) string {
	hash := sha256.Sum256([]byte(string(vaultID) + "/" + paymentRef))
	return hex.EncodeToString(hash[:])
}

// SettlementStatus represents the result of checking the cache.
type SettlementStatus int

const (
	// StatusNotFound means no cached record and no in-flight request.
	StatusNotFound SettlementStatus = iota
	// StatusCached means an applied record was found.
	StatusCached
	// StatusInFlight means another request is currently applying this settlement.
	StatusInFlight
)

// CheckAndMark atomically checks the cache and marks the key as in-flight if needed.
// Returns:
// - StatusCached + record if an applied record exists
// - StatusInFlight + wait channel if another request is processing
// - StatusNotFound + done channel if this request should proceed (now marked in-flight)
func (c *SettlementCache) CheckAndMark(key string) (SettlementStatus, *SettlementRecord, chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, exists := c.expiry[key]; exists {
		if time.Now().Before(expiry) {
			if record, ok := c.results[key]; ok {
				return StatusCached, record, nil
			}
		}
		// Expired - clean it up
		delete(c.results, key)
		delete(c.expiry, key)
	}

	if done, exists := c.inFlight[key]; exists {
		return StatusInFlight, nil, done
	}

	done := make(chan struct{})
	c.inFlight[key] = done
	return StatusNotFound, nil, done
}

// WaitForResult waits for an in-flight settlement to complete, respecting
// context cancellation. Returns the applied record, nil if the in-flight
// attempt failed (caller should retry), or the context error.
func (c *SettlementCache) WaitForResult(ctx context.Context, key string, done chan struct{}) (*SettlementRecord, error) {
	select {
	case <-done:
		return c.get(key), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *SettlementCache) get(key string) *SettlementRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, exists := c.expiry[key]
	if !exists {
		return nil
	}
	if time.Now().After(expiry) {
		delete(c.results, key)
		delete(c.expiry, key)
		return nil
	}
	return c.results[key]
}

// Complete caches the applied record, clears the in-flight marker and
// signals any waiting goroutines.
func (c *SettlementCache) Complete(key string, record *SettlementRecord, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[key] = record
	c.expiry[key] = time.Now().Add(c.ttl)
	delete(c.inFlight, key)
	close(done)

	c.cleanupExpiredLocked()
}

// Fail removes the in-flight marker without caching a record, signaling
// waiters that they should retry.
func (c *SettlementCache) Fail(key string, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, key)
	close(done)
}

// cleanupExpiredLocked removes expired entries. Must be called with lock held.
func (c *SettlementCache) cleanupExpiredLocked() {
	now := time.Now()
	for key, expiry := range c.expiry {
		if now.After(expiry) {
			delete(c.results, key)
			delete(c.expiry, key)
		}
	}
}
