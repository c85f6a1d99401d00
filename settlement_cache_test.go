package settler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGenerateSettlementKey(t *testing.T) {
	key1 := GenerateSettlementKey("vault-a", "pay-001")
	key2 := GenerateSettlementKey("vault-a", "pay-002")
	key3 := GenerateSettlementKey("vault-a", "pay-001")
	key4 := GenerateSettlementKey("vault-b", "pay-001")

	if key1 != key3 {
		t.Errorf("Expected same inputs to produce same key, got %s and %s", key1, key3)
	}
	if key1 == key2 {
		t.Error("Expected different refs to produce different keys")
	}
	if key1 == key4 {
		t.Error("Expected same ref on different vaults to produce different keys")
	}
	if len(key1) != 64 {
		t.Errorf("Expected key to be 64 hex chars, got %d", len(key1))
	}
}

func TestSettlementCache_CheckAndMark_Cached(t *testing.T) {
	cache := NewSettlementCache(5 * time.Minute)
	key := "test-key"
	record := &SettlementRecord{VaultID: "vault-a", Amount: 42, PaymentRef: "pay-001"}

	// First call should return NotFound and mark in-flight
	status, result, done := cache.CheckAndMark(key)
	if status != StatusNotFound {
		t.Errorf("Expected StatusNotFound, got %v", status)
	}
	if result != nil {
		t.Error("Expected nil result for NotFound")
	}

	cache.Complete(key, record, done)

	// Second call should return Cached
	status, result, _ = cache.CheckAndMark(key)
	if status != StatusCached {
		t.Errorf("Expected StatusCached, got %v", status)
	}
	if result == nil || result.Amount != 42 {
		t.Error("Expected cached record with amount 42")
	}
}

func TestSettlementCache_CheckAndMark_InFlight(t *testing.T) {
	cache := NewSettlementCache(5 * time.Minute)
	key := "inflight-test"

	status1, _, done1 := cache.CheckAndMark(key)
	if status1 != StatusNotFound {
		t.Errorf("Expected StatusNotFound, got %v", status1)
	}

	status2, _, done2 := cache.CheckAndMark(key)
	if status2 != StatusInFlight {
		t.Errorf("Expected StatusInFlight, got %v", status2)
	}

	if done1 != done2 {
		t.Error("Expected same done channel for in-flight requests")
	}
}

func TestSettlementCache_Expiry(t *testing.T) {
	cache := NewSettlementCache(50 * time.Millisecond)
	key := "expiry-test"
	record := &SettlementRecord{PaymentRef: "pay-exp"}

	status, _, done := cache.CheckAndMark(key)
	if status != StatusNotFound {
		t.Fatalf("Expected StatusNotFound, got %v", status)
	}
	cache.Complete(key, record, done)

	status, result, _ := cache.CheckAndMark(key)
	if status != StatusCached {
		t.Error("Expected StatusCached immediately after complete")
	}
	if result == nil {
		t.Error("Expected non-nil record")
	}

	time.Sleep(60 * time.Millisecond)

	status, _, done = cache.CheckAndMark(key)
	if status != StatusNotFound {
		t.Errorf("Expected StatusNotFound after expiry, got %v", status)
	}
	cache.Fail(key, done) // Clean up
}

func TestSettlementCache_Fail_SignalsWaiters(t *testing.T) {
	cache := NewSettlementCache(5 * time.Minute)
	key := "fail-test"

	_, _, done := cache.CheckAndMark(key)

	var wg sync.WaitGroup
	wg.Add(1)
	var waited *SettlementRecord
	var waitErr error
	go func() {
		defer wg.Done()
		waited, waitErr = cache.WaitForResult(context.Background(), key, done)
	}()

	cache.Fail(key, done)
	wg.Wait()

	if waitErr != nil {
		t.Fatalf("WaitForResult returned error: %v", waitErr)
	}
	if waited != nil {
		t.Error("Expected nil record after Fail (waiter should retry)")
	}

	// Key should be retryable now
	status, _, done := cache.CheckAndMark(key)
	if status != StatusNotFound {
		t.Errorf("Expected StatusNotFound after Fail, got %v", status)
	}
	cache.Fail(key, done)
}

func TestSettlementCache_WaitForResult_ContextCancelled(t *testing.T) {
	cache := NewSettlementCache(5 * time.Minute)
	key := "cancel-test"

	_, _, done := cache.CheckAndMark(key)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.WaitForResult(ctx, key, done)
	if err == nil {
		t.Error("Expected context error")
	}
	cache.Fail(key, done)
}
