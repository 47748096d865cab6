package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshadianto/mnee-sentinel/internal/common"
)

func TestCheckAndRecord_CountLimit(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	addr := makeTestAddress(1)

	for i := 0; i < 3; i++ {
		if err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(10), 3, decimal.NewFromInt(10000), 24*time.Hour); err != nil {
			t.Fatalf("CheckAndRecord %d failed: %v", i, err)
		}
	}

	err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(10), 3, decimal.NewFromInt(10000), 24*time.Hour)
	var exceeded *VelocityExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("Expected VelocityExceededError, got %v", err)
	}
	if exceeded.Which != VelocityCountLimit {
		t.Errorf("Which = %s, want %s", exceeded.Which, VelocityCountLimit)
	}

	// A rejected transaction must not be recorded.
	window, err := store.GetVelocity(ctx, addr)
	if err != nil {
		t.Fatalf("GetVelocity failed: %v", err)
	}
	if window.TxCount != 3 {
		t.Errorf("TxCount = %d, want 3", window.TxCount)
	}
}

func TestCheckAndRecord_AmountLimit(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	addr := makeTestAddress(2)

	if err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(800), 10, decimal.NewFromInt(1000), 24*time.Hour); err != nil {
		t.Fatalf("CheckAndRecord failed: %v", err)
	}

	err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(300), 10, decimal.NewFromInt(1000), 24*time.Hour)
	var exceeded *VelocityExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("Expected VelocityExceededError, got %v", err)
	}
	if exceeded.Which != VelocityAmountLimit {
		t.Errorf("Which = %s, want %s", exceeded.Which, VelocityAmountLimit)
	}

	window, err := store.GetVelocity(ctx, addr)
	if err != nil {
		t.Fatalf("GetVelocity failed: %v", err)
	}
	if !window.TotalAmount.Equal(decimal.NewFromInt(800)) {
		t.Errorf("TotalAmount = %s, want 800", window.TotalAmount)
	}
}

func TestCheckAndRecord_WindowResets(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	addr := makeTestAddress(3)

	windowLength := 50 * time.Millisecond

	if err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(900), 1, decimal.NewFromInt(1000), windowLength); err != nil {
		t.Fatalf("CheckAndRecord failed: %v", err)
	}
	if err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(900), 1, decimal.NewFromInt(1000), windowLength); err == nil {
		t.Fatal("Expected velocity error inside the window")
	}

	time.Sleep(75 * time.Millisecond)

	// The stale window resets, so both limits start fresh.
	if err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(900), 1, decimal.NewFromInt(1000), windowLength); err != nil {
		t.Fatalf("CheckAndRecord after expiry failed: %v", err)
	}

	window, err := store.GetVelocity(ctx, addr)
	if err != nil {
		t.Fatalf("GetVelocity failed: %v", err)
	}
	if window.TxCount != 1 {
		t.Errorf("TxCount = %d after reset, want 1", window.TxCount)
	}
	if !window.TotalAmount.Equal(decimal.NewFromInt(900)) {
		t.Errorf("TotalAmount = %s after reset, want 900", window.TotalAmount)
	}
}

func TestCheckAndRecord_ConcurrentHonorsMaxCount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	addr := makeTestAddress(4)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(1), 5, decimal.NewFromInt(100000), 24*time.Hour); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("succeeded = %d, want 5", succeeded)
	}
}

func TestCheckAndRecord_NormalizesAddress(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	mixed := "0x000000000000000000000000000000000000ABCD"
	lower := "0x000000000000000000000000000000000000abcd"

	if err := store.CheckAndRecord(ctx, mixed, decimal.NewFromInt(5), 10, decimal.NewFromInt(100), 24*time.Hour); err != nil {
		t.Fatalf("CheckAndRecord failed: %v", err)
	}

	window, err := store.GetVelocity(ctx, lower)
	if err != nil {
		t.Fatalf("GetVelocity failed: %v", err)
	}
	if window.TxCount != 1 {
		t.Errorf("TxCount = %d, want 1", window.TxCount)
	}
}

func TestReleaseRecord(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	addr := makeTestAddress(5)

	for i := 0; i < 2; i++ {
		if err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(50), 10, decimal.NewFromInt(1000), 24*time.Hour); err != nil {
			t.Fatalf("CheckAndRecord failed: %v", err)
		}
	}

	if err := store.ReleaseRecord(ctx, addr, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("ReleaseRecord failed: %v", err)
	}

	window, err := store.GetVelocity(ctx, addr)
	if err != nil {
		t.Fatalf("GetVelocity failed: %v", err)
	}
	if window.TxCount != 1 {
		t.Errorf("TxCount = %d, want 1", window.TxCount)
	}
	if !window.TotalAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("TotalAmount = %s, want 50", window.TotalAmount)
	}
}

func TestReleaseRecord_FloorsAtZero(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	addr := makeTestAddress(6)

	if err := store.CheckAndRecord(ctx, addr, decimal.NewFromInt(10), 10, decimal.NewFromInt(1000), 24*time.Hour); err != nil {
		t.Fatalf("CheckAndRecord failed: %v", err)
	}
	if err := store.ReleaseRecord(ctx, addr, decimal.NewFromInt(999)); err != nil {
		t.Fatalf("ReleaseRecord failed: %v", err)
	}
	if err := store.ReleaseRecord(ctx, addr, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("ReleaseRecord on empty window failed: %v", err)
	}

	window, err := store.GetVelocity(ctx, addr)
	if err != nil {
		t.Fatalf("GetVelocity failed: %v", err)
	}
	if window.TxCount != 0 {
		t.Errorf("TxCount = %d, want 0", window.TxCount)
	}
	if !window.TotalAmount.Equal(decimal.Zero) {
		t.Errorf("TotalAmount = %s, want 0", window.TotalAmount)
	}
}

func TestGetVelocity_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetVelocity(context.Background(), makeTestAddress(7))
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
