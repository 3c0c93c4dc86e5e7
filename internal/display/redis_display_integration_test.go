package display

import (
	"context"
	"os"
	"testing"
	"time"

	"metyme/backend/internal/domain"
)

// Requires a reachable redis; set TEST_REDIS_ADDR to run.
func TestRedisSubscribeDeliversSetStates(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := NewRedisStore(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	defer s.Close()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	updates, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := domain.DisplayState{
		Stream:     domain.StreamAddOns,
		ReceiptKey: "maria santos|a-3",
		UpdatedBy:  "rani",
		UpdatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := s.Set(ctx, want); err != nil {
		t.Fatalf("set: %v", err)
	}

	select {
	case got := <-updates:
		if got.Stream != want.Stream || got.ReceiptKey != want.ReceiptKey {
			t.Fatalf("unexpected state from subscription: %+v", got)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for published state")
	}

	stored, ok, err := s.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("get after set: ok=%t err=%v", ok, err)
	}
	if stored.ReceiptKey != want.ReceiptKey {
		t.Fatalf("expected stored key %q, got %q", want.ReceiptKey, stored.ReceiptKey)
	}
}
