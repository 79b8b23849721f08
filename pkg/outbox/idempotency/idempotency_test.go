package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	failOn string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.failOn == "get" {
		return "", errors.New("redis down")
	}
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.failOn == "setnx" {
		return false, errors.New("redis down")
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "pd:idempotency:" + scope + ":" + id
}

func TestLedgerClaimConfirmLifecycle(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	a, err := NewLedger(store, "publisher@a", time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	b, _ := NewLedger(store, "publisher@b", time.Minute, 24*time.Hour)
	eventID := uuid.New()
	key := "pd:idempotency:evt:outbox-publisher:" + eventID.String()

	if got, err := a.Claim(ctx, "outbox-publisher", eventID); err != nil || got != Claimed {
		t.Fatalf("first claim: %v, %v", got, err)
	}
	if store.values[key] != "claim:publisher@a" || store.ttls[key] != time.Minute {
		t.Fatalf("unexpected claim entry %q ttl %s", store.values[key], store.ttls[key])
	}
	if got, _ := b.Claim(ctx, "outbox-publisher", eventID); got != InFlight {
		t.Fatalf("expected in-flight for second worker, got %v", got)
	}

	if err := a.Confirm(ctx, "outbox-publisher", eventID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if store.ttls[key] != 24*time.Hour {
		t.Fatalf("expected confirmation to carry dedup ttl, got %s", store.ttls[key])
	}
	if got, _ := b.Claim(ctx, "outbox-publisher", eventID); got != AlreadyPublished {
		t.Fatalf("expected already published, got %v", got)
	}
	if err := a.Release(ctx, "outbox-publisher", eventID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.values[key] != publishedMarker {
		t.Fatal("release must not drop a confirmation")
	}
}

func TestLedgerReleaseOnlyOwnClaim(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	a, _ := NewLedger(store, "publisher@a", time.Minute, time.Hour)
	b, _ := NewLedger(store, "publisher@b", time.Minute, time.Hour)
	eventID := uuid.New()

	if _, err := a.Claim(ctx, "outbox-publisher", eventID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := b.Release(ctx, "outbox-publisher", eventID); err != nil {
		t.Fatalf("foreign Release: %v", err)
	}
	if got, _ := b.Claim(ctx, "outbox-publisher", eventID); got != InFlight {
		t.Fatalf("foreign release must not free the claim, got %v", got)
	}
	if err := a.Release(ctx, "outbox-publisher", eventID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got, _ := b.Claim(ctx, "outbox-publisher", eventID); got != Claimed {
		t.Fatalf("expected claim after owner released, got %v", got)
	}
	if err := a.Release(ctx, "outbox-publisher", uuid.New()); err != nil {
		t.Fatalf("releasing an unknown event should be a no-op: %v", err)
	}
}

func TestLedgerErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	ledger, _ := NewLedger(store, "", time.Minute, time.Hour)

	if _, err := ledger.Claim(ctx, "", uuid.New()); err == nil {
		t.Fatal("expected consumer required")
	}
	if _, err := ledger.Claim(ctx, "outbox-publisher", uuid.Nil); err == nil {
		t.Fatal("expected event id required")
	}
	store.failOn = "setnx"
	if _, err := ledger.Claim(ctx, "outbox-publisher", uuid.New()); err == nil {
		t.Fatal("expected store error to surface")
	}

	bad := []struct {
		name         string
		store        ledgerStore
		claimTTL     time.Duration
		publishedTTL time.Duration
	}{
		{"nil store", nil, time.Minute, time.Hour},
		{"zero claim ttl", newMemoryStore(), 0, time.Hour},
		{"claim outlives confirmation", newMemoryStore(), 2 * time.Hour, time.Hour},
	}
	for _, tc := range bad {
		if _, err := NewLedger(tc.store, "p", tc.claimTTL, tc.publishedTTL); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
