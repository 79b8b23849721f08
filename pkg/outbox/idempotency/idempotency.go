// Package idempotency records which outbox events already reached Pub/Sub.
//
// A publisher claims an event id before publishing and confirms it after the
// broker acknowledged. Claims expire quickly, so a worker that dies mid-publish
// only delays the event; confirmations live for the dedup window, so a worker
// that dies after publishing but before committing does not publish it twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const publishedMarker = "published"

// Claim is the result of Ledger.Claim.
type Claim int

const (
	// Claimed means the caller owns the event and should publish it.
	Claimed Claim = iota
	// AlreadyPublished means a confirmation exists; mark the row published.
	AlreadyPublished
	// InFlight means another worker holds an unexpired claim; leave the row.
	InFlight
)

func (c Claim) String() string {
	switch c {
	case Claimed:
		return "claimed"
	case AlreadyPublished:
		return "already_published"
	case InFlight:
		return "in_flight"
	default:
		return fmt.Sprintf("claim(%d)", int(c))
	}
}

type ledgerStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Ledger keys follow pd:idempotency:evt:<consumer>:<event_id>. The value is
// "claim:<owner>" while publishing and "published" once confirmed.
type Ledger struct {
	store     ledgerStore
	owner     string
	claimTTL  time.Duration
	published time.Duration
}

// NewLedger builds a ledger for owner. claimTTL should exceed one publish
// attempt; publishedTTL is the dedup window.
func NewLedger(store ledgerStore, owner string, claimTTL, publishedTTL time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if claimTTL <= 0 || publishedTTL <= 0 {
		return nil, fmt.Errorf("ttls must be positive, got claim=%s published=%s", claimTTL, publishedTTL)
	}
	if claimTTL > publishedTTL {
		return nil, fmt.Errorf("claim ttl %s exceeds published ttl %s", claimTTL, publishedTTL)
	}
	if owner == "" {
		owner = "unknown"
	}
	return &Ledger{store: store, owner: owner, claimTTL: claimTTL, published: publishedTTL}, nil
}

func (l *Ledger) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (Claim, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return Claimed, err
	}
	ok, err := l.store.SetNX(ctx, key, "claim:"+l.owner, l.claimTTL)
	if err != nil {
		return Claimed, fmt.Errorf("claim %s: %w", eventID, err)
	}
	if ok {
		return Claimed, nil
	}

	value, err := l.store.Get(ctx, key)
	switch {
	case errors.Is(err, goredis.Nil):
		// Expired between SETNX and GET; the next poll will claim it.
		return InFlight, nil
	case err != nil:
		return Claimed, fmt.Errorf("read claim %s: %w", eventID, err)
	case value == publishedMarker:
		return AlreadyPublished, nil
	default:
		return InFlight, nil
	}
}

// Confirm records eventID as published for the dedup window.
func (l *Ledger) Confirm(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, key, publishedMarker, l.published); err != nil {
		return fmt.Errorf("confirm %s: %w", eventID, err)
	}
	return nil
}

// Release drops this owner's claim after a failed publish. Confirmations and
// claims held by other owners are left alone.
func (l *Ledger) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return err
	}
	value, err := l.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read claim %s: %w", eventID, err)
	}
	if owner, ok := strings.CutPrefix(value, "claim:"); !ok || owner != l.owner {
		return nil
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return l.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
