// Package service implements the game logic: check-ins with a cooldown,
// progress and rank derivation, the prize draw ledger and the admin
// analytics.  Services depend on the small interfaces below; the
// repository package provides the SQL implementations.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/zone-explorer/internal/model"
	"github.com/iliyamo/zone-explorer/internal/queue"
)

// VisitStore is the append-only visit log.
type VisitStore interface {
	Insert(ctx context.Context, v model.Visit) (uint64, error)
	LatestAt(ctx context.Context, visitorID, zone string) (time.Time, bool, error)
	CountByZoneForVisitor(ctx context.Context, visitorID string) (map[string]int, error)
	CountByZoneBetween(ctx context.Context, from, to time.Time) (map[string]int, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Visit, error)
	DistinctZonesByVisitor(ctx context.Context) (map[string]map[string]struct{}, error)
	DeleteByVisitor(ctx context.Context, visitorID string) (int64, error)
}

// PrizeStore is the prize draw ledger.
type PrizeStore interface {
	Create(ctx context.Context, visitorID, email string, at time.Time) (uint64, error)
	ExistsForVisitor(ctx context.Context, visitorID string) (bool, error)
	List(ctx context.Context) ([]model.PrizeEntry, error)
	DeleteByVisitor(ctx context.Context, visitorID string) (int64, error)
}

// TxRunner runs fn in a transaction; stores called with the context passed
// to fn take part in it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker grants short exclusive locks.  ok is false when another holder
// owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// EventPublisher delivers activity events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.ActivityEvent) error { return nil }
