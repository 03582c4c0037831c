package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotCached = errors.New("record not cached")

// Delivery is what the cache remembers about a sent record.
type Delivery struct {
	OutcomeCode int       `json:"outcomeCode"`
	SentAt      time.Time `json:"sentAt"`
}

// DeliveryCache remembers delivered records for quick lookups outside
// the snapshot.
type DeliveryCache interface {
	StoreSent(ctx context.Context, recordID int64, outcomeCode int, sentAt time.Time) error
	Lookup(ctx context.Context, recordID int64) (Delivery, error)
}

// Noop is used when no cache backend is configured.
type Noop struct{}

func (Noop) StoreSent(context.Context, int64, int, time.Time) error { return nil }

func (Noop) Lookup(context.Context, int64) (Delivery, error) { return Delivery{}, ErrNotCached }
