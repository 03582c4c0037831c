package repo

import (
	"context"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

// SnapshotStore persists the whole ordered record collection at once.
// Load returns an empty slice when nothing has been saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) ([]model.Record, error)
	Save(ctx context.Context, records []model.Record) error
}
