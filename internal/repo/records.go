package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

var ErrDuplicateID = errors.New("record id already exists")

// Records is the ordered in-memory collection mirrored to a snapshot
// after every mutation. One mutex covers each read-modify-persist cycle;
// if persisting fails the collection is left as it was.
type Records struct {
	store  SnapshotStore
	logger *slog.Logger

	mu    sync.Mutex
	items []model.Record
}

// Open loads the last snapshot, or starts empty if there is none.
func Open(ctx context.Context, store SnapshotStore, logger *slog.Logger) (*Records, error) {
	if logger == nil {
		logger = slog.Default()
	}

	items, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	logger = logger.With(slog.String("component", "records"))
	logger.Debug("records loaded", "count", len(items))

	return &Records{
		store:  store,
		logger: logger,
		items:  items,
	}, nil
}

func (r *Records) Append(ctx context.Context, rec model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(rec.ID) >= 0 {
		return fmt.Errorf("%w: %d", ErrDuplicateID, rec.ID)
	}

	next := make([]model.Record, 0, len(r.items)+1)
	next = append(next, r.items...)
	next = append(next, rec)

	if err := r.commit(ctx, next); err != nil {
		return err
	}
	r.logger.Debug("record appended", "record_id", rec.ID)
	return nil
}

// Delete removes the record with id. Unknown ids are a no-op reporting
// false.
func (r *Records) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		r.logger.Debug("delete of unknown record ignored", "record_id", id)
		return false, nil
	}

	next := slices.Delete(slices.Clone(r.items), i, i+1)
	if err := r.commit(ctx, next); err != nil {
		return false, err
	}
	r.logger.Debug("record deleted", "record_id", id)
	return true, nil
}

// Update replaces the stored record with the same id. It reports false,
// without persisting, when the record no longer exists or when the new
// status would move the stored one backwards.
func (r *Records) Update(ctx context.Context, rec model.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(rec.ID)
	if i < 0 {
		return false, nil
	}
	if cur := r.items[i].Status; cur != "" && !cur.CanAdvanceTo(rec.Status) {
		r.logger.Debug("stale status update ignored", "record_id", rec.ID, "stored", cur, "update", rec.Status)
		return false, nil
	}

	next := slices.Clone(r.items)
	next[i] = rec
	if err := r.commit(ctx, next); err != nil {
		return false, err
	}
	r.logger.Debug("record updated", "record_id", rec.ID, "status", rec.Status)
	return true, nil
}

func (r *Records) List(context.Context) []model.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

func (r *Records) Get(_ context.Context, id int64) (model.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return model.Record{}, false
	}
	return r.items[i], true
}

// MaxID returns the highest id held, or 0.
func (r *Records) MaxID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var max int64
	for _, rec := range r.items {
		if rec.ID > max {
			max = rec.ID
		}
	}
	return max
}

func (r *Records) indexOf(id int64) int {
	return slices.IndexFunc(r.items, func(rec model.Record) bool { return rec.ID == id })
}

// commit expects r.mu to be held.
func (r *Records) commit(ctx context.Context, next []model.Record) error {
	if err := r.store.Save(ctx, next); err != nil {
		r.logger.Error("persist snapshot failed", "error", err, "count", len(next))
		return fmt.Errorf("persist snapshot: %w", err)
	}
	r.items = next
	return nil
}
