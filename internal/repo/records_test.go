package repo

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

// memStore records every snapshot it is asked to save.
type memStore struct {
	mu      sync.Mutex
	saved   []model.Record
	saves   int
	failErr error
}

func (m *memStore) Load(context.Context) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Record(nil), m.saved...), nil
}

func (m *memStore) Save(_ context.Context, recs []model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	m.saved = append([]model.Record(nil), recs...)
	return nil
}

func sampleRecord(id int64) model.Record {
	at := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	return model.Record{
		ID:             id,
		Text:           "tweet",
		AttachmentPath: "",
		ScheduledAt:    at.Add(time.Duration(id) * time.Hour),
		Immediate:      id%2 == 0,
		Status:         model.Queued,
		CreatedAt:      at,
	}
}

// requireSameRecords compares field by field, using Equal for times.
func requireSameRecords(t *testing.T, want, got []model.Record) {
	t.Helper()

	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		require.Equal(t, w.ID, g.ID)
		require.Equal(t, w.Text, g.Text)
		require.Equal(t, w.AttachmentPath, g.AttachmentPath)
		require.True(t, w.ScheduledAt.Equal(g.ScheduledAt), "ScheduledAt %v != %v", w.ScheduledAt, g.ScheduledAt)
		require.Equal(t, w.Immediate, g.Immediate)
		require.Equal(t, w.Status, g.Status)
		require.Equal(t, w.OutcomeCode, g.OutcomeCode)
		require.True(t, w.CreatedAt.Equal(g.CreatedAt), "CreatedAt %v != %v", w.CreatedAt, g.CreatedAt)
		require.True(t, w.AttemptedAt.Equal(g.AttemptedAt), "AttemptedAt %v != %v", w.AttemptedAt, g.AttemptedAt)
	}
}

func TestRecords_AppendPersistsWholeCollection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	recs, err := Open(ctx, store, nil)
	require.NoError(t, err)
	require.Empty(t, recs.List(ctx))

	require.NoError(t, recs.Append(ctx, sampleRecord(1)))
	require.NoError(t, recs.Append(ctx, sampleRecord(2)))

	require.Equal(t, 2, store.saves)
	requireSameRecords(t, []model.Record{sampleRecord(1), sampleRecord(2)}, store.saved)
	requireSameRecords(t, store.saved, recs.List(ctx))
	require.Equal(t, int64(2), recs.MaxID())
}

func TestRecords_AppendRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recs, err := Open(ctx, &memStore{}, nil)
	require.NoError(t, err)

	require.NoError(t, recs.Append(ctx, sampleRecord(1)))
	require.ErrorIs(t, recs.Append(ctx, sampleRecord(1)), ErrDuplicateID)
	require.Len(t, recs.List(ctx), 1)
}

func TestRecords_DeleteRemovesFirstMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	recs, err := Open(ctx, store, nil)
	require.NoError(t, err)

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, recs.Append(ctx, sampleRecord(id)))
	}

	ok, err := recs.Delete(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	requireSameRecords(t, []model.Record{sampleRecord(1), sampleRecord(3)}, store.saved)

	_, found := recs.Get(ctx, 2)
	require.False(t, found)
}

func TestRecords_DeleteUnknownIDIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	recs, err := Open(ctx, store, nil)
	require.NoError(t, err)
	require.NoError(t, recs.Append(ctx, sampleRecord(1)))
	saves := store.saves

	ok, err := recs.Delete(ctx, 404)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, saves, store.saves, "no snapshot expected for a no-op delete")
	requireSameRecords(t, []model.Record{sampleRecord(1)}, recs.List(ctx))
}

func TestRecords_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	recs, err := Open(ctx, store, nil)
	require.NoError(t, err)
	require.NoError(t, recs.Append(ctx, sampleRecord(1)))

	rec := sampleRecord(1)
	rec.Status = model.Sent
	rec.OutcomeCode = 200

	ok, err := recs.Update(ctx, rec)
	require.NoError(t, err)
	require.True(t, ok)

	got, found := recs.Get(ctx, 1)
	require.True(t, found)
	require.Equal(t, model.Sent, got.Status)
	require.Equal(t, model.Sent, store.saved[0].Status)

	ok, err = recs.Update(ctx, sampleRecord(9))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecords_UpdateNeverMovesStatusBackwards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	recs, err := Open(ctx, store, nil)
	require.NoError(t, err)

	sent := sampleRecord(1)
	sent.Status = model.Sent
	require.NoError(t, recs.Append(ctx, sent))
	saves := store.saves

	stale := sampleRecord(1)
	stale.Status = model.Starting
	ok, err := recs.Update(ctx, stale)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, saves, store.saves)

	got, _ := recs.Get(ctx, 1)
	require.Equal(t, model.Sent, got.Status)
}

func TestRecords_PersistFailureLeavesStateIntact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	recs, err := Open(ctx, store, nil)
	require.NoError(t, err)
	require.NoError(t, recs.Append(ctx, sampleRecord(1)))

	boom := errors.New("disk full")
	store.failErr = boom

	require.ErrorIs(t, recs.Append(ctx, sampleRecord(2)), boom)

	ok, err := recs.Delete(ctx, 1)
	require.ErrorIs(t, err, boom)
	require.False(t, ok)

	updated := sampleRecord(1)
	updated.Status = model.Failed
	_, err = recs.Update(ctx, updated)
	require.ErrorIs(t, err, boom)

	requireSameRecords(t, []model.Record{sampleRecord(1)}, recs.List(ctx))
}

func TestRecords_ConcurrentMutationsSerialize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	recs, err := Open(ctx, store, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for id := int64(1); id <= 40; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := recs.Append(ctx, sampleRecord(id)); err != nil {
				t.Errorf("Append(%d) error: %v", id, err)
			}
			if id%2 == 0 {
				if _, err := recs.Delete(ctx, id); err != nil {
					t.Errorf("Delete(%d) error: %v", id, err)
				}
			}
		}(id)
	}
	wg.Wait()

	require.Len(t, recs.List(ctx), 20)
	require.Len(t, store.saved, 20, "last snapshot must match memory")
}

func TestRecords_RoundTripThroughFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "Tweets.bin")

	recs, err := Open(ctx, NewRecordFile(path), nil)
	require.NoError(t, err)

	r1 := sampleRecord(1)
	r2 := sampleRecord(2)
	r2.AttachmentPath = "/tmp/pic.png"
	r2.Status = model.Sent
	r2.OutcomeCode = 201
	r2.AttemptedAt = r2.CreatedAt.Add(time.Minute)

	require.NoError(t, recs.Append(ctx, r1))
	require.NoError(t, recs.Append(ctx, r2))

	reloaded, err := Open(ctx, NewRecordFile(path), nil)
	require.NoError(t, err)
	requireSameRecords(t, []model.Record{r1, r2}, reloaded.List(ctx))

	ok, err := reloaded.Delete(ctx, r1.ID)
	require.NoError(t, err)
	require.True(t, ok)

	again, err := Open(ctx, NewRecordFile(path), nil)
	require.NoError(t, err)
	requireSameRecords(t, []model.Record{r2}, again.List(ctx))
}
