package repo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

func testSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "tweets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db, SQLite))
	return db
}

func TestMigrate_IsIdempotent(t *testing.T) {
	t.Parallel()

	db := testSQLiteDB(t)
	require.NoError(t, Migrate(db, SQLite))
}

func TestMigrate_UnknownDialect(t *testing.T) {
	t.Parallel()

	db := testSQLiteDB(t)
	require.Error(t, Migrate(db, Dialect("oracle")))
}

func TestSQLStore_EmptyLoad(t *testing.T) {
	t.Parallel()

	recs, err := NewSQLStore(testSQLiteDB(t)).Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestSQLStore_SaveReplacesSnapshotAndKeepsOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSQLStore(testSQLiteDB(t))

	r3 := sampleRecord(3)
	r1 := sampleRecord(1)
	r1.AttachmentPath = "/srv/media/a.jpg"
	r1.Status = model.Failed
	r1.OutcomeCode = 403
	r1.AttemptedAt = time.Date(2026, 10, 14, 10, 0, 0, 123, time.UTC)

	require.NoError(t, store.Save(ctx, []model.Record{r3, r1}))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	requireSameRecords(t, []model.Record{r3, r1}, got)

	require.NoError(t, store.Save(ctx, []model.Record{r1}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	requireSameRecords(t, []model.Record{r1}, got)

	require.NoError(t, store.Save(ctx, nil))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSQLStore_FailedSaveRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSQLStore(testSQLiteDB(t))

	require.NoError(t, store.Save(ctx, []model.Record{sampleRecord(1)}))

	// Duplicate primary keys abort the transaction half way through.
	err := store.Save(ctx, []model.Record{sampleRecord(2), sampleRecord(2)})
	require.Error(t, err)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	requireSameRecords(t, []model.Record{sampleRecord(1)}, got)
}

func TestSQLStore_BacksRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := testSQLiteDB(t)

	recs, err := Open(ctx, NewSQLStore(db), nil)
	require.NoError(t, err)
	require.NoError(t, recs.Append(ctx, sampleRecord(1)))
	require.NoError(t, recs.Append(ctx, sampleRecord(2)))
	_, err = recs.Delete(ctx, 1)
	require.NoError(t, err)

	reloaded, err := Open(ctx, NewSQLStore(db), nil)
	require.NoError(t, err)
	requireSameRecords(t, []model.Record{sampleRecord(2)}, reloaded.List(ctx))
}
