package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

func TestRecordFile_MissingOrEmptyFileLoadsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	recs, err := NewRecordFile(filepath.Join(dir, "missing.bin")).Load(ctx)
	require.NoError(t, err)
	require.Empty(t, recs)

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	recs, err = NewRecordFile(empty).Load(ctx)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestRecordFile_CorruptFileIsAnError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Tweets.bin")
	require.NoError(t, os.WriteFile(path, []byte("not gob at all"), 0o600))

	_, err := NewRecordFile(path).Load(context.Background())
	require.Error(t, err)
}

func TestRecordFile_SaveEmptyCollection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewRecordFile(filepath.Join(t.TempDir(), "Tweets.bin"))

	require.NoError(t, f.Save(ctx, nil))
	recs, err := f.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestFileStore_WriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := NewFileStore[[]model.Record](filepath.Join(dir, "Tweets.bin"))

	for i := 0; i < 3; i++ {
		require.NoError(t, fs.Write(context.Background(), []model.Record{sampleRecord(int64(i + 1))}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Tweets.bin", entries[0].Name())
}

func TestFileStore_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := NewFileStore[model.Credentials](filepath.Join(t.TempDir(), "c.bin"))
	require.ErrorIs(t, fs.Write(ctx, model.Credentials{}), context.Canceled)
	_, _, err := fs.Read(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
