package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

func TestCredentialStore_SaveLoadClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "Credentials.bin")
	s := NewCredentialStore(path)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, model.Credentials{}, got)

	want := model.Credentials{
		ConsumerKey:       "ck",
		ConsumerSecret:    "cs",
		AccessToken:       "at",
		AccessTokenSecret: "ats",
	}
	require.NoError(t, s.Save(ctx, want))

	got, err = NewCredentialStore(path).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.NoError(t, s.Clear(ctx))
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	// Clearing twice is fine.
	require.NoError(t, s.Clear(ctx))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.False(t, got.Complete())
}
