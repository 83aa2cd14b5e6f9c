package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLiteStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) SnapshotStore {
		return openSQLiteStore(t, filepath.Join(t.TempDir(), "state.db"))
	})
}

func TestSQLiteStore_SharedBetweenConnections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	a := openSQLiteStore(t, path)
	b := openSQLiteStore(t, path)

	ok, err := a.BeginRefresh(ctx, request("a", t0), time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.BeginRefresh(ctx, request("b", t0), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.CompleteRefresh(ctx, snapshotFor("a", "Tunic"))
	require.NoError(t, err)

	snap, err := b.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tunic", snap.Opportunities[0].GameName)
	assert.Equal(t, int64(1), snap.RefreshCount)
}

func TestSQLiteStore_CreatesMissingDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "nested", "streamscout.db")
	s := openSQLiteStore(t, path)

	ok, err := s.BeginRefresh(ctx, request("a", t0), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
