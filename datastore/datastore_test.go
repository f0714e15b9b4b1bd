package datastore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, path string) *DataStore {
	t.Helper()
	cfg := DefaultConfig(path)
	cfg.AutoSaveInterval = 0
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	return ds
}

func TestDataStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	ds := newStore(t, path)
	require.NoError(t, ds.Add("records/status", []any{map[string]any{"name": "Overwatch"}}))
	require.NoError(t, ds.Add("other", "value"))
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	ds = newStore(t, path)
	defer ds.Close()

	v, ok := ds.Get("other")
	require.True(t, ok)
	assert.Equal(t, "value", v)
	assert.Equal(t, []string{"records/status"}, ds.Keys("records/"))
}

func TestDataStore_Update(t *testing.T) {
	ds := newStore(t, filepath.Join(t.TempDir(), "store.json"))
	defer ds.Close()

	inc := func(cur any) (any, error) {
		n, _ := cur.(int)
		return n + 1, nil
	}
	require.NoError(t, ds.Update("n", inc))
	require.NoError(t, ds.Update("n", inc))
	v, _ := ds.Get("n")
	assert.Equal(t, 2, v)

	boom := errors.New("boom")
	assert.ErrorIs(t, ds.Update("n", func(any) (any, error) { return nil, boom }), boom)
	v, _ = ds.Get("n")
	assert.Equal(t, 2, v)

	require.NoError(t, ds.Update("n", func(any) (any, error) { return nil, nil }))
	_, ok := ds.Get("n")
	assert.False(t, ok)
}

func TestDataStore_ClosedRejectsWrites(t *testing.T) {
	ds := newStore(t, filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, ds.Close())

	assert.ErrorIs(t, ds.Add("k", 1), ErrClosed)
	assert.ErrorIs(t, ds.SaveToFile(), ErrClosed)
	_, ok := ds.Get("k")
	assert.False(t, ok)
}

func TestDataStore_KeepsBoundedBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ds := newStore(t, path)
	defer ds.Close()

	for i := 0; i < 6; i++ {
		require.NoError(t, ds.Add("k", i))
		require.NoError(t, ds.SaveToFile())
	}
	backups, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, backups, 3)
}

func TestDataStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path)
	assert.Error(t, err)
}
