package raftsnap

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "raftsnap-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	return map[string]Store{
		"file":   fs,
		"memory": NewMemoryStore(),
	}
}

func writeSnapshot(t *testing.T, s Snapshot, payload []byte) {
	t.Helper()
	w, err := s.Writer()
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, s.Complete())
}

func TestStoreNewCompleteCurrent(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Current()
			require.ErrorIs(t, err, ErrNoSnapshot)

			snap, err := store.New(1, 10, 1, 1000)
			require.NoError(t, err)
			require.False(t, snap.IsComplete())

			writeSnapshot(t, snap, []byte("payload-a"))

			cur, err := store.Current()
			require.NoError(t, err)
			require.Equal(t, uint64(10), cur.Metadata().Index)

			r, err := cur.Reader()
			require.NoError(t, err)
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, "payload-a", string(data))
			require.NoError(t, r.Close())
		})
	}
}

func TestStoreCurrentPicksHighestIndex(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			s1, err := store.New(1, 10, 1, 1000)
			require.NoError(t, err)
			writeSnapshot(t, s1, []byte("a"))

			s2, err := store.New(1, 20, 2, 2000)
			require.NoError(t, err)
			writeSnapshot(t, s2, []byte("b"))

			cur, err := store.Current()
			require.NoError(t, err)
			require.Equal(t, uint64(20), cur.Metadata().Index)
		})
	}
}

func TestStoreNewRejectsDuplicate(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.New(1, 10, 1, 1000)
			require.NoError(t, err)
			_, err = store.New(1, 10, 1, 1000)
			require.ErrorIs(t, err, ErrSnapshotExists)
		})
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			snap, err := store.New(1, 10, 1, 1000)
			require.NoError(t, err)
			writeSnapshot(t, snap, []byte("a"))

			require.NoError(t, store.Delete(1, 10))
			require.NoError(t, store.Delete(1, 10))
			require.Empty(t, store.List())
		})
	}
}
