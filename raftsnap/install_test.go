package raftsnap

import (
	"io"
	"testing"

	"github.com/quorumkv/raft/raftpb"
	"github.com/stretchr/testify/require"
)

func TestInstallerAppliesOnCompletion(t *testing.T) {
	store := NewMemoryStore()
	var applied Snapshot
	in := NewInstaller(store, func(snap Snapshot) error {
		applied = snap
		return nil
	})

	resp, err := in.HandleChunk(raftpb.InstallRequest{
		Term: 1, SnapshotID: 1, SnapshotIndex: 10, SnapshotTerm: 1,
		Offset: 0, Data: []byte("hello "), Complete: false,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, uint32(6), resp.NextOffset)
	require.Nil(t, applied)

	resp, err = in.HandleChunk(raftpb.InstallRequest{
		Term: 1, SnapshotID: 1, SnapshotIndex: 10, SnapshotTerm: 1,
		Offset: 6, Data: []byte("world"), Complete: true,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, applied)
	require.True(t, applied.IsComplete())

	r, err := applied.Reader()
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestInstallerRejectsOutOfOrderChunkAndReportsNextOffset(t *testing.T) {
	store := NewMemoryStore()
	in := NewInstaller(store, nil)

	_, err := in.HandleChunk(raftpb.InstallRequest{
		Term: 1, SnapshotID: 2, SnapshotIndex: 20, SnapshotTerm: 1,
		Offset: 0, Data: []byte("abc"), Complete: false,
	})
	require.NoError(t, err)

	resp, err := in.HandleChunk(raftpb.InstallRequest{
		Term: 1, SnapshotID: 2, SnapshotIndex: 20, SnapshotTerm: 1,
		Offset: 99, Data: []byte("skip"), Complete: false,
	})
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Equal(t, uint32(3), resp.NextOffset)
}

func TestInstallerResumesPendingTransferAcrossCalls(t *testing.T) {
	store := NewMemoryStore()
	in := NewInstaller(store, nil)

	_, err := in.HandleChunk(raftpb.InstallRequest{
		Term: 1, SnapshotID: 3, SnapshotIndex: 30, SnapshotTerm: 1,
		Offset: 0, Data: []byte("part1-"), Complete: false,
	})
	require.NoError(t, err)

	resp, err := in.HandleChunk(raftpb.InstallRequest{
		Term: 1, SnapshotID: 3, SnapshotIndex: 30, SnapshotTerm: 1,
		Offset: 6, Data: []byte("part2"), Complete: true,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	snap, ok := store.Get(3, 30)
	require.True(t, ok)
	require.True(t, snap.IsComplete())
}

func TestInstallerHandlesEmptyFinalChunk(t *testing.T) {
	store := NewMemoryStore()
	in := NewInstaller(store, nil)

	_, err := in.HandleChunk(raftpb.InstallRequest{
		Term: 1, SnapshotID: 4, SnapshotIndex: 40, SnapshotTerm: 1,
		Offset: 0, Data: []byte("all-in-one"), Complete: false,
	})
	require.NoError(t, err)

	resp, err := in.HandleChunk(raftpb.InstallRequest{
		Term: 1, SnapshotID: 4, SnapshotIndex: 40, SnapshotTerm: 1,
		Offset: 10, Data: nil, Complete: true,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	snap, ok := store.Get(4, 40)
	require.True(t, ok)
	require.True(t, snap.IsComplete())
}
