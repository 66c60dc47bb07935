package statestore

import (
	"path/filepath"
	"testing"

	"github.com/quorumkv/raft/raftpb"
	"github.com/stretchr/testify/require"
)

func TestLoadOnFreshStoreIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()

	hs, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, raftpb.EmptyHardState, hs)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()

	want := raftpb.HardState{Term: 5, VotedFor: 2, CommittedIndex: 100, LastConfigIndex: 3}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSaveOverwritesPreviousValue(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(raftpb.HardState{Term: 1, VotedFor: 1}))
	require.NoError(t, s.Save(raftpb.HardState{Term: 2, VotedFor: 3}))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, raftpb.HardState{Term: 2, VotedFor: 3}, got)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(raftpb.HardState{Term: 7, VotedFor: 9, CommittedIndex: 40, LastConfigIndex: 2}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Term)
	require.Equal(t, uint64(9), got.VotedFor)
	require.Equal(t, uint64(40), got.CommittedIndex)
	require.Equal(t, uint64(2), got.LastConfigIndex)
}
