package raftlog

import (
	"os"
	"testing"

	"github.com/quorumkv/raft/raftpb"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T, opts Options) *Log {
	t.Helper()
	if opts.Dir == "" {
		dir, err := os.MkdirTemp("", "raftlog-test")
		require.NoError(t, err)
		t.Cleanup(func() { os.RemoveAll(dir) })
		opts.Dir = dir
	}
	l, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendGetTerm(t *testing.T) {
	l := openTestLog(t, Options{})

	idx1, err := l.Append(raftpb.Entry{Term: 1, Type: raftpb.EntryCommand, Data: []byte("a")})
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx1)

	idx2, err := l.Append(raftpb.Entry{Term: 1, Type: raftpb.EntryCommand, Data: []byte("b")})
	require.NoError(t, err)
	require.Equal(t, uint64(2), idx2)

	e, err := l.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), e.Data)

	term, err := l.Term(2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), term)

	require.Equal(t, uint64(2), l.LastIndex())
}

func TestAppendAtRequiresExactIndex(t *testing.T) {
	l := openTestLog(t, Options{})

	err := l.AppendAt(raftpb.Entry{Index: 5, Term: 1})
	require.ErrorIs(t, err, ErrOutOfOrderAppend)

	err = l.AppendAt(raftpb.Entry{Index: 1, Term: 1})
	require.NoError(t, err)
}

func TestTruncateDropsSuffix(t *testing.T) {
	l := openTestLog(t, Options{})
	for i := 0; i < 5; i++ {
		_, err := l.Append(raftpb.Entry{Term: 1, Data: []byte("x")})
		require.NoError(t, err)
	}
	require.NoError(t, l.Truncate(2))
	require.Equal(t, uint64(2), l.LastIndex())

	// The log accepts a fresh append right where it was truncated.
	idx, err := l.Append(raftpb.Entry{Term: 2, Data: []byte("y")})
	require.NoError(t, err)
	require.Equal(t, uint64(3), idx)

	term, err := l.Term(3)
	require.NoError(t, err)
	require.Equal(t, uint64(2), term)
}

func TestCommitIsMonotonic(t *testing.T) {
	l := openTestLog(t, Options{})
	for i := 0; i < 3; i++ {
		_, err := l.Append(raftpb.Entry{Term: 1})
		require.NoError(t, err)
	}
	l.Commit(2)
	require.Equal(t, uint64(2), l.CommitIndex())

	l.Commit(1) // regression ignored
	require.Equal(t, uint64(2), l.CommitIndex())

	l.Commit(3)
	require.Equal(t, uint64(3), l.CommitIndex())
}

func TestSegmentRotationAndCompact(t *testing.T) {
	l := openTestLog(t, Options{MaxEntries: 2})

	var lastIdx uint64
	for i := 0; i < 6; i++ {
		idx, err := l.Append(raftpb.Entry{Term: 1, Data: []byte("x")})
		require.NoError(t, err)
		lastIdx = idx
	}
	require.Len(t, l.segments, 3)
	require.Equal(t, uint64(6), lastIdx)

	require.NoError(t, l.Compact(5))
	_, err := l.Get(1)
	require.ErrorIs(t, err, ErrCompacted)

	e, err := l.Get(6)
	require.NoError(t, err)
	require.NotNil(t, e.Data)
}

func TestRecoverReopensExistingSegments(t *testing.T) {
	dir, err := os.MkdirTemp("", "raftlog-recover")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	l := openTestLog(t, Options{Dir: dir})
	for i := 0; i < 3; i++ {
		_, err := l.Append(raftpb.Entry{Term: 1, Data: []byte("x")})
		require.NoError(t, err)
	}
	require.NoError(t, l.Close())

	l2, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	defer l2.Close()

	require.Equal(t, uint64(3), l2.LastIndex())
	e, err := l2.Get(2)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), e.Data)
}

func TestReaderModeCommittedClamps(t *testing.T) {
	l := openTestLog(t, Options{})
	for i := 0; i < 3; i++ {
		_, err := l.Append(raftpb.Entry{Term: 1})
		require.NoError(t, err)
	}
	l.Commit(2)

	r := l.Reader(1, ModeCommitted)
	var seen []uint64
	for r.HasNext() {
		e, err := r.Next()
		require.NoError(t, err)
		seen = append(seen, e.Index)
	}
	require.Equal(t, []uint64{1, 2}, seen)
}
