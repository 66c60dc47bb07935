package session

import (
	"testing"

	"github.com/quorumkv/raft/raftpb"
	"github.com/stretchr/testify/require"
)

type echoMachine struct {
	applied int
}

func (m *echoMachine) Apply(sessionID uint64, op []byte, publish PublishFunc) ([]byte, error) {
	m.applied++
	publish(append([]byte("evt:"), op...))
	return append([]byte("ok:"), op...), nil
}

func (m *echoMachine) Query(sessionID uint64, op []byte) ([]byte, error) {
	return op, nil
}

func TestManagerOpenCommandExactlyOnce(t *testing.T) {
	sm := &echoMachine{}
	m := NewManager(sm, nil)

	open := m.OpenSession(1, 1000, raftpb.OpenSessionRequest{Client: "c1", TimeoutMicro: 5000})
	require.Equal(t, uint64(1), open.Session)

	resp1 := m.Command(1100, raftpb.CommandRequest{Session: 1, Sequence: 1, Operation: []byte("x")})
	require.NoError(t, resp1.Error)
	require.Equal(t, []byte("ok:x"), resp1.Result)
	require.Equal(t, 1, sm.applied)

	// Retried command at the same sequence replays the cached result
	// instead of re-executing (spec §4.4 "exactly-once").
	resp2 := m.Command(1200, raftpb.CommandRequest{Session: 1, Sequence: 1, Operation: []byte("x")})
	require.NoError(t, resp2.Error)
	require.Equal(t, resp1.Result, resp2.Result)
	require.Equal(t, 1, sm.applied)

	// A gap (skipping sequence 2) is rejected.
	resp3 := m.Command(1300, raftpb.CommandRequest{Session: 1, Sequence: 3, Operation: []byte("y")})
	require.ErrorIs(t, resp3.Error, ErrSequenceGap)
}

func TestManagerKeepAliveEvictsResponsesAndEvents(t *testing.T) {
	sm := &echoMachine{}
	m := NewManager(sm, nil)
	m.OpenSession(1, 1000, raftpb.OpenSessionRequest{Client: "c1", TimeoutMicro: 5000})

	resp := m.Command(1100, raftpb.CommandRequest{Session: 1, Sequence: 1, Operation: []byte("x")})
	require.NoError(t, resp.Error)
	require.Equal(t, uint64(1), resp.EventIndex)

	events, err := m.ReplayEvents(1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ka := m.KeepAlive(1200, raftpb.KeepAliveRequest{Session: 1, CommandSequence: 1, EventIndex: 1})
	require.Equal(t, raftpb.KeepAliveOK, ka.Status)

	events, err = m.ReplayEvents(1, 0)
	require.NoError(t, err)
	require.Empty(t, events)

	// A retry of sequence 1 now has no cached entry: the manager treats
	// it as a protocol-level gap rather than silently re-executing.
	retried := m.Command(1300, raftpb.CommandRequest{Session: 1, Sequence: 1, Operation: []byte("x")})
	require.ErrorIs(t, retried.Error, ErrSequenceGap)
}

func TestManagerCloseSessionFiresListeners(t *testing.T) {
	sm := &echoMachine{}
	m := NewManager(sm, nil)
	m.OpenSession(1, 1000, raftpb.OpenSessionRequest{Client: "c1", TimeoutMicro: 5000})

	fired := 0
	require.NoError(t, m.RegisterOnClose(1, func() { fired++ }))

	resp := m.CloseSession(1100, raftpb.CloseSessionRequest{Session: 1})
	require.NoError(t, resp.Error)
	require.Equal(t, 1, fired)

	cmd := m.Command(1200, raftpb.CommandRequest{Session: 1, Sequence: 1, Operation: []byte("x")})
	require.ErrorIs(t, cmd.Error, ErrClosedSession)
}

func TestManagerExpiresOnEntryTimestamp(t *testing.T) {
	sm := &echoMachine{}
	m := NewManager(sm, nil)
	m.OpenSession(1, 1000, raftpb.OpenSessionRequest{Client: "c1", TimeoutMicro: 500})

	fired := 0
	require.NoError(t, m.RegisterOnClose(1, func() { fired++ }))

	// Applying an unrelated entry with a timestamp far past the lease
	// expires the session deterministically, driven by entry time, not
	// wall clock (spec §4.4 "Implicit expiration").
	m.OpenSession(2, 5000, raftpb.OpenSessionRequest{Client: "c2", TimeoutMicro: 5000})
	require.Equal(t, 1, fired)

	cmd := m.Command(5100, raftpb.CommandRequest{Session: 1, Sequence: 1, Operation: []byte("x")})
	require.ErrorIs(t, cmd.Error, ErrClosedSession)
}
