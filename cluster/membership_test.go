package cluster

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/quorumkv/raft/internal/xlog"
	"github.com/quorumkv/raft/raft"
	"github.com/quorumkv/raft/raftlog"
	"github.com/quorumkv/raft/raftpb"
	"github.com/quorumkv/raft/raftsnap"
	"github.com/stretchr/testify/require"
)

// noopTransport discards every send: these tests only exercise a
// single-node cluster, which never needs to hear from a peer to commit
// (spec §8 scenario 1, "single-node cluster").
type noopTransport struct{}

func (noopTransport) SendAppend(uint64, raftpb.AppendRequest)   {}
func (noopTransport) SendVote(uint64, raftpb.VoteRequest)       {}
func (noopTransport) SendInstall(uint64, raftpb.InstallRequest) {}

func newSoloNode(t *testing.T) *raft.Node {
	t.Helper()
	dir, err := os.MkdirTemp("", "cluster-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	log, err := raftlog.Open(raftlog.Options{Dir: dir, Logger: xlog.NopLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	n, err := raft.New(raft.Config{
		ID:        1,
		Log:       log,
		Snapshots: raftsnap.NewMemoryStore(),
		Transport: noopTransport{},
		Logger:    xlog.NopLogger(),
		InitialConfiguration: raftpb.Configuration{
			Members: []raftpb.Member{{NodeID: 1, Type: raftpb.MemberActive}},
		},
		ElectionTick:  10,
		HeartbeatTick: 2,
	})
	require.NoError(t, err)
	t.Cleanup(n.Stop)

	require.Eventually(t, func() bool {
		return n.Status().State == raftpb.StateLeader
	}, 2*time.Second, 5*time.Millisecond)
	return n
}

func TestJoinAddsMember(t *testing.T) {
	m := New(newSoloNode(t))

	cfg, err := m.Join(context.Background(), 2, raftpb.MemberPassive)
	require.NoError(t, err)
	require.Len(t, cfg.Members, 2)
}

func TestLeaveRemovesMember(t *testing.T) {
	node := newSoloNode(t)
	m := New(node)

	_, err := m.Join(context.Background(), 2, raftpb.MemberPassive)
	require.NoError(t, err)

	cfg, err := m.Leave(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, cfg.Members, 1)
}

func TestReconfigureChangesMemberType(t *testing.T) {
	node := newSoloNode(t)
	m := New(node)

	_, err := m.Join(context.Background(), 2, raftpb.MemberPassive)
	require.NoError(t, err)

	cfg, err := m.Reconfigure(context.Background(), 2, raftpb.MemberActive)
	require.NoError(t, err)

	var found bool
	for _, mem := range cfg.Members {
		if mem.NodeID == 2 {
			found = true
			require.Equal(t, raftpb.MemberActive, mem.Type)
		}
	}
	require.True(t, found)
}

func TestProposeRespectsContextCancellation(t *testing.T) {
	node := newSoloNode(t)
	m := New(node)

	_, err := m.Join(context.Background(), 2, raftpb.MemberReserve)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Join(ctx, 3, raftpb.MemberPassive)
	require.Error(t, err)
}
