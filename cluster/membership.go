package cluster

import (
	"context"

	"github.com/quorumkv/raft/raft"
	"github.com/quorumkv/raft/raftpb"
)

// Membership wraps a *raft.Node with the join/leave/reconfigure surface
// of spec §4.5. It holds no state of its own; every call is a thin
// translation into a ProposeConfigurationChange round trip.
type Membership struct {
	node *raft.Node
}

// New returns a Membership driving node.
func New(node *raft.Node) *Membership {
	return &Membership{node: node}
}

// Join adds nodeID to the cluster as a member of the given type.
//
// (spec §4.5 "join(node, type)")
func (m *Membership) Join(ctx context.Context, nodeID uint64, memberType raftpb.MemberType) (raftpb.Configuration, error) {
	return m.propose(ctx, raftpb.ConfigurationRequest{
		Kind:   raftpb.ConfigJoin,
		NodeID: nodeID,
		Type:   memberType,
	})
}

// Leave removes nodeID from the cluster.
//
// (spec §4.5 "leave(node)")
func (m *Membership) Leave(ctx context.Context, nodeID uint64) (raftpb.Configuration, error) {
	return m.propose(ctx, raftpb.ConfigurationRequest{
		Kind:   raftpb.ConfigLeave,
		NodeID: nodeID,
	})
}

// Reconfigure changes an existing member's type (e.g. promoting a
// passive learner to a voting member).
//
// (spec §4.5 "reconfigure(node, type)")
func (m *Membership) Reconfigure(ctx context.Context, nodeID uint64, memberType raftpb.MemberType) (raftpb.Configuration, error) {
	return m.propose(ctx, raftpb.ConfigurationRequest{
		Kind:   raftpb.ConfigReconfigure,
		NodeID: nodeID,
		Type:   memberType,
	})
}

func (m *Membership) propose(ctx context.Context, req raftpb.ConfigurationRequest) (raftpb.Configuration, error) {
	fut := m.node.ProposeConfigurationChange(req)
	type result struct {
		cfg raftpb.Configuration
		err error
	}
	done := make(chan result, 1)
	go func() {
		cfg, err := fut.Wait()
		done <- result{cfg, err}
	}()
	select {
	case r := <-done:
		return r.cfg, r.err
	case <-ctx.Done():
		return raftpb.Configuration{}, ctx.Err()
	}
}
