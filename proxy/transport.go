package proxy

import (
	"context"

	"github.com/quorumkv/raft/raftpb"
)

// Transport is the client-facing wire contract the proxy needs. A
// concrete implementation dials a specific node and waits for its
// reply; node is a hint, not a guarantee the RPC is served by the
// cluster's actual leader.
type Transport interface {
	OpenSession(ctx context.Context, node uint64, req raftpb.OpenSessionRequest) (raftpb.OpenSessionResponse, error)
	CloseSession(ctx context.Context, node uint64, req raftpb.CloseSessionRequest) (raftpb.CloseSessionResponse, error)
	KeepAlive(ctx context.Context, node uint64, req raftpb.KeepAliveRequest) (raftpb.KeepAliveResponse, error)
	Command(ctx context.Context, node uint64, req raftpb.CommandRequest) (raftpb.CommandResponse, error)
	Query(ctx context.Context, node uint64, req raftpb.QueryRequest) (raftpb.QueryResponse, error)
}

// Strategy selects which member a retry targets next (spec §4.6 "the
// configured communication strategy").
type Strategy int

const (
	// StrategyLeaderOnly always retries against the last known leader
	// hint, waiting for a fresher hint on failure.
	StrategyLeaderOnly Strategy = iota
	// StrategyAny cycles through every known member.
	StrategyAny
	// StrategyFollowersFirst tries followers before falling back to the
	// leader hint, suited to eventual-consistency-heavy workloads.
	StrategyFollowersFirst
)
