// Package raft implements the role state machine of spec.md §4.3: a
// server runs exactly one of inactive/reserve/passive/follower/
// candidate/leader at a time, driven entirely by events (election
// timeout, higher term seen, vote granted by quorum, leader heartbeat
// received, configuration change committed).
//
// The shape — a Config struct, a Node type, the Handle* message
// handlers/Tick()/Campaign()/Propose() as the entry points, term/vote persistence before
// responding to RPCs, and per-follower next/match index bookkeeping for
// commit-index advancement — is grounded on the teacher's etcd-style
// raft.Node and raft.raftNode (raft/raft.go, raft/raft_step*.go,
// raft/progress.go before this package's rewrite), generalized from a
// static peer list to the spec's committed raftpb.Configuration so
// quorum size and voter membership can change via spec §4.5's
// single-server joint changes, and from a minimal Message type to the
// full request/response set of spec §6, including the pre-vote poll
// (SPEC_FULL §4 item 1) and the snapshot install handoff to
// raftsnap.Installer. The teacher's Progress additionally modeled
// PROBE/REPLICATE/SNAPSHOT flow-control states and in-flight message
// windows (raft/progress.go, raft/progress_inflights.go); this package
// keeps only the next/match index counters those states update, since
// spec.md does not specify that optimization and the size budget
// favors breadth of modules (see DESIGN.md).
package raft
