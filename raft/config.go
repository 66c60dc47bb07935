package raft

import (
	"errors"
	"time"

	"github.com/quorumkv/raft/internal/statestore"
	"github.com/quorumkv/raft/internal/xlog"
	"github.com/quorumkv/raft/raftlog"
	"github.com/quorumkv/raft/raftpb"
	"github.com/quorumkv/raft/raftsnap"
)

// Transport is the only collaborator this package needs from the wire
// layer (spec §1 "the wire transport ... is out of scope"; spec §6
// "Transport contract"). A concrete implementation delivers each Send*
// call to the named node's matching handler (HandleAppend, HandleVote,
// HandleInstall) and hands the reply back to the sender's
// HandleAppendResponse, HandleVoteResponse or HandleInstallResponse.
type Transport interface {
	SendAppend(to uint64, req raftpb.AppendRequest)
	SendVote(to uint64, req raftpb.VoteRequest)
	SendInstall(to uint64, req raftpb.InstallRequest)
}

// Config parameterizes a Node.
type Config struct {
	ID uint64

	Log       *raftlog.Log
	Snapshots raftsnap.Store
	Transport Transport
	Logger    xlog.Logger

	// StateStore persists term/votedFor/commitIndex/lastConfigIndex
	// across restarts (spec §4.3, §8 "election safety"). Optional: a
	// nil StateStore means HardState is not durable across process
	// restarts, which is fine for tests but never for production use.
	StateStore *statestore.Store

	// InitialConfiguration seeds the voter/passive/reserve set when
	// starting a brand-new cluster (an existing one recovers its
	// configuration from the log/snapshot instead).
	InitialConfiguration raftpb.Configuration

	// ElectionTick/HeartbeatTick are in units of Tick() calls, typically
	// driven by a fixed-rate sched.Context timer (spec §5: "150-300 ms
	// election, 50 ms heartbeat", randomized).
	ElectionTick  int
	HeartbeatTick int

	// PreVoteEnabled gates the pre-vote poll round of SPEC_FULL §4 item 1.
	PreVoteEnabled bool

	// LeaderCheckQuorum, if true, makes a leader step down when it has
	// not heard from a quorum within an election timeout (spec §4.3
	// "Leader ... steps down on ... losing contact with a quorum").
	LeaderCheckQuorum bool

	// ApplyInstall loads a completed snapshot's payload into the user
	// state machine at the end of the install protocol (spec §4.2 step
	// 5 "load snapshot into the state machine").
	ApplyInstall func(raftsnap.Snapshot) error

	// Now returns the current time, used to timestamp entries a leader
	// appends (spec §3 "Lifecycle"; spec §4.4 uses entry timestamps, not
	// wall clock, as the session-expiry time source). Defaults to
	// time.Now.
	Now func() time.Time
}

func (c *Config) validate() error {
	if c.ID == 0 {
		return errors.New("raft: node ID must be nonzero")
	}
	if c.Log == nil {
		return errors.New("raft: log store is required")
	}
	if c.Snapshots == nil {
		return errors.New("raft: snapshot store is required")
	}
	if c.Transport == nil {
		return errors.New("raft: transport is required")
	}
	if c.HeartbeatTick <= 0 {
		return errors.New("raft: heartbeat tick must be > 0")
	}
	if c.ElectionTick <= c.HeartbeatTick {
		return errors.New("raft: election tick must be > heartbeat tick")
	}
	if c.Logger == nil {
		c.Logger = xlog.NopLogger()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}
