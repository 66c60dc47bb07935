package raft

import (
	"math/rand"
	"sync"
	"time"

	"github.com/quorumkv/raft/raftpb"
	"github.com/quorumkv/raft/raftsnap"
	"github.com/quorumkv/raft/sched"
)

// CommitListener is notified whenever the commit index advances, so the
// state-machine executor / session manager can apply the newly
// committed entries in order (spec §3 "Applied index").
type CommitListener func(commitIndex uint64)

// SoftStateListener is notified whenever the node's role or known
// leader changes (DESIGN NOTES §9: "Callback-rich listener patterns ...
// become explicit observer sets keyed per event kind").
type SoftStateListener func(raftpb.SoftState)

// Node drives one server's role state machine (spec §4.3). All of its
// exported methods are safe to call from any goroutine: they marshal
// onto the node's own sched.Context, so handlers observe a consistent,
// serialized view of term/log/configuration state (spec §5).
//
// (etcd raft.Node / raft.raftNode, raft/node.go + raft/raft.go before
// this package's rewrite)
type Node struct {
	cfg Config
	ctx *sched.Context
	rnd *rand.Rand

	mu sync.Mutex // guards everything below; only ever touched on ctx

	term     uint64
	votedFor uint64
	state    raftpb.NodeState
	leaderID uint64

	config             raftpb.Configuration
	pendingConfigIndex uint64 // index of the outstanding uncommitted config change, 0 if none

	progress map[uint64]*progress // leader only

	votes    map[uint64]bool // candidate only: this term's real votes
	preVotes map[uint64]bool // candidate only: pre-vote round

	electionElapsed        int
	heartbeatElapsed       int
	randomizedElectionTick int

	installer *raftsnap.Installer

	commitListeners    []CommitListener
	softStateListeners []SoftStateListener

	readIndexGen  uint64 // leader only: last heartbeat round number handed out
	readIndexReqs []*readIndexReq

	stopped bool
}

// New constructs and starts a Node. The Node begins in the follower role
// unless it is the lone member of InitialConfiguration, in which case it
// campaigns immediately (convenience for single-node clusters, spec §8
// scenario 1).
func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		ctx:      sched.New("raft-node"),
		rnd:      rand.New(rand.NewSource(int64(cfg.ID) + time.Now().UnixNano())),
		state:    raftpb.StateFollower,
		config:   cfg.InitialConfiguration,
		progress: make(map[uint64]*progress),
	}
	n.installer = raftsnap.NewInstaller(cfg.Snapshots, func(snap raftsnap.Snapshot) error {
		if cfg.ApplyInstall != nil {
			return cfg.ApplyInstall(snap)
		}
		return nil
	})
	n.resetRandomizedElectionTick()

	if cfg.StateStore != nil {
		if hs, err := cfg.StateStore.Load(); err == nil && !raftpb.IsEmptyHardState(hs) {
			n.term = hs.Term
			n.votedFor = hs.VotedFor
		}
	}

	if len(n.config.Members) == 1 && n.config.Members[0].NodeID == cfg.ID {
		n.ctx.Execute(func() { n.campaignLocked() })
	}

	return n, nil
}

// OnCommit registers a CommitListener. Must be called before the node
// starts receiving traffic to avoid missing early commits.
func (n *Node) OnCommit(l CommitListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.commitListeners = append(n.commitListeners, l)
}

// OnSoftStateChange registers a SoftStateListener.
func (n *Node) OnSoftStateChange(l SoftStateListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.softStateListeners = append(n.softStateListeners, l)
}

func (n *Node) notifyCommit(index uint64) {
	for _, l := range n.commitListeners {
		l(index)
	}
}

// persistHardStateLocked flushes term/votedFor/commitIndex/
// lastConfigIndex to durable storage. Must be called before a reply
// that depends on them (a granted vote, a stepped-down term) is sent,
// so a crash can never make this node contradict a promise it already
// made (spec §4.3, §8 "election safety").
func (n *Node) persistHardStateLocked() {
	if n.cfg.StateStore == nil {
		return
	}
	hs := raftpb.HardState{
		Term:            n.term,
		VotedFor:        n.votedFor,
		CommittedIndex:  n.cfg.Log.CommitIndex(),
		LastConfigIndex: n.config.Index,
	}
	if err := n.cfg.StateStore.Save(hs); err != nil {
		n.cfg.Logger.Errorf("raft: persist hard state failed: %v", err)
	}
}

func (n *Node) notifySoftState() {
	st := raftpb.SoftState{LeaderID: n.leaderID, NodeState: n.state}
	for _, l := range n.softStateListeners {
		l(st)
	}
}

// Status is a point-in-time snapshot of a Node's role state, for
// diagnostics (spec §4.3 is otherwise entirely event-driven internally).
type Status struct {
	ID          uint64
	Term        uint64
	State       raftpb.NodeState
	LeaderID    uint64
	CommitIndex uint64
	LastIndex   uint64
}

// Status returns a snapshot of the node's current role state.
func (n *Node) Status() Status {
	done := make(chan Status, 1)
	n.ctx.Execute(func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		done <- Status{
			ID:          n.cfg.ID,
			Term:        n.term,
			State:       n.state,
			LeaderID:    n.leaderID,
			CommitIndex: n.cfg.Log.CommitIndex(),
			LastIndex:   n.cfg.Log.LastIndex(),
		}
	})
	return <-done
}

// Tick advances the node's logical clock by one tick (spec §5: election
// and heartbeat timeouts are counted in ticks, driven by a periodic
// sched.Context timer upstream so that tests can drive time
// deterministically without sleeping).
func (n *Node) Tick() {
	n.ctx.Execute(func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		switch n.state {
		case raftpb.StateLeader:
			n.tickLeaderLocked()
		case raftpb.StateFollower, raftpb.StateCandidate:
			n.tickElectionLocked()
		}
	})
}

func (n *Node) tickElectionLocked() {
	if n.state == raftpb.StateReserve || n.state == raftpb.StatePassive {
		return // spec §4.3: reserve/passive members never become candidates
	}
	n.electionElapsed++
	if n.electionElapsed >= n.randomizedElectionTick {
		n.electionElapsed = 0
		if n.isVotingMemberLocked(n.cfg.ID) {
			n.campaignLocked()
		}
	}
}

func (n *Node) tickLeaderLocked() {
	n.heartbeatElapsed++
	n.electionElapsed++
	if n.heartbeatElapsed >= n.cfg.HeartbeatTick {
		n.heartbeatElapsed = 0
		n.broadcastAppendLocked(0)
	}
	if n.cfg.LeaderCheckQuorum && n.electionElapsed >= n.cfg.ElectionTick {
		n.electionElapsed = 0
		if !n.quorumActiveLocked() {
			n.cfg.Logger.Warning("raft: leader lost contact with quorum, stepping down")
			n.becomeFollowerLocked(n.term, 0)
		}
		n.resetActiveLocked()
	}
}

func (n *Node) resetRandomizedElectionTick() {
	n.randomizedElectionTick = n.cfg.ElectionTick + n.rnd.Intn(n.cfg.ElectionTick)
}

func (n *Node) isVotingMemberLocked(id uint64) bool {
	for _, m := range n.config.Members {
		if m.NodeID == id {
			return m.Type == raftpb.MemberActive
		}
	}
	return false
}

func (n *Node) quorumSizeLocked() int {
	return len(n.config.Voters())/2 + 1
}

func (n *Node) quorumActiveLocked() bool {
	active := 1 // self
	for _, id := range n.config.Voters() {
		if id == n.cfg.ID {
			continue
		}
		if p, ok := n.progress[id]; ok && p.active {
			active++
		}
	}
	return active >= n.quorumSizeLocked()
}

func (n *Node) resetActiveLocked() {
	for _, p := range n.progress {
		p.active = false
	}
}

// Stop halts the node's context. Stop is idempotent.
func (n *Node) Stop() {
	n.ctx.Execute(func() {
		n.mu.Lock()
		n.stopped = true
		n.mu.Unlock()
	})
	n.ctx.Close()
}
