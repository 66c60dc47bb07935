package raft

import (
	"sort"

	"github.com/quorumkv/raft/raftpb"
	"github.com/quorumkv/raft/sched"
)

// Propose appends data as an EntryCommand (or, via entryType, any other
// kind the session/cluster packages need) at the leader and returns a
// Future that resolves once a quorum has persisted it and commitIndex
// has advanced past it.
//
// (etcd raft.Node.Propose)
func (n *Node) Propose(entryType raftpb.EntryType, data []byte) *sched.Future[uint64] {
	fut, complete := sched.NewFuture[uint64]()
	n.ctx.Execute(func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if n.state != raftpb.StateLeader {
			complete(0, ErrNotLeader)
			return
		}
		if entryType == raftpb.EntryConfiguration && n.pendingConfigIndex != 0 {
			complete(0, ErrConfigurationChangePending)
			return
		}

		indexes := n.appendLocked([]raftpb.Entry{{Type: entryType, Data: data}})
		index := indexes[0]
		n.awaitCommitLocked(index, fut, complete)
		n.broadcastAppendLocked(0)
	})
	return fut
}

// awaitCommitLocked registers a one-shot commit listener resolving fut
// once commitIndex reaches index (or the node steps down, which fails
// every outstanding future with ErrNotLeader per spec §7: "A leader
// stepping down completes all outstanding command futures with
// Unavailable so the proxy retries elsewhere" — modeled here as
// ErrNotLeader, the routable variant the proxy package maps to retry).
func (n *Node) awaitCommitLocked(index uint64, fut *sched.Future[uint64], complete func(uint64, error)) {
	if n.cfg.Log.CommitIndex() >= index {
		// Already committed during append (e.g. a single-voter cluster).
		complete(index, nil)
		return
	}
	var listener CommitListener
	listener = func(commitIndex uint64) {
		if commitIndex >= index {
			complete(index, nil)
		}
	}
	n.commitListeners = append(n.commitListeners, listener)
	n.softStateListeners = append(n.softStateListeners, func(st raftpb.SoftState) {
		if st.NodeState != raftpb.StateLeader {
			complete(0, ErrNotLeader)
		}
	})
}

// appendLocked assigns indexes to entries, stamping each with the
// current term and the leader's clock (spec §4.4: entry timestamps, not
// wall time, drive session expiry), and writes them through the log
// store. It returns the assigned indexes.
func (n *Node) appendLocked(entries []raftpb.Entry) []uint64 {
	now := n.cfg.Now().UnixNano()
	indexes := make([]uint64, len(entries))
	for i, e := range entries {
		e.Term = n.term
		e.Timestamp = now
		idx, err := n.cfg.Log.Append(e)
		if err != nil {
			n.cfg.Logger.Errorf("raft: append failed: %v", err)
			continue
		}
		indexes[i] = idx
		if e.Type == raftpb.EntryConfiguration {
			n.applyConfigurationEntryLocked(idx, e)
		}
	}
	if p, ok := n.progress[n.cfg.ID]; ok {
		p.matchIndex = n.cfg.Log.LastIndex()
		p.nextIndex = p.matchIndex + 1
	}
	n.maybeAdvanceCommitLocked()
	return indexes
}

// broadcastAppendLocked sends every voter (and passive member) a
// replication message. gen is 0 for ordinary replication; a nonzero gen
// tags the round as a read-index confirmation heartbeat (see ReadIndex)
// so HandleAppendResponse knows which pending read to credit.
func (n *Node) broadcastAppendLocked(gen uint64) {
	for _, id := range n.config.Voters() {
		if id == n.cfg.ID {
			continue
		}
		n.sendAppendToLocked(id, gen)
	}
	// Passive members replicate but never vote (spec §4.3 "Passive /
	// Reserve").
	for _, m := range n.config.Members {
		if m.Type == raftpb.MemberPassive {
			n.sendAppendToLocked(m.NodeID, gen)
		}
	}
}

func (n *Node) sendAppendToLocked(to uint64, gen uint64) {
	p, ok := n.progress[to]
	if !ok {
		p = &progress{nextIndex: n.cfg.Log.LastIndex() + 1}
		n.progress[to] = p
	}
	if p.installing {
		return
	}

	firstIndex := n.cfg.Log.FirstIndex()
	if p.nextIndex < firstIndex {
		n.startInstallLocked(to, p)
		return
	}

	prevIndex := p.nextIndex - 1
	prevTerm, err := n.cfg.Log.Term(prevIndex)
	if err != nil {
		n.startInstallLocked(to, p)
		return
	}

	var entries []raftpb.Entry
	lastIndex := n.cfg.Log.LastIndex()
	for idx := p.nextIndex; idx <= lastIndex; idx++ {
		e, err := n.cfg.Log.Get(idx)
		if err != nil {
			break
		}
		entries = append(entries, e)
	}

	n.cfg.Transport.SendAppend(to, raftpb.AppendRequest{
		Term:         n.term,
		Leader:       n.cfg.ID,
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		CommitIndex:  n.cfg.Log.CommitIndex(),
		ReadIndexGen: gen,
	})
}

// HandleAppendResponse processes a follower's AppendResponse (spec §4.3
// "Leader ... On success, advances matchIndex[follower] and
// nextIndex[follower]. On rejection, decrements nextIndex[follower]").
func (n *Node) HandleAppendResponse(resp raftpb.AppendResponse) {
	n.ctx.Execute(func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if resp.Term > n.term {
			n.becomeFollowerLocked(resp.Term, 0)
			return
		}
		if n.state != raftpb.StateLeader {
			return
		}
		p, ok := n.progress[resp.From]
		if !ok {
			return
		}
		p.active = true
		if resp.ReadIndexGen != 0 {
			n.creditReadIndexAckLocked(resp.From, resp.ReadIndexGen)
		}

		if !resp.Success {
			p.maybeDecrease(resp.LogIndex)
			n.sendAppendToLocked(resp.From, 0)
			return
		}
		if p.maybeUpdate(resp.LogIndex) {
			n.maybeAdvanceCommitLocked()
			n.maybeFinishConfigurationChangeLocked()
		}
	})
}

// maybeAdvanceCommitLocked implements spec §4.3's commit rule: the
// highest N such that a majority of voting members have matchIndex >= N
// AND log[N].term == currentTerm.
func (n *Node) maybeAdvanceCommitLocked() {
	if n.state != raftpb.StateLeader {
		return
	}
	voters := n.config.Voters()
	if len(voters) == 0 {
		return
	}
	matches := make([]uint64, 0, len(voters))
	for _, id := range voters {
		if id == n.cfg.ID {
			matches = append(matches, n.cfg.Log.LastIndex())
			continue
		}
		if p, ok := n.progress[id]; ok {
			matches = append(matches, p.matchIndex)
		} else {
			matches = append(matches, 0)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i] > matches[j] })
	majorityIndex := matches[n.quorumSizeLocked()-1]

	if majorityIndex <= n.cfg.Log.CommitIndex() {
		return
	}
	term, err := n.cfg.Log.Term(majorityIndex)
	if err != nil || term != n.term {
		// Entries from prior terms are committed only implicitly once an
		// entry of the current term reaches commit (spec §4.3).
		return
	}
	n.cfg.Log.Commit(majorityIndex)
	n.notifyCommit(majorityIndex)
	n.maybeFinishConfigurationChangeLocked()
}
