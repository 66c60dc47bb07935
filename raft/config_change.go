package raft

import (
	"github.com/quorumkv/raft/raftpb"
	"github.com/quorumkv/raft/sched"
)

// ProposeConfigurationChange submits a single-server membership change
// (spec §4.5: join, leave, or reconfigure exactly one member at a time).
// The new Configuration takes effect as soon as the entry is appended,
// not when it commits (spec §4.5 "effective upon append"); the returned
// Future resolves once that entry itself commits.
func (n *Node) ProposeConfigurationChange(req raftpb.ConfigurationRequest) *sched.Future[raftpb.Configuration] {
	fut, complete := sched.NewFuture[raftpb.Configuration]()
	n.ctx.Execute(func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if n.state != raftpb.StateLeader {
			complete(raftpb.Configuration{}, ErrNotLeader)
			return
		}
		if n.pendingConfigIndex != 0 {
			complete(raftpb.Configuration{}, ErrConfigurationChangePending)
			return
		}

		next, err := applyChangeToMembers(n.config, req)
		if err != nil {
			complete(raftpb.Configuration{}, err)
			return
		}
		next.Term = n.term

		indexes := n.appendLocked([]raftpb.Entry{{
			Type: raftpb.EntryConfiguration,
			Data: next.Marshal(),
		}})
		index := indexes[0]

		indexFut, indexComplete := sched.NewFuture[uint64]()
		n.awaitCommitLocked(index, indexFut, indexComplete)
		indexFut.Then(n.ctx, func(_ uint64, err error) {
			if err != nil {
				complete(raftpb.Configuration{}, err)
				return
			}
			complete(next, nil)
		})

		n.broadcastAppendLocked(0)
	})
	return fut
}

// applyChangeToMembers computes the new member set for a single-server
// change (spec §4.5). Joint consensus is unnecessary here precisely
// because only one server changes at a time.
func applyChangeToMembers(cur raftpb.Configuration, req raftpb.ConfigurationRequest) (raftpb.Configuration, error) {
	next := raftpb.Configuration{Index: cur.Index}
	switch req.Kind {
	case raftpb.ConfigJoin:
		for _, m := range cur.Members {
			if m.NodeID == req.NodeID {
				return raftpb.Configuration{}, ErrConfigurationChangePending
			}
			next.Members = append(next.Members, m)
		}
		next.Members = append(next.Members, raftpb.Member{NodeID: req.NodeID, Type: req.Type})
	case raftpb.ConfigLeave:
		for _, m := range cur.Members {
			if m.NodeID != req.NodeID {
				next.Members = append(next.Members, m)
			}
		}
	case raftpb.ConfigReconfigure:
		for _, m := range cur.Members {
			if m.NodeID == req.NodeID {
				next.Members = append(next.Members, raftpb.Member{NodeID: req.NodeID, Type: req.Type})
			} else {
				next.Members = append(next.Members, m)
			}
		}
	}
	return next, nil
}

// applyConfigurationEntryLocked installs a Configuration entry's effect
// the moment it is appended (leader or follower), per spec §4.5's
// "effective upon append, not commit" rule, and records it as the
// single outstanding pending change until it commits.
func (n *Node) applyConfigurationEntryLocked(idx uint64, e raftpb.Entry) {
	cfg, err := raftpb.UnmarshalConfiguration(e.Data)
	if err != nil {
		n.cfg.Logger.Errorf("raft: corrupt configuration entry at %d: %v", idx, err)
		return
	}
	cfg.Index = idx
	n.config = cfg
	n.pendingConfigIndex = idx

	if n.state == raftpb.StateLeader {
		for _, m := range cfg.Members {
			if _, ok := n.progress[m.NodeID]; !ok {
				n.progress[m.NodeID] = &progress{nextIndex: n.cfg.Log.LastIndex() + 1}
			}
		}
	}
}

// maybeFinishConfigurationChangeLocked clears pendingConfigIndex once
// the pending configuration entry itself has committed, allowing the
// next change to be proposed (spec §3 "at most one uncommitted
// configuration change may be outstanding"). If the now-committed
// configuration no longer lists this server as a voting member, the
// leader steps down (spec §4.3 "Leader ... steps down ... on committing
// a configuration change that removes this server from the voting
// set").
func (n *Node) maybeFinishConfigurationChangeLocked() {
	if n.pendingConfigIndex == 0 || n.cfg.Log.CommitIndex() < n.pendingConfigIndex {
		return
	}
	n.pendingConfigIndex = 0

	if n.state == raftpb.StateLeader && !n.isVotingMemberLocked(n.cfg.ID) {
		n.becomeFollowerLocked(n.term, 0)
	}
}

// recomputeConfigurationLocked rebuilds n.config by scanning backward
// from the log's current tail for the most recent EntryConfiguration,
// falling back to the node's initial configuration. Called after a
// truncation removes entries that may have carried the active
// configuration (spec §4.5 "a configuration change that is truncated
// before it commits reverts to the prior configuration").
func (n *Node) recomputeConfigurationLocked() {
	last := n.cfg.Log.LastIndex()
	first := n.cfg.Log.FirstIndex()
	for idx := last; idx >= first && idx > 0; idx-- {
		e, err := n.cfg.Log.Get(idx)
		if err != nil {
			break
		}
		if e.Type == raftpb.EntryConfiguration {
			cfg, err := raftpb.UnmarshalConfiguration(e.Data)
			if err == nil {
				cfg.Index = idx
				n.config = cfg
				return
			}
		}
	}
	n.config = n.cfg.InitialConfiguration
}
