package raft

import "github.com/quorumkv/raft/raftpb"

// HandleAppend implements the follower side of spec §4.3 "Follower":
// accepts AppendRequest{term, leader, prevLogIndex, prevLogTerm,
// entries, commitIndex}.
func (n *Node) HandleAppend(req raftpb.AppendRequest) raftpb.AppendResponse {
	done := make(chan raftpb.AppendResponse, 1)
	n.ctx.Execute(func() {
		done <- n.handleAppendLocked(req)
	})
	return <-done
}

func (n *Node) handleAppendLocked(req raftpb.AppendRequest) raftpb.AppendResponse {
	n.mu.Lock()
	defer n.mu.Unlock()

	resp := raftpb.AppendResponse{Term: n.term, From: n.cfg.ID}

	if req.Term < n.term {
		resp.Success = false
		resp.LogIndex = n.cfg.Log.LastIndex()
		return resp
	}
	if req.Term > n.term {
		n.becomeFollowerLocked(req.Term, req.Leader)
	} else if n.state != raftpb.StateFollower {
		n.becomeFollowerLocked(req.Term, req.Leader)
	} else {
		n.leaderID = req.Leader
	}
	n.electionElapsed = 0
	resp.Term = n.term

	if req.PrevLogIndex > 0 {
		localTerm, err := n.cfg.Log.Term(req.PrevLogIndex)
		if err != nil || localTerm != req.PrevLogTerm {
			resp.Success = false
			resp.LogIndex = n.lastMatchingIndexLocked(req.PrevLogIndex)
			return resp
		}
	}

	nextIndex := req.PrevLogIndex
	for _, e := range req.Entries {
		nextIndex++
		existing, err := n.cfg.Log.Get(nextIndex)
		if err == nil {
			if existing.Term == e.Term {
				continue // already have this exact entry
			}
			// Divergent suffix: truncate before appending (spec §4.3
			// "truncate any divergent suffix, append entries").
			if err := n.cfg.Log.Truncate(nextIndex - 1); err != nil {
				n.cfg.Logger.Errorf("raft: truncate failed: %v", err)
				resp.Success = false
				return resp
			}
			if n.pendingConfigIndex != 0 && n.pendingConfigIndex >= nextIndex {
				n.pendingConfigIndex = 0
				n.recomputeConfigurationLocked()
			}
		}
		if err := n.cfg.Log.AppendAt(e); err != nil {
			n.cfg.Logger.Errorf("raft: follower append failed: %v", err)
			resp.Success = false
			return resp
		}
		if e.Type == raftpb.EntryConfiguration {
			n.applyConfigurationEntryLocked(e.Index, e)
		}
	}

	last := n.cfg.Log.LastIndex()
	if req.CommitIndex > n.cfg.Log.CommitIndex() {
		commit := req.CommitIndex
		if commit > last {
			commit = last
		}
		n.cfg.Log.Commit(commit)
		n.notifyCommit(commit)
		n.maybeFinishConfigurationChangeLocked()
	}

	resp.Success = true
	resp.LogIndex = last
	resp.ReadIndexGen = req.ReadIndexGen
	return resp
}

// lastMatchingIndexLocked returns a hint for the leader's nextIndex
// backoff: the highest index at or below hintIndex this follower
// actually has, so the leader doesn't need a linear per-entry probe
// (spec §4.3 "return the follower's last matching index as a hint").
func (n *Node) lastMatchingIndexLocked(hintIndex uint64) uint64 {
	last := n.cfg.Log.LastIndex()
	if hintIndex > last {
		return last
	}
	return hintIndex
}

// HandleVote implements the candidate-solicitation side for a follower
// or candidate.
func (n *Node) HandleVote(req raftpb.VoteRequest) raftpb.VoteResponse {
	done := make(chan raftpb.VoteResponse, 1)
	n.ctx.Execute(func() {
		done <- n.handleVoteRequest(req)
	})
	return <-done
}

// HandleVoteResponse feeds a VoteResponse back into an in-flight
// election. poll must match whether the originating request was a
// pre-vote.
func (n *Node) HandleVoteResponse(resp raftpb.VoteResponse, poll bool) {
	n.ctx.Execute(func() {
		n.handleVoteResponse(resp, poll)
	})
}
