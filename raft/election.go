package raft

import "github.com/quorumkv/raft/raftpb"

// Campaign starts a (pre-)election, exactly as a timed-out follower does
// internally. Returns ErrNotVotingMember if this node is reserve/passive.
//
// (etcd raft.Node.Campaign)
func (n *Node) Campaign() error {
	errc := make(chan error, 1)
	n.ctx.Execute(func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if !n.isVotingMemberLocked(n.cfg.ID) {
			errc <- ErrNotVotingMember
			return
		}
		n.campaignLocked()
		errc <- nil
	})
	return <-errc
}

// campaignLocked begins a pre-vote round if enabled, otherwise jumps
// straight to a real election (spec §4.3 "Candidate").
func (n *Node) campaignLocked() {
	if n.cfg.PreVoteEnabled {
		n.becomeCandidateLocked(true)
	} else {
		n.becomeCandidateLocked(false)
	}
}

func (n *Node) becomeFollowerLocked(term uint64, leader uint64) {
	n.state = raftpb.StateFollower
	n.term = term
	n.votedFor = 0
	n.leaderID = leader
	n.votes = nil
	n.preVotes = nil
	n.progress = make(map[uint64]*progress)
	n.electionElapsed = 0
	n.resetRandomizedElectionTick()
	n.persistHardStateLocked()
	n.notifySoftState()
}

// becomeCandidateLocked starts a new election. When poll is true this is
// a pre-vote round (SPEC_FULL §4 item 1): term and vote are NOT
// persisted or advanced, so a flapping, partitioned node cannot disrupt
// the cluster by incrementing the real term before it has evidence it
// could actually win.
func (n *Node) becomeCandidateLocked(poll bool) {
	lastIndex := n.cfg.Log.LastIndex()
	lastTerm, _ := n.cfg.Log.Term(lastIndex)

	electionTerm := n.term
	if !poll {
		electionTerm = n.term + 1
		n.term = electionTerm
		n.votedFor = n.cfg.ID
		n.state = raftpb.StateCandidate
		n.votes = map[uint64]bool{n.cfg.ID: true}
		n.preVotes = nil // late pre-vote replies must not start another round
	} else {
		electionTerm = n.term + 1
		n.preVotes = map[uint64]bool{n.cfg.ID: true}
	}
	n.leaderID = 0
	n.electionElapsed = 0
	n.resetRandomizedElectionTick()
	if !poll {
		n.persistHardStateLocked()
	}
	n.notifySoftState()

	voters := n.config.Voters()
	if n.quorumGrantedLocked(poll) {
		// Sole voter: win immediately without a round trip.
		if poll {
			n.becomeCandidateLocked(false)
		} else {
			n.becomeLeaderLocked()
		}
		return
	}

	req := raftpb.VoteRequest{
		Term:         electionTerm,
		Candidate:    n.cfg.ID,
		LastLogIndex: lastIndex,
		LastLogTerm:  lastTerm,
		Poll:         poll,
	}
	for _, id := range voters {
		if id == n.cfg.ID {
			continue
		}
		n.cfg.Transport.SendVote(id, req)
	}
}

func (n *Node) quorumGrantedLocked(poll bool) bool {
	votes := n.votes
	if poll {
		votes = n.preVotes
	}
	granted := 0
	for _, id := range n.config.Voters() {
		if votes[id] {
			granted++
		}
	}
	return granted >= n.quorumSizeLocked()
}

func (n *Node) quorumRejectedLocked(poll bool) bool {
	votes := n.votes
	if poll {
		votes = n.preVotes
	}
	rejected := 0
	for _, id := range n.config.Voters() {
		if v, ok := votes[id]; ok && !v {
			rejected++
		}
	}
	return rejected >= n.quorumSizeLocked()
}

func (n *Node) becomeLeaderLocked() {
	n.state = raftpb.StateLeader
	n.leaderID = n.cfg.ID
	n.votes = nil
	n.preVotes = nil
	n.heartbeatElapsed = 0
	n.electionElapsed = 0

	lastIndex := n.cfg.Log.LastIndex()
	n.progress = make(map[uint64]*progress)
	for _, m := range n.config.Members {
		n.progress[m.NodeID] = &progress{nextIndex: lastIndex + 1, active: m.NodeID == n.cfg.ID}
	}

	n.notifySoftState()

	// Immediately append a no-op in the new term (spec §4.3 "Leader ...
	// Upon election, immediately appends an initialize no-op entry").
	n.appendLocked([]raftpb.Entry{{Type: raftpb.EntryInitialize}})
	n.broadcastAppendLocked(0)
}

// handleVoteRequest implements the granting rules of spec §4.3
// "Candidate": VoteResponse{term, voted}.
func (n *Node) handleVoteRequest(req raftpb.VoteRequest) raftpb.VoteResponse {
	n.mu.Lock()
	defer n.mu.Unlock()

	if req.Term > n.term && !req.Poll {
		n.becomeFollowerLocked(req.Term, 0)
	}

	// A poll is answered with this node's own term, so the polling
	// candidate only steps down when the responder is genuinely ahead.
	resp := raftpb.VoteResponse{From: n.cfg.ID, Term: n.term}

	if req.Term < n.term {
		resp.Voted = false
		return resp
	}

	lastIndex := n.cfg.Log.LastIndex()
	lastTerm, _ := n.cfg.Log.Term(lastIndex)
	logUpToDate := req.LastLogTerm > lastTerm || (req.LastLogTerm == lastTerm && req.LastLogIndex >= lastIndex)

	canVote := req.Poll || n.votedFor == 0 || n.votedFor == req.Candidate
	resp.Voted = canVote && logUpToDate
	if resp.Voted && !req.Poll {
		n.votedFor = req.Candidate
		n.electionElapsed = 0
		n.persistHardStateLocked()
	}
	return resp
}

// handleVoteResponse processes a VoteResponse on the candidate path.
func (n *Node) handleVoteResponse(resp raftpb.VoteResponse, poll bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if resp.Term > n.term {
		n.becomeFollowerLocked(resp.Term, 0)
		return
	}
	if n.state != raftpb.StateCandidate && n.preVotes == nil {
		return
	}

	votes := n.votes
	if poll {
		votes = n.preVotes
	}
	if votes == nil {
		return
	}
	votes[resp.From] = resp.Voted

	if n.quorumGrantedLocked(poll) {
		if poll {
			n.becomeCandidateLocked(false)
		} else {
			n.becomeLeaderLocked()
		}
		return
	}
	if n.quorumRejectedLocked(poll) {
		n.becomeFollowerLocked(n.term, 0)
	}
}
