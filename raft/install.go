package raft

import (
	"io"

	"github.com/quorumkv/raft/raftpb"
)

// HandleInstall implements step 1 of spec §4.2's install protocol (the
// term check) and delegates steps 2-5 to the snapshot installer.
func (n *Node) HandleInstall(req raftpb.InstallRequest) raftpb.InstallResponse {
	done := make(chan raftpb.InstallResponse, 1)
	n.ctx.Execute(func() {
		done <- n.handleInstallLocked(req)
	})
	return <-done
}

func (n *Node) handleInstallLocked(req raftpb.InstallRequest) raftpb.InstallResponse {
	n.mu.Lock()
	if req.Term < n.term {
		resp := raftpb.InstallResponse{Term: n.term, From: n.cfg.ID, Success: false}
		n.mu.Unlock()
		return resp
	}
	if req.Term > n.term || n.state != raftpb.StateFollower {
		n.becomeFollowerLocked(req.Term, req.Leader)
	} else {
		n.leaderID = req.Leader
	}
	n.electionElapsed = 0
	n.mu.Unlock()

	resp, err := n.installer.HandleChunk(req)
	if err != nil {
		n.cfg.Logger.Errorf("raft: install chunk failed: %v", err)
	}
	resp.From = n.cfg.ID

	if req.Complete && resp.Success {
		n.mu.Lock()
		if req.SnapshotIndex > n.cfg.Log.CommitIndex() {
			n.cfg.Log.Commit(req.SnapshotIndex)
			n.notifyCommit(req.SnapshotIndex)
		}
		n.mu.Unlock()
	}
	return resp
}

// installChunkSize is the payload size of a single InstallRequest.
const installChunkSize = 64 * 1024

// startInstallLocked begins (or resumes, via the peer's own nextOffset
// bookkeeping on the follower side) sending a follower the leader's
// current snapshot, because the log no longer holds the entries that
// follower needs (spec §4.3 "the leader switches to the install
// protocol").
func (n *Node) startInstallLocked(to uint64, p *progress) {
	snap, err := n.cfg.Snapshots.Current()
	if err != nil {
		n.cfg.Logger.Warningf("raft: no snapshot available to install to %d: %v", to, err)
		return
	}
	p.installing = true
	p.installSnap = snap
	p.installOffset = 0
	n.sendInstallChunkLocked(to, p)
}

// sendInstallChunkLocked sends exactly one chunk of p's in-flight
// install, starting at p.installOffset, and then waits for that chunk's
// InstallResponse before sending the next one (see HandleInstallResponse).
// Only one chunk is ever outstanding per follower at a time: spec §6's
// no-reordering guarantee covers a single request/response pair, not the
// several separate InstallRequests a multi-chunk transfer needs, so
// pipelining more than one in flight would let chunks race and arrive
// out of order against the follower's offset check (raftsnap.Installer.
// HandleChunk).
func (n *Node) sendInstallChunkLocked(to uint64, p *progress) {
	snap := p.installSnap
	meta := snap.Metadata()

	r, err := snap.Reader()
	if err != nil {
		n.cfg.Logger.Errorf("raft: open snapshot reader failed: %v", err)
		p.installing = false
		p.installSnap = nil
		return
	}
	defer r.Close()

	if p.installOffset > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(p.installOffset)); err != nil {
			n.cfg.Logger.Errorf("raft: seek snapshot reader for %d to offset %d failed: %v", to, p.installOffset, err)
			p.installing = false
			p.installSnap = nil
			return
		}
	}

	buf := make([]byte, installChunkSize)
	nr, rerr := r.Read(buf)
	// io.EOF, any terminal read error, or reaching the last payload byte
	// ends the transfer.
	complete := rerr != nil || int64(p.installOffset)+int64(nr) >= snap.Size()

	n.cfg.Transport.SendInstall(to, raftpb.InstallRequest{
		Term:          n.term,
		Leader:        n.cfg.ID,
		SnapshotID:    meta.ID,
		SnapshotIndex: meta.Index,
		SnapshotTerm:  meta.Term,
		Offset:        p.installOffset,
		Data:          append([]byte(nil), buf[:nr]...),
		Complete:      complete,
	})
}

// HandleInstallResponse processes a follower's InstallResponse: it
// either advances the install to the next chunk, resends from the
// offset the follower reports, or — once the transfer is complete —
// resumes normal replication.
func (n *Node) HandleInstallResponse(resp raftpb.InstallResponse) {
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
		if !p.installing || p.installSnap == nil {
			return
		}

		if !resp.Success {
			// The follower rejected this chunk (e.g. a stale offset left
			// over from a previous leader's partial transfer); resend
			// from the offset it reports instead of abandoning the
			// install (SPEC_FULL §4 item 3).
			p.installOffset = resp.NextOffset
			n.sendInstallChunkLocked(resp.From, p)
			return
		}

		p.installOffset = resp.NextOffset
		if p.installOffset >= uint32(p.installSnap.Size()) {
			meta := p.installSnap.Metadata()
			p.becomeProbe(meta.Index + 1)
			p.matchIndex = meta.Index
			n.sendAppendToLocked(resp.From, 0)
			return
		}
		n.sendInstallChunkLocked(resp.From, p)
	})
}
