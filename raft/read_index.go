package raft

import (
	"context"

	"github.com/quorumkv/raft/raftpb"
	"github.com/quorumkv/raft/sched"
)

// readIndexReq tracks one in-flight read-index confirmation: the commit
// index captured when it was issued, and which voters have acked the
// heartbeat round (gen) sent to confirm it.
type readIndexReq struct {
	gen      uint64
	index    uint64
	acked    map[uint64]bool
	complete func(uint64, error)
}

// ReadIndex implements the read-index confirmation step linearizable
// queries need (SPEC_FULL §4 item 2, grounded on the teacher's
// raft/11_read_index.go): it captures the current commit index, then
// confirms this node is still backed by a live quorum before handing
// that index back as safe to read from — a stale or partitioned former
// leader that has not yet stepped down will never collect a quorum of
// acks and times out instead of answering with outdated state. A
// caller serving a linearizable QueryRequest must wait until its
// locally applied index reaches the returned value before answering.
func (n *Node) ReadIndex(ctx context.Context) (uint64, error) {
	fut, complete := sched.NewFuture[uint64]()
	n.ctx.Execute(func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if n.state != raftpb.StateLeader {
			complete(0, ErrNotLeader)
			return
		}

		n.readIndexGen++
		req := &readIndexReq{
			gen:      n.readIndexGen,
			index:    n.cfg.Log.CommitIndex(),
			acked:    map[uint64]bool{n.cfg.ID: true},
			complete: complete,
		}
		n.readIndexReqs = append(n.readIndexReqs, req)

		// A step-down while this request is outstanding must fail it
		// rather than leave it hanging, the same rule awaitCommitLocked
		// applies to pending proposals (spec §7).
		n.softStateListeners = append(n.softStateListeners, func(st raftpb.SoftState) {
			if st.NodeState != raftpb.StateLeader {
				n.failReadIndexReqsLocked(ErrNotLeader)
			}
		})

		if n.quorumGrantedByAckLocked(req.acked) {
			n.resolveReadIndexReqsLocked()
			return
		}
		n.broadcastAppendLocked(req.gen)
	})

	done := make(chan struct{})
	var index uint64
	var err error
	go func() {
		index, err = fut.Wait()
		close(done)
	}()
	select {
	case <-done:
		return index, err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// creditReadIndexAckLocked records that from has acknowledged heartbeat
// round gen, then resolves every pending request that now has a quorum.
func (n *Node) creditReadIndexAckLocked(from uint64, gen uint64) {
	for _, req := range n.readIndexReqs {
		if req.gen == gen {
			req.acked[from] = true
		}
	}
	n.resolveReadIndexReqsLocked()
}

// quorumGrantedByAckLocked reports whether acked covers a majority of
// the current voting set.
func (n *Node) quorumGrantedByAckLocked(acked map[uint64]bool) bool {
	granted := 0
	for _, id := range n.config.Voters() {
		if acked[id] {
			granted++
		}
	}
	return granted >= n.quorumSizeLocked()
}

// resolveReadIndexReqsLocked completes every pending read-index request
// that has collected a quorum of acks for its round, in submission
// order, and drops them from the pending list.
func (n *Node) resolveReadIndexReqsLocked() {
	remaining := n.readIndexReqs[:0]
	for _, req := range n.readIndexReqs {
		if n.quorumGrantedByAckLocked(req.acked) {
			req.complete(req.index, nil)
			continue
		}
		remaining = append(remaining, req)
	}
	n.readIndexReqs = remaining
}

// failReadIndexReqsLocked fails every pending read-index request with
// err, used when this node steps down before a round completes.
func (n *Node) failReadIndexReqsLocked(err error) {
	for _, req := range n.readIndexReqs {
		req.complete(0, err)
	}
	n.readIndexReqs = nil
}
