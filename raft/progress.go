package raft

import "github.com/quorumkv/raft/raftsnap"

// progress is the leader's view of one follower's replication state.
//
// (etcd raft.Progress, raft/progress.go before this package's rewrite —
// simplified to the two counters spec §4.3 actually needs for
// commit-index advancement and nextIndex backoff; the teacher's
// PROBE/REPLICATE/SNAPSHOT flow-control state machine and in-flight
// window are not part of spec.md and are dropped here, see doc.go)
type progress struct {
	// matchIndex is the highest index known to be replicated to this
	// follower.
	matchIndex uint64

	// nextIndex is the index of the next entry to send this follower.
	nextIndex uint64

	// installing is true while a snapshot install is in flight to this
	// follower; replication pauses meanwhile (spec §4.3 "switches to the
	// install protocol").
	installing bool

	// installSnap is the snapshot currently being installed to this
	// follower, kept so the next chunk can be (re)read at installOffset
	// once the in-flight one is acknowledged or rejected.
	installSnap raftsnap.Snapshot

	// installOffset is the payload offset of the next chunk to send.
	// Only one chunk is ever outstanding at a time: the leader waits for
	// the follower's InstallResponse (success or rejection) before
	// sending the next one, since spec §6's no-reordering guarantee only
	// covers a single request/response pair, not a whole multi-chunk
	// transfer (SPEC_FULL §4 item 3).
	installOffset uint32

	// active records whether this follower has responded recently, reset
	// each election-timeout window by LeaderCheckQuorum.
	active bool
}

func (p *progress) becomeProbe(nextIndex uint64) {
	p.nextIndex = nextIndex
	p.installing = false
	p.installSnap = nil
}

// maybeUpdate advances matchIndex/nextIndex on a successful append
// response; it reports whether anything changed.
func (p *progress) maybeUpdate(matchIndex uint64) bool {
	changed := false
	if p.matchIndex < matchIndex {
		p.matchIndex = matchIndex
		changed = true
	}
	if next := matchIndex + 1; p.nextIndex < next {
		p.nextIndex = next
		changed = true
	}
	p.active = true
	return changed
}

// maybeDecrease backs nextIndex off after a rejected append, using the
// follower's hint (spec §4.3 "decrements nextIndex[follower] (using the
// follower's hint) and retries").
func (p *progress) maybeDecrease(hint uint64) {
	next := hint + 1
	if next < 1 {
		next = 1
	}
	if next < p.nextIndex {
		p.nextIndex = next
	} else if p.nextIndex > 1 {
		p.nextIndex--
	}
}
