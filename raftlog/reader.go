package raftlog

import "github.com/quorumkv/raft/raftpb"

// ReaderMode selects whether a Reader is clamped to the committed prefix
// of the log.
//
// (spec §4.1 "reader(fromIndex, mode)"; spec §9 resolves the ambiguity in
// the original RaftLogReader.hasNext by clamping in ModeCommitted)
type ReaderMode uint8

const (
	// ModeAll iterates every appended entry, committed or not.
	ModeAll ReaderMode = iota

	// ModeCommitted iterates only entries at or below the log's current
	// commit index; hasNext reports false once nextIndex would exceed it,
	// even if more (uncommitted) entries exist on disk.
	ModeCommitted
)

// Reader is a tailable cursor over the log, usable for replaying entries
// to the state-machine applier or for replicating to a follower.
type Reader struct {
	log  *Log
	mode ReaderMode
	next uint64
}

// NextIndex returns the index the next call to Next will return.
func (r *Reader) NextIndex() uint64 {
	return r.next
}

// HasNext reports whether another entry is currently available. In
// ModeCommitted it is clamped to the log's commit index, per spec §9.
func (r *Reader) HasNext() bool {
	r.log.mu.RLock()
	defer r.log.mu.RUnlock()
	last := r.log.lastIndexLocked()
	if r.mode == ModeCommitted {
		commit := r.log.commitIndexLocked()
		if r.next > commit {
			return false
		}
	}
	return r.next <= last
}

// Next returns the entry at the cursor and advances it. Callers must
// check HasNext first.
func (r *Reader) Next() (raftpb.Entry, error) {
	r.log.mu.RLock()
	e, err := r.log.get(r.next)
	r.log.mu.RUnlock()
	if err != nil {
		return raftpb.Entry{}, err
	}
	r.next++
	return e, nil
}

// Reset repositions the cursor to the given index, e.g. after a leader
// rewinds nextIndex for a lagging follower.
func (r *Reader) Reset(index uint64) {
	r.next = index
}
