package raftsnap

import (
	"sync"

	"github.com/quorumkv/raft/raftpb"
)

// ApplyFunc loads a completed snapshot's payload into the user state
// machine. It is called once, after the final chunk of an install
// completes.
type ApplyFunc func(snap Snapshot) error

// Installer drives the follower side of the install protocol of spec
// §4.2. The role state machine is responsible for step 1 (term check)
// before calling HandleChunk; everything else — finding or creating the
// pending snapshot, offset bookkeeping, sealing, and invoking apply — is
// handled here.
type Installer struct {
	mu    sync.Mutex
	store Store
	apply ApplyFunc

	// pending tracks in-flight writers and their next expected offset,
	// keyed by snapshotID, so a leader that restarts mid-transfer can
	// resume instead of restarting from offset zero (SPEC_FULL §4 item 3,
	// grounded on InstallRequest.java's offset/complete fields).
	pending map[uint64]*installProgress
}

type installProgress struct {
	snap       Snapshot
	writer     Writer
	nextOffset uint32
}

// NewInstaller returns an Installer backed by store, calling apply once
// an install completes.
func NewInstaller(store Store, apply ApplyFunc) *Installer {
	return &Installer{store: store, apply: apply, pending: make(map[uint64]*installProgress)}
}

// HandleChunk implements steps 2-5 of spec §4.2's install protocol. The
// caller has already rejected requests with a stale term (step 1).
func (in *Installer) HandleChunk(req raftpb.InstallRequest) (raftpb.InstallResponse, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	resp := raftpb.InstallResponse{Term: req.Term, Success: false}

	prog, ok := in.pending[req.SnapshotID]
	if !ok {
		snap, err := in.store.New(req.SnapshotID, req.SnapshotIndex, req.SnapshotTerm, nowUnix())
		if err != nil {
			// A pending writer may already exist from a previous
			// install attempt at the same (id, index): resume it rather
			// than failing, per SPEC_FULL §4 item 3.
			if existing, found := in.store.Get(req.SnapshotID, req.SnapshotIndex); found && !existing.IsComplete() {
				snap = existing
			} else {
				return resp, err
			}
		}
		w, err := snap.Writer()
		if err != nil {
			return resp, err
		}
		prog = &installProgress{snap: snap, writer: w, nextOffset: 0}
		in.pending[req.SnapshotID] = prog
	}

	if req.Offset != prog.nextOffset {
		resp.NextOffset = prog.nextOffset
		return resp, nil
	}

	if len(req.Data) > 0 {
		if _, err := prog.writer.Write(req.Data); err != nil {
			return resp, err
		}
		prog.nextOffset += uint32(len(req.Data))
	}

	if req.Complete {
		if err := prog.writer.Close(); err != nil {
			return resp, err
		}
		if err := prog.snap.Complete(); err != nil {
			return resp, err
		}
		delete(in.pending, req.SnapshotID)
		if in.apply != nil {
			if err := in.apply(prog.snap); err != nil {
				return resp, err
			}
		}
	}

	resp.Success = true
	resp.NextOffset = prog.nextOffset
	return resp, nil
}
