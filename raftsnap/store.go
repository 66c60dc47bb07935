package raftsnap

import "io"

// Metadata identifies a snapshot: the triple spec §3 requires at most one
// complete snapshot per (ID, Index).
type Metadata struct {
	ID        uint64
	Index     uint64
	Term      uint64
	Timestamp int64
}

// Snapshot is a sealed byte stream tagged with Metadata. It is mutable
// (via Writer) only until Complete is called, after which it is
// immutable and discoverable as the current snapshot if it has the
// highest index.
//
// (spec §3 "Snapshot", §4.2)
type Snapshot interface {
	Metadata() Metadata

	// Complete seals the snapshot: the descriptor's locked flag is set
	// and the snapshot becomes discoverable via Store.Current. Complete
	// is idempotent.
	Complete() error

	// Writer returns an exclusive writer for this snapshot. It fails
	// with ErrAlreadyWriting if one is already open, and ErrNotComplete
	// semantics do not apply here (writers are only for pending
	// snapshots); calling Writer after Complete returns ErrAlreadyWriting
	// is not applicable either — callers should check IsComplete first.
	Writer() (Writer, error)

	// Reader opens the completed snapshot for reading. It fails with
	// ErrNotComplete if the snapshot has not been sealed.
	Reader() (Reader, error)

	// IsComplete reports whether Complete has been called.
	IsComplete() bool

	// Size returns the number of payload bytes written so far (or, once
	// complete, the total payload size).
	Size() int64
}

// Writer is the exclusive append handle returned by Snapshot.Writer. On
// Close, a file-backed writer stamps the final length prefix; it does
// not itself call Complete (spec §4.2 distinguishes writer-close from
// complete()).
type Writer interface {
	io.Writer
	io.Closer
}

// Reader is the read handle returned by Snapshot.Reader, for a completed
// (locked) snapshot.
type Reader interface {
	io.Reader
	io.Closer
}

// Store creates, lists, loads, and installs snapshots. FileStore and
// MemoryStore both satisfy it with identical contracts (spec §4.2
// "Responsibility ... provide both file-backed and memory-backed
// variants with identical contracts").
type Store interface {
	// New creates a pending snapshot; fails with ErrSnapshotExists if one
	// already exists at that index (spec §4.2 "newSnapshot").
	New(id, index, term uint64, timestamp int64) (Snapshot, error)

	// Current returns the highest-index completed snapshot, or
	// ErrNoSnapshot if none exists.
	Current() (Snapshot, error)

	// Get returns the snapshot at (id, index) if one exists, complete or
	// not.
	Get(id, index uint64) (Snapshot, bool)

	// List returns metadata for every completed snapshot, ordered by
	// increasing index.
	List() []Metadata

	// Delete removes a snapshot. Idempotent (spec §4.2 "delete(snapshot)
	// ... idempotent").
	Delete(id, index uint64) error
}
