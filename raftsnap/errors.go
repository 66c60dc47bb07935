package raftsnap

import "errors"

var (
	// ErrSnapshotExists is returned by Store.New when one already
	// exists at the given index (spec §4.2 "newSnapshot ... fails if one
	// already exists at that index").
	ErrSnapshotExists = errors.New("raftsnap: snapshot already exists at index")

	// ErrNotComplete is returned by Reader() on a snapshot that has not
	// been sealed via Complete() (spec §4.2 Invariant: "readers may not
	// open an incomplete snapshot").
	ErrNotComplete = errors.New("raftsnap: snapshot is not complete")

	// ErrAlreadyWriting is returned by Writer() when a writer for this
	// snapshot is already open (spec §4.2 "only one writer per
	// snapshot").
	ErrAlreadyWriting = errors.New("raftsnap: snapshot already has an open writer")

	// ErrNoSnapshot is returned by Store.Current when none exists.
	ErrNoSnapshot = errors.New("raftsnap: no snapshot available")

	// ErrCRCMismatch is returned when a snapshot file's descriptor header
	// is too short or lacks the expected magic. No payload checksum is
	// stored or verified.
	ErrCRCMismatch = errors.New("raftsnap: crc mismatch")

	// ErrUnexpectedOffset names a chunk that arrives at an offset other
	// than the follower's nextExpectedOffset (spec §4.2 Install protocol
	// step 3). Installer.HandleChunk does not return it: it answers such
	// a chunk with Success false and the expected NextOffset.
	ErrUnexpectedOffset = errors.New("raftsnap: unexpected install offset")
)
