package raftlog

import "errors"

var (
	// ErrOutOfOrderAppend is returned by Append(indexed) when the given
	// index does not equal nextIndex (spec §4.1 "append(indexed)").
	ErrOutOfOrderAppend = errors.New("raftlog: append index out of order, truncate first")

	// ErrCompacted is returned when reading an index that has already
	// been compacted away.
	ErrCompacted = errors.New("raftlog: index has been compacted")

	// ErrUnavailable is returned when reading an index beyond lastIndex.
	ErrUnavailable = errors.New("raftlog: index unavailable")

	// ErrCorruptSegment is returned by recovery when a segment descriptor
	// is unreadable.
	ErrCorruptSegment = errors.New("raftlog: corrupt segment descriptor")

	// ErrSegmentLocked is returned when an append is attempted against a
	// sealed (read-only) segment.
	ErrSegmentLocked = errors.New("raftlog: segment is locked")
)
