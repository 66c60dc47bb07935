package session

import "errors"

var (
	// ErrUnknownSession is returned for any operation against a session
	// ID the manager has never allocated (spec §7 "UnknownSession").
	ErrUnknownSession = errors.New("session: unknown session")

	// ErrClosedSession is returned for an operation against a session
	// that has been closed or has expired (spec §7 "ClosedSession").
	ErrClosedSession = errors.New("session: closed session")

	// ErrSequenceGap is returned when a command's sequence number is
	// more than one past the last one this session has seen, which can
	// only mean a proxy bug or a replay attack (SPEC_FULL §4 item 5,
	// grounded on ProtocolError in the original CommandRequest handling).
	ErrSequenceGap = errors.New("session: command sequence gap")

	// ErrLinearizableUnsupported is returned for a ConsistencyLinearizable
	// query when the manager has no ReadIndexFunc installed: refusing is
	// the safe default, since answering from local state without
	// confirming leadership is exactly the staleness linearizability
	// forbids (SPEC_FULL §4 item 2).
	ErrLinearizableUnsupported = errors.New("session: linearizable query unsupported without a read-index function")
)
