package raftpb

import "fmt"

// EntryType tags the kind of a log entry. Kinds other than EntryCommand
// are interpreted by the session manager and cluster membership packages
// rather than by the user state machine.
//
// (spec §3 "Log entry")
type EntryType uint8

const (
	// EntryCommand carries an opaque command payload for the user state
	// machine.
	EntryCommand EntryType = iota

	// EntryQuery is rarely logged: it is only appended when a query must
	// be linearized through the log itself rather than via read-index.
	EntryQuery

	// EntryOpenSession opens a new client session; the entry's own index
	// becomes the session ID.
	EntryOpenSession

	// EntryCloseSession closes a session.
	EntryCloseSession

	// EntryKeepAlive renews a session's lease and acknowledges delivered
	// responses/events.
	EntryKeepAlive

	// EntryConfiguration carries a single-server membership change.
	EntryConfiguration

	// EntryInitialize is the no-op a leader appends immediately upon
	// election, in its own term, so that entries from prior terms can be
	// committed transitively (spec §4.3 "Leader").
	EntryInitialize
)

func (t EntryType) String() string {
	switch t {
	case EntryCommand:
		return "command"
	case EntryQuery:
		return "query-for-log"
	case EntryOpenSession:
		return "open-session"
	case EntryCloseSession:
		return "close-session"
	case EntryKeepAlive:
		return "keep-alive"
	case EntryConfiguration:
		return "configuration"
	case EntryInitialize:
		return "initialize"
	default:
		return fmt.Sprintf("unknown-entry-type(%d)", uint8(t))
	}
}

// Entry is an immutable record in the replicated log.
//
// (spec §3 "Log entry")
type Entry struct {
	Index uint64
	Term  uint64
	Type  EntryType

	// Timestamp is assigned by the leader when the entry is appended and
	// is the single time source the session manager uses to expire
	// sessions deterministically across replicas (spec §4.4).
	Timestamp int64

	Data []byte
}

// DescribeEntry renders an Entry in human-readable form for logging.
//
// (etcd raft.DescribeEntry, raft/raftpb/others.go)
func DescribeEntry(e Entry) string {
	return fmt.Sprintf("[index=%d term=%d type=%s ts=%d data=%d bytes]", e.Index, e.Term, e.Type, e.Timestamp, len(e.Data))
}

// IsEmpty returns true for the zero Entry, used as a not-found sentinel by
// readers.
func (e Entry) IsEmpty() bool {
	return e.Index == 0 && e.Term == 0 && e.Data == nil
}
