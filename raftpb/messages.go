package raftpb

// This file defines the request/response schemas of §6 "Transport
// contract". The transport itself is an external collaborator (out of
// scope, spec §1); only the message shapes live here.

// AppendRequest replicates entries from the leader to a follower, and
// doubles as a heartbeat when Entries is empty.
type AppendRequest struct {
	Term         uint64
	Leader       uint64
	PrevLogIndex uint64
	PrevLogTerm  uint64
	Entries      []Entry
	CommitIndex  uint64

	// ReadIndexGen, when nonzero, is echoed back unchanged in the
	// follower's AppendResponse. The leader uses it to recognize which
	// heartbeat round a given acknowledgement belongs to when confirming
	// it still holds a quorum for a linearizable read (SPEC_FULL §4 item
	// 2, "Read-index linearizable queries").
	ReadIndexGen uint64
}

// AppendResponse is the follower's reply to AppendRequest.
type AppendResponse struct {
	Term    uint64
	From    uint64
	Success bool

	// LogIndex is the follower's last matching index. On rejection this
	// is a hint the leader uses to back off nextIndex without a linear
	// scan (spec §4.3 "Follower").
	LogIndex uint64

	// ReadIndexGen echoes the request's ReadIndexGen.
	ReadIndexGen uint64
}

// VoteRequest solicits a vote for a leadership election.
type VoteRequest struct {
	Term         uint64
	Candidate    uint64
	LastLogIndex uint64
	LastLogTerm  uint64

	// Poll is true for a pre-vote round: granting a poll never persists
	// term or vote (spec §4.3 "Candidate", SPEC_FULL §4.1).
	Poll bool
}

// VoteResponse is the receiver's reply to VoteRequest.
type VoteResponse struct {
	Term  uint64
	From  uint64
	Voted bool
}

// InstallRequest ships one chunk of a snapshot from leader to follower.
//
// (spec §4.2 "Install protocol", §6)
type InstallRequest struct {
	Term          uint64
	Leader        uint64
	SnapshotID    uint64
	SnapshotIndex uint64
	SnapshotTerm  uint64
	Offset        uint32
	Data          []byte
	Complete      bool
}

// InstallResponse is the follower's reply to InstallRequest.
type InstallResponse struct {
	Term       uint64
	From       uint64
	Success    bool
	NextOffset uint32
}

// CommandRequest is a session-sequenced, log-replicated write.
type CommandRequest struct {
	Session  uint64
	Sequence uint64
	Operation []byte
}

// CommandResponse carries either a result or an error for a CommandRequest.
type CommandResponse struct {
	Index      uint64
	EventIndex uint64
	Result     []byte
	Error      error
}

// ConsistencyMode selects how a QueryRequest is served (spec §4.6).
type ConsistencyMode uint8

const (
	ConsistencyLinearizable ConsistencyMode = iota
	ConsistencySequential
	ConsistencyEventual
)

// QueryRequest is a read, not replicated through the log unless
// EntryQuery linearization is required.
type QueryRequest struct {
	Session     uint64
	Sequence    uint64
	LastIndex   uint64
	Operation   []byte
	Consistency ConsistencyMode
}

// QueryResponse carries either a result or an error for a QueryRequest.
type QueryResponse struct {
	Index  uint64
	Result []byte
	Error  error
}

// OpenSessionRequest asks the cluster to open a new client session.
type OpenSessionRequest struct {
	Client       string
	TimeoutMicro int64
}

// OpenSessionResponse carries the newly allocated session ID.
type OpenSessionResponse struct {
	Session uint64
	Error   error
}

// CloseSessionRequest closes an existing session.
type CloseSessionRequest struct {
	Session uint64
}

// CloseSessionResponse acknowledges a CloseSessionRequest.
type CloseSessionResponse struct {
	Error error
}

// KeepAliveRequest renews a session's lease and acknowledges delivered
// command responses and events up to the given watermarks.
type KeepAliveRequest struct {
	Session         uint64
	CommandSequence uint64
	EventIndex      uint64
}

// KeepAliveStatus reports whether the session keeping alive is still
// known to the cluster.
type KeepAliveStatus uint8

const (
	KeepAliveOK KeepAliveStatus = iota
	KeepAliveUnknownSession
	KeepAliveExpired
)

// KeepAliveResponse returns the current leader hint and member list so
// clients can redirect/refresh their routing table opportunistically.
type KeepAliveResponse struct {
	Leader  uint64
	Members []Member
	Status  KeepAliveStatus
}

// ConfigurationChangeKind distinguishes the membership operations of
// spec §4.5.
type ConfigurationChangeKind uint8

const (
	ConfigJoin ConfigurationChangeKind = iota
	ConfigLeave
	ConfigReconfigure
)

// ConfigurationRequest proposes a single-server membership change.
type ConfigurationRequest struct {
	Kind   ConfigurationChangeKind
	NodeID uint64
	Type   MemberType
}

// ConfigurationResponse carries the resulting committed Configuration.
type ConfigurationResponse struct {
	Configuration Configuration
	Error         error
}
