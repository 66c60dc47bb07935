package raftpb

import "encoding/binary"

// NodeState is the role a server currently occupies in the cluster.
//
// (spec §3 "Server role")
type NodeState uint8

const (
	StateInactive NodeState = iota
	StateReserve
	StatePassive
	StateFollower
	StateCandidate
	StateLeader
)

func (s NodeState) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateReserve:
		return "reserve"
	case StatePassive:
		return "passive"
	case StateFollower:
		return "follower"
	case StateCandidate:
		return "candidate"
	case StateLeader:
		return "leader"
	default:
		return "unknown"
	}
}

// HardState must be persisted before responding to any RPC that depends
// on it (term, vote).
//
// (etcd raft.raftpb.HardState)
type HardState struct {
	Term            uint64
	VotedFor        uint64
	CommittedIndex  uint64
	LastConfigIndex uint64
}

// EmptyHardState is the zero value, used as a sentinel for "never voted".
var EmptyHardState = HardState{}

// IsEmptyHardState reports whether st is the zero HardState.
//
// (etcd raft.IsEmptyHardState)
func IsEmptyHardState(st HardState) bool {
	return st == EmptyHardState
}

// SoftState is volatile, derived state never persisted to disk.
//
// (etcd raft.SoftState)
type SoftState struct {
	LeaderID  uint64
	NodeState NodeState
}

// Equal reports whether two SoftStates describe the same role/leader.
func (s SoftState) Equal(o SoftState) bool {
	return s.LeaderID == o.LeaderID && s.NodeState == o.NodeState
}

// MemberType classifies a cluster member's replication/voting rights.
//
// (spec §3 "Configuration")
type MemberType uint8

const (
	MemberActive MemberType = iota
	MemberPassive
	MemberReserve
)

func (t MemberType) String() string {
	switch t {
	case MemberActive:
		return "active"
	case MemberPassive:
		return "passive"
	case MemberReserve:
		return "reserve"
	default:
		return "unknown"
	}
}

// Member is one entry in a Configuration.
type Member struct {
	NodeID uint64
	Type   MemberType
}

// Configuration is the committed (or append-pending) member set of the
// cluster (spec §4.5).
type Configuration struct {
	Index   uint64
	Term    uint64
	Members []Member
}

// Voters returns the node IDs of active (voting) members.
func (c Configuration) Voters() []uint64 {
	var ids []uint64
	for _, m := range c.Members {
		if m.Type == MemberActive {
			ids = append(ids, m.NodeID)
		}
	}
	return ids
}

// Marshal encodes a Configuration for storage as an EntryConfiguration's
// Data payload: index:8 | term:8 | count:4 | repeated{nodeID:8, type:1}.
func (c Configuration) Marshal() []byte {
	buf := make([]byte, 8+8+4+len(c.Members)*9)
	binary.BigEndian.PutUint64(buf[0:8], c.Index)
	binary.BigEndian.PutUint64(buf[8:16], c.Term)
	binary.BigEndian.PutUint32(buf[16:20], uint32(len(c.Members)))
	off := 20
	for _, m := range c.Members {
		binary.BigEndian.PutUint64(buf[off:off+8], m.NodeID)
		buf[off+8] = byte(m.Type)
		off += 9
	}
	return buf
}

// UnmarshalConfiguration decodes a Configuration previously written by
// Marshal.
func UnmarshalConfiguration(src []byte) (Configuration, error) {
	if len(src) < 20 {
		return Configuration{}, ErrShortBuffer
	}
	var c Configuration
	c.Index = binary.BigEndian.Uint64(src[0:8])
	c.Term = binary.BigEndian.Uint64(src[8:16])
	n := int(binary.BigEndian.Uint32(src[16:20]))
	off := 20
	if len(src) < off+n*9 {
		return Configuration{}, ErrShortBuffer
	}
	c.Members = make([]Member, n)
	for i := 0; i < n; i++ {
		c.Members[i] = Member{
			NodeID: binary.BigEndian.Uint64(src[off : off+8]),
			Type:   MemberType(src[off+8]),
		}
		off += 9
	}
	return c, nil
}
