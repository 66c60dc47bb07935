package raft

import "errors"

var (
	// ErrStopped is returned by Node methods after Stop has been called.
	ErrStopped = errors.New("raft: node stopped")

	// ErrNotLeader is returned by Propose/ProposeConfigurationChange when
	// this node is not the current leader (spec §7 "NotLeader").
	ErrNotLeader = errors.New("raft: not leader")

	// ErrNoLeader is returned when the cluster's leader is unknown
	// locally (spec §7 "NoLeader").
	ErrNoLeader = errors.New("raft: no known leader")

	// ErrConfigurationChangePending is returned when a second
	// configuration change is proposed while one is already outstanding
	// (spec §3 "at most one uncommitted configuration change may be
	// outstanding").
	ErrConfigurationChangePending = errors.New("raft: a configuration change is already pending")

	// ErrNotVotingMember is returned by Campaign when the local node is
	// reserve or passive (spec §4.3 "reserve/passive members never
	// become candidates").
	ErrNotVotingMember = errors.New("raft: node is not a voting member")
)
