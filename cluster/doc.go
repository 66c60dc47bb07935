// Package cluster exposes the membership operations of spec §4.5 —
// join, leave, reconfigure — as a small client-facing API over
// raft.Node.ProposeConfigurationChange, returning once the resulting
// configuration entry has committed.
package cluster
