// Package raftsnap implements the snapshot subsystem of spec.md §4.2: a
// sealed byte stream tagged with (snapshotId, index, timestamp), in both
// file-backed and in-memory variants sharing the same Store interface,
// plus the leader-to-follower install protocol.
//
// The on-disk descriptor and save/load shape is grounded on the teacher's
// etcd-derived Snapshotter (raftsnap/snapshotter*.go before this rewrite:
// a directory of immutable snapshot files, atomic rename-into-place,
// CRC-checked payloads), generalized from "one snapshot per directory" to
// "many (id, index) snapshots with pending/complete lifecycle", per
// spec.md's Invariant that a snapshot is locked once complete() is
// called and unreadable before that. FileStore keeps the
// directory-of-files layout but writes each file in place, without a
// rename step, and stores no payload checksum.
package raftsnap
