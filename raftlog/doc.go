// Package raftlog implements the durable, ordered, append-only log store
// of spec.md §4.1: a sequence of entries spread across segmented files,
// with fast random read by index, tailable reads, and prefix truncation
// via snapshot install.
//
// The on-disk layout follows spec.md §6: each segment starts with a
// 64-byte descriptor, followed by length/checksum-framed entries. This
// generalizes the teacher's (raftwal) single-growing-file WAL into the
// segment-descriptor shape spec.md's original system (io.atomix's
// SegmentedJournal) actually used, while keeping the teacher's file
// naming, preallocation, and fsync conventions (pkg/fileutil).
package raftlog
