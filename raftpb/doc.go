// Package raftpb defines the wire messages and on-disk record types shared
// by the log store, snapshot store, role state machine, session manager,
// and cluster membership packages.
//
// There is no code generator involved (the corpus this module was grounded
// on carries hand-written codecs rather than a protobuf toolchain), so
// every type here is a plain Go struct with a hand-rolled binary
// Marshal/Unmarshal pair, in the style of raft.raftpb.MessageBinaryEncoder.
package raftpb
