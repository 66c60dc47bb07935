// Package statestore persists a node's HardState (current term, voted-for,
// committed index, last configuration index) across restarts, the way a
// real deployment must: a node that forgets its term or vote after a
// crash can violate the election-safety invariant (spec §4.3, §8).
//
// (gyuho-db mvcc/backend.backend wraps a *bolt.DB behind a small
// interface and opens it with bolt.Open; this package follows the same
// shape for a single tiny record instead of a full batched KV backend)
package statestore

import (
	"encoding/binary"
	"fmt"

	"github.com/boltdb/bolt"
	"github.com/quorumkv/raft/raftpb"
)

var bucketName = []byte("hardstate")

var stateKey = []byte("current")

// Store persists a single HardState record, fsync-flushed on every
// Save so a crash can never observe a torn or stale write.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bolt-backed Store at path.
//
// (gyuho-db mvcc/backend.newBackend)
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("statestore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("statestore: init bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns the persisted HardState, or raftpb.EmptyHardState if
// nothing has been saved yet.
func (s *Store) Load() (raftpb.HardState, error) {
	var hs raftpb.HardState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get(stateKey)
		if data == nil {
			hs = raftpb.EmptyHardState
			return nil
		}
		var err error
		hs, err = decodeHardState(data)
		return err
	})
	return hs, err
}

// Save persists hs, fsyncing before returning (bolt.DB.Update commits
// and syncs the transaction by default).
func (s *Store) Save(hs raftpb.HardState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put(stateKey, encodeHardState(hs))
	})
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

const hardStateSize = 32

func encodeHardState(hs raftpb.HardState) []byte {
	buf := make([]byte, hardStateSize)
	binary.BigEndian.PutUint64(buf[0:8], hs.Term)
	binary.BigEndian.PutUint64(buf[8:16], hs.VotedFor)
	binary.BigEndian.PutUint64(buf[16:24], hs.CommittedIndex)
	binary.BigEndian.PutUint64(buf[24:32], hs.LastConfigIndex)
	return buf
}

func decodeHardState(data []byte) (raftpb.HardState, error) {
	if len(data) != hardStateSize {
		return raftpb.HardState{}, fmt.Errorf("statestore: corrupt hard state record (%d bytes)", len(data))
	}
	return raftpb.HardState{
		Term:            binary.BigEndian.Uint64(data[0:8]),
		VotedFor:        binary.BigEndian.Uint64(data[8:16]),
		CommittedIndex:  binary.BigEndian.Uint64(data[16:24]),
		LastConfigIndex: binary.BigEndian.Uint64(data[24:32]),
	}, nil
}
