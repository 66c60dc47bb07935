package raftsnap

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryStore is the in-memory Store variant, used by tests and by
// single-node/ephemeral deployments where durability is delegated to the
// log store alone (spec §4.2 "Responsibility ... memory-backed
// variants").
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[uint64]map[uint64]*memSnapshot
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[uint64]map[uint64]*memSnapshot)}
}

func (s *MemoryStore) New(id, index, term uint64, timestamp int64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[id][index]; ok {
		return nil, ErrSnapshotExists
	}
	snap := &memSnapshot{meta: Metadata{ID: id, Index: index, Term: term, Timestamp: timestamp}}
	if s.snaps[id] == nil {
		s.snaps[id] = make(map[uint64]*memSnapshot)
	}
	s.snaps[id][index] = snap
	return snap, nil
}

func (s *MemoryStore) Current() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *memSnapshot
	for _, byIndex := range s.snaps {
		for _, snap := range byIndex {
			if !snap.IsComplete() {
				continue
			}
			if best == nil || snap.meta.Index > best.meta.Index {
				best = snap
			}
		}
	}
	if best == nil {
		return nil, ErrNoSnapshot
	}
	return best, nil
}

func (s *MemoryStore) Get(id, index uint64) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[id][index]
	if !ok {
		return nil, false
	}
	return snap, true
}

func (s *MemoryStore) List() []Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Metadata
	for _, byIndex := range s.snaps {
		for _, snap := range byIndex {
			if snap.IsComplete() {
				out = append(out, snap.meta)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (s *MemoryStore) Delete(id, index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snaps[id] != nil {
		delete(s.snaps[id], index)
	}
	return nil
}

type memSnapshot struct {
	mu       sync.Mutex
	meta     Metadata
	data     bytes.Buffer
	locked   bool
	writing  bool
}

func (s *memSnapshot) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

func (s *memSnapshot) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

func (s *memSnapshot) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.data.Len())
}

func (s *memSnapshot) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
	return nil
}

func (s *memSnapshot) Writer() (Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writing {
		return nil, ErrAlreadyWriting
	}
	s.writing = true
	return &memSnapshotWriter{snap: s}, nil
}

func (s *memSnapshot) Reader() (Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		return nil, ErrNotComplete
	}
	return &memSnapshotReader{r: bytes.NewReader(s.data.Bytes())}, nil
}

type memSnapshotWriter struct {
	snap *memSnapshot
}

func (w *memSnapshotWriter) Write(p []byte) (int, error) {
	w.snap.mu.Lock()
	defer w.snap.mu.Unlock()
	return w.snap.data.Write(p)
}

func (w *memSnapshotWriter) Close() error {
	w.snap.mu.Lock()
	defer w.snap.mu.Unlock()
	w.snap.writing = false
	return nil
}

type memSnapshotReader struct {
	r *bytes.Reader
}

func (r *memSnapshotReader) Read(p []byte) (int, error) { return r.r.Read(p) }
func (r *memSnapshotReader) Close() error                { return nil }
