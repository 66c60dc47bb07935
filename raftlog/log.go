package raftlog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/quorumkv/raft/internal/xlog"
	"github.com/quorumkv/raft/pkg/fileutil"
	"github.com/quorumkv/raft/raftpb"
)

const (
	// defaultMaxSegmentSize is the size budget at which a segment is
	// sealed and a new one opened.
	defaultMaxSegmentSize = 64 * 1024 * 1024 // 64 MB, matches raftwal's segmentSizeBytes

	// defaultMaxEntries bounds segment length independent of byte size,
	// so a stream of tiny entries still rotates segments periodically.
	defaultMaxEntries = 1 << 20
)

// Options configures a Log.
type Options struct {
	Dir            string
	MaxSegmentSize int64
	MaxEntries     int64
	Logger         xlog.Logger
}

func (o *Options) setDefaults() {
	if o.MaxSegmentSize <= 0 {
		o.MaxSegmentSize = defaultMaxSegmentSize
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = defaultMaxEntries
	}
	if o.Logger == nil {
		o.Logger = xlog.NopLogger()
	}
}

// Log is the segmented, append-only replicated log store of spec §4.1.
// The whole structure runs on a single owning sched.Context in practice
// (spec §4.7, §5); the mutex here guards state for callers that share a
// Log across goroutines that are not already serialized through that
// context (e.g. a concurrent Reader used for replication fan-out while
// the owning context keeps appending).
type Log struct {
	mu sync.RWMutex

	opts Options

	segments []*segment // sorted by firstIndex; segments[len-1] is the open tail

	commitIndex uint64
}

// Open recovers (or creates) a Log rooted at opts.Dir.
func Open(opts Options) (*Log, error) {
	opts.setDefaults()
	if err := fileutil.MkdirAll(opts.Dir); err != nil {
		return nil, err
	}

	names, err := fileutil.ReadDir(opts.Dir)
	if err != nil {
		return nil, err
	}

	l := &Log{opts: opts}

	var segNames []string
	for _, n := range names {
		if len(n) > 4 && n[len(n)-4:] == ".log" {
			segNames = append(segNames, n)
		}
	}
	sort.Strings(segNames)

	for _, n := range segNames {
		s, err := openSegment(opts.Dir, n)
		if err != nil {
			return nil, fmt.Errorf("raftlog: recovering segment %s: %w", n, err)
		}
		l.segments = append(l.segments, s)
	}

	if len(l.segments) == 0 {
		s, err := createSegment(opts.Dir, 1, opts.MaxSegmentSize, opts.MaxEntries, nowUnix())
		if err != nil {
			return nil, err
		}
		l.segments = append(l.segments, s)
	} else {
		tail := l.segments[len(l.segments)-1]
		if tail.desc.Locked {
			// Every recovered segment was sealed (clean shutdown after a
			// rotation); open a fresh tail.
			s, err := createSegment(opts.Dir, tail.getLastIndex()+1, opts.MaxSegmentSize, opts.MaxEntries, nowUnix())
			if err != nil {
				return nil, err
			}
			l.segments = append(l.segments, s)
		}
	}

	l.commitIndex = l.segments[0].firstIndex() - 1
	return l, nil
}

// LastIndex returns the index of the most recently appended entry, or 0
// if the log is empty.
func (l *Log) LastIndex() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastIndexLocked()
}

func (l *Log) lastIndexLocked() uint64 {
	return l.segments[len(l.segments)-1].getLastIndex()
}

// FirstIndex returns the lowest index still retained in the log.
func (l *Log) FirstIndex() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.segments[0].firstIndex()
}

// CommitIndex returns the current commit marker.
func (l *Log) CommitIndex() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.commitIndexLocked()
}

func (l *Log) commitIndexLocked() uint64 {
	return l.commitIndex
}

// Term returns the term of the entry at index, or 0 if unavailable.
func (l *Log) Term(index uint64) (uint64, error) {
	if index == 0 {
		return 0, nil
	}
	e, err := l.Get(index)
	if err != nil {
		return 0, err
	}
	return e.Term, nil
}

// Get reads the entry at index.
func (l *Log) Get(index uint64) (raftpb.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.get(index)
}

func (l *Log) get(index uint64) (raftpb.Entry, error) {
	if index < l.segments[0].firstIndex() {
		return raftpb.Entry{}, ErrCompacted
	}
	if index > l.lastIndexLocked() {
		return raftpb.Entry{}, ErrUnavailable
	}
	s := l.segmentFor(index)
	if s == nil {
		return raftpb.Entry{}, ErrUnavailable
	}
	return s.read(index)
}

// segmentFor returns the segment covering index, or nil.
func (l *Log) segmentFor(index uint64) *segment {
	// segments are sorted and contiguous; binary search on firstIndex.
	i := sort.Search(len(l.segments), func(i int) bool {
		return l.segments[i].firstIndex() > index
	})
	if i == 0 {
		return nil
	}
	return l.segments[i-1]
}

// Append assigns the next contiguous index to entry and writes it to the
// open tail segment, rotating to a new segment if the tail is full.
//
// (spec §4.1 "append(entry)")
func (l *Log) Append(entry raftpb.Entry) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Index = l.lastIndexLocked() + 1
	if err := l.appendLocked(entry); err != nil {
		return 0, err
	}
	return entry.Index, nil
}

// AppendAt is the follower replication path: index must equal
// nextIndex, otherwise the caller must Truncate first.
//
// (spec §4.1 "append(indexed)")
func (l *Log) AppendAt(entry raftpb.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Index != l.lastIndexLocked()+1 {
		return ErrOutOfOrderAppend
	}
	return l.appendLocked(entry)
}

func (l *Log) appendLocked(entry raftpb.Entry) error {
	tail := l.segments[len(l.segments)-1]
	if tail.full() {
		if err := tail.seal(); err != nil {
			return err
		}
		s, err := createSegment(l.opts.Dir, entry.Index, l.opts.MaxSegmentSize, l.opts.MaxEntries, nowUnix())
		if err != nil {
			return err
		}
		l.segments = append(l.segments, s)
		tail = s
	}
	if err := tail.append(entry); err != nil {
		return err
	}
	return tail.sync()
}

// Truncate removes every entry with index > index, sealing/deleting
// segments as needed so that lastIndex becomes index.
//
// (spec §4.1 "truncate(index)")
func (l *Log) Truncate(index uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index >= l.lastIndexLocked() {
		return nil
	}

	kept := l.segments[:0:0]
	for _, s := range l.segments {
		if s.firstIndex() > index {
			if err := s.remove(); err != nil {
				return err
			}
			continue
		}
		kept = append(kept, s)
	}
	l.segments = kept

	tail := l.segments[len(l.segments)-1]
	if err := tail.truncateSuffix(index); err != nil {
		return err
	}
	// A truncated segment was necessarily the open tail (any sealed
	// segment entirely below index was kept whole above); unseal it so
	// appends can resume.
	tail.mu.Lock()
	tail.desc.Locked = false
	tail.mu.Unlock()
	return tail.sync()
}

// Commit advances the commit marker; regressions are ignored (spec §4.1
// "commit(index) ... rejects regressions silently").
func (l *Log) Commit(index uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index > l.commitIndex && index <= l.lastIndexLocked() {
		l.commitIndex = index
	}
}

// Compact discards whole segments trailing strictly below index; it
// never splits a partial segment (spec §4.1 "compact(index)").
func (l *Log) Compact(index uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var kept []*segment
	for i, s := range l.segments {
		if i == len(l.segments)-1 {
			kept = append(kept, s)
			continue
		}
		if s.getLastIndex() < index {
			if err := s.remove(); err != nil {
				return err
			}
			continue
		}
		kept = append(kept, s)
	}
	l.segments = kept
	return nil
}

// Reader returns a cursor starting at fromIndex.
//
// (spec §4.1 "reader(fromIndex, mode)")
func (l *Log) Reader(fromIndex uint64, mode ReaderMode) *Reader {
	return &Reader{log: l, mode: mode, next: fromIndex}
}

// Close flushes and closes all open segment files.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, s := range l.segments {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
