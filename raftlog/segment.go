package raftlog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/quorumkv/raft/pkg/fileutil"
	"github.com/quorumkv/raft/raftpb"
)

// frameHeaderSize is the per-entry framing overhead: length:u32 + checksum:u32.
//
// (spec §6 "Log segment": "repeated { length:u32, checksum:u32, payload }")
const frameHeaderSize = 8

func segmentFileName(firstIndex uint64) string {
	return fmt.Sprintf("%020d.log", firstIndex)
}

// segment is one contiguous, append-only range of the log. It is sealed
// (locked) once the next segment opens; sealed segments are never
// written to again.
//
// (spec §4.1 "Segment layout")
type segment struct {
	mu sync.RWMutex

	dir  string
	file *os.File
	desc descriptor

	// offsets maps an index to its byte offset of the frame header
	// within the file, for O(1) random reads.
	offsets map[uint64]int64

	lastIndex uint64 // firstIndex-1 when empty
	size      int64  // current file size, used to decide when to seal
}

// openRandomAccess opens fpath for both random-offset reads and writes.
// fileutil.OpenToAppend cannot be used here: it sets O_APPEND, under
// which os.File.WriteAt always errors (Go intentionally rejects WriteAt
// on O_APPEND files, since the offset and the append semantics would
// silently disagree) and segments need WriteAt for truncation and frame
// rewrites.
func openRandomAccess(fpath string) (*os.File, error) {
	return os.OpenFile(fpath, os.O_RDWR|os.O_CREATE, fileutil.PrivateFileMode)
}

func createSegment(dir string, firstIndex uint64, maxSegmentSize, maxEntries int64, created int64) (*segment, error) {
	path := filepath.Join(dir, segmentFileName(firstIndex))
	f, err := openRandomAccess(path)
	if err != nil {
		return nil, err
	}
	if err := fileutil.Preallocate(f, maxSegmentSize, false); err != nil {
		f.Close()
		return nil, err
	}
	desc := descriptor{
		ID:             firstIndex,
		FirstIndex:     firstIndex,
		MaxSegmentSize: maxSegmentSize,
		MaxEntries:     maxEntries,
		Created:        created,
	}
	hdr := desc.encode()
	if _, err := f.WriteAt(hdr[:], 0); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(descriptorSize, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &segment{
		dir:       dir,
		file:      f,
		desc:      desc,
		offsets:   make(map[uint64]int64),
		lastIndex: firstIndex - 1,
		size:      descriptorSize,
	}, nil
}

// openSegment loads an existing segment file, rebuilding its offset index
// by scanning frames and verifying checksums. On the first corrupt frame
// it truncates the file there (spec §6 "Torn-write detection ... truncate
// at first corrupt frame on recovery").
func openSegment(dir string, name string) (*segment, error) {
	path := filepath.Join(dir, name)
	f, err := openRandomAccess(path)
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, descriptorSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorruptSegment, err)
	}
	desc, err := decodeDescriptor(hdr)
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &segment{
		dir:       dir,
		file:      f,
		desc:      desc,
		offsets:   make(map[uint64]int64),
		lastIndex: desc.FirstIndex - 1,
	}

	off := int64(descriptorSize)
	idx := desc.FirstIndex
	for {
		frameHdr := make([]byte, frameHeaderSize)
		if _, err := f.ReadAt(frameHdr, off); err != nil {
			break // EOF or short read: tail of a still-open segment
		}
		length := binary.BigEndian.Uint32(frameHdr[0:4])
		checksum := binary.BigEndian.Uint32(frameHdr[4:8])
		if length == 0 {
			break // unwritten preallocated tail
		}
		payload := make([]byte, length)
		if _, err := f.ReadAt(payload, off+frameHeaderSize); err != nil {
			break // torn write at the tail
		}
		if crc32.ChecksumIEEE(payload) != checksum {
			// torn write mid-file: truncate here and stop scanning.
			if err := f.Truncate(off); err != nil {
				f.Close()
				return nil, err
			}
			break
		}
		s.offsets[idx] = off
		idx++
		off += frameHeaderSize + int64(length)
	}
	s.lastIndex = idx - 1
	s.size = off
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *segment) firstIndex() uint64 { return s.desc.FirstIndex }

func (s *segment) getLastIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastIndex
}

func (s *segment) entryCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastIndex < s.desc.FirstIndex {
		return 0
	}
	return int64(s.lastIndex-s.desc.FirstIndex) + 1
}

// full reports whether the segment has reached its size or entry-count
// budget and should be sealed.
func (s *segment) full() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size >= s.desc.MaxSegmentSize || s.entryCountLocked() >= s.desc.MaxEntries
}

func (s *segment) entryCountLocked() int64 {
	if s.lastIndex < s.desc.FirstIndex {
		return 0
	}
	return int64(s.lastIndex-s.desc.FirstIndex) + 1
}

// append writes entry at the next contiguous offset. Caller guarantees
// entry.Index == s.lastIndex+1.
func (s *segment) append(entry raftpb.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.desc.Locked {
		return ErrSegmentLocked
	}

	payload := entry.Marshal()
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(frame[4:8], crc32.ChecksumIEEE(payload))
	copy(frame[frameHeaderSize:], payload)

	if _, err := s.file.WriteAt(frame, s.size); err != nil {
		return err
	}
	s.offsets[entry.Index] = s.size
	s.size += int64(len(frame))
	s.lastIndex = entry.Index
	return nil
}

func (s *segment) read(index uint64) (raftpb.Entry, error) {
	s.mu.RLock()
	off, ok := s.offsets[index]
	s.mu.RUnlock()
	if !ok {
		return raftpb.Entry{}, ErrUnavailable
	}

	frameHdr := make([]byte, frameHeaderSize)
	if _, err := s.file.ReadAt(frameHdr, off); err != nil {
		return raftpb.Entry{}, err
	}
	length := binary.BigEndian.Uint32(frameHdr[0:4])
	checksum := binary.BigEndian.Uint32(frameHdr[4:8])
	payload := make([]byte, length)
	if _, err := s.file.ReadAt(payload, off+frameHeaderSize); err != nil {
		return raftpb.Entry{}, err
	}
	if crc32.ChecksumIEEE(payload) != checksum {
		return raftpb.Entry{}, fmt.Errorf("%w: checksum mismatch at index %d", ErrCorruptSegment, index)
	}
	var e raftpb.Entry
	if _, err := e.Unmarshal(payload); err != nil {
		return raftpb.Entry{}, err
	}
	return e, nil
}

// truncateSuffix removes every entry with index > keepIndex, rewinding
// the file and offset index. Used by the leader-wins-election truncation
// path and by the follower's divergent-suffix removal (spec §4.1
// "truncate(index)").
func (s *segment) truncateSuffix(keepIndex uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keepIndex >= s.lastIndex {
		return nil
	}
	if keepIndex < s.desc.FirstIndex-1 {
		keepIndex = s.desc.FirstIndex - 1
	}

	var newSize int64
	if keepIndex < s.desc.FirstIndex {
		newSize = descriptorSize
	} else {
		off, ok := s.offsets[keepIndex]
		if !ok {
			return fmt.Errorf("raftlog: no offset recorded for index %d", keepIndex)
		}
		frameHdr := make([]byte, frameHeaderSize)
		if _, err := s.file.ReadAt(frameHdr, off); err != nil {
			return err
		}
		length := binary.BigEndian.Uint32(frameHdr[0:4])
		newSize = off + frameHeaderSize + int64(length)
	}

	for idx := keepIndex + 1; idx <= s.lastIndex; idx++ {
		delete(s.offsets, idx)
	}
	s.size = newSize
	s.lastIndex = keepIndex
	return nil
}

// seal marks the segment read-only and fsyncs it to disk.
func (s *segment) seal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.desc.Locked {
		return nil
	}
	s.desc.Locked = true
	hdr := s.desc.encode()
	if _, err := s.file.WriteAt(hdr[:], 0); err != nil {
		return err
	}
	return fileutil.Fsync(s.file)
}

func (s *segment) sync() error {
	return fileutil.Fsync(s.file)
}

func (s *segment) close() error {
	return s.file.Close()
}

func (s *segment) remove() error {
	s.file.Close()
	return os.Remove(filepath.Join(s.dir, segmentFileName(s.desc.FirstIndex)))
}
