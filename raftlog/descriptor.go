package raftlog

import (
	"encoding/binary"
	"fmt"
)

// descriptorSize is the fixed size of a segment's header, per spec §6
// "On-disk formats": magic(4) version(4) id(8) index(8) maxSize(8)
// maxEntries(8) created(8) locked(1), padded to 64 bytes.
const descriptorSize = 64

var segmentMagic = [4]byte{'L', 'O', 'G', 0}

const descriptorVersion uint32 = 1

// descriptor is the 64-byte header written at the start of every segment
// file.
type descriptor struct {
	ID             uint64
	FirstIndex     uint64
	MaxSegmentSize int64
	MaxEntries     int64
	Created        int64
	Locked         bool
}

func (d descriptor) encode() [descriptorSize]byte {
	var buf [descriptorSize]byte
	copy(buf[0:4], segmentMagic[:])
	binary.BigEndian.PutUint32(buf[4:8], descriptorVersion)
	binary.BigEndian.PutUint64(buf[8:16], d.ID)
	binary.BigEndian.PutUint64(buf[16:24], d.FirstIndex)
	binary.BigEndian.PutUint64(buf[24:32], uint64(d.MaxSegmentSize))
	binary.BigEndian.PutUint64(buf[32:40], uint64(d.MaxEntries))
	binary.BigEndian.PutUint64(buf[40:48], uint64(d.Created))
	if d.Locked {
		buf[48] = 1
	}
	return buf
}

func decodeDescriptor(buf []byte) (descriptor, error) {
	if len(buf) < descriptorSize {
		return descriptor{}, ErrCorruptSegment
	}
	if string(buf[0:4]) != string(segmentMagic[:]) {
		return descriptor{}, fmt.Errorf("%w: bad magic", ErrCorruptSegment)
	}
	ver := binary.BigEndian.Uint32(buf[4:8])
	if ver != descriptorVersion {
		return descriptor{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptSegment, ver)
	}
	d := descriptor{
		ID:             binary.BigEndian.Uint64(buf[8:16]),
		FirstIndex:     binary.BigEndian.Uint64(buf[16:24]),
		MaxSegmentSize: int64(binary.BigEndian.Uint64(buf[24:32])),
		MaxEntries:     int64(binary.BigEndian.Uint64(buf[32:40])),
		Created:        int64(binary.BigEndian.Uint64(buf[40:48])),
		Locked:         buf[48] != 0,
	}
	return d, nil
}
