package raftsnap

import "encoding/binary"

// descriptorSize is fixed per spec §6 "Snapshot file": magic(4) version(4)
// id(8) index(8) timestamp(8) locked(1), padded to 64 bytes.
const descriptorSize = 64

var snapshotMagic = [4]byte{'S', 'N', 'P', 0}

const descriptorVersion uint32 = 1

type fileDescriptor struct {
	ID        uint64
	Index     uint64
	Timestamp int64
	Locked    bool
}

func (d fileDescriptor) encode() [descriptorSize]byte {
	var buf [descriptorSize]byte
	copy(buf[0:4], snapshotMagic[:])
	binary.BigEndian.PutUint32(buf[4:8], descriptorVersion)
	binary.BigEndian.PutUint64(buf[8:16], d.ID)
	binary.BigEndian.PutUint64(buf[16:24], d.Index)
	binary.BigEndian.PutUint64(buf[24:32], uint64(d.Timestamp))
	if d.Locked {
		buf[32] = 1
	}
	return buf
}

func decodeFileDescriptor(buf []byte) (fileDescriptor, error) {
	if len(buf) < descriptorSize || string(buf[0:4]) != string(snapshotMagic[:]) {
		return fileDescriptor{}, ErrCRCMismatch
	}
	return fileDescriptor{
		ID:        binary.BigEndian.Uint64(buf[8:16]),
		Index:     binary.BigEndian.Uint64(buf[16:24]),
		Timestamp: int64(binary.BigEndian.Uint64(buf[24:32])),
		Locked:    buf[32] != 0,
	}, nil
}
