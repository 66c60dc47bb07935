package raftpb

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrShortBuffer is returned by Unmarshal when the source buffer is
// truncated mid-record.
var ErrShortBuffer = errors.New("raftpb: short buffer")

// Marshal encodes an Entry to a flat byte slice:
//
//	index:8 | term:8 | type:1 | timestamp:8 | data-len:4 | data
//
// (grounds the framing used by raft/raftpb/message_binary_encoder_decoder.go,
// generalized from Message to Entry since this module has no protobuf
// toolchain to generate Size()/Marshal()/Unmarshal() from a .proto file)
func (e Entry) Marshal() []byte {
	buf := make([]byte, 8+8+1+8+4+len(e.Data))
	binary.BigEndian.PutUint64(buf[0:8], e.Index)
	binary.BigEndian.PutUint64(buf[8:16], e.Term)
	buf[16] = byte(e.Type)
	binary.BigEndian.PutUint64(buf[17:25], uint64(e.Timestamp))
	binary.BigEndian.PutUint32(buf[25:29], uint32(len(e.Data)))
	copy(buf[29:], e.Data)
	return buf
}

// Size returns the encoded length of e, without allocating.
func (e Entry) Size() int {
	return 8 + 8 + 1 + 8 + 4 + len(e.Data)
}

// Unmarshal decodes an Entry from src, returning the number of bytes
// consumed.
func (e *Entry) Unmarshal(src []byte) (int, error) {
	if len(src) < 29 {
		return 0, ErrShortBuffer
	}
	e.Index = binary.BigEndian.Uint64(src[0:8])
	e.Term = binary.BigEndian.Uint64(src[8:16])
	e.Type = EntryType(src[16])
	e.Timestamp = int64(binary.BigEndian.Uint64(src[17:25]))
	dataLen := int(binary.BigEndian.Uint32(src[25:29]))
	if len(src) < 29+dataLen {
		return 0, ErrShortBuffer
	}
	if dataLen > 0 {
		e.Data = make([]byte, dataLen)
		copy(e.Data, src[29:29+dataLen])
	} else {
		e.Data = nil
	}
	return 29 + dataLen, nil
}

// EntryBinaryEncoder writes length-prefixed Entry records to w, mirroring
// the teacher's MessageBinaryEncoder framing (8-byte big-endian length
// prefix followed by the marshaled payload).
//
// (etcd rafthttp.messageEncoder, raft/raftpb/message_binary_encoder_decoder.go)
type EntryBinaryEncoder struct {
	w io.Writer
}

// NewEntryBinaryEncoder returns an encoder writing to w.
func NewEntryBinaryEncoder(w io.Writer) *EntryBinaryEncoder {
	return &EntryBinaryEncoder{w: w}
}

// Encode writes one length-prefixed Entry.
func (enc *EntryBinaryEncoder) Encode(e Entry) error {
	bts := e.Marshal()
	if err := binary.Write(enc.w, binary.BigEndian, uint64(len(bts))); err != nil {
		return err
	}
	_, err := enc.w.Write(bts)
	return err
}

// EntryBinaryDecoder reads length-prefixed Entry records from r.
type EntryBinaryDecoder struct {
	r io.Reader
}

// NewEntryBinaryDecoder returns a decoder reading from r.
func NewEntryBinaryDecoder(r io.Reader) *EntryBinaryDecoder {
	return &EntryBinaryDecoder{r: r}
}

// Decode reads and decodes the next length-prefixed Entry.
func (dec *EntryBinaryDecoder) Decode() (Entry, error) {
	var n uint64
	if err := binary.Read(dec.r, binary.BigEndian, &n); err != nil {
		return Entry{}, err
	}
	src := make([]byte, int(n))
	if _, err := io.ReadFull(dec.r, src); err != nil {
		return Entry{}, err
	}
	var e Entry
	if _, err := e.Unmarshal(src); err != nil {
		return Entry{}, err
	}
	return e, nil
}
