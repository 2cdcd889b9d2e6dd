// Package wire frames remote-tier entries. The remote tier is shared across
// processes, so every entry carries a magic header, a format version and a
// write timestamp; anything failing validation is treated as corrupt and
// deleted by the reader.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("tiercache: corrupt remote entry")
	magic4     = [...]byte{'T', 'I', 'E', 'R'}
)

const hdrLen = 4 + 1 + 1 + 8 + 4

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | ver(1) | reserved(1) | writtenAt unix-nano (u64 be) | vlen(u32 be) | payload(vlen)
func EncodeEntry(payload []byte, writtenAt time.Time) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(0) // reserved

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(writtenAt.UnixNano()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeEntry(b []byte) (payload []byte, writtenAt time.Time, err error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return nil, time.Time{}, ErrCorrupt
	}

	off := 6

	nanos := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4

	// strict framing: the declared length must account for every byte
	if vlen != len(b)-off {
		return nil, time.Time{}, ErrCorrupt
	}

	return b[off : off+vlen], time.Unix(0, int64(nanos)), nil
}
