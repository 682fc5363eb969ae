package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1

	flagFailure byte = 1 << 0

	hdrLen = 4 + 1 + 1 + 8 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("querycache: corrupt entry")
	magic4     = [...]byte{'Q', 'C', 'A', 'C'}
)

// Entry is a framed cache value as stored in a provider.
type Entry struct {
	Gen       uint64
	WrittenAt time.Time
	TTL       time.Duration // <= 0 => no expiry
	Failure   bool          // payload encodes a failure outcome
	Payload   []byte
}

// Expired reports whether the entry outlived its TTL at now.
func (e Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return !now.Before(e.WrittenAt.Add(e.TTL))
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames e:
//
//	magic(4) | ver(1) | flags(1) | gen(u64 be) | writtenAt(unix nano, u64 be) | ttl(ns, u64 be) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var flags byte
	if e.Failure {
		flags |= flagFailure
	}
	buf.WriteByte(flags)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], e.Gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(e.WrittenAt.UnixNano()))
	buf.Write(u8[:])

	ttl := e.TTL
	if ttl < 0 {
		ttl = 0
	}
	binary.BigEndian.PutUint64(u8[:], uint64(ttl))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

// Decode parses a framed entry. Payload aliases b.
func Decode(b []byte) (Entry, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	flags := b[5]
	if flags&^flagFailure != 0 {
		return Entry{}, ErrCorrupt
	}

	off := 6
	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	written := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	ttl := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	if ttl > uint64(1<<63-1) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4

	// strict framing: no trailing bytes
	if vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}

	return Entry{
		Gen:       gen,
		WrittenAt: time.Unix(0, written),
		TTL:       time.Duration(ttl),
		Failure:   flags&flagFailure != 0,
		Payload:   b[off : off+vlen],
	}, nil
}
