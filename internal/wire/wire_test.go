package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func mustDecode(t *testing.T, b []byte) Entry {
	t.Helper()
	e, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return e
}

func TestRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 123456789)
	cases := []Entry{
		{Gen: 0, WrittenAt: now, TTL: 0, Payload: nil},
		{Gen: 42, WrittenAt: now, TTL: time.Minute, Payload: []byte("hello")},
		{Gen: math.MaxUint64, WrittenAt: now, TTL: 5 * time.Second, Failure: true, Payload: []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		got := mustDecode(t, Encode(tc))
		if got.Gen != tc.Gen {
			t.Fatalf("gen mismatch: got %d want %d", got.Gen, tc.Gen)
		}
		if !got.WrittenAt.Equal(tc.WrittenAt) {
			t.Fatalf("writtenAt mismatch: got %v want %v", got.WrittenAt, tc.WrittenAt)
		}
		if got.TTL != tc.TTL {
			t.Fatalf("ttl mismatch: got %v want %v", got.TTL, tc.TTL)
		}
		if got.Failure != tc.Failure {
			t.Fatalf("failure flag mismatch: got %v want %v", got.Failure, tc.Failure)
		}
		if !bytes.Equal(got.Payload, tc.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, tc.Payload)
		}
	}
}

func TestNegativeTTLStoredAsNoExpiry(t *testing.T) {
	got := mustDecode(t, Encode(Entry{WrittenAt: time.Now(), TTL: -time.Second}))
	if got.TTL != 0 {
		t.Fatalf("negative ttl should frame as 0, got %v", got.TTL)
	}
}

func TestRejectsTrailingBytes(t *testing.T) {
	enc := Encode(Entry{Gen: 7, WrittenAt: time.Now(), Payload: []byte("x")})
	enc = append(enc, 0xDE, 0xAD)
	if _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestCorruptHeadersAndLengths(t *testing.T) {
	enc := Encode(Entry{Gen: 1, WrittenAt: time.Now(), TTL: time.Minute, Payload: []byte("abc")})

	// bad magic
	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	// wrong version
	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	// unknown flag bits
	badFlags := append([]byte(nil), enc...)
	badFlags[5] = 0x80
	if _, err := Decode(badFlags); err == nil {
		t.Fatalf("expected error on unknown flags")
	}

	// vlen announces more than available; vlen sits right before the payload
	tooLong := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(tooLong[hdrLen-4:hdrLen], uint32(len("abc")+1))
	if _, err := Decode(tooLong); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	// ttl overflowing int64
	badTTL := append([]byte(nil), enc...)
	binary.BigEndian.PutUint64(badTTL[22:30], math.MaxUint64)
	if _, err := Decode(badTTL); err == nil {
		t.Fatalf("expected error on ttl overflow")
	}

	// truncated buffer
	if _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
	if _, err := Decode(enc[:hdrLen-1]); err == nil {
		t.Fatalf("expected error on truncated header")
	}
	if _, err := Decode([]byte("not-wire-format")); err == nil {
		t.Fatalf("expected error on foreign bytes")
	}
}

func TestZeroCopyPayload(t *testing.T) {
	enc := Encode(Entry{Gen: 1, WrittenAt: time.Now(), Payload: []byte("Z")})
	e := mustDecode(t, enc)
	// mutate payload slice. should mutate underlying enc bytes (zero-copy)
	e.Payload[0] = 'Q'
	if mustDecode(t, enc).Payload[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}

func TestExpired(t *testing.T) {
	w := time.Unix(1000, 0)
	e := Entry{WrittenAt: w, TTL: 10 * time.Second}
	if e.Expired(w.Add(9 * time.Second)) {
		t.Fatalf("entry should be live before ttl")
	}
	if !e.Expired(w.Add(10 * time.Second)) {
		t.Fatalf("entry should be expired at ttl")
	}
	noTTL := Entry{WrittenAt: w}
	if noTTL.Expired(w.Add(1000 * time.Hour)) {
		t.Fatalf("entry without ttl never expires")
	}
}
