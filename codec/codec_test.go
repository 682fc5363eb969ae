package codec

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type user struct {
	ID    string   `json:"id" msgpack:"id" cbor:"id"`
	Name  string   `json:"name" msgpack:"name" cbor:"name"`
	Roles []string `json:"roles" msgpack:"roles" cbor:"roles"`
	Age   int      `json:"age" msgpack:"age" cbor:"age"`
}

func roundTrip[V any](t *testing.T, s Serializer, v V) V {
	t.Helper()
	c := For[V](s)
	b, err := c.Encode(v)
	if err != nil {
		t.Fatalf("%T encode: %v", s, err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("%T decode: %v", s, err)
	}
	return got
}

func TestStructRoundTrip(t *testing.T) {
	in := user{ID: "42", Name: "Ada", Roles: []string{"admin", "ops"}, Age: 36}
	for _, s := range []Serializer{JSON{}, Msgpack{}, MustCBOR(false), MustCBOR(true)} {
		got := roundTrip(t, s, in)
		if !reflect.DeepEqual(got, in) {
			t.Fatalf("%T: got %+v want %+v", s, got, in)
		}
	}
}

func TestScalarAndSliceRoundTrip(t *testing.T) {
	for _, s := range []Serializer{JSON{}, Msgpack{}, MustCBOR(false)} {
		if got := roundTrip(t, s, 7); got != 7 {
			t.Fatalf("%T int: got %d", s, got)
		}
		if got := roundTrip(t, s, "hello"); got != "hello" {
			t.Fatalf("%T string: got %q", s, got)
		}
		ids := []int64{1, 2, 3}
		if got := roundTrip(t, s, ids); !reflect.DeepEqual(got, ids) {
			t.Fatalf("%T slice: got %v", s, got)
		}
		m := map[string]int{"a": 1}
		if got := roundTrip(t, s, m); !reflect.DeepEqual(got, m) {
			t.Fatalf("%T map: got %v", s, got)
		}
	}
}

func TestPointerRoundTrip(t *testing.T) {
	in := &user{ID: "p", Name: "Ptr"}
	got := roundTrip(t, JSON{}, in)
	if got == nil || !reflect.DeepEqual(*got, *in) {
		t.Fatalf("pointer round trip: got %+v", got)
	}
}

func TestCBORDeterministic(t *testing.T) {
	s := MustCBOR(true)
	m := map[string]int{"z": 1, "a": 2, "m": 3}
	b1, err := s.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := s.Marshal(map[string]int{"m": 3, "z": 1, "a": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("deterministic CBOR should produce identical bytes")
	}
}

func TestProtobufRoundTrip(t *testing.T) {
	in := wrapperspb.String("cached")
	got := roundTrip[*wrapperspb.StringValue](t, Protobuf{}, in)
	if !proto.Equal(got, in) {
		t.Fatalf("protobuf: got %v want %v", got, in)
	}
}

func TestProtobufRejectsNonMessage(t *testing.T) {
	if _, err := (Protobuf{}).Marshal(user{}); err == nil {
		t.Fatalf("expected error marshaling non-message")
	}
	var u user
	if err := (Protobuf{}).Unmarshal([]byte{}, &u); err == nil {
		t.Fatalf("expected error unmarshaling into non-message")
	}
}

func TestRaw(t *testing.T) {
	if got := roundTrip(t, Raw{}, "plain"); got != "plain" {
		t.Fatalf("raw string: got %q", got)
	}
	if got := roundTrip(t, Raw{}, []byte{1, 2, 3}); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("raw bytes: got %v", got)
	}
	if _, err := (Raw{}).Marshal(42); err == nil {
		t.Fatalf("raw should reject non byte/string values")
	}
	var n int
	if err := (Raw{}).Unmarshal([]byte("1"), &n); err == nil {
		t.Fatalf("raw should reject non byte/string targets")
	}
}

func TestLimit(t *testing.T) {
	l := Limit{Inner: JSON{}, MaxDecode: 8}
	b, err := l.Marshal(strings.Repeat("x", 32))
	if err != nil {
		t.Fatalf("marshal forwards unchanged: %v", err)
	}
	var s string
	err = l.Unmarshal(b, &s)
	if err == nil || !strings.Contains(err.Error(), "payload too large") {
		t.Fatalf("expected payload too large, got %v", err)
	}

	small, _ := l.Marshal("ok")
	if err := l.Unmarshal(small, &s); err != nil || s != "ok" {
		t.Fatalf("small payload: s=%q err=%v", s, err)
	}

	unlimited := Limit{Inner: JSON{}}
	if err := unlimited.Unmarshal(b, &s); err != nil {
		t.Fatalf("MaxDecode<=0 disables limiting: %v", err)
	}
}

func TestDecodeMismatchErrors(t *testing.T) {
	b, _ := JSON{}.Marshal("not-a-struct")
	if _, err := For[user](JSON{}).Decode(b); err == nil {
		t.Fatalf("expected error decoding string into struct")
	}
}
