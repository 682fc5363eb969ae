package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// Protobuf serializes proto.Message values. Values are typically pointer
// messages (T = *mypb.User); Unmarshal allocates the message when handed a
// pointer to a nil message pointer.
type Protobuf struct {
	MarshalOpts   proto.MarshalOptions
	UnmarshalOpts proto.UnmarshalOptions
}

func (p Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: %T is not a proto.Message", v)
	}
	return p.MarshalOpts.Marshal(m)
}

func (p Protobuf) Unmarshal(b []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return p.UnmarshalOpts.Unmarshal(b, m)
	}
	// **Msg: allocate the message and unmarshal into it.
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("codec: cannot unmarshal into %T", v)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Ptr {
		return fmt.Errorf("codec: %T is not a proto.Message", elem.Interface())
	}
	if elem.IsNil() {
		elem.Set(reflect.New(elem.Type().Elem()))
	}
	m, ok := elem.Interface().(proto.Message)
	if !ok {
		return fmt.Errorf("codec: %T is not a proto.Message", elem.Interface())
	}
	return p.UnmarshalOpts.Unmarshal(b, m)
}
