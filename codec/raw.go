package codec

import "fmt"

// Raw is an identity Serializer for []byte and string values.
// Any other type is rejected.
type Raw struct{}

func (Raw) Marshal(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("codec: raw cannot marshal %T", v)
	}
}

func (Raw) Unmarshal(b []byte, v any) error {
	switch p := v.(type) {
	case *[]byte:
		*p = append((*p)[:0], b...)
		return nil
	case *string:
		*p = string(b)
		return nil
	default:
		return fmt.Errorf("codec: raw cannot unmarshal into %T", v)
	}
}
