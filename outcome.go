package querycache

import (
	"errors"
	"reflect"
)

// Outcome is implemented by values that carry a success/failure flag.
// A cached value reporting IsSuccess()==false is written with
// Settings.FailureExpiration (negative caching). Values that do not
// implement Outcome are always treated as successes.
type Outcome interface {
	IsSuccess() bool
}

// isFailure checks both T and *T so pointer-receiver implementations count.
func isFailure[T any](v T) bool {
	if o, ok := any(v).(Outcome); ok {
		rv := reflect.ValueOf(o)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return false
		}
		return !o.IsSuccess()
	}
	if o, ok := any(&v).(Outcome); ok {
		return !o.IsSuccess()
	}
	return false
}

// Result is a serializable success/failure envelope for query results that
// should be negatively cached.
type Result[T any] struct {
	Value T      `json:"value,omitempty" msgpack:"value,omitempty" cbor:"value,omitempty"`
	Error string `json:"error,omitempty" msgpack:"error,omitempty" cbor:"error,omitempty"`
	OK    bool   `json:"ok" msgpack:"ok" cbor:"ok"`
}

func Success[T any](v T) Result[T] { return Result[T]{Value: v, OK: true} }

func Failure[T any](msg string) Result[T] { return Result[T]{Error: msg} }

func (r Result[T]) IsSuccess() bool { return r.OK }

// Err returns the failure as an error, nil on success.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return errors.New("querycache: failed result")
	}
	return errors.New(r.Error)
}
