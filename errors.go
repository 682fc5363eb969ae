package querycache

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyKey        = errors.New("querycache: key is required")
	ErrNilFactory      = errors.New("querycache: factory is required")
	ErrInvalidSettings = errors.New("querycache: invalid settings")
	ErrClosed          = errors.New("querycache: cache is closed")

	// ErrUnsupported is returned by tag removals when no tag index is
	// configured. It matches errors.ErrUnsupported.
	ErrUnsupported = fmt.Errorf("querycache: tag-based removal not supported by the configured backend: %w", errors.ErrUnsupported)
)

// SerializationError reports stored bytes that cannot be decoded as the
// requested type (or a value that cannot be encoded). It is never turned
// into a miss: it usually means schema drift or two types sharing a key.
type SerializationError struct {
	Key string
	Op  string // "encode" | "decode"
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("querycache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// BackendError wraps a failure of the provider or tag index. A failed lookup
// is a BackendError, not a miss.
type BackendError struct {
	Op  string // "get" | "gen" | "set" | "del" | "tag" | "untag" | "remove_tag"
	Key string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("querycache: backend %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// RemoveError reports a key that could not be fully removed.
type RemoveError struct {
	Key      string
	BumpErr  error
	DelErr   error
	UntagErr error
}

func (e *RemoveError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("remove %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.DelErr != nil && e.UntagErr != nil:
		return fmt.Sprintf("remove %q failed: delete=%v; untag=%v", e.Key, e.DelErr, e.UntagErr)
	case e.DelErr != nil:
		return fmt.Sprintf("remove %q: delete failed: %v", e.Key, e.DelErr)
	case e.UntagErr != nil:
		return fmt.Sprintf("remove %q: untag failed: %v", e.Key, e.UntagErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("remove %q: gen bump failed: %v", e.Key, e.BumpErr)
	default:
		return fmt.Sprintf("remove %q: unknown error", e.Key)
	}
}

func (e *RemoveError) Unwrap() []error {
	errs := make([]error, 0, 3)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	if e.UntagErr != nil {
		errs = append(errs, e.UntagErr)
	}
	return errs
}
