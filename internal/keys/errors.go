package keys

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Manager matches exactly one of them
// under errors.Is.
var (
	ErrPattern           = errors.New("invalid filter pattern")
	ErrLocalFileNotFound = errors.New("local file not found")
	ErrInvalidKey        = errors.New("invalid object key")
	ErrStoreAccess       = errors.New("store access denied")
	ErrStore             = errors.New("store failure")
)

// Error carries the operation context of a failed Manager call.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	target := e.Bucket
	if e.Key != "" {
		target = e.Bucket + "/" + e.Key
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, target, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, target, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the taxonomy sentinel of err, or nil when err did not come
// from a Manager.
func Kind(err error) error {
	var keyErr *Error
	if errors.As(err, &keyErr) {
		return keyErr.Kind
	}
	return nil
}
