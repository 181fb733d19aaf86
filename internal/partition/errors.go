package partition

import (
	"errors"
	"fmt"
)

// ErrOutOfSpace is returned by Allocate and Resize when the free list has
// no block big enough to satisfy the request and the caller has no way
// to grow the backing store itself.
var ErrOutOfSpace = errors.New("partition: out of space")

// InvalidArgError reports a caller-supplied argument that can never
// succeed: a handle out of range, a negative size, and the like. It is
// the "user-recoverable" error class of the design — callers should
// report it and continue.
type InvalidArgError struct {
	Op  string
	Arg interface{}
}

func (e *InvalidArgError) Error() string {
	return fmt.Sprintf("partition: %s: invalid argument %v", e.Op, e.Arg)
}

// CorruptionError reports a violated structural invariant: a free-list
// head whose magic says ALLOCATED, a block tagged as something other
// than the two known magics, a Free call targeting a block already on
// the free list. The design treats these as fatal; a CorruptionError is
// the typed form of that fatality, left to the caller (normally only
// cmd/partsh) to turn into a process exit.
type CorruptionError struct {
	Off    int64
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("partition: corrupt at offset %#x: %s", e.Off, e.Reason)
}

// IsCorruption reports whether err is (or wraps) a *CorruptionError.
func IsCorruption(err error) bool {
	var c *CorruptionError
	return errors.As(err, &c)
}
