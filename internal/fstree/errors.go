package fstree

import "fmt"

// NameError reports a name that can never be accepted: empty, too long,
// or one of the reserved "." / ".." entries.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("fstree: invalid name %q: %s", e.Name, e.Reason)
}

// ConflictError reports an attempt to create or rename an entry onto a
// name already used by another entry of the same kind in the same
// directory.
type ConflictError struct {
	Name string
	Kind string // "directory" or "file"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("fstree: %s %q already exists", e.Kind, e.Name)
}

// NotFoundError reports a lookup for an entry that isn't present.
type NotFoundError struct {
	Name string
	Kind string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("fstree: %s %q does not exist", e.Kind, e.Name)
}

// ErrAlreadyAtRoot is returned by Chdir("..") at the root directory.
type rootError struct{}

func (rootError) Error() string { return "fstree: already at root" }

// ErrAlreadyAtRoot reports that Chdir("..") was attempted on the root.
var ErrAlreadyAtRoot error = rootError{}
