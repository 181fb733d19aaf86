// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A memory-only implementation of Store, for use in the allocator's
// property/stress tests where spinning up real files would dominate
// test run time.

package partition

import "io"

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store. It exists for tests: the randomized
// invariant checks in partition_test.go run thousands of
// allocate/free/resize cycles and gain nothing from real disk I/O.
type MemStore struct {
	buf  []byte
	name string
}

// NewMemStore returns an empty MemStore.
func NewMemStore(name string) *MemStore {
	return &MemStore{name: name}
}

// ReadAt implements Store.
func (m *MemStore) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.buf)) {
		return 0, &InvalidArgError{Op: "MemStore.ReadAt", Arg: off}
	}

	n := copy(b, m.buf[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements Store.
func (m *MemStore) WriteAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &InvalidArgError{Op: "MemStore.WriteAt", Arg: off}
	}

	end := off + int64(len(b))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}

	return copy(m.buf[off:end], b), nil
}

// Size implements Store.
func (m *MemStore) Size() int64 { return int64(len(m.buf)) }

// Truncate implements Store.
func (m *MemStore) Truncate(size int64) error {
	if size < 0 {
		return &InvalidArgError{Op: "MemStore.Truncate", Arg: size}
	}

	switch {
	case size <= int64(len(m.buf)):
		m.buf = m.buf[:size]
	default:
		grown := make([]byte, size)
		copy(grown, m.buf)
		m.buf = grown
	}
	return nil
}

// PunchHole implements Store. A MemStore has no notion of sparse
// backing, so this is a documented nop.
func (m *MemStore) PunchHole(off, size int64) error { return nil }

// Name implements Store.
func (m *MemStore) Name() string { return m.name }

// Close implements Store.
func (m *MemStore) Close() error { return nil }
