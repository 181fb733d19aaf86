// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package partition

import (
	"fmt"
	"io"
	"os"

	"github.com/cznic/fileutil"
)

// A Store is a []byte-like model of the backing file. It carries no
// transaction boundaries (no BeginUpdate/EndUpdate/Rollback): this
// package has no journal or write-ahead log, so there is no
// structural-integrity nesting counter to maintain.
type Store interface {
	// ReadAt positions to off and reads exactly len(b) bytes. A short
	// read is always an error - there is no partial-read contract.
	ReadAt(b []byte, off int64) (n int, err error)

	// WriteAt positions to off and writes exactly len(b) bytes.
	WriteAt(b []byte, off int64) (n int, err error)

	// Size returns the current size of the store in bytes.
	Size() int64

	// Truncate grows or shrinks the store to size bytes.
	Truncate(size int64) error

	// PunchHole advises the store that the byte range [off, off+size)
	// is no longer needed. It never changes Size. Implementations may
	// treat this as a no-op; no read after a PunchHole is guaranteed
	// to return any particular content for that range.
	PunchHole(off, size int64) error

	// Name returns a caller-facing label for the store (a path, or a
	// synthetic name for in-memory stores).
	Name() string

	// Close releases any resources held by the store.
	Close() error
}

var _ Store = (*FileStore)(nil)

// FileStore is an *os.File backed Store. It is the Store used by
// cmd/partsh against a real partition image.
type FileStore struct {
	f    *os.File
	size int64
}

// OpenFileStore opens (or creates) path and returns a Store backed by
// it. The caller is responsible for deciding the size to Truncate to,
// e.g. via Open.
func OpenFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FileStore{f: f, size: fi.Size()}, nil
}

// ReadAt implements Store.
func (s *FileStore) ReadAt(b []byte, off int64) (int, error) { return s.f.ReadAt(b, off) }

// WriteAt implements Store.
func (s *FileStore) WriteAt(b []byte, off int64) (int, error) {
	n, err := s.f.WriteAt(b, off)
	if end := off + int64(n); end > s.size {
		s.size = end
	}
	return n, err
}

// Size implements Store.
func (s *FileStore) Size() int64 { return s.size }

// Truncate implements Store.
func (s *FileStore) Truncate(size int64) error {
	if size < 0 {
		return &InvalidArgError{Op: "Truncate", Arg: size}
	}

	if err := s.f.Truncate(size); err != nil {
		return err
	}

	s.size = size
	return nil
}

// PunchHole implements Store. Backed by github.com/cznic/fileutil; on
// platforms without native hole-punching support it degrades to a nop,
// matching the interface's documented contract.
func (s *FileStore) PunchHole(off, size int64) error {
	return fileutil.PunchHole(s.f, off, size)
}

// Name implements Store.
func (s *FileStore) Name() string { return s.f.Name() }

// Close implements Store.
func (s *FileStore) Close() error { return s.f.Close() }

func readExact(s Store, b []byte, off int64) error {
	n, err := s.ReadAt(b, off)
	if n != len(b) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("partition: short read at offset %#x: %w", off, err)
	}
	return nil
}

func writeExact(s Store, b []byte, off int64) error {
	n, err := s.WriteAt(b, off)
	if n != len(b) {
		if err == nil {
			err = io.ErrShortWrite
		}
		return fmt.Errorf("partition: short write at offset %#x: %w", off, err)
	}
	return nil
}
