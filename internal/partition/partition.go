// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package partition

import (
	"github.com/sirupsen/logrus"
)

// defaultSplitThreshold is the minimum residual, in bytes, an
// allocation's leftover free space must have to be worth keeping as its
// own free block. Smaller residuals are absorbed whole: the header
// overhead of keeping them separate would exceed what they could ever
// satisfy.
const defaultSplitThreshold = 512

// Option configures a Partition at Open time.
type Option func(*Partition)

// WithLogger attaches a logrus.Logger that receives Debug-level traces
// of allocator activity: block ids and sizes around allocate, free,
// and resize. Without this option, or with a nil logger, traces are
// discarded.
func WithLogger(l *logrus.Logger) Option {
	return func(p *Partition) {
		if l != nil {
			p.log = l
		}
	}
}

// WithSplitThreshold overrides the default 512-byte split/absorb
// threshold.
func WithSplitThreshold(n int64) Option {
	return func(p *Partition) { p.splitThreshold = n }
}

// Partition is an open handle on a block-based storage partition. It
// owns a Store and a cached copy of the partition descriptor. A
// Partition is not safe for concurrent use: callers needing concurrent
// access must serialize calls with their own locking.
type Partition struct {
	store          Store
	desc           descriptor
	log            *logrus.Logger
	splitThreshold int64
}

// Open opens an existing partition on store, or creates a fresh one of
// numBytes usable data-area bytes if store is empty. numBytes is
// ignored when loading an existing partition.
func Open(store Store, numBytes int64, opts ...Option) (*Partition, error) {
	if numBytes < 0 {
		return nil, &InvalidArgError{Op: "Open", Arg: numBytes}
	}

	p := &Partition{
		store:          store,
		log:            discardLogger(),
		splitThreshold: defaultSplitThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}

	if store.Size() == 0 {
		if err := p.create(numBytes); err != nil {
			return nil, err
		}
		return p, nil
	}

	if err := p.loadDescriptor(); err != nil {
		return nil, err
	}

	return p, nil
}

// OpenFile is a convenience wrapper combining OpenFileStore and Open
// for the common case of a partition backed by a path on disk.
func OpenFile(path string, numBytes int64, opts ...Option) (*Partition, error) {
	store, err := OpenFileStore(path)
	if err != nil {
		return nil, err
	}

	p, err := Open(store, numBytes, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	return p, nil
}

func (p *Partition) create(numBytes int64) error {
	total := int64(dataAreaStart) + numBytes
	if err := p.store.Truncate(total); err != nil {
		return err
	}

	p.desc = descriptor{
		partitionSize: numBytes,
		freeHead:      dataAreaStart,
		allocHead:     NullBlock,
		rootDir:       NullBlock,
	}
	if err := p.writeDescriptor(); err != nil {
		return err
	}

	if numBytes == 0 {
		return nil
	}

	h := blockHeader{magic: magicFree, size: numBytes, prev: NullBlock, next: NullBlock}
	return p.writeHeader(dataAreaStart, h)
}

func (p *Partition) loadDescriptor() error {
	var b [descriptorSize]byte
	if err := readExact(p.store, b[:], 0); err != nil {
		return err
	}

	p.desc = decodeDescriptor(b[:])
	return nil
}

func (p *Partition) writeDescriptor() error {
	b := p.desc.encode()
	return writeExact(p.store, b[:], 0)
}

// GetRoot returns the opaque root-directory id last saved via SaveRoot,
// or NullBlock if none has been saved yet.
func (p *Partition) GetRoot() BlockID { return p.desc.rootDir }

// SaveRoot persists id as the partition's root-directory id. The
// allocator never interprets id; it is opaque storage for the overlay.
func (p *Partition) SaveRoot(id BlockID) error {
	p.desc.rootDir = id
	return p.writeDescriptor()
}

// Close releases the underlying Store.
func (p *Partition) Close() error { return p.store.Close() }

func (p *Partition) readHeader(id BlockID) (blockHeader, error) {
	var b [blockHeaderSize]byte
	if err := readExact(p.store, b[:], int64(id)); err != nil {
		return blockHeader{}, err
	}

	return decodeHeader(b[:]), nil
}

func (p *Partition) writeHeader(id BlockID, h blockHeader) error {
	b := h.encode()
	return writeExact(p.store, b[:], int64(id))
}

func (p *Partition) dataAreaEnd() BlockID {
	return dataAreaStart + BlockID(p.desc.partitionSize)
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(b []byte) (int, error) { return len(b), nil }

func (p *Partition) tracef(op string, id BlockID, format string, args ...interface{}) {
	p.log.WithFields(logrus.Fields{"op": op, "block_id": int64(id)}).Debugf(format, args...)
}
