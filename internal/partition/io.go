// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package partition

// Load copies len(dst) bytes from the payload of the block at id into
// dst. There is no bounds check against the block's declared payload
// size; the caller is trusted to know how much it wrote.
func (p *Partition) Load(id BlockID, dst []byte) error {
	if !id.Valid() {
		return &InvalidArgError{Op: "Load", Arg: int64(id)}
	}

	return readExact(p.store, dst, int64(id)+blockHeaderSize)
}

// Save overwrites the payload of the block at id with src, starting at
// the payload's first byte.
func (p *Partition) Save(id BlockID, src []byte) error {
	if !id.Valid() {
		return &InvalidArgError{Op: "Save", Arg: int64(id)}
	}

	return writeExact(p.store, src, int64(id)+blockHeaderSize)
}
