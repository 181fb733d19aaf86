// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package partition

// lookRight returns the BlockID of id's physical right neighbor, or
// NullBlock if id is the last block in the data area. It is the single
// authority on block size: every other part of this package that needs
// "how big is this block, physically" goes through here rather than
// re-deriving the header/payload arithmetic independently.
func (p *Partition) lookRight(id BlockID) (BlockID, error) {
	h, err := p.readHeader(id)
	if err != nil {
		return NullBlock, err
	}

	next := id + BlockID(h.occupied())
	if next >= p.dataAreaEnd() {
		return NullBlock, nil
	}

	return next, nil
}

// lookLeft returns the BlockID of id's physical left neighbor by
// scanning forward from the start of the data area. It is linear in
// the number of blocks preceding id and is used only inside Free. If id
// is the first block in the data area, lookLeft returns NullBlock. If
// the scan never reaches id, the data area is corrupt.
func (p *Partition) lookLeft(id BlockID) (BlockID, error) {
	if id == dataAreaStart {
		return NullBlock, nil
	}

	cur := dataAreaStart
	for {
		next, err := p.lookRight(cur)
		if err != nil {
			return NullBlock, err
		}

		if next == id {
			return cur, nil
		}

		if next == NullBlock {
			return NullBlock, &CorruptionError{
				Off:    int64(id),
				Reason: "lookLeft: scan reached end of data area without finding id",
			}
		}

		cur = next
	}
}
