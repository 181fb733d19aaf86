// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package partition

// ReclaimFreeSpace advises the backing Store that the payload of every
// free block at least minBytes long is safe to discard at the storage
// layer via PunchHole. It never changes any block's header, size, or
// list membership: PunchHole is purely an advisory hint to the OS,
// matching the Store contract. Returns the number of blocks advised.
func (p *Partition) ReclaimFreeSpace(minBytes int64) (int, error) {
	advised := 0
	cur := p.desc.freeHead
	for cur != NullBlock {
		h, err := p.readHeader(cur)
		if err != nil {
			return advised, err
		}

		if h.size >= minBytes {
			payloadOff := int64(cur) + blockHeaderSize
			payloadLen := h.size - blockHeaderSize
			if payloadLen > 0 {
				if err := p.store.PunchHole(payloadOff, payloadLen); err != nil {
					return advised, err
				}
				advised++
			}
		}

		cur = h.next
	}

	p.tracef("reclaim", p.desc.freeHead, "advised=%d minBytes=%d", advised, minBytes)
	return advised, nil
}
