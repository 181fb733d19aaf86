// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The storage space management: first-fit allocation with split/absorb,
// and eager total coalescing on free. The free list is kept as a
// single list ordered by ascending block offset, which is what makes
// coalescing a cheap check against the physical left/right neighbor
// rather than a scan over size-class buckets.

package partition

import "github.com/cznic/mathutil"

// Allocate carves a new ALLOCATED block able to hold request bytes of
// payload and returns its BlockID. Allocate never returns NullBlock on
// success.
func (p *Partition) Allocate(request int64) (BlockID, error) {
	if request < 0 {
		return NullBlock, &InvalidArgError{Op: "Allocate", Arg: request}
	}

	need := blockHeaderSize + request
	pos, pred, victim, err := p.findFit(need)
	if err != nil {
		return NullBlock, err
	}

	if pos == NullBlock {
		return NullBlock, ErrOutOfSpace
	}

	residual := victim.size - need
	var payload int64
	if residual >= p.splitThreshold {
		if err := p.splitFree(pos, pred, victim, need, residual); err != nil {
			return NullBlock, err
		}
		payload = request
	} else {
		if err := p.spliceFreeList(pred, victim.next); err != nil {
			return NullBlock, err
		}
		payload = victim.size - blockHeaderSize
	}

	if err := p.prependAllocated(pos, payload); err != nil {
		return NullBlock, err
	}

	p.tracef("allocate", pos, "request=%d payload=%d split=%t", request, payload, residual >= p.splitThreshold)
	return pos, nil
}

// findFit walks the free list from freeHead and returns the first node
// (and its predecessor) whose size is big enough for need bytes. pos is
// NullBlock if no fit exists.
func (p *Partition) findFit(need int64) (pos, pred BlockID, victim blockHeader, err error) {
	cur := p.desc.freeHead
	pred = NullBlock
	for cur != NullBlock {
		h, e := p.readHeader(cur)
		if e != nil {
			return NullBlock, NullBlock, blockHeader{}, e
		}

		if !h.isFree() {
			return NullBlock, NullBlock, blockHeader{}, &CorruptionError{
				Off: int64(cur), Reason: "free list node is not tagged FREE",
			}
		}

		if h.size >= need {
			return cur, pred, h, nil
		}

		pred = cur
		cur = h.next
	}

	return NullBlock, NullBlock, blockHeader{}, nil
}

// splitFree carves a need-byte block out of the low end of the free
// block at pos (whose header is victim, between pred and victim.next
// on the free list) and leaves the residual as a new, smaller free
// block at pos+need.
func (p *Partition) splitFree(pos, pred BlockID, victim blockHeader, need, residual int64) error {
	freeID := pos + BlockID(need)
	remainder := blockHeader{magic: magicFree, size: residual, prev: pred, next: victim.next}
	if err := p.writeHeader(freeID, remainder); err != nil {
		return err
	}

	return p.linkFreeBetween(pred, freeID, victim.next)
}

// prependAllocated writes a new ALLOCATED header at pos with the given
// payload size and makes it the new allocHead. The allocated list
// carries no ordering invariant, so prepending is always O(1).
func (p *Partition) prependAllocated(pos BlockID, payload int64) error {
	oldHead := p.desc.allocHead
	h := blockHeader{magic: magicAllocated, size: payload, prev: NullBlock, next: oldHead}
	if err := p.writeHeader(pos, h); err != nil {
		return err
	}

	if oldHead != NullBlock {
		if err := p.setPrev(oldHead, pos); err != nil {
			return err
		}
	}

	p.desc.allocHead = pos
	return p.writeDescriptor()
}

// Free deallocates the block at id, coalescing it with any free
// physical neighbors. After Free returns, id must not be used.
func (p *Partition) Free(id BlockID) error {
	if !id.Valid() {
		return &InvalidArgError{Op: "Free", Arg: int64(id)}
	}

	h, err := p.readHeader(id)
	if err != nil {
		return err
	}

	if !h.isAllocated() {
		return &CorruptionError{Off: int64(id), Reason: "Free: block is not tagged ALLOCATED"}
	}

	if err := p.unlinkAllocated(id, h.prev, h.next); err != nil {
		return err
	}

	p.tracef("free", id, "payload=%d", h.size)
	return p.free2(id, h.size)
}

func (p *Partition) unlinkAllocated(id, prev, next BlockID) error {
	if prev == NullBlock {
		p.desc.allocHead = next
		if err := p.writeDescriptor(); err != nil {
			return err
		}
	} else if err := p.setNext(prev, next); err != nil {
		return err
	}

	if next != NullBlock {
		if err := p.setPrev(next, prev); err != nil {
			return err
		}
	}

	return nil
}

// free2 turns id, with the given payload length, into a free block and
// coalesces it with whichever of its physical neighbors are free.
func (p *Partition) free2(id BlockID, payload int64) error {
	newSize := blockHeaderSize + payload

	left, err := p.lookLeft(id)
	if err != nil {
		return err
	}

	var lh blockHeader
	leftFree := false
	if left != NullBlock {
		if lh, err = p.readHeader(left); err != nil {
			return err
		}
		leftFree = lh.isFree()
	}

	right, err := p.lookRight(id)
	if err != nil {
		return err
	}

	var rh blockHeader
	rightFree := false
	if right != NullBlock {
		if rh, err = p.readHeader(right); err != nil {
			return err
		}
		rightFree = rh.isFree()
	}

	switch {
	case leftFree && rightFree:
		return p.coalesceBoth(left, lh, newSize, rh)
	case leftFree && !rightFree:
		return p.coalesceLeft(left, lh, newSize)
	case !leftFree && rightFree:
		return p.coalesceRight(id, right, rh, newSize)
	default:
		return p.insertFree(id, newSize)
	}
}

// coalesceBoth merges a newly-freed run with free neighbors on both
// sides into a single free block rooted at the left neighbor's id.
func (p *Partition) coalesceBoth(left BlockID, lh blockHeader, middleSize int64, rh blockHeader) error {
	merged := blockHeader{
		magic: magicFree,
		size:  lh.size + middleSize + rh.size,
		prev:  lh.prev,
		next:  rh.next,
	}
	if err := p.writeHeader(left, merged); err != nil {
		return err
	}

	if rh.next != NullBlock {
		return p.setPrev(rh.next, left)
	}

	return nil
}

// coalesceLeft extends the free left neighbor to absorb the newly-freed
// run; the left neighbor's own free-list position is unchanged.
func (p *Partition) coalesceLeft(left BlockID, lh blockHeader, addSize int64) error {
	lh.size += addSize
	return p.writeHeader(left, lh)
}

// coalesceRight writes the merged free block at id, inheriting the
// free-list position the right neighbor used to occupy.
func (p *Partition) coalesceRight(id, right BlockID, rh blockHeader, leadSize int64) error {
	merged := blockHeader{
		magic: magicFree,
		size:  leadSize + rh.size,
		prev:  rh.prev,
		next:  rh.next,
	}
	if err := p.writeHeader(id, merged); err != nil {
		return err
	}

	return p.linkFreeBetween(rh.prev, id, rh.next)
}

// insertFree inserts a new, isolated free block of the given size at id
// into the free list at the position that keeps the list ordered by
// ascending BlockID (invariant 3).
func (p *Partition) insertFree(id BlockID, size int64) error {
	if p.desc.freeHead == NullBlock || id < p.desc.freeHead {
		oldHead := p.desc.freeHead
		node := blockHeader{magic: magicFree, size: size, prev: NullBlock, next: oldHead}
		if err := p.writeHeader(id, node); err != nil {
			return err
		}

		return p.linkFreeBetween(NullBlock, id, oldHead)
	}

	cur := p.desc.freeHead
	for {
		ch, err := p.readHeader(cur)
		if err != nil {
			return err
		}

		if ch.next == NullBlock || id < ch.next {
			node := blockHeader{magic: magicFree, size: size, prev: cur, next: ch.next}
			if err := p.writeHeader(id, node); err != nil {
				return err
			}

			return p.linkFreeBetween(cur, id, ch.next)
		}

		cur = ch.next
	}
}

// linkFreeBetween makes node the free-list link between pred and succ:
// node's own header must already be written with prev=pred, next=succ.
// pred == NullBlock means node becomes the new freeHead.
func (p *Partition) linkFreeBetween(pred, node, succ BlockID) error {
	if pred == NullBlock {
		p.desc.freeHead = node
		if err := p.writeDescriptor(); err != nil {
			return err
		}
	} else if err := p.setNext(pred, node); err != nil {
		return err
	}

	if succ != NullBlock {
		if err := p.setPrev(succ, node); err != nil {
			return err
		}
	}

	return nil
}

// spliceFreeList removes whatever free node used to sit between pred
// and succ from the free list, leaving pred linked directly to succ.
func (p *Partition) spliceFreeList(pred, succ BlockID) error {
	if pred == NullBlock {
		p.desc.freeHead = succ
		if err := p.writeDescriptor(); err != nil {
			return err
		}
	} else if err := p.setNext(pred, succ); err != nil {
		return err
	}

	if succ != NullBlock {
		if err := p.setPrev(succ, pred); err != nil {
			return err
		}
	}

	return nil
}

func (p *Partition) setPrev(id, prev BlockID) error {
	h, err := p.readHeader(id)
	if err != nil {
		return err
	}

	h.prev = prev
	return p.writeHeader(id, h)
}

func (p *Partition) setNext(id, next BlockID) error {
	h, err := p.readHeader(id)
	if err != nil {
		return err
	}

	h.next = next
	return p.writeHeader(id, h)
}

// Resize changes the payload capacity of the block at id, always by
// allocating a fresh block, copying min(newSize, old payload) bytes,
// and freeing the old block. Passing NullBlock behaves as
// Allocate(newSize).
func (p *Partition) Resize(id BlockID, newSize int64) (BlockID, error) {
	if newSize < 0 {
		return NullBlock, &InvalidArgError{Op: "Resize", Arg: newSize}
	}

	if id == NullBlock {
		return p.Allocate(newSize)
	}

	h, err := p.readHeader(id)
	if err != nil {
		return NullBlock, err
	}

	if !h.isAllocated() {
		return NullBlock, &CorruptionError{Off: int64(id), Reason: "Resize: block is not tagged ALLOCATED"}
	}

	newID, err := p.Allocate(newSize)
	if err != nil {
		return NullBlock, err
	}

	if n := mathutil.MinInt64(h.size, newSize); n > 0 {
		buf := make([]byte, n)
		if err := p.Load(id, buf); err != nil {
			return NullBlock, err
		}

		if err := p.Save(newID, buf); err != nil {
			return NullBlock, err
		}
	}

	if err := p.Free(id); err != nil {
		return NullBlock, err
	}

	p.tracef("resize", id, "newID=%d newSize=%d", int64(newID), newSize)
	return newID, nil
}
