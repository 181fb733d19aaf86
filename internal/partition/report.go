// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package partition

import (
	"fmt"
	"io"
)

// PrintInfo walks both lists and writes a human-readable inventory to
// w. The output format is not a machine contract; it exists for
// operators and for cmd/partsh's "print" command.
func (p *Partition) PrintInfo(w io.Writer) error {
	fmt.Fprintf(w, "partition: size=%d bytes, descriptor at offset 0 (%d bytes)\n", p.desc.partitionSize, descriptorSize)

	allocBlocks, allocBytes, allocPayload, err := p.walkList(w, "allocated", p.desc.allocHead)
	if err != nil {
		return err
	}

	freeBlocks, freeBytes, freePayload, err := p.walkList(w, "free", p.desc.freeHead)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "totals: %d allocated blocks (%d bytes, %d payload), %d free blocks (%d bytes, %d usable)\n",
		allocBlocks, allocBytes, allocPayload, freeBlocks, freeBytes, freePayload)
	return nil
}

func (p *Partition) walkList(w io.Writer, label string, head BlockID) (blocks int, totalBytes int64, totalPayload int64, err error) {
	fmt.Fprintf(w, "%s list:\n", label)

	cur := head
	for cur != NullBlock {
		h, e := p.readHeader(cur)
		if e != nil {
			return 0, 0, 0, e
		}

		occupied := h.occupied()
		payload := h.size
		if h.isFree() {
			payload = h.size - blockHeaderSize
		}

		fmt.Fprintf(w, "  block %d: %d bytes (%d payload)\n", int64(cur), occupied, payload)

		blocks++
		totalBytes += occupied
		totalPayload += payload
		cur = h.next
	}

	if blocks == 0 {
		fmt.Fprintf(w, "  <empty>\n")
	}

	return blocks, totalBytes, totalPayload, nil
}
