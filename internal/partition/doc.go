// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package partition implements a single-file, block-based storage
partition: a fixed-size disk image is treated as a flat address space of
bytes and a first-fit allocator carves it into variable sized blocks,
each prefixed by a fixed-size header.

Partition descriptor

A fixed-size descriptor lives at offset 0 of the backing store:

	{ partitionSize, freeHead, allocHead, rootDir }

partitionSize is the usable size of the data area (the descriptor is
not part of it). freeHead and allocHead are the BlockID of the first
block on the free and allocated lists, or 0 if the respective list is
empty. rootDir is opaque storage for the filesystem overlay's root
directory id; the allocator never interprets it.

Blocks

A BlockID is the byte offset of a block's header within the backing
store. 0 is reserved: it names no block, since the descriptor itself
occupies offset 0.

Every block, free or allocated, begins with a fixed-size header:

	{ magic, size, prev, next }

magic distinguishes a free block from an allocated one. size is the
block's *payload* size for allocated blocks and the block's *total*
size (header included) for free blocks — this asymmetry is
deliberate and is the single size-field convention this package uses
everywhere; see lookRight. prev/next thread the block through
whichever of the two lists (free or allocated) it belongs to; 0
terminates a list.

Lists

The allocated list is unordered: new allocations are always prepended
to allocHead. The free list is kept ordered by ascending BlockID, so
its head is always the lowest-offset free block. Free finds a freed
block's physical neighbors with lookRight and lookLeft (the latter
scans forward from the start of the data area) and merges with
whichever are free; a freed block with no free neighbor is inserted
by walking the free list to its ordered position.

Single-threaded

A Partition is not safe for concurrent use. Every exported method is a
synchronous sequence of reads and writes against the backing Store;
callers needing concurrent access must serialize themselves.

*/
package partition
