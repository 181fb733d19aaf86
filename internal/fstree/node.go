package fstree

import "github.com/kavon/filesystem/internal/partition"

// maxNameLen is the longest name a node may carry, not counting the
// trailing NUL the on-disk record reserves.
const maxNameLen = 128

// nodeHeaderSize is the fixed size, in bytes, of the header written at
// the start of every node's block: isDirectory, parent, currentID,
// contents, size, name.
const nodeHeaderSize = 1 + 8 + 8 + 8 + 8 + (maxNameLen + 1)

// dirInitialSlots is the number of child-slot entries a freshly
// created directory's slot-table holds.
const dirInitialSlots = 128

// node is the in-memory form of a directory or file's header record.
// contents is always currentID + nodeHeaderSize in this design (a node
// is a single allocated block, header followed by payload) but is kept
// as an explicit field rather than derived at every use site.
type node struct {
	isDirectory bool
	parent      partition.BlockID
	currentID   partition.BlockID
	contents    partition.BlockID
	size        int64
	name        string
}

func (n node) encode() []byte {
	b := make([]byte, nodeHeaderSize)
	if n.isDirectory {
		b[0] = 1
	}
	putU64(b[1:9], uint64(n.parent))
	putU64(b[9:17], uint64(n.currentID))
	putU64(b[17:25], uint64(n.contents))
	putU64(b[25:33], uint64(n.size))
	copy(b[33:33+maxNameLen], n.name)
	return b
}

func decodeNode(b []byte) node {
	nameEnd := 33 + maxNameLen
	raw := b[33:nameEnd]
	nul := len(raw)
	for i, c := range raw {
		if c == 0 {
			nul = i
			break
		}
	}

	return node{
		isDirectory: b[0] != 0,
		parent:      partition.BlockID(getU64(b[1:9])),
		currentID:   partition.BlockID(getU64(b[9:17])),
		contents:    partition.BlockID(getU64(b[17:25])),
		size:        int64(getU64(b[25:33])),
		name:        string(raw[:nul]),
	}
}

// validateName rejects names a node can never carry: empty, too long,
// or the reserved "." / ".." entries. Mkdir, Mkfil, and renameObject
// all need the same three checks, so they share this helper.
func validateName(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "must not be empty"}
	}
	if len(name) > maxNameLen {
		return &NameError{Name: name, Reason: "longer than 128 characters"}
	}
	if name == "." || name == ".." {
		return &NameError{Name: name, Reason: "reserved name"}
	}
	return nil
}

func putU64(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

func getU64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
