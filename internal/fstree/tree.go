package fstree

import "github.com/kavon/filesystem/internal/partition"

// Tree is a directory/file overlay open on a partition.Partition. It
// tracks a single current directory — callers that need concurrent
// cursors into the same partition should open one Tree per cursor.
type Tree struct {
	p   *partition.Partition
	cwd node
}

// New wraps an already-open partition. Callers must call either Root
// (to format a fresh tree) or Attach (to resume from a partition whose
// root was already saved) before using the returned Tree.
func New(p *partition.Partition) *Tree {
	return &Tree{p: p}
}

// Root formats a brand-new root directory and makes it both the
// partition's saved root and this Tree's current directory. Calling
// Root on a partition that already has one discards
// the old root's saved id but not its blocks: callers that want a
// clean reformat should open a fresh partition instead.
func (t *Tree) Root() error {
	dir := node{
		isDirectory: true,
		parent:      partition.NullBlock,
		size:        dirInitialSlots * 8,
	}

	id, err := t.p.Allocate(nodeHeaderSize + dir.size)
	if err != nil {
		return err
	}
	dir.currentID = id
	dir.contents = id + partition.BlockID(nodeHeaderSize)

	if err := t.saveNode(dir); err != nil {
		return err
	}
	if err := t.writeSlots(dir, make([]partition.BlockID, dirInitialSlots)); err != nil {
		return err
	}
	if err := t.p.SaveRoot(id); err != nil {
		return err
	}

	t.cwd = dir
	return nil
}

// Attach loads the partition's previously saved root and makes it the
// current directory, for resuming work on an existing tree.
func (t *Tree) Attach() error {
	root := t.p.GetRoot()
	if !root.Valid() {
		return &NotFoundError{Name: "/", Kind: "directory"}
	}

	dir, err := t.loadNode(root)
	if err != nil {
		return err
	}
	t.cwd = dir
	return nil
}

// Cwd returns the current directory's name ("" at the root).
func (t *Tree) Cwd() string { return t.cwd.name }

func (t *Tree) loadNode(id partition.BlockID) (node, error) {
	buf := make([]byte, nodeHeaderSize)
	if err := t.p.Load(id, buf); err != nil {
		return node{}, err
	}
	return decodeNode(buf), nil
}

func (t *Tree) saveNode(n node) error {
	return t.p.Save(n.currentID, n.encode())
}

func (t *Tree) readSlots(dir node) ([]partition.BlockID, error) {
	n := dir.size / 8
	buf := make([]byte, dir.size)
	if err := t.p.Load(dir.contents, buf); err != nil {
		return nil, err
	}

	slots := make([]partition.BlockID, n)
	for i := range slots {
		slots[i] = partition.BlockID(getU64(buf[i*8 : i*8+8]))
	}
	return slots, nil
}

func (t *Tree) writeSlots(dir node, slots []partition.BlockID) error {
	buf := make([]byte, dir.size)
	for i, s := range slots {
		putU64(buf[i*8:i*8+8], uint64(s))
	}
	return t.p.Save(dir.contents, buf)
}

// findChild searches dir's slot-table for a child named name whose
// isDirectory tag matches wantDir. It returns the slot index, the
// child's node, and whether it was found.
func (t *Tree) findChild(dir node, slots []partition.BlockID, name string, wantDir bool) (int, node, bool, error) {
	for i, id := range slots {
		if id == partition.NullBlock {
			continue
		}

		child, err := t.loadNode(id)
		if err != nil {
			return 0, node{}, false, err
		}

		if child.isDirectory != wantDir {
			continue
		}
		if child.name == name {
			return i, child, true, nil
		}
	}
	return 0, node{}, false, nil
}

// growDirectory doubles dir's slot-table, zeroing the new half, and
// reparents dir's own block if the resize relocated it. Both Mkdir and
// Mkfil hit this same full-directory case, so it is factored out into
// one helper. It mutates *dir in place and returns the refreshed
// slot-table.
func (t *Tree) growDirectory(dir *node, slots []partition.BlockID) ([]partition.BlockID, error) {
	oldID := dir.currentID
	newSize := dir.size * 2

	newID, err := t.p.Resize(dir.currentID, nodeHeaderSize+newSize)
	if err != nil {
		return nil, err
	}

	grown := make([]partition.BlockID, newSize/8)
	copy(grown, slots)

	dir.size = newSize
	dir.currentID = newID
	dir.contents = newID + partition.BlockID(nodeHeaderSize)

	if err := t.saveNode(*dir); err != nil {
		return nil, err
	}
	if err := t.writeSlots(*dir, grown); err != nil {
		return nil, err
	}

	if newID != oldID {
		if err := t.reparentAfterMove(dir, oldID, newID); err != nil {
			return nil, err
		}
	}

	return grown, nil
}

// reparentAfterMove fixes up the two kinds of back-references that go
// stale when dir's block relocates during a resize: the parent's slot
// pointing at dir (or the saved root id, if dir has no parent), and
// every surviving child's parent field.
func (t *Tree) reparentAfterMove(dir *node, oldID, newID partition.BlockID) error {
	if dir.parent == partition.NullBlock {
		if err := t.p.SaveRoot(newID); err != nil {
			return err
		}
	} else {
		parent, err := t.loadNode(dir.parent)
		if err != nil {
			return err
		}
		slots, err := t.readSlots(parent)
		if err != nil {
			return err
		}

		updated := false
		for i, id := range slots {
			if id == oldID {
				slots[i] = newID
				updated = true
				break
			}
		}
		if !updated {
			return &NotFoundError{Name: dir.name, Kind: "directory"}
		}
		if err := t.writeSlots(parent, slots); err != nil {
			return err
		}
	}

	slots, err := t.readSlots(*dir)
	if err != nil {
		return err
	}
	for _, id := range slots {
		if id == partition.NullBlock {
			continue
		}
		child, err := t.loadNode(id)
		if err != nil {
			return err
		}
		child.parent = newID
		if err := t.saveNode(child); err != nil {
			return err
		}
	}
	return nil
}
