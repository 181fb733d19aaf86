package fstree

import "github.com/kavon/filesystem/internal/partition"

// Chdir moves the current directory to name, or to the parent when
// name is "..". Chdir("..") at the root returns ErrAlreadyAtRoot.
func (t *Tree) Chdir(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "must not be empty"}
	}

	if name == ".." {
		if t.cwd.parent == partition.NullBlock {
			return ErrAlreadyAtRoot
		}
		parent, err := t.loadNode(t.cwd.parent)
		if err != nil {
			return err
		}
		t.cwd = parent
		return nil
	}

	slots, err := t.readSlots(t.cwd)
	if err != nil {
		return err
	}

	_, child, ok, err := t.findChild(t.cwd, slots, name, true)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Name: name, Kind: "directory"}
	}

	t.cwd = child
	return nil
}

// Mkdir creates a sub-directory of the current directory.
func (t *Tree) Mkdir(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	slots, err := t.readSlots(t.cwd)
	if err != nil {
		return err
	}

	if _, _, ok, err := t.findChild(t.cwd, slots, name, true); err != nil {
		return err
	} else if ok {
		return &ConflictError{Name: name, Kind: "directory"}
	}

	openSlot := indexOfFree(slots)
	if openSlot == -1 {
		slots, err = t.growDirectory(&t.cwd, slots)
		if err != nil {
			return err
		}
		openSlot = indexOfFree(slots)
	}

	child := node{
		isDirectory: true,
		parent:      t.cwd.currentID,
		size:        dirInitialSlots * 8,
		name:        name,
	}
	id, err := t.p.Allocate(nodeHeaderSize + child.size)
	if err != nil {
		return err
	}
	child.currentID = id
	child.contents = id + partition.BlockID(nodeHeaderSize)

	if err := t.saveNode(child); err != nil {
		return err
	}
	if err := t.writeSlots(child, make([]partition.BlockID, dirInitialSlots)); err != nil {
		return err
	}

	slots[openSlot] = id
	return t.writeSlots(t.cwd, slots)
}

// Rmdir recursively deletes the named sub-directory and everything
// under it. "." and ".." can never be removed.
func (t *Tree) Rmdir(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "must not be empty"}
	}
	if name == "." || name == ".." {
		return &NameError{Name: name, Reason: "cannot delete . or .."}
	}

	slots, err := t.readSlots(t.cwd)
	if err != nil {
		return err
	}

	idx, child, ok, err := t.findChild(t.cwd, slots, name, true)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Name: name, Kind: "directory"}
	}

	if err := t.deleteSubtree(child); err != nil {
		return err
	}

	slots[idx] = partition.NullBlock
	return t.writeSlots(t.cwd, slots)
}

// deleteSubtree recursively frees every node under dir (depth first)
// and then dir itself. Files are freed directly by id rather than by
// temporarily reassigning t.cwd and bouncing through Rmfil.
func (t *Tree) deleteSubtree(dir node) error {
	slots, err := t.readSlots(dir)
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

		if child.isDirectory {
			if err := t.deleteSubtree(child); err != nil {
				return err
			}
		} else if err := t.p.Free(child.currentID); err != nil {
			return err
		}
	}

	return t.p.Free(dir.currentID)
}

func indexOfFree(slots []partition.BlockID) int {
	for i, id := range slots {
		if id == partition.NullBlock {
			return i
		}
	}
	return -1
}
