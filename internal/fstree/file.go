package fstree

import "github.com/kavon/filesystem/internal/partition"

// Mkfil creates a new, zero-initialized file of size bytes in the
// current directory.
func (t *Tree) Mkfil(name string, size int64) error {
	if err := validateName(name); err != nil {
		return err
	}
	if size < 0 {
		return &partition.InvalidArgError{Op: "Mkfil", Arg: size}
	}

	slots, err := t.readSlots(t.cwd)
	if err != nil {
		return err
	}

	if _, _, ok, err := t.findChild(t.cwd, slots, name, false); err != nil {
		return err
	} else if ok {
		return &ConflictError{Name: name, Kind: "file"}
	}

	openSlot := indexOfFree(slots)
	if openSlot == -1 {
		slots, err = t.growDirectory(&t.cwd, slots)
		if err != nil {
			return err
		}
		openSlot = indexOfFree(slots)
	}

	file := node{
		isDirectory: false,
		parent:      t.cwd.currentID,
		size:        size,
		name:        name,
	}
	id, err := t.p.Allocate(nodeHeaderSize + size)
	if err != nil {
		return err
	}
	file.currentID = id
	file.contents = id + partition.BlockID(nodeHeaderSize)

	if err := t.saveNode(file); err != nil {
		return err
	}
	if size > 0 {
		if err := t.p.Save(file.contents, make([]byte, size)); err != nil {
			return err
		}
	}

	slots[openSlot] = id
	return t.writeSlots(t.cwd, slots)
}

// Rmfil deletes the named file from the current directory.
func (t *Tree) Rmfil(name string) error {
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

	idx, file, ok, err := t.findChild(t.cwd, slots, name, false)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Name: name, Kind: "file"}
	}

	if err := t.p.Free(file.currentID); err != nil {
		return err
	}

	slots[idx] = partition.NullBlock
	return t.writeSlots(t.cwd, slots)
}

// Szfil resizes the named file, truncating its content if shrinking.
// It reports whether the resize truncated data, so callers (cmd/partsh)
// can print a "warning: truncating file" message.
func (t *Tree) Szfil(name string, newSize int64) (truncated bool, err error) {
	if name == "" {
		return false, &NameError{Name: name, Reason: "must not be empty"}
	}
	if name == "." || name == ".." {
		return false, &NameError{Name: name, Reason: "cannot resize . or .."}
	}
	if newSize < 0 {
		return false, &partition.InvalidArgError{Op: "Szfil", Arg: newSize}
	}

	slots, e := t.readSlots(t.cwd)
	if e != nil {
		return false, e
	}

	idx, file, ok, e := t.findChild(t.cwd, slots, name, false)
	if e != nil {
		return false, e
	}
	if !ok {
		return false, &NotFoundError{Name: name, Kind: "file"}
	}

	truncated = newSize < file.size

	newID, e := t.p.Resize(file.currentID, nodeHeaderSize+newSize)
	if e != nil {
		return false, e
	}
	file.currentID = newID
	file.contents = newID + partition.BlockID(nodeHeaderSize)
	file.size = newSize

	if e := t.saveNode(file); e != nil {
		return false, e
	}

	slots[idx] = newID
	if e := t.writeSlots(t.cwd, slots); e != nil {
		return false, e
	}

	return truncated, nil
}
