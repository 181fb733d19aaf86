package fstree

// renameObject is shared by Mvdir and Mvfil: both rename an entry of a
// given kind (file or directory) in the current directory. Renaming a
// name onto itself is a silent no-op.
func (t *Tree) renameObject(name, newName string, isDir bool) error {
	if name == "" || newName == "" {
		return &NameError{Name: name, Reason: "must specify name and new name"}
	}
	if err := validateName(newName); err != nil {
		return err
	}
	if name == "." || name == ".." {
		return &NameError{Name: name, Reason: "reserved name"}
	}
	if name == newName {
		return nil
	}

	slots, err := t.readSlots(t.cwd)
	if err != nil {
		return err
	}

	kind := "file"
	if isDir {
		kind = "directory"
	}

	_, child, ok, err := t.findChild(t.cwd, slots, name, isDir)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Name: name, Kind: kind}
	}

	if _, _, conflict, err := t.findChild(t.cwd, slots, newName, isDir); err != nil {
		return err
	} else if conflict {
		return &ConflictError{Name: newName, Kind: kind}
	}

	child.name = newName
	return t.saveNode(child)
}

// Mvdir renames a sub-directory of the current directory. Note the
// CLI-facing command table positionally overloads the "size" argument
// as the destination name for mvdir/mvfil; Mvdir's own signature
// states that plainly instead of inheriting the (name, size) shape.
func (t *Tree) Mvdir(name, newName string) error { return t.renameObject(name, newName, true) }

// Mvfil renames a file in the current directory.
func (t *Tree) Mvfil(name, newName string) error { return t.renameObject(name, newName, false) }
