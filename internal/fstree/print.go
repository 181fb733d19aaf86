package fstree

import (
	"fmt"
	"io"

	"github.com/kavon/filesystem/internal/partition"
)

// Partition returns the underlying partition, for callers (cmd/partsh)
// that want the allocator-level inventory dump (Partition.PrintInfo)
// alongside the tree dump Print provides.
func (t *Tree) Partition() *partition.Partition { return t.p }

// Print recursively dumps the current directory and every descendant
// to w, depth first, printing each directory's files before descending
// into its sub-directories. The accumulated path is a local string
// built per call rather than a shared mutable buffer.
func (t *Tree) Print(w io.Writer) error {
	return t.printAll(w, t.cwd, "./")
}

func (t *Tree) printAll(w io.Writer, dir node, path string) error {
	display := path
	if dir.name != "" {
		display = path + dir.name + "/"
	}
	fmt.Fprintf(w, "%s:\n", display)

	slots, err := t.readSlots(dir)
	if err != nil {
		return err
	}

	anyFile := false
	for _, id := range slots {
		if id == partition.NullBlock {
			continue
		}
		child, err := t.loadNode(id)
		if err != nil {
			return err
		}
		if child.isDirectory {
			continue
		}
		fmt.Fprintf(w, "  %s, %d bytes\n", child.name, child.size)
		anyFile = true
	}
	if !anyFile {
		fmt.Fprintf(w, "  <no files>\n")
	}
	fmt.Fprintln(w)

	childPath := display

	for _, id := range slots {
		if id == partition.NullBlock {
			continue
		}
		child, err := t.loadNode(id)
		if err != nil {
			return err
		}
		if !child.isDirectory {
			continue
		}
		if err := t.printAll(w, child, childPath); err != nil {
			return err
		}
	}

	return nil
}
