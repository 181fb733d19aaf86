// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command partsh is a line-oriented shell over a partition.Partition
// and fstree.Tree: each stdin line is "cmd name size", dispatched
// through a fixed command table.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kavon/filesystem/internal/fstree"
	"github.com/kavon/filesystem/internal/partition"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partsh",
		Short: "interactive shell over a block-partition filesystem",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("partition", "./partition.data", "path to the partition image file")
	flags.Int64("size", 64*1024*1024, "size in bytes for a newly created partition")
	flags.Bool("verbose", false, "enable debug-level allocator tracing")

	viper.BindPFlag("partition", flags.Lookup("partition"))
	viper.BindPFlag("size", flags.Lookup("size"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.SetEnvPrefix("PARTSH")
	viper.AutomaticEnv()

	return cmd
}

// run drives the REPL. It never returns a non-nil error for ordinary
// command failures — those are reported inline as a
// "  cmd name size: failed" line. Unrecoverable I/O/corruption
// conditions during the session end the process through exitOn (status
// 2 for corruption, 3 otherwise); a failure to open the partition is
// returned, and main exits with status 1.
func run(in io.Reader, out io.Writer) error {
	log := logrus.New()
	if viper.GetBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetOutput(io.Discard)
	}

	path := viper.GetString("partition")
	size := viper.GetInt64("size")

	p, err := partition.OpenFile(path, size, partition.WithLogger(log))
	if err != nil {
		fmt.Fprintf(out, "cannot open partition %s: %v\n", path, err)
		return err
	}
	defer p.Close()

	sh := &shell{tree: fstree.New(p), out: out, path: path, log: log}
	if root := p.GetRoot(); root.Valid() {
		if err := sh.tree.Attach(); err != nil {
			return exitOn(out, err)
		}
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := sh.dispatch(scanner.Text()); err != nil {
			return exitOn(out, err)
		}
		if sh.exited {
			break
		}
	}

	return scanner.Err()
}

func exitOn(out io.Writer, err error) error {
	if partition.IsCorruption(err) {
		fmt.Fprintf(out, "partition corrupt: %v\n", err)
		os.Exit(2)
	}
	fmt.Fprintf(out, "i/o error: %v\n", err)
	os.Exit(3)
	return err
}

type shell struct {
	tree   *fstree.Tree
	out    io.Writer
	exited bool

	path string
	log  *logrus.Logger
}

// reopen discards the current partition image at sh.path and replaces
// it with a freshly created one of the given size, wiring a new Tree
// on top of it. It is used by doRoot when the caller supplies an
// explicit size override.
func (sh *shell) reopen(size int64) error {
	if err := sh.tree.Partition().Close(); err != nil {
		return err
	}
	if err := os.Remove(sh.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	p, err := partition.OpenFile(sh.path, size, partition.WithLogger(sh.log))
	if err != nil {
		return err
	}

	sh.tree = fstree.New(p)
	return nil
}

type action func(sh *shell, name, size string) error

var table = map[string]action{
	"root":  doRoot,
	"print": doPrint,
	"chdir": doChdir,
	"mkdir": doMkdir,
	"rmdir": doRmdir,
	"mvdir": doMvdir,
	"mkfil": doMkfil,
	"rmfil": doRmfil,
	"mvfil": doMvfil,
	"szfil": doSzfil,
	"exit":  doExit,
}

// dispatch parses one input line and runs its command, writing
// "  cmd name size: failed" on any reported error and "command not
// found: cmd" for an unrecognized verb. The returned error is non-nil
// only for conditions the REPL itself cannot recover from (propagated
// from the underlying partition, not from a command's own validation).
func (sh *shell) dispatch(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd := fields[0]
	var name, size string
	if len(fields) > 1 {
		name = fields[1]
	}
	if len(fields) > 2 {
		size = fields[2]
	}

	fn, ok := table[cmd]
	if !ok {
		fmt.Fprintf(sh.out, "command not found: %s\n", cmd)
		return nil
	}

	if err := fn(sh, name, size); err != nil {
		if isFatal(err) {
			return err
		}
		fmt.Fprintf(sh.out, "  %s %s %s: failed\n", cmd, name, size)
	}
	return nil
}

// isFatal reports whether err should abort the REPL rather than be
// reported as an ordinary command failure: anything that isn't one of
// fstree's own typed validation errors, fstree.ErrAlreadyAtRoot,
// a *partition.InvalidArgError, or partition.ErrOutOfSpace.
func isFatal(err error) bool {
	switch err.(type) {
	case *fstree.NameError, *fstree.ConflictError, *fstree.NotFoundError,
		*partition.InvalidArgError:
		return false
	}
	if err == fstree.ErrAlreadyAtRoot || err == partition.ErrOutOfSpace {
		return false
	}
	return true
}

// doRoot formats a new root directory. If size names a positive byte
// count, the backing partition image is first discarded and recreated
// at that size, so "root x 1048576" both resizes and reformats;
// without a size it formats a new root directory inside the existing
// partition, and the old tree's blocks stay allocated.
func doRoot(sh *shell, name, size string) error {
	if size != "" {
		n, err := strconv.ParseInt(size, 10, 64)
		if err == nil && n > 0 {
			if err := sh.reopen(n); err != nil {
				return err
			}
		}
	}
	return sh.tree.Root()
}

func doPrint(sh *shell, name, size string) error {
	if err := sh.tree.Partition().PrintInfo(sh.out); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "\n\n\t* Current Directory Information *\n\n")
	return sh.tree.Print(sh.out)
}

func doChdir(sh *shell, name, size string) error {
	if name == "" {
		fmt.Fprintln(sh.out, "specify a directory")
		return &fstree.NameError{Name: name, Reason: "must not be empty"}
	}
	if err := sh.tree.Chdir(name); err != nil {
		if err == fstree.ErrAlreadyAtRoot {
			fmt.Fprintln(sh.out, "already at root")
		} else {
			fmt.Fprintln(sh.out, "directory doesn't exist.")
		}
		return err
	}
	return nil
}

func doMkdir(sh *shell, name, size string) error {
	return sh.tree.Mkdir(name)
}

func doRmdir(sh *shell, name, size string) error {
	return sh.tree.Rmdir(name)
}

// doMvdir is called with the CLI's third token in the "size" position:
// the command table is positionally (name, size) for every verb, and
// mvdir/mvfil reuse that same shape with their destination name
// standing in for a byte count.
func doMvdir(sh *shell, name, newName string) error {
	return sh.tree.Mvdir(name, newName)
}

func doMkfil(sh *shell, name, size string) error {
	n, err := parseSize(size)
	if err != nil {
		return err
	}
	return sh.tree.Mkfil(name, n)
}

func doRmfil(sh *shell, name, size string) error {
	return sh.tree.Rmfil(name)
}

func doMvfil(sh *shell, name, newName string) error {
	return sh.tree.Mvfil(name, newName)
}

func doSzfil(sh *shell, name, size string) error {
	n, err := parseSize(size)
	if err != nil {
		return err
	}
	truncated, err := sh.tree.Szfil(name, n)
	if err != nil {
		return err
	}
	if truncated {
		fmt.Fprintln(sh.out, "warning: truncating file.")
	}
	return nil
}

func doExit(sh *shell, name, size string) error {
	sh.exited = true
	return nil
}

// parseSize parses the CLI's size token the way C's atoi does: a
// non-numeric token parses as 0 rather than failing.
func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, nil
	}
	if n < 0 {
		return 0, &partition.InvalidArgError{Op: "parseSize", Arg: s}
	}
	return n, nil
}
