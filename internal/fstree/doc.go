// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fstree implements a minimal directory/file overlay on top of
// partition.Partition. A node — directory or file — is a single
// allocated block: its first nodeHeaderSize bytes hold the header, and
// the rest of the payload holds either a directory's slot-table of
// child BlockIDs or a file's raw content.
//
// fstree never touches the backing Store directly; every read or write
// of partition state goes through partition.Partition's exported
// façade (Allocate/Free/Resize/Load/Save/GetRoot/SaveRoot).
package fstree
