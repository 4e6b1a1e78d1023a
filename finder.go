// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package dtb

import "bytes"

// nodeFinder captures the first immediate child whose name matches.
// The node the walk starts from is depth 1, its children depth 2;
// only depth 2 may match, so a grandchild sharing the name of a
// missing child is not returned.
type nodeFinder struct {
	NopVisitor
	name    []byte
	unit    []byte
	hasUnit bool
	depth   int
	result  Node
}

func (f *nodeFinder) BeginNode(t *Tree, off int) {
	f.depth++
	if f.depth != 2 {
		return
	}
	name, err := t.nameBytes(off + 4)
	if err != nil {
		// The walk fails on this same name when it advances.
		return
	}
	if f.match(name) {
		f.result = Node{t: t, off: off}
	}
}

func (f *nodeFinder) EndNode(*Tree, int) { f.depth-- }

func (f *nodeFinder) Satisfied() bool { return f.result.IsValid() }

// match requires full name equality unless a unit address was asked
// for; then the name must split on '@' into the wanted base name and
// exactly the wanted address.
func (f *nodeFinder) match(name []byte) bool {
	if !f.hasUnit {
		return bytes.Equal(name, f.name)
	}
	i := bytes.IndexByte(name, '@')
	if i < 0 {
		return false
	}
	return bytes.Equal(name[:i], f.name) && bytes.Equal(name[i+1:], f.unit)
}

// propFinder captures the named property of the node the walk starts
// from, skipping properties of any deeper node. found stays
// distinguishable from an empty value.
type propFinder struct {
	NopVisitor
	name  []byte
	depth int
	found bool
	value []byte
}

func (f *propFinder) BeginNode(*Tree, int) { f.depth++ }
func (f *propFinder) EndNode(*Tree, int)   { f.depth-- }

func (f *propFinder) Prop(t *Tree, off int) {
	if f.depth != 1 || f.found {
		return
	}
	name, value, ok := t.property(off)
	if !ok {
		// Unresolvable descriptor cannot match anything; a
		// value past the blob end also fails the walk when it
		// advances.
		return
	}
	if bytes.Equal(name, f.name) {
		f.found = true
		f.value = value
	}
}

func (f *propFinder) Satisfied() bool { return f.found }
