// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package dtb

import (
	"fmt"
	"strings"
)

// Node is a borrowed handle on one node of a Tree: the tree and the
// byte offset of the node's begin token. Nodes are cheap values,
// freely copyable, and own nothing. The zero Node is the invalid
// handle; every query on it misses without error.
type Node struct {
	t   *Tree
	off int
}

func (n Node) IsValid() bool { return n.t != nil }

// Name returns the node's name; the root node's name is "".
func (n Node) Name() (string, error) {
	if !n.IsValid() {
		return "", nil
	}
	tok, err := n.t.token(n.off)
	if err != nil {
		return "", err
	}
	if tok != begin_node {
		return "", fmt.Errorf("%w: node at 0x%x begins with token 0x%x",
			ErrInvalidStructure, n.off, tok)
	}
	name, err := n.t.nameBytes(n.off + 4)
	if err != nil {
		return "", err
	}
	return string(name), nil
}

// Walk traverses this node and its subtree, invoking v per token
// until the subtree or the visitor's patience is exhausted.
func (n Node) Walk(v Visitor) error {
	if !n.IsValid() {
		return nil
	}
	_, err := n.t.walk(n.off, v)
	return err
}

// SubNode finds the immediate child with exactly the given name,
// unit address included if the child's name carries one. The zero
// Node comes back when no child matches; only a corrupt structure
// block is an error.
func (n Node) SubNode(name string) (Node, error) {
	return n.find(&nodeFinder{name: []byte(name)})
}

// SubNodeAt finds the immediate child with the given base name and
// unit address, e.g. SubNodeAt("uart", "1") for a child named
// "uart@1".
func (n Node) SubNodeAt(name, unit string) (Node, error) {
	return n.find(&nodeFinder{
		name:    []byte(name),
		unit:    []byte(unit),
		hasUnit: true,
	})
}

func (n Node) find(f *nodeFinder) (Node, error) {
	if err := n.Walk(f); err != nil {
		return Node{}, err
	}
	return f.result, nil
}

// Property returns a view of the named property's value in this
// node, not in any descendant. An empty but present property comes
// back zero length with found true; interpreting the bytes is the
// caller's business (see PropUint32 and friends).
func (n Node) Property(name string) (value []byte, found bool, err error) {
	f := &propFinder{name: []byte(name)}
	if err = n.Walk(f); err != nil {
		return nil, false, err
	}
	if !f.found {
		return nil, false, nil
	}
	return f.value, true, nil
}

// HasProperty reports whether this node has the named property.
func (n Node) HasProperty(name string) (bool, error) {
	f := &propFinder{name: []byte(name)}
	if err := n.Walk(f); err != nil {
		return false, err
	}
	return f.found, nil
}

// propEacher hands this node's own properties to f in stored order.
type propEacher struct {
	NopVisitor
	f     func(name string, value []byte) error
	depth int
	err   error
}

func (e *propEacher) BeginNode(*Tree, int) { e.depth++ }
func (e *propEacher) EndNode(*Tree, int)   { e.depth-- }

func (e *propEacher) Prop(t *Tree, off int) {
	if e.depth != 1 || e.err != nil {
		return
	}
	name, value, ok := t.property(off)
	if !ok {
		return
	}
	e.err = e.f(string(name), value)
}

func (e *propEacher) Satisfied() bool { return e.err != nil }

// EachProperty calls f for each of this node's properties in stored
// order. A non-nil error from f stops the iteration and is returned.
func (n Node) EachProperty(f func(name string, value []byte) error) error {
	e := &propEacher{f: f}
	if err := n.Walk(e); err != nil {
		return err
	}
	return e.err
}

// nodeEacher hands every node of the subtree to f in document order.
type nodeEacher struct {
	NopVisitor
	f   func(n Node) error
	err error
}

func (e *nodeEacher) BeginNode(t *Tree, off int) {
	if e.err != nil {
		return
	}
	e.err = e.f(Node{t: t, off: off})
}

func (e *nodeEacher) Satisfied() bool { return e.err != nil }

// EachNode calls f for this node and every descendant in document
// order. A non-nil error from f stops the iteration and is returned.
func (n Node) EachNode(f func(n Node) error) error {
	e := &nodeEacher{f: f}
	if err := n.Walk(e); err != nil {
		return err
	}
	return e.err
}

// childEacher hands only the immediate children to f.
type childEacher struct {
	NopVisitor
	f     func(n Node) error
	depth int
	err   error
}

func (e *childEacher) BeginNode(t *Tree, off int) {
	e.depth++
	if e.depth != 2 || e.err != nil {
		return
	}
	e.err = e.f(Node{t: t, off: off})
}

func (e *childEacher) EndNode(*Tree, int) { e.depth-- }

func (e *childEacher) Satisfied() bool { return e.err != nil }

// EachChild calls f for each immediate child of this node in
// document order. A non-nil error from f stops the iteration and is
// returned.
func (n Node) EachChild(f func(n Node) error) error {
	e := &childEacher{f: f}
	if err := n.Walk(e); err != nil {
		return err
	}
	return e.err
}

// dumper renders node names and property values indented by depth.
type dumper struct {
	NopVisitor
	sb    strings.Builder
	depth int
}

func (d *dumper) BeginNode(t *Tree, off int) {
	name, err := t.nameBytes(off + 4)
	if err != nil {
		return
	}
	s := string(name)
	if s == "" {
		s = "/"
	}
	fmt.Fprintf(&d.sb, "%*s%s:\n", 2*d.depth, "", s)
	d.depth++
}

func (d *dumper) EndNode(*Tree, int) { d.depth-- }

func (d *dumper) Prop(t *Tree, off int) {
	name, value, ok := t.property(off)
	if !ok {
		return
	}
	fmt.Fprintf(&d.sb, "%*s%s = %q\n", 2*d.depth, "", name, value)
}

// String renders the node and its subtree like the fdt debug dump.
func (n Node) String() string {
	if !n.IsValid() {
		return "nil"
	}
	d := new(dumper)
	if err := n.Walk(d); err != nil {
		d.sb.WriteString(err.Error())
		d.sb.WriteByte('\n')
	}
	return d.sb.String()
}
