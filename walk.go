// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package dtb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Visitor receives a callback per token while walking a node and its
// subtree in document order. Satisfied stops the walk early once the
// visitor has what it came for. Embed NopVisitor to pick out only
// the callbacks of interest.
type Visitor interface {
	BeginNode(t *Tree, off int)
	EndNode(t *Tree, off int)
	Prop(t *Tree, off int)
	Nop(t *Tree, off int)
	Satisfied() bool
}

// NopVisitor ignores every token and is never satisfied.
type NopVisitor struct{}

func (NopVisitor) BeginNode(*Tree, int) {}
func (NopVisitor) EndNode(*Tree, int)   {}
func (NopVisitor) Prop(*Tree, int)      {}
func (NopVisitor) Nop(*Tree, int)       {}
func (NopVisitor) Satisfied() bool      { return false }

func align(x int, align int) int {
	return (x + align - 1) & ^(align - 1)
}

// token reads the big-endian 32 bit word at off.
func (t *Tree) token(off int) (uint32, error) {
	if off < 0 || off+4 > t.limit() {
		return 0, fmt.Errorf("%w: token read at 0x%x past end of blob",
			ErrInvalidStructure, off)
	}
	return binary.BigEndian.Uint32(t.buf[off:]), nil
}

// nameBytes returns a view of the null terminated string at off.
func (t *Tree) nameBytes(off int) ([]byte, error) {
	if off < 0 || off > t.limit() {
		return nil, fmt.Errorf("%w: string at 0x%x past end of blob",
			ErrInvalidStructure, off)
	}
	l := bytes.IndexByte(t.buf[off:t.limit()], 0)
	if l < 0 {
		return nil, fmt.Errorf("%w: unterminated string at 0x%x",
			ErrInvalidStructure, off)
	}
	return t.buf[off : off+l : off+l], nil
}

// property decodes the descriptor following the prop token at off
// and resolves its name in the string block, returning views of the
// name and value.
func (t *Tree) property(off int) (name, value []byte, ok bool) {
	length, err := t.token(off + 4)
	if err != nil {
		return
	}
	nameoff, err := t.token(off + 8)
	if err != nil {
		return
	}
	name, err = t.nameBytes(int(t.OffDtStrings) + int(nameoff))
	if err != nil {
		return nil, nil, false
	}
	v := off + 12
	if v+int(length) > t.limit() {
		return nil, nil, false
	}
	return name, t.buf[v : v+int(length) : v+int(length)], true
}

// next returns the offset of the token after the one at off,
// skipping any payload and its padding to the next 4 byte boundary.
// The end token has no successor; its own offset comes back.
func (t *Tree) next(off int) (int, error) {
	tok, err := t.token(off)
	if err != nil {
		return 0, err
	}
	switch tok {
	case begin_node:
		name, err := t.nameBytes(off + 4)
		if err != nil {
			return 0, err
		}
		// The nameless root node still takes one padding word.
		return align(off+4+len(name)+1, 4), nil
	case end_node, nop:
		return off + 4, nil
	case prop:
		length, err := t.token(off + 4)
		if err != nil {
			return 0, err
		}
		after := align(off+4+8+int(length), 4)
		if after > t.limit() || after < off {
			return 0, fmt.Errorf("%w: property at 0x%x runs past end of blob",
				ErrInvalidStructure, off)
		}
		return after, nil
	case end:
		return off, nil
	}
	return 0, fmt.Errorf("%w: unknown token 0x%x at 0x%x",
		ErrInvalidStructure, tok, off)
}

// walk traverses the node whose begin token is at off, with all of
// its properties and descendants, depth first in document order, and
// returns the offset where the walk stopped: just past the node's
// end token, at the structure block's end token for the outermost
// node, or wherever the cursor stood once v was satisfied. The
// walk stops as soon as v is satisfied. Only the walk that began at
// the structure block's first token may run into the end token, and
// only once its own node has been closed; anywhere else it means
// unbalanced nesting, as does any token value outside the five
// defined ones, and the walk fails without reading further.
func (t *Tree) walk(off int, v Visitor) (int, error) {
	root := int(t.OffDtStruct)
	tok, err := t.token(off)
	if err != nil {
		return 0, err
	}
	if tok != begin_node {
		return 0, fmt.Errorf("%w: node at 0x%x begins with token 0x%x",
			ErrInvalidStructure, off, tok)
	}
	v.BeginNode(t, off)
	cur, err := t.next(off)
	if err != nil {
		return 0, err
	}
	closed := false
	for {
		if v.Satisfied() {
			return cur, nil
		}
		tok, err = t.token(cur)
		if err != nil {
			return 0, err
		}
		switch tok {
		case begin_node:
			if cur, err = t.walk(cur, v); err != nil {
				return 0, err
			}
		case end_node:
			v.EndNode(t, cur)
			if cur, err = t.next(cur); err != nil {
				return 0, err
			}
			if off != root {
				return cur, nil
			}
			closed = true
		case prop:
			v.Prop(t, cur)
			if cur, err = t.next(cur); err != nil {
				return 0, err
			}
		case nop:
			v.Nop(t, cur)
			if cur, err = t.next(cur); err != nil {
				return 0, err
			}
		case end:
			if off == root && closed {
				return cur, nil
			}
			return 0, fmt.Errorf("%w: end token at 0x%x inside open node",
				ErrInvalidStructure, cur)
		default:
			return 0, fmt.Errorf("%w: unknown token 0x%x at 0x%x",
				ErrInvalidStructure, tok, cur)
		}
	}
}
