// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package dtb reads Linux flattened device tree blobs in place.
//
// The blob is caller owned, foreign memory: it is never copied or
// modified, node handles and property values are views into it, and
// its lifetime must cover every handle derived from it. Structurally
// malformed input is reported as an error instead of being read past.
package dtb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	magic      = 0xd00dfeed
	begin_node = 0x1 // Start node: full name
	end_node   = 0x2 // End node
	prop       = 0x3 // Property
	nop        = 0x4 // nop
	end        = 0x9 // End of fdt
)

const headerSize = 40

var (
	// ErrInvalidBlob means the header did not describe a device
	// tree: bad magic, or sizes and offsets that don't fit the
	// given buffer.
	ErrInvalidBlob = errors.New("invalid device tree blob")

	// ErrInvalidStructure means the structure block is corrupt:
	// an unknown token, unbalanced nesting, or a name or property
	// running past the declared end of the blob. Treat the whole
	// blob as unusable.
	ErrInvalidStructure = errors.New("invalid structure block")
)

// Header is the fixed 40 byte blob header. All fields are stored
// big-endian in the blob.
type Header struct {
	Magic        uint32
	TotalSize    uint32 // total size of DT block
	OffDtStruct  uint32 // offset to structure
	OffDtStrings uint32 // offset to strings
	OffMemRsvmap uint32 // offset to memory reserve map

	Version               uint32
	LastCompatibleVersion uint32

	// version 2 fields below
	BootCpuidPhys uint32 // Which physical CPU id we're
	// booting on
	// version 3 fields below
	SizeDtStrings uint32 // size of the strings block

	// version 17 fields below
	SizeDtStruct uint32 // size of the structure block
}

func (h *Header) String() string {
	return fmt.Sprintf("magic: 0x%x, version %d %d, total size: 0x%x, offset struct 0x%x strings 0x%x mem-reserve-map 0x%x",
		h.Magic, h.Version, h.LastCompatibleVersion,
		h.TotalSize, h.OffDtStruct, h.OffDtStrings, h.OffMemRsvmap)
}

// Tree is a read-only handle on a blob. The blob must stay resident
// and unmodified for as long as the Tree and any Node derived from
// it are in use; with that, concurrent queries are safe.
type Tree struct {
	Header
	buf []byte
}

// New borrows the blob and validates its header. The blob is not
// copied. Reads beyond the header's totalsize never happen, even
// when the buffer is larger.
func New(buf []byte) (*Tree, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, shorter than the %d byte header",
			ErrInvalidBlob, len(buf), headerSize)
	}
	t := &Tree{buf: buf}
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian,
		&t.Header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	if t.Magic != magic {
		return nil, fmt.Errorf("%w: magic 0x%x", ErrInvalidBlob, t.Magic)
	}
	if int64(t.TotalSize) > int64(len(buf)) {
		return nil, fmt.Errorf("%w: totalsize 0x%x exceeds %d byte buffer",
			ErrInvalidBlob, t.TotalSize, len(buf))
	}
	if t.TotalSize < headerSize {
		return nil, fmt.Errorf("%w: totalsize 0x%x shorter than header",
			ErrInvalidBlob, t.TotalSize)
	}
	if t.OffDtStruct%4 != 0 || t.OffDtStruct < headerSize ||
		t.OffDtStruct >= t.TotalSize {
		return nil, fmt.Errorf("%w: structure block offset 0x%x",
			ErrInvalidBlob, t.OffDtStruct)
	}
	if t.OffDtStrings < headerSize || t.OffDtStrings > t.TotalSize {
		return nil, fmt.Errorf("%w: string block offset 0x%x",
			ErrInvalidBlob, t.OffDtStrings)
	}
	return t, nil
}

// Root returns the handle on the blob's root node.
func (t *Tree) Root() Node {
	return Node{t: t, off: int(t.OffDtStruct)}
}

// NodeAt returns the handle on the node whose begin token is at the
// given offset, as delivered to Visitor.BeginNode. Offsets from any
// other source yield a node whose queries fail.
func (t *Tree) NodeAt(off int) Node {
	return Node{t: t, off: off}
}

func (t *Tree) String() string { return t.Root().String() }

// limit is the last readable byte offset, per the header, not the
// buffer.
func (t *Tree) limit() int { return int(t.TotalSize) }
