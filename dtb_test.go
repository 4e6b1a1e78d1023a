// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package dtb

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blob assembles a device tree blob in memory for tests. Tokens and
// payloads are appended in call order, so malformed structure blocks
// are as easy to build as valid ones.
type blob struct {
	structb bytes.Buffer
	strb    bytes.Buffer
	offs    map[string]uint32
}

func newBlob() *blob {
	return &blob{offs: make(map[string]uint32)}
}

func (b *blob) word(w uint32) {
	binary.Write(&b.structb, binary.BigEndian, w)
}

func (b *blob) pad() {
	for b.structb.Len()%4 != 0 {
		b.structb.WriteByte(0)
	}
}

func (b *blob) begin(name string) {
	b.word(begin_node)
	b.structb.WriteString(name)
	b.structb.WriteByte(0)
	b.pad()
}

func (b *blob) endNode() { b.word(end_node) }

func (b *blob) prop(name string, value []byte) {
	b.word(prop)
	b.word(uint32(len(value)))
	b.word(b.stroff(name))
	b.structb.Write(value)
	b.pad()
}

func (b *blob) stroff(name string) uint32 {
	off, ok := b.offs[name]
	if !ok {
		off = uint32(b.strb.Len())
		b.offs[name] = off
		b.strb.WriteString(name)
		b.strb.WriteByte(0)
	}
	return off
}

func (b *blob) bytes() []byte {
	structOff := headerSize
	strsOff := structOff + b.structb.Len()
	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, Header{
		Magic:                 magic,
		TotalSize:             uint32(strsOff + b.strb.Len()),
		OffDtStruct:           uint32(structOff),
		OffDtStrings:          uint32(strsOff),
		OffMemRsvmap:          headerSize,
		Version:               17,
		LastCompatibleVersion: 16,
		SizeDtStrings:         uint32(b.strb.Len()),
		SizeDtStruct:          uint32(b.structb.Len()),
	})
	out.Write(b.structb.Bytes())
	out.Write(b.strb.Bytes())
	return out.Bytes()
}

func u32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

// testBlob is a small board-like tree:
//
//	/ {
//		compatible = "platina,mk1";
//		aliases { gpio0 = "/soc/gpio@40000"; };
//		soc {
//			ranges;
//			uart@0 { reg = <0>; };
//			uart@1 { reg = <1>; status = "okay"; };
//		};
//	};
func testBlob() []byte {
	b := newBlob()
	b.begin("")
	b.prop("compatible", []byte("platina,mk1\x00"))
	b.begin("aliases")
	b.prop("gpio0", []byte("/soc/gpio@40000\x00"))
	b.endNode()
	b.begin("soc")
	b.prop("ranges", []byte{})
	b.begin("uart@0")
	b.prop("reg", u32(0))
	b.endNode()
	b.begin("uart@1")
	b.prop("reg", u32(1))
	b.prop("status", []byte("okay\x00"))
	b.endNode()
	b.endNode()
	b.endNode()
	b.word(end)
	return b.bytes()
}

func testTree(t *testing.T) *Tree {
	tree, err := New(testBlob())
	require.NoError(t, err)
	return tree
}

func TestNew(t *testing.T) {
	tree := testTree(t)
	assert.Equal(t, uint32(magic), tree.Magic)
	assert.Equal(t, uint32(17), tree.Version)
	assert.Equal(t, uint32(headerSize), tree.OffDtStruct)
	assert.True(t, tree.Root().IsValid())
}

func TestNewShortBlob(t *testing.T) {
	_, err := New(testBlob()[:headerSize-1])
	require.ErrorIs(t, err, ErrInvalidBlob)
}

func TestNewBadMagic(t *testing.T) {
	buf := testBlob()
	buf[0] = 0xde
	_, err := New(buf)
	require.ErrorIs(t, err, ErrInvalidBlob)
}

func TestNewTotalSizeOverrun(t *testing.T) {
	buf := testBlob()
	// claim one more byte than the buffer holds
	binary.BigEndian.PutUint32(buf[4:], uint32(len(buf)+1))
	_, err := New(buf)
	require.ErrorIs(t, err, ErrInvalidBlob)
}

func TestNewBadStructOffset(t *testing.T) {
	for _, off := range []uint32{2, 0, 0xfffffff0} {
		buf := testBlob()
		binary.BigEndian.PutUint32(buf[8:], off)
		_, err := New(buf)
		require.ErrorIs(t, err, ErrInvalidBlob, "offset 0x%x", off)
	}
}

func TestNewBadStringsOffset(t *testing.T) {
	buf := testBlob()
	binary.BigEndian.PutUint32(buf[12:], uint32(len(buf)+4))
	_, err := New(buf)
	require.ErrorIs(t, err, ErrInvalidBlob)
}

func TestNewTrailingSpace(t *testing.T) {
	// a blob may sit in a larger buffer; totalsize rules
	buf := append(testBlob(), make([]byte, 64)...)
	tree, err := New(buf)
	require.NoError(t, err)
	n, err := tree.Root().SubNode("soc")
	require.NoError(t, err)
	assert.True(t, n.IsValid())
}

func TestHeaderString(t *testing.T) {
	tree := testTree(t)
	s := tree.Header.String()
	assert.Contains(t, s, "magic: 0xd00dfeed")
	assert.Contains(t, s, "version 17 16")
}
