// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package dtb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropUint32(t *testing.T) {
	assert.Equal(t, uint32(0x12345678),
		PropUint32([]byte{0x12, 0x34, 0x56, 0x78}))
}

func TestPropUint32Slice(t *testing.T) {
	assert.Equal(t, []uint32{1, 0x20000},
		PropUint32Slice([]byte{0, 0, 0, 1, 0, 2, 0, 0}))
	assert.Empty(t, PropUint32Slice(nil))
}

func TestPropString(t *testing.T) {
	assert.Equal(t, "okay", PropString([]byte("okay\x00")))
	assert.Equal(t, "", PropString([]byte{}))
}

func TestPropStringSlice(t *testing.T) {
	assert.Equal(t, []string{"ns16550a", "ns16550", ""},
		PropStringSlice([]byte("ns16550a\x00ns16550\x00")))
}
