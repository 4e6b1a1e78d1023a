// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package dtb

import (
	"encoding/binary"
	"strings"
)

// Property values are big-endian like everything else in the blob.
// These helpers decode the common encodings; which one applies to a
// given property is for the caller to know.

// PropUint32 parses a property value as a 32 bit integer.
func PropUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// PropUint32Slice parses a property value as a slice of 32 bit
// integers.
func PropUint32Slice(b []byte) []uint32 {
	value := make([]uint32, len(b)/4)
	for i := range value {
		value[i] = PropUint32(b[i*4:])
	}
	return value
}

// PropString parses a property value as a go string.
func PropString(b []byte) string {
	return PropStringSlice(b)[0]
}

// PropStringSlice parses a property value as a go string slice.
func PropStringSlice(b []byte) []string {
	return strings.Split(string(b), "\x00")
}
