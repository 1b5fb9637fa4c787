// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitio

// Chunk is an immutable contiguous byte sequence supplied by the host. A
// Chunk must not be mutated by the caller after it is handed to Push: the
// reader may retain a reference to it for the lifetime of the retain flag.
type Chunk []byte

func (c Chunk) bits() int64 { return int64(len(c)) * 8 }

// ByteOrder selects how multi-byte, byte-aligned, whole-byte-multiple
// integers are assembled. Unaligned or non-byte-multiple reads are always
// most-significant-bit-first within each byte ("network order") regardless
// of this setting, per spec.
type ByteOrder int

const (
	// BigEndian is the default byte order for every field unless the field
	// itself opts into LittleEndian.
	BigEndian ByteOrder = iota
	LittleEndian
)
