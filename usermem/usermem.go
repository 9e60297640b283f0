// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package usermem provides the non-owning buffer types that describe
// caller-supplied memory ranges without copying. Every backend engine
// operation takes and returns values of these types instead of allocating
// private containers purely to satisfy a call signature: a Go slice is
// already a non-owning (pointer, length) view, so Packed and BitField are
// thin structures built directly on top of borrowed slices.
package usermem

import "storj.io/yokan/status"

// Packed describes N byte strings concatenated back-to-back into a single
// contiguous Data buffer, with Sizes[i] giving the length of the i-th
// string. It is the Go analogue of the C UserMem + BasicUserMem<size_t>
// pair used throughout the original backend contract.
type Packed struct {
	Data  []byte
	Sizes []uint64
}

// Count returns the number of packed elements.
func (p Packed) Count() int { return len(p.Sizes) }

// TotalSize returns the sum of the declared sizes.
func (p Packed) TotalSize() uint64 {
	var total uint64
	for _, s := range p.Sizes {
		total += s
	}
	return total
}

// Validate checks that the declared sizes do not overrun Data, returning
// status.InvalidArg otherwise (§4.3: "the sum of sizes must not exceed the
// buffer size").
func (p Packed) Validate() error {
	if p.TotalSize() > uint64(len(p.Data)) {
		return status.Newf(status.InvalidArg, "packed sizes exceed buffer length")
	}
	return nil
}

// At returns the i-th element as a slice into Data. Callers must have
// validated p first; At panics on an out-of-range index the same way
// indexing a Go slice would.
func (p Packed) At(i int) []byte {
	off := uint64(0)
	for j := 0; j < i; j++ {
		off += p.Sizes[j]
	}
	return p.Data[off : off+p.Sizes[i]]
}

// Elements materializes every packed element as a slice into Data, in
// order. The returned slices alias Data; callers must not retain them past
// Data's lifetime without copying.
func (p Packed) Elements() [][]byte {
	out := make([][]byte, len(p.Sizes))
	off := uint64(0)
	for i, sz := range p.Sizes {
		out[i] = p.Data[off : off+sz]
		off += sz
	}
	return out
}

// Pack concatenates elems into a single Packed buffer.
func Pack(elems [][]byte) Packed {
	sizes := make([]uint64, len(elems))
	total := uint64(0)
	for i, e := range elems {
		sizes[i] = uint64(len(e))
		total += sizes[i]
	}
	data := make([]byte, 0, total)
	for _, e := range elems {
		data = append(data, e...)
	}
	return Packed{Data: data, Sizes: sizes}
}

// BitField is a non-owning view over a byte slice interpreted as a bit
// array, used by Exists to report presence of N keys without allocating a
// []bool.
type BitField struct {
	Data []byte
	Len  int
}

// NewBitField allocates a BitField able to hold n bits, sized the way a
// caller's output buffer for Exists would be: ceil(n/8) bytes.
func NewBitField(n int) BitField {
	return BitField{Data: make([]byte, (n+7)/8), Len: n}
}

// Get reports the i-th bit.
func (b BitField) Get(i int) bool {
	return b.Data[i/8]&(1<<uint(i%8)) != 0
}

// Set assigns the i-th bit.
func (b BitField) Set(i int, v bool) {
	mask := byte(1 << uint(i%8))
	if v {
		b.Data[i/8] |= mask
	} else {
		b.Data[i/8] &^= mask
	}
}
