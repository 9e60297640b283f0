// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package filter

import "bytes"

// Suffix accepts keys ending with a fixed byte string. Unlike Prefix it
// cannot terminate an ordered scan early: a matching suffix gives no
// information about where in byte-lexicographic order the next match
// might appear.
type Suffix struct {
	baseStop
	suffix        []byte
	requiresValue bool
}

// NewSuffix builds a Suffix filter.
func NewSuffix(suffix []byte, requiresValue bool) *Suffix {
	return &Suffix{suffix: suffix, requiresValue: requiresValue}
}

// RequiresValue implements KeyValue.
func (f *Suffix) RequiresValue() bool { return f.requiresValue }

// Check implements KeyValue.
func (f *Suffix) Check(key, _ []byte) bool {
	return bytes.HasSuffix(key, f.suffix)
}

// KeySizeFrom implements KeyValue.
func (f *Suffix) KeySizeFrom(key []byte) uint64 { return uint64(len(key)) }

// ValSizeFrom implements KeyValue.
func (f *Suffix) ValSizeFrom(val []byte) uint64 { return uint64(len(val)) }

// KeyCopy implements KeyValue.
func (f *Suffix) KeyCopy(dst []byte, max uint64, key []byte) uint64 {
	return boundedCopy(dst, max, key)
}

// ValCopy implements KeyValue.
func (f *Suffix) ValCopy(dst []byte, max uint64, val []byte) uint64 {
	return boundedCopy(dst, max, val)
}

// Strip returns key with the matched suffix removed, for engines
// implementing NO_PREFIX (which, despite the name, also governs suffix
// stripping per §4.2).
func (f *Suffix) Strip(key []byte) []byte {
	if bytes.HasSuffix(key, f.suffix) {
		return key[:len(key)-len(f.suffix)]
	}
	return key
}
