// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package filter

import "bytes"

// Prefix accepts keys beginning with a fixed byte string, and can signal
// an ordered scan to stop as soon as the cursor has moved past the prefix
// (byte-lexicographic order guarantees nothing further will match).
type Prefix struct {
	baseStop
	prefix        []byte
	requiresValue bool
}

// NewPrefix builds a Prefix filter. requiresValue should be set from
// opmode.FilterValue: without it, engines that can test the key alone may
// skip loading the value.
func NewPrefix(prefix []byte, requiresValue bool) *Prefix {
	return &Prefix{prefix: prefix, requiresValue: requiresValue}
}

// RequiresValue implements KeyValue.
func (f *Prefix) RequiresValue() bool { return f.requiresValue }

// Check implements KeyValue.
func (f *Prefix) Check(key, _ []byte) bool {
	return bytes.HasPrefix(key, f.prefix)
}

// ShouldStop implements KeyValue: once a key sorts past the prefix range,
// no later key in an ordered scan can match either.
func (f *Prefix) ShouldStop(key, _ []byte) bool {
	if len(key) < len(f.prefix) {
		return bytes.Compare(key, f.prefix) > 0
	}
	return bytes.Compare(key[:len(f.prefix)], f.prefix) > 0
}

// KeySizeFrom implements KeyValue.
func (f *Prefix) KeySizeFrom(key []byte) uint64 { return uint64(len(key)) }

// ValSizeFrom implements KeyValue.
func (f *Prefix) ValSizeFrom(val []byte) uint64 { return uint64(len(val)) }

// KeyCopy implements KeyValue: a plain bounded copy of key. It does not
// strip the prefix; NO_PREFIX stripping goes through Strip.
func (f *Prefix) KeyCopy(dst []byte, max uint64, key []byte) uint64 {
	return boundedCopy(dst, max, key)
}

// ValCopy implements KeyValue.
func (f *Prefix) ValCopy(dst []byte, max uint64, val []byte) uint64 {
	return boundedCopy(dst, max, val)
}

// Strip returns key with the matched prefix removed, for engines
// implementing NO_PREFIX.
func (f *Prefix) Strip(key []byte) []byte {
	if bytes.HasPrefix(key, f.prefix) {
		return key[len(f.prefix):]
	}
	return key
}

func boundedCopy(dst []byte, max uint64, src []byte) uint64 {
	n := uint64(len(src))
	if n > max {
		n = max
	}
	if uint64(len(dst)) < n {
		n = uint64(len(dst))
	}
	copy(dst[:n], src[:n])
	return n
}
