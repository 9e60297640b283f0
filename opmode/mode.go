// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package opmode defines the caller-supplied mode bitmask that parameterizes
// nearly every backend engine operation.
package opmode

import "strings"

// Mode is a 32-bit bitmask passed to backend operations.
type Mode uint32

// Recognized mode bits. Bit 3 is deliberately shared between WAIT and
// NOTIFY: which meaning applies depends on whether the bit is set on a
// lookup (WAIT) or on a write (NOTIFY), exactly as in the original
// specification.
const (
	Inclusive Mode = 1 << 0 // listKeys/listKeyValues/docList include the starting key/id
	Append    Mode = 1 << 1 // put concatenates instead of replacing
	Consume   Mode = 1 << 2 // get also erases matched keys
	Wait      Mode = 1 << 3 // lookup of a missing key blocks until it appears
	Notify    Mode = 1 << 3 // put wakes waiters on the written key
	NewOnly   Mode = 1 << 4 // put rejects an existing key with KeyExists
	ExistOnly Mode = 1 << 5 // put only updates keys that already exist
	NoPrefix  Mode = 1 << 6 // iteration strips the filter's prefix/suffix from returned keys
	IgnoreKeys Mode = 1 << 7 // listKeyValues returns empty keys
	keepLastOnly Mode = 1 << 8
	KeepLast  Mode = IgnoreKeys | keepLastOnly // IgnoreKeys but the last key is kept intact
	Suffix    Mode = 1 << 9  // the filter argument is a suffix, not a prefix
	LuaFilter Mode = 1 << 10 // the filter argument is an embedded-scripting predicate
	IgnoreDocs  Mode = 1 << 11 // docList returns ids only
	FilterValue Mode = 1 << 12 // filter predicate consumes the value
	LibFilter   Mode = 1 << 13 // filter argument names a dynamically loaded filter
	NoRDMA      Mode = 1 << 14 // transport hint, opaque to the core
	UpdateNew   Mode = 1 << 15 // docUpdate may create a document beyond last_id
)

var bitNames = []struct {
	bit  Mode
	name string
}{
	{Inclusive, "INCLUSIVE"},
	{Append, "APPEND"},
	{Consume, "CONSUME"},
	{Wait, "WAIT/NOTIFY"},
	{NewOnly, "NEW_ONLY"},
	{ExistOnly, "EXIST_ONLY"},
	{NoPrefix, "NO_PREFIX"},
	{keepLastOnly, "KEEP_LAST"},
	{IgnoreKeys, "IGNORE_KEYS"},
	{Suffix, "SUFFIX"},
	{LuaFilter, "LUA_FILTER"},
	{IgnoreDocs, "IGNORE_DOCS"},
	{FilterValue, "FILTER_VALUE"},
	{LibFilter, "LIB_FILTER"},
	{NoRDMA, "NO_RDMA"},
	{UpdateNew, "UPDATE_NEW"},
}

// Has reports whether every bit of want is set in m.
func (m Mode) Has(want Mode) bool {
	return m&want == want
}

// HasAny reports whether any bit of want is set in m.
func (m Mode) HasAny(want Mode) bool {
	return m&want != 0
}

// String renders the mode as a `|`-joined list of recognized bit names, for
// use as a zap field; unrecognized bits are rendered as a trailing hex
// residue.
func (m Mode) String() string {
	if m == 0 {
		return "NONE"
	}
	var parts []string
	seen := Mode(0)
	for _, bn := range bitNames {
		if m&bn.bit == bn.bit && seen&bn.bit != bn.bit {
			parts = append(parts, bn.name)
			seen |= bn.bit
		}
	}
	if rest := m &^ seen; rest != 0 {
		parts = append(parts, "0x"+itoa16(uint32(rest)))
	}
	return strings.Join(parts, "|")
}

func itoa16(v uint32) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xF]
		v >>= 4
	}
	return string(buf[i:])
}
