// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package filter defines the predicate-plus-copy-policy abstraction applied
// during iterated backend operations (listKeys, listKeyValues, iter,
// docList, docIter), and the factory that builds a concrete filter from a
// caller-supplied mode and descriptor byte range.
package filter

import (
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

// KeyValue is the capability set consulted while an ordered engine walks
// its keyspace. Engines call Check for every candidate key (skipping the
// value load when RequiresValue is false) and stop the scan as soon as
// ShouldStop returns true. The engines built on backend/kvcore copy
// accepted keys and values themselves (stripping under opmode.NoPrefix
// through Stripper); they do not call KeySizeFrom, ValSizeFrom, KeyCopy or
// ValCopy.
type KeyValue interface {
	// RequiresValue reports whether Check needs the value loaded. Engines
	// that can return keys without loading values (most embedded ordered
	// engines) use this to skip value materialization for value-agnostic
	// predicates.
	RequiresValue() bool

	// Check decides whether the given key/value pair passes the filter.
	// val is nil when RequiresValue is false and the engine chose to skip
	// loading it.
	Check(key, val []byte) bool

	// KeySizeFrom computes the size of key after the filter is applied
	// (or an upper bound), for keys that have already passed Check.
	KeySizeFrom(key []byte) uint64

	// ValSizeFrom is the value analogue of KeySizeFrom.
	ValSizeFrom(val []byte) uint64

	// KeyCopy copies (a possibly rewritten form of) key into dst, which
	// has capacity max. It returns the number of bytes actually copied.
	KeyCopy(dst []byte, max uint64, key []byte) uint64

	// ValCopy is the value analogue of KeyCopy.
	ValCopy(dst []byte, max uint64, val []byte) uint64

	// ShouldStop is consulted only when Check has just returned false; it
	// lets a filter such as a prefix filter tell the engine that no
	// further key in the scan order can pass, so the scan can stop early.
	ShouldStop(key, val []byte) bool
}

// Stripper is implemented by filters that can remove the portion of a key
// that was only there to drive the match (the prefix or suffix literal),
// for engines honoring opmode.NoPrefix. A filter that doesn't implement
// Stripper (Lua or dynamically loaded filters) leaves keys untouched.
type Stripper interface {
	Strip(key []byte) []byte
}

// Doc is the document-store analogue of KeyValue.
type Doc interface {
	Check(collection string, id uint64, doc []byte) bool
	DocSizeFrom(collection string, doc []byte) uint64
	DocCopy(collection string, dst []byte, max uint64, doc []byte) uint64
}

// baseStop is embedded by filters that never stop a scan early, so they
// only need to implement ShouldStop once.
type baseStop struct{}

func (baseStop) ShouldStop([]byte, []byte) bool { return false }

// New builds the concrete KeyValue filter named by mode's filter bits
// (opmode.Suffix, opmode.LuaFilter, opmode.LibFilter), defaulting to a
// prefix filter when none of those bits are set. descriptor is the raw
// filter argument byte range: a literal prefix/suffix, a Lua predicate
// source, or a "lib:name:args" descriptor for LibFilter.
func New(mode opmode.Mode, descriptor []byte) (KeyValue, error) {
	switch {
	case mode.Has(opmode.LibFilter):
		return newLibFilter(mode, descriptor)
	case mode.Has(opmode.LuaFilter):
		return newLuaFilter(mode, descriptor)
	case mode.Has(opmode.Suffix):
		return NewSuffix(descriptor, mode.Has(opmode.FilterValue)), nil
	default:
		return NewPrefix(descriptor, mode.Has(opmode.FilterValue)), nil
	}
}

// NewDoc is the Doc analogue of New.
func NewDoc(mode opmode.Mode, descriptor []byte) (Doc, error) {
	switch {
	case mode.Has(opmode.LibFilter):
		return newLibDocFilter(mode, descriptor)
	case mode.Has(opmode.LuaFilter):
		return newLuaDocFilter(mode, descriptor)
	default:
		return NewDocPrefix(descriptor, mode.Has(opmode.FilterValue)), nil
	}
}

// hooks let the luafilter/libfilter sub-packages register their
// constructors without this package importing them directly (they in turn
// import this package for the KeyValue/Doc interfaces, so a direct import
// here would cycle). RegisterLuaHooks and RegisterLibHooks below set them.
var (
	luaFilterHook    func(mode opmode.Mode, descriptor []byte) (KeyValue, error)
	luaDocFilterHook func(mode opmode.Mode, descriptor []byte) (Doc, error)
	libFilterHook    func(mode opmode.Mode, descriptor []byte) (KeyValue, error)
	libDocFilterHook func(mode opmode.Mode, descriptor []byte) (Doc, error)
)

// RegisterLuaHooks is called by filter/luafilter's init to wire the
// embedded-scripting predicate into New/NewDoc.
func RegisterLuaHooks(
	kv func(mode opmode.Mode, descriptor []byte) (KeyValue, error),
	doc func(mode opmode.Mode, descriptor []byte) (Doc, error),
) {
	luaFilterHook, luaDocFilterHook = kv, doc
}

// RegisterLibHooks is called by filter/libfilter's init to wire the
// dynamically loaded predicate into New/NewDoc.
func RegisterLibHooks(
	kv func(mode opmode.Mode, descriptor []byte) (KeyValue, error),
	doc func(mode opmode.Mode, descriptor []byte) (Doc, error),
) {
	libFilterHook, libDocFilterHook = kv, doc
}

func newLuaFilter(mode opmode.Mode, descriptor []byte) (KeyValue, error) {
	if luaFilterHook == nil {
		return nil, status.Newf(status.NotSupported, "LUA_FILTER: embedded scripting support not linked in")
	}
	return luaFilterHook(mode, descriptor)
}

func newLuaDocFilter(mode opmode.Mode, descriptor []byte) (Doc, error) {
	if luaDocFilterHook == nil {
		return nil, status.Newf(status.NotSupported, "LUA_FILTER: embedded scripting support not linked in")
	}
	return luaDocFilterHook(mode, descriptor)
}

func newLibFilter(mode opmode.Mode, descriptor []byte) (KeyValue, error) {
	if libFilterHook == nil {
		return nil, status.Newf(status.NotSupported, "LIB_FILTER: dynamic filter loading not linked in")
	}
	return libFilterHook(mode, descriptor)
}

func newLibDocFilter(mode opmode.Mode, descriptor []byte) (Doc, error) {
	if libDocFilterHook == nil {
		return nil, status.Newf(status.NotSupported, "LIB_FILTER: dynamic filter loading not linked in")
	}
	return libDocFilterHook(mode, descriptor)
}
