// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package kvcore implements the key/value half of the backend engine
// contract (§4.3) once, generically, on top of a minimal per-engine
// storage primitive. Every concrete key/value engine (ordered-map,
// unordered-map, ordered-set, unordered-set, the bbolt/badger/hash-file/
// mmap on-disk engines, and the redis engine) implements only Store and
// embeds *Core to get Count/Exists/Length/Put/Get/Fetch/Erase/ListKeys/
// ListKeyValues/Iter for free — the composition this package's name
// refers to is the Go analogue of the original DatabaseInterface base
// class, generalized one level further since so many concrete engines
// share the exact same packed-buffer and mode bookkeeping on top of
// wildly different storage representations (§9: "Inheritance-based reuse
// becomes composition").
package kvcore

import "context"

// Store is the minimal primitive a key/value engine must provide. Core
// builds every operation of §4.3 on top of it.
type Store interface {
	// RawGet returns the current value for key, or found=false.
	RawGet(ctx context.Context, key []byte) (value []byte, found bool, err error)

	// RawSet unconditionally stores value under key, replacing any
	// existing value.
	RawSet(ctx context.Context, key, value []byte) error

	// RawDelete removes key if present; removing an absent key is not an
	// error.
	RawDelete(ctx context.Context, key []byte) error

	// RawCount returns the number of live keys, or an error for stores
	// that cannot report it; Core.Count returns that error unchanged.
	RawCount(ctx context.Context) (uint64, error)
}

// OrderedStore is implemented additionally by sorted stores, to drive
// ListKeys/ListKeyValues/Iter. fn is called with keys in ascending order
// starting at (or just after) from; the walk stops when fn returns
// cont=false or a non-nil error.
type OrderedStore interface {
	Store
	RawIterate(ctx context.Context, from []byte, inclusive bool, fn func(key, val []byte) (cont bool, err error)) error
}
