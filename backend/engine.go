// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package backend defines the abstract backend engine contract (§4.3–§4.4):
// the uniform operation set every concrete engine implements, a default
// implementation that returns status.NotSupported for every method so a
// concrete engine overrides only the subset it supports, and the
// process-wide registry engines are constructed through.
package backend

import (
	"context"

	"storj.io/yokan/filter"
	"storj.io/yokan/migration"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
	"storj.io/yokan/usermem"
)

// FetchFunc is invoked once per requested key, in input order, by Fetch. It
// receives the key and the value Slot (status.KeyNotFound-sized when the
// key is absent). Returning an error whose status.CodeOf is
// status.StopIteration halts the scan cleanly.
type FetchFunc func(key []byte, val Slot) error

// IterFunc is the streaming analogue of FetchFunc used by Iter, invoked
// once per matching live key/value pair in scan order.
type IterFunc func(key, val []byte) error

// DocFetchFunc is the document-store analogue of FetchFunc.
type DocFetchFunc func(id uint64, doc Slot) error

// DocIterFunc is the document-store analogue of IterFunc.
type DocIterFunc func(id uint64, doc []byte) error

// Engine is the uniform operation set every backend implements (§4.3,
// §4.4), plus the lifecycle and capability methods of §2.3. A concrete
// engine embeds Base to inherit a status.NotSupported default for every
// method, and overrides only the operations it can implement — the Go
// analogue of the original's abstract DatabaseInterface base class with
// "default = NotSupported" method bodies (§9).
type Engine interface {
	// Type returns the registered backend name (e.g. "map").
	Type() string

	// Config returns the backend's effective configuration, echoed back
	// the way it would be re-supplied to Create.
	Config() string

	// Destroy removes any persisted files and leaves the engine unusable.
	Destroy(ctx context.Context) error

	// SupportsMode reports whether the engine honors every bit set in
	// mode for at least one operation. Operations do not check their mode
	// against it: a call carrying unsupported bits is not rejected with
	// status.NotSupported or status.InvalidMode.
	SupportsMode(mode opmode.Mode) bool

	// IsSorted reports whether iteration yields keys in byte-lexicographic
	// (or custom-comparator) order. Unordered engines return false, and
	// ListKeys/ListKeyValues/Iter on them are status.NotSupported.
	IsSorted() bool

	Count(ctx context.Context, mode opmode.Mode) (uint64, error)
	Exists(ctx context.Context, mode opmode.Mode, keys usermem.Packed) (usermem.BitField, error)
	Length(ctx context.Context, mode opmode.Mode, keys usermem.Packed) ([]uint64, error)
	Put(ctx context.Context, mode opmode.Mode, keys, vals usermem.Packed) error
	Get(ctx context.Context, mode opmode.Mode, packed bool, keys usermem.Packed, budgets []uint64) ([]Slot, error)
	Fetch(ctx context.Context, mode opmode.Mode, keys usermem.Packed, fn FetchFunc) error
	Erase(ctx context.Context, mode opmode.Mode, keys usermem.Packed) error
	ListKeys(ctx context.Context, mode opmode.Mode, packed bool, fromKey []byte, f filter.KeyValue, max int, budgets []uint64) ([]Slot, error)
	ListKeyValues(ctx context.Context, mode opmode.Mode, packed bool, fromKey []byte, f filter.KeyValue, max int, keyBudgets, valBudgets []uint64) (keys, vals []Slot, err error)
	Iter(ctx context.Context, mode opmode.Mode, max uint64, fromKey []byte, f filter.KeyValue, ignoreValues bool, fn IterFunc) error

	CollCreate(ctx context.Context, mode opmode.Mode, name string) error
	CollDrop(ctx context.Context, mode opmode.Mode, name string) error
	CollExists(ctx context.Context, mode opmode.Mode, name string) (bool, error)
	CollLastID(ctx context.Context, mode opmode.Mode, name string) (uint64, error)
	CollSize(ctx context.Context, mode opmode.Mode, name string) (uint64, error)

	DocSize(ctx context.Context, mode opmode.Mode, collection string, ids []uint64) ([]uint64, error)
	DocStore(ctx context.Context, mode opmode.Mode, collection string, docs usermem.Packed) ([]uint64, error)
	DocUpdate(ctx context.Context, mode opmode.Mode, collection string, ids []uint64, docs usermem.Packed) error
	DocLoad(ctx context.Context, mode opmode.Mode, packed bool, collection string, ids []uint64, budgets []uint64) ([]Slot, error)
	DocFetch(ctx context.Context, mode opmode.Mode, collection string, ids []uint64, fn DocFetchFunc) error
	DocErase(ctx context.Context, mode opmode.Mode, collection string, ids []uint64) error
	DocList(ctx context.Context, mode opmode.Mode, packed bool, collection string, fromID uint64, f filter.Doc, max int, budgets []uint64) (ids []uint64, docs []Slot, err error)
	DocIter(ctx context.Context, mode opmode.Mode, collection string, max uint64, fromID uint64, f filter.Doc, fn DocIterFunc) error

	StartMigration(ctx context.Context) (migration.Handle, error)
}

// Base implements Engine with every operation returning status.NotSupported
// except the handful with sensible universal defaults (IsSorted: false).
// Concrete engines embed Base and override the subset of methods they
// implement.
type Base struct{}

var errNotSupported = status.Newf(status.NotSupported, "operation not supported by this backend")

func (Base) Type() string                        { return "" }
func (Base) Config() string                       { return "{}" }
func (Base) Destroy(context.Context) error        { return nil }
func (Base) SupportsMode(opmode.Mode) bool        { return false }
func (Base) IsSorted() bool                       { return false }

func (Base) Count(context.Context, opmode.Mode) (uint64, error) { return 0, errNotSupported }

func (Base) Exists(context.Context, opmode.Mode, usermem.Packed) (usermem.BitField, error) {
	return usermem.BitField{}, errNotSupported
}

func (Base) Length(context.Context, opmode.Mode, usermem.Packed) ([]uint64, error) {
	return nil, errNotSupported
}

func (Base) Put(context.Context, opmode.Mode, usermem.Packed, usermem.Packed) error {
	return errNotSupported
}

func (Base) Get(context.Context, opmode.Mode, bool, usermem.Packed, []uint64) ([]Slot, error) {
	return nil, errNotSupported
}

func (Base) Fetch(context.Context, opmode.Mode, usermem.Packed, FetchFunc) error {
	return errNotSupported
}

func (Base) Erase(context.Context, opmode.Mode, usermem.Packed) error { return errNotSupported }

func (Base) ListKeys(context.Context, opmode.Mode, bool, []byte, filter.KeyValue, int, []uint64) ([]Slot, error) {
	return nil, errNotSupported
}

func (Base) ListKeyValues(context.Context, opmode.Mode, bool, []byte, filter.KeyValue, int, []uint64, []uint64) ([]Slot, []Slot, error) {
	return nil, nil, errNotSupported
}

func (Base) Iter(context.Context, opmode.Mode, uint64, []byte, filter.KeyValue, bool, IterFunc) error {
	return errNotSupported
}

func (Base) CollCreate(context.Context, opmode.Mode, string) error { return errNotSupported }
func (Base) CollDrop(context.Context, opmode.Mode, string) error   { return errNotSupported }

func (Base) CollExists(context.Context, opmode.Mode, string) (bool, error) {
	return false, errNotSupported
}

func (Base) CollLastID(context.Context, opmode.Mode, string) (uint64, error) {
	return 0, errNotSupported
}

func (Base) CollSize(context.Context, opmode.Mode, string) (uint64, error) {
	return 0, errNotSupported
}

func (Base) DocSize(context.Context, opmode.Mode, string, []uint64) ([]uint64, error) {
	return nil, errNotSupported
}

func (Base) DocStore(context.Context, opmode.Mode, string, usermem.Packed) ([]uint64, error) {
	return nil, errNotSupported
}

func (Base) DocUpdate(context.Context, opmode.Mode, string, []uint64, usermem.Packed) error {
	return errNotSupported
}

func (Base) DocLoad(context.Context, opmode.Mode, bool, string, []uint64, []uint64) ([]Slot, error) {
	return nil, errNotSupported
}

func (Base) DocFetch(context.Context, opmode.Mode, string, []uint64, DocFetchFunc) error {
	return errNotSupported
}

func (Base) DocErase(context.Context, opmode.Mode, string, []uint64) error { return errNotSupported }

func (Base) DocList(context.Context, opmode.Mode, bool, string, uint64, filter.Doc, int, []uint64) ([]uint64, []Slot, error) {
	return nil, nil, errNotSupported
}

func (Base) DocIter(context.Context, opmode.Mode, string, uint64, uint64, filter.Doc, DocIterFunc) error {
	return errNotSupported
}

func (Base) StartMigration(context.Context) (migration.Handle, error) {
	return nil, errNotSupported
}
