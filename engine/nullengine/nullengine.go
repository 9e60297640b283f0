// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package nullengine implements the "null" backend engine (§4.6): a test
// fixture where every operation except StartMigration (status.NotSupported)
// succeeds with zero effect. Put discards its
// input, Get/Exists/Length report everything absent, Count is always zero,
// and the ordered operations return an empty result instead of
// status.NotSupported (the null engine claims IsSorted true precisely so it
// can stand in for any other engine in a test harness).
package nullengine

import (
	"context"

	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/yokan/backend"
	"storj.io/yokan/config"
	"storj.io/yokan/filter"
	"storj.io/yokan/migration"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
	"storj.io/yokan/usermem"
)

var mon = monkit.Package()

func init() {
	backend.Register("null", create)
}

// Config is the "null" backend's configuration document; it has no fields.
type Config struct{}

// Engine is the zero-effect backend.
type Engine struct {
	backend.Base
}

func create(ctx context.Context, raw []byte) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	return &Engine{}, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "null" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return "{}" }

// IsSorted implements backend.Engine: the null engine reports sorted so
// that ListKeys/ListKeyValues/Iter are exercised (as empty scans) rather
// than rejected.
func (e *Engine) IsSorted() bool { return true }

// SupportsMode implements backend.Engine: every mode bit is accepted and
// silently ignored.
func (e *Engine) SupportsMode(opmode.Mode) bool { return true }

// Destroy implements backend.Engine.
func (e *Engine) Destroy(context.Context) error { return nil }

// Count implements backend.Engine.
func (e *Engine) Count(context.Context, opmode.Mode) (uint64, error) { return 0, nil }

// Exists implements backend.Engine.
func (e *Engine) Exists(_ context.Context, _ opmode.Mode, keys usermem.Packed) (usermem.BitField, error) {
	return usermem.NewBitField(keys.Count()), nil
}

// Length implements backend.Engine.
func (e *Engine) Length(_ context.Context, _ opmode.Mode, keys usermem.Packed) ([]uint64, error) {
	out := make([]uint64, keys.Count())
	for i := range out {
		out[i] = status.KeyNotFound
	}
	return out, nil
}

// Put implements backend.Engine: discards every key/value pair.
func (e *Engine) Put(context.Context, opmode.Mode, usermem.Packed, usermem.Packed) error { return nil }

// Get implements backend.Engine: every key is reported not found.
func (e *Engine) Get(_ context.Context, mode opmode.Mode, packed bool, keys usermem.Packed, budgets []uint64) ([]backend.Slot, error) {
	values := make([][]byte, keys.Count())
	return backend.BuildOutput(values, packed, budgets, status.KeyNotFound), nil
}

// Fetch implements backend.Engine.
func (e *Engine) Fetch(_ context.Context, _ opmode.Mode, keys usermem.Packed, fn backend.FetchFunc) error {
	for _, k := range keys.Elements() {
		if err := fn(k, backend.NotFoundSlot()); err != nil {
			if status.CodeOf(err) == status.StopIteration {
				return nil
			}
			return err
		}
	}
	return nil
}

// Erase implements backend.Engine.
func (e *Engine) Erase(context.Context, opmode.Mode, usermem.Packed) error { return nil }

// ListKeys implements backend.Engine: always an empty, fully exhausted scan.
func (e *Engine) ListKeys(_ context.Context, mode opmode.Mode, packed bool, _ []byte, _ filter.KeyValue, max int, budgets []uint64) ([]backend.Slot, error) {
	values := make([][]byte, max)
	return backend.BuildOutput(values, packed, budgets, status.NoMoreKeys), nil
}

// ListKeyValues implements backend.Engine.
func (e *Engine) ListKeyValues(_ context.Context, mode opmode.Mode, packed bool, _ []byte, _ filter.KeyValue, max int, keyBudgets, valBudgets []uint64) ([]backend.Slot, []backend.Slot, error) {
	keys := make([][]byte, max)
	vals := make([][]byte, max)
	return backend.BuildOutput(keys, packed, keyBudgets, status.NoMoreKeys),
		backend.BuildOutput(vals, packed, valBudgets, status.NoMoreKeys), nil
}

// Iter implements backend.Engine: visits nothing.
func (e *Engine) Iter(context.Context, opmode.Mode, uint64, []byte, filter.KeyValue, bool, backend.IterFunc) error {
	return nil
}

// CollCreate implements backend.Engine.
func (e *Engine) CollCreate(context.Context, opmode.Mode, string) error { return nil }

// CollDrop implements backend.Engine.
func (e *Engine) CollDrop(context.Context, opmode.Mode, string) error { return nil }

// CollExists implements backend.Engine.
func (e *Engine) CollExists(context.Context, opmode.Mode, string) (bool, error) { return false, nil }

// CollLastID implements backend.Engine.
func (e *Engine) CollLastID(context.Context, opmode.Mode, string) (uint64, error) { return 0, nil }

// CollSize implements backend.Engine.
func (e *Engine) CollSize(context.Context, opmode.Mode, string) (uint64, error) { return 0, nil }

// DocSize implements backend.Engine.
func (e *Engine) DocSize(_ context.Context, _ opmode.Mode, _ string, ids []uint64) ([]uint64, error) {
	out := make([]uint64, len(ids))
	for i := range out {
		out[i] = status.KeyNotFound
	}
	return out, nil
}

// DocStore implements backend.Engine: discards every document and returns
// id 0 for each one.
func (e *Engine) DocStore(_ context.Context, _ opmode.Mode, _ string, docs usermem.Packed) ([]uint64, error) {
	return make([]uint64, docs.Count()), nil
}

// DocUpdate implements backend.Engine.
func (e *Engine) DocUpdate(context.Context, opmode.Mode, string, []uint64, usermem.Packed) error {
	return nil
}

// DocLoad implements backend.Engine.
func (e *Engine) DocLoad(_ context.Context, _ opmode.Mode, packed bool, _ string, ids []uint64, budgets []uint64) ([]backend.Slot, error) {
	values := make([][]byte, len(ids))
	return backend.BuildOutput(values, packed, budgets, status.KeyNotFound), nil
}

// DocFetch implements backend.Engine.
func (e *Engine) DocFetch(_ context.Context, _ opmode.Mode, _ string, ids []uint64, fn backend.DocFetchFunc) error {
	for _, id := range ids {
		if err := fn(id, backend.NotFoundSlot()); err != nil {
			if status.CodeOf(err) == status.StopIteration {
				return nil
			}
			return err
		}
	}
	return nil
}

// DocErase implements backend.Engine.
func (e *Engine) DocErase(context.Context, opmode.Mode, string, []uint64) error { return nil }

// DocList implements backend.Engine.
func (e *Engine) DocList(_ context.Context, _ opmode.Mode, packed bool, _ string, _ uint64, _ filter.Doc, max int, budgets []uint64) ([]uint64, []backend.Slot, error) {
	ids := make([]uint64, max)
	for i := range ids {
		ids[i] = status.NoMoreDocs
	}
	docs := make([][]byte, max)
	return ids, backend.BuildOutput(docs, packed, budgets, status.NoMoreDocs), nil
}

// DocIter implements backend.Engine.
func (e *Engine) DocIter(context.Context, opmode.Mode, string, uint64, uint64, filter.Doc, backend.DocIterFunc) error {
	return nil
}

// StartMigration implements backend.Engine.
func (e *Engine) StartMigration(context.Context) (migration.Handle, error) {
	return nil, status.Newf(status.NotSupported, "null: nothing to migrate")
}
