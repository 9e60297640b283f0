// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package arrayengine implements the in-memory, document-native "array"
// backend engine (§4.8): each collection is a contiguous byte buffer plus
// parallel offset/size slot vectors indexed by document id, with a live
// count tracking how many slots are not tombstones. It has no key/value
// representation at all (isSorted is meaningless for it, matching the
// catalogue's "n/a" entry), so Engine leaves every key/value operation to
// backend.Base's NotSupported defaults and implements the Coll*/Doc*
// methods, StartMigration and the engine metadata methods itself.
package arrayengine

import (
	"context"
	"encoding/binary"
	"sync"

	"go.uber.org/zap"
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
	backend.RegisterRecoverable("array", create, recoverEngine)
}

// Config is the "array" backend's configuration document; the array engine
// is purely in-memory, so it has no fields of its own.
type Config struct{}

// collection is one named document array.
type collection struct {
	buf       []byte
	offsets   []uint64
	sizes     []uint64
	liveCount uint64
}

func newCollection() *collection { return &collection{} }

func (c *collection) nextID() uint64 { return uint64(len(c.offsets)) }

// Engine is the in-memory document-native array backend.
type Engine struct {
	backend.Base
	mu    sync.RWMutex
	colls map[string]*collection
	log   *zap.Logger
}

func create(ctx context.Context, raw []byte) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	return &Engine{colls: make(map[string]*collection), log: zap.L().Named("yokan.array")}, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "array" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return "{}" }

// Destroy implements backend.Engine.
func (e *Engine) Destroy(context.Context) error { return nil }

// IsSorted implements backend.Engine: meaningless for a document-native
// engine, reported false like the catalogue's other document-native entry.
func (e *Engine) IsSorted() bool { return false }

// SupportsMode implements backend.Engine.
func (e *Engine) SupportsMode(mode opmode.Mode) bool {
	const allowed = opmode.Inclusive | opmode.IgnoreDocs | opmode.UpdateNew | opmode.FilterValue |
		opmode.Suffix | opmode.LuaFilter | opmode.LibFilter
	return mode&^allowed == 0
}

func (e *Engine) coll(name string) (*collection, error) {
	c, ok := e.colls[name]
	if !ok {
		return nil, status.Newf(status.InvalidArg, "array: no such collection %q", name)
	}
	return c, nil
}

// CollCreate implements backend.Engine.
func (e *Engine) CollCreate(_ context.Context, _ opmode.Mode, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.colls[name]; ok {
		return status.Newf(status.KeyExists, "array: collection %q already exists", name)
	}
	e.colls[name] = newCollection()
	return nil
}

// CollDrop implements backend.Engine.
func (e *Engine) CollDrop(_ context.Context, _ opmode.Mode, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.colls, name)
	return nil
}

// CollExists implements backend.Engine.
func (e *Engine) CollExists(_ context.Context, _ opmode.Mode, name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.colls[name]
	return ok, nil
}

// CollLastID implements backend.Engine.
func (e *Engine) CollLastID(_ context.Context, _ opmode.Mode, name string) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, err := e.coll(name)
	if err != nil {
		return 0, err
	}
	if c.nextID() == 0 {
		return 0, nil
	}
	return c.nextID() - 1, nil
}

// CollSize implements backend.Engine.
func (e *Engine) CollSize(_ context.Context, _ opmode.Mode, name string) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, err := e.coll(name)
	if err != nil {
		return 0, err
	}
	return c.liveCount, nil
}

// DocSize implements backend.Engine.
func (e *Engine) DocSize(_ context.Context, _ opmode.Mode, name string, ids []uint64) ([]uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, err := e.coll(name)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(ids))
	for i, id := range ids {
		if id >= c.nextID() || c.sizes[id] == status.KeyNotFound {
			out[i] = status.KeyNotFound
			continue
		}
		out[i] = c.sizes[id]
	}
	return out, nil
}

// DocStore implements backend.Engine.
func (e *Engine) DocStore(_ context.Context, _ opmode.Mode, name string, docs usermem.Packed) ([]uint64, error) {
	if err := docs.Validate(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.coll(name)
	if err != nil {
		return nil, err
	}
	elems := docs.Elements()
	ids := make([]uint64, len(elems))
	for i, doc := range elems {
		id := c.nextID()
		off := uint64(len(c.buf))
		c.buf = append(c.buf, doc...)
		c.offsets = append(c.offsets, off)
		c.sizes = append(c.sizes, uint64(len(doc)))
		c.liveCount++
		ids[i] = id
	}
	return ids, nil
}

// DocUpdate implements backend.Engine.
func (e *Engine) DocUpdate(_ context.Context, mode opmode.Mode, name string, ids []uint64, docs usermem.Packed) error {
	if err := docs.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.coll(name)
	if err != nil {
		return err
	}
	elems := docs.Elements()
	if len(ids) != len(elems) {
		return status.Newf(status.InvalidArg, "array: docUpdate: %d ids but %d documents", len(ids), len(elems))
	}
	for i, id := range ids {
		if id >= c.nextID() {
			if !mode.Has(opmode.UpdateNew) {
				return status.Newf(status.InvalidID, "array: docUpdate: id %d beyond last allocated id", id)
			}
			for c.nextID() <= id {
				c.offsets = append(c.offsets, status.KeyNotFound)
				c.sizes = append(c.sizes, status.KeyNotFound)
			}
		}
		wasLive := c.sizes[id] != status.KeyNotFound
		off := uint64(len(c.buf))
		c.buf = append(c.buf, elems[i]...)
		c.offsets[id] = off
		c.sizes[id] = uint64(len(elems[i]))
		if !wasLive {
			c.liveCount++
		}
	}
	return nil
}

func (c *collection) load(id uint64) ([]byte, bool) {
	if id >= c.nextID() || c.sizes[id] == status.KeyNotFound {
		return nil, false
	}
	off, size := c.offsets[id], c.sizes[id]
	return c.buf[off : off+size], true
}

// DocLoad implements backend.Engine.
func (e *Engine) DocLoad(_ context.Context, _ opmode.Mode, packed bool, name string, ids []uint64, budgets []uint64) ([]backend.Slot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, err := e.coll(name)
	if err != nil {
		return nil, err
	}
	values := make([][]byte, len(ids))
	for i, id := range ids {
		if v, ok := c.load(id); ok {
			values[i] = v
		}
	}
	return backend.BuildOutput(values, packed, budgets, status.KeyNotFound), nil
}

// DocFetch implements backend.Engine.
func (e *Engine) DocFetch(_ context.Context, _ opmode.Mode, name string, ids []uint64, fn backend.DocFetchFunc) error {
	e.mu.RLock()
	c, err := e.coll(name)
	e.mu.RUnlock()
	if err != nil {
		return err
	}
	for _, id := range ids {
		e.mu.RLock()
		v, ok := c.load(id)
		e.mu.RUnlock()
		var slot backend.Slot
		if ok {
			slot = backend.Slot{Data: v, Size: uint64(len(v))}
		} else {
			slot = backend.NotFoundSlot()
		}
		if err := fn(id, slot); err != nil {
			if status.CodeOf(err) == status.StopIteration {
				return nil
			}
			return err
		}
	}
	return nil
}

// DocErase implements backend.Engine.
func (e *Engine) DocErase(_ context.Context, _ opmode.Mode, name string, ids []uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.coll(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id >= c.nextID() || c.sizes[id] == status.KeyNotFound {
			continue
		}
		c.sizes[id] = status.KeyNotFound
		c.offsets[id] = status.KeyNotFound
		c.liveCount--
	}
	return nil
}

// DocList implements backend.Engine.
func (e *Engine) DocList(_ context.Context, mode opmode.Mode, packed bool, name string, fromID uint64, f filter.Doc, max int, budgets []uint64) ([]uint64, []backend.Slot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, err := e.coll(name)
	if err != nil {
		return nil, nil, err
	}
	var ids []uint64
	var docs [][]byte
	start := fromID
	if !mode.Has(opmode.Inclusive) {
		start++
	}
	for id := start; id < c.nextID() && (max <= 0 || len(ids) < max); id++ {
		doc, ok := c.load(id)
		if !ok {
			continue
		}
		if !f.Check(name, id, doc) {
			continue
		}
		ids = append(ids, id)
		if mode.Has(opmode.IgnoreDocs) {
			docs = append(docs, []byte{})
		} else {
			docs = append(docs, append([]byte(nil), doc...))
		}
	}
	for len(ids) < max {
		ids = append(ids, status.NoMoreDocs)
		docs = append(docs, nil)
	}
	return ids, backend.BuildOutput(docs, packed, budgets, status.NoMoreDocs), nil
}

// DocIter implements backend.Engine.
func (e *Engine) DocIter(_ context.Context, mode opmode.Mode, name string, max uint64, fromID uint64, f filter.Doc, fn backend.DocIterFunc) error {
	e.mu.RLock()
	c, err := e.coll(name)
	e.mu.RUnlock()
	if err != nil {
		return err
	}
	start := fromID
	if !mode.Has(opmode.Inclusive) {
		start++
	}
	var n uint64
	for id := start; id < c.nextID(); id++ {
		if max > 0 && n >= max {
			return nil
		}
		e.mu.RLock()
		doc, ok := c.load(id)
		e.mu.RUnlock()
		if !ok {
			continue
		}
		if !f.Check(name, id, doc) {
			continue
		}
		if err := fn(id, doc); err != nil {
			if status.CodeOf(err) == status.StopIteration {
				return nil
			}
			return err
		}
		n++
	}
	return nil
}

// StartMigration implements backend.Engine: snapshots every collection into
// a single little-endian buffer (u64 collection count; per collection a u64
// name length, the name, a u64 slot count, then per slot a u64 size, which
// is status.KeyNotFound for a tombstone, followed by the payload), handed
// to the caller as a one-file migration.Handle.
func (e *Engine) StartMigration(ctx context.Context) (migration.Handle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(len(e.colls)))
	for name, c := range e.colls {
		var nameLen [8]byte
		binary.LittleEndian.PutUint64(nameLen[:], uint64(len(name)))
		buf = append(buf, nameLen[:]...)
		buf = append(buf, name...)
		var collSize [8]byte
		binary.LittleEndian.PutUint64(collSize[:], c.nextID())
		buf = append(buf, collSize[:]...)
		for id := uint64(0); id < c.nextID(); id++ {
			var sizeField [8]byte
			if c.sizes[id] == status.KeyNotFound {
				binary.LittleEndian.PutUint64(sizeField[:], status.KeyNotFound)
				buf = append(buf, sizeField[:]...)
				continue
			}
			binary.LittleEndian.PutUint64(sizeField[:], c.sizes[id])
			buf = append(buf, sizeField[:]...)
			off := c.offsets[id]
			buf = append(buf, c.buf[off:off+c.sizes[id]]...)
		}
	}
	return newSnapshotHandle(buf), nil
}
