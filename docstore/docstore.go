// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package docstore implements the document-store collection operations
// (§4.4, §4.6 "document-native mixin") on top of any ordered, KV-capable
// backend.Engine, the way the original layers its collection abstraction
// over a handful of its key/value backends instead of every backend
// reimplementing it. A collection's documents are stored as ordinary
// key/value pairs keyed by dockey.Encode(collection, id); a single extra
// key per collection — the bare collection name, deliberately without
// dockey's NUL separator so it can never collide with a document key —
// holds the collection's next_id and live count.
package docstore

import (
	"context"
	"encoding/binary"

	"storj.io/yokan/backend"
	"storj.io/yokan/dockey"
	"storj.io/yokan/filter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
	"storj.io/yokan/usermem"
)

// Wrap returns a backend.Engine that adds Coll*/Doc* support to inner by
// encoding documents as key/value pairs. inner must report IsSorted() true:
// docList/docIter and the underlying collection-drop scan depend on an
// ordered key range scoped to one collection's prefix.
func Wrap(inner backend.Engine) backend.Engine {
	return &Engine{Engine: inner}
}

// Engine forwards every key/value operation to the wrapped engine
// unmodified, and implements the Coll*/Doc* operations Base would
// otherwise report NotSupported for.
type Engine struct {
	backend.Engine
}

const metaSize = 16 // next_id, live_count

func decodeMeta(v []byte) (nextID, liveCount uint64) {
	if len(v) < metaSize {
		return 0, 0
	}
	return binary.BigEndian.Uint64(v[0:8]), binary.BigEndian.Uint64(v[8:16])
}

func encodeMeta(nextID, liveCount uint64) []byte {
	v := make([]byte, metaSize)
	binary.BigEndian.PutUint64(v[0:8], nextID)
	binary.BigEndian.PutUint64(v[8:16], liveCount)
	return v
}

func metaKey(collection string) []byte { return []byte(collection) }

func (e *Engine) loadMeta(ctx context.Context, mode opmode.Mode, collection string) (nextID, liveCount uint64, found bool, err error) {
	keys := usermem.Pack([][]byte{metaKey(collection)})
	slots, err := e.Engine.Get(ctx, mode&^(opmode.Wait|opmode.Consume), false, keys, []uint64{metaSize})
	if err != nil {
		return 0, 0, false, err
	}
	if slots[0].Size == status.KeyNotFound {
		return 0, 0, false, nil
	}
	n, l := decodeMeta(slots[0].Data)
	return n, l, true, nil
}

func (e *Engine) storeMeta(ctx context.Context, collection string, nextID, liveCount uint64) error {
	keys := usermem.Pack([][]byte{metaKey(collection)})
	vals := usermem.Pack([][]byte{encodeMeta(nextID, liveCount)})
	return e.Engine.Put(ctx, 0, keys, vals)
}

// CollCreate implements backend.Engine.
func (e *Engine) CollCreate(ctx context.Context, mode opmode.Mode, name string) error {
	_, _, found, err := e.loadMeta(ctx, mode, name)
	if err != nil {
		return err
	}
	if found {
		return status.Newf(status.KeyExists, "docstore: collection %q already exists", name)
	}
	return e.storeMeta(ctx, name, 0, 0)
}

// CollDrop implements backend.Engine: erases every document key under the
// collection's dockey prefix, then the metadata key itself.
func (e *Engine) CollDrop(ctx context.Context, mode opmode.Mode, name string) error {
	_, _, found, err := e.loadMeta(ctx, mode, name)
	if err != nil {
		return err
	}
	if !found {
		return status.Newf(status.NotFound, "docstore: collection %q does not exist", name)
	}
	var keys [][]byte
	err = e.Engine.Iter(ctx, mode, 0, dockey.Prefix(name), filter.NewPrefix(dockey.Prefix(name), false), true, func(key, _ []byte) error {
		keys = append(keys, append([]byte(nil), key...))
		return nil
	})
	if err != nil {
		return err
	}
	keys = append(keys, metaKey(name))
	return e.Engine.Erase(ctx, 0, usermem.Pack(keys))
}

// CollExists implements backend.Engine.
func (e *Engine) CollExists(ctx context.Context, mode opmode.Mode, name string) (bool, error) {
	_, _, found, err := e.loadMeta(ctx, mode, name)
	return found, err
}

// CollLastID implements backend.Engine.
func (e *Engine) CollLastID(ctx context.Context, mode opmode.Mode, name string) (uint64, error) {
	next, _, found, err := e.loadMeta(ctx, mode, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, status.Newf(status.NotFound, "docstore: collection %q does not exist", name)
	}
	if next == 0 {
		return 0, nil
	}
	return next - 1, nil
}

// CollSize implements backend.Engine.
func (e *Engine) CollSize(ctx context.Context, mode opmode.Mode, name string) (uint64, error) {
	_, live, found, err := e.loadMeta(ctx, mode, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, status.Newf(status.NotFound, "docstore: collection %q does not exist", name)
	}
	return live, nil
}

// DocSize implements backend.Engine: document length is exactly the
// underlying key's value length, so the wrapped engine's own Length does
// the work.
func (e *Engine) DocSize(ctx context.Context, mode opmode.Mode, collection string, ids []uint64) ([]uint64, error) {
	keys := idsToKeys(collection, ids)
	return e.Engine.Length(ctx, mode, usermem.Pack(keys))
}

// DocStore implements backend.Engine.
func (e *Engine) DocStore(ctx context.Context, mode opmode.Mode, collection string, docs usermem.Packed) ([]uint64, error) {
	next, live, found, err := e.loadMeta(ctx, mode, collection)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, status.Newf(status.NotFound, "docstore: collection %q does not exist", collection)
	}
	n := docs.Count()
	ids := make([]uint64, n)
	keys := make([][]byte, n)
	for i := 0; i < n; i++ {
		ids[i] = next + uint64(i)
		keys[i] = dockey.Encode(collection, ids[i])
	}
	if err := e.Engine.Put(ctx, mode, usermem.Pack(keys), docs); err != nil {
		return nil, err
	}
	if err := e.storeMeta(ctx, collection, next+uint64(n), live+uint64(n)); err != nil {
		return nil, err
	}
	return ids, nil
}

// DocUpdate implements backend.Engine. By default, any id < next_id is
// writable — including a previously erased (tombstoned) id, which is
// resurrected and counted back into live_count — and any id >= next_id
// yields status.InvalidID. With opmode.UpdateNew, an id at or beyond
// next_id is allowed too and advances next_id, the way docUpdate on the
// array engine pads intervening slots with tombstones. Whether an id
// is writable is decided purely from its position against next_id, never
// from whether a key is currently present: a tombstone within range must
// behave the same as a live document there.
func (e *Engine) DocUpdate(ctx context.Context, mode opmode.Mode, collection string, ids []uint64, docs usermem.Packed) error {
	next, live, found, err := e.loadMeta(ctx, mode, collection)
	if err != nil {
		return err
	}
	if !found {
		return status.Newf(status.NotFound, "docstore: collection %q does not exist", collection)
	}
	keys := idsToKeys(collection, ids)
	exists, err := e.Engine.Exists(ctx, 0, usermem.Pack(keys))
	if err != nil {
		return err
	}
	for i, id := range ids {
		if id >= next {
			if !mode.Has(opmode.UpdateNew) {
				return status.Newf(status.InvalidID, "docstore: id %d does not exist in collection %q", id, collection)
			}
			live++
			next = id + 1
			continue
		}
		if !exists.Get(i) {
			live++
		}
	}
	if err := e.Engine.Put(ctx, mode, usermem.Pack(keys), docs); err != nil {
		return err
	}
	return e.storeMeta(ctx, collection, next, live)
}

// DocLoad implements backend.Engine: reuses the wrapped engine's own Get,
// which already applies the packed/unpacked budget rule docLoad needs.
func (e *Engine) DocLoad(ctx context.Context, mode opmode.Mode, packed bool, collection string, ids []uint64, budgets []uint64) ([]backend.Slot, error) {
	keys := idsToKeys(collection, ids)
	return e.Engine.Get(ctx, mode, packed, usermem.Pack(keys), budgets)
}

// DocFetch implements backend.Engine.
func (e *Engine) DocFetch(ctx context.Context, mode opmode.Mode, collection string, ids []uint64, fn backend.DocFetchFunc) error {
	keys := idsToKeys(collection, ids)
	i := 0
	return e.Engine.Fetch(ctx, mode, usermem.Pack(keys), func(_ []byte, val backend.Slot) error {
		id := ids[i]
		i++
		return fn(id, val)
	})
}

// DocErase implements backend.Engine.
func (e *Engine) DocErase(ctx context.Context, mode opmode.Mode, collection string, ids []uint64) error {
	next, live, found, err := e.loadMeta(ctx, mode, collection)
	if err != nil {
		return err
	}
	if !found {
		return status.Newf(status.NotFound, "docstore: collection %q does not exist", collection)
	}
	keys := idsToKeys(collection, ids)
	exists, err := e.Engine.Exists(ctx, 0, usermem.Pack(keys))
	if err != nil {
		return err
	}
	var erased uint64
	for i := range ids {
		if exists.Get(i) {
			erased++
		}
	}
	if err := e.Engine.Erase(ctx, 0, usermem.Pack(keys)); err != nil {
		return err
	}
	if erased == 0 {
		return nil
	}
	return e.storeMeta(ctx, collection, next, live-erased)
}

// DocList implements backend.Engine by adapting f into a KeyValue filter
// scoped to collection and delegating to the wrapped engine's
// ListKeyValues. The wrapped engine's Core emits the full mixin-encoded
// key unless opmode.NoPrefix is set (it never routes through
// filter.KeyValue.KeyCopy), so the "key" slots that come back hold
// collection+NUL+id, not a bare id — the budgets sized for that full
// width, and dockey.Decode pulls the id back out on the way back.
func (e *Engine) DocList(ctx context.Context, mode opmode.Mode, packed bool, collection string, fromID uint64, f filter.Doc, max int, budgets []uint64) ([]uint64, []backend.Slot, error) {
	kvFilter := filter.ToKeyValueFilter(f, collection)
	fromKey := dockey.Encode(collection, fromID)
	keyBudgets := mixinKeyBudgets(collection, packed, max)
	keySlots, docSlots, err := e.Engine.ListKeyValues(ctx, mode, packed, fromKey, kvFilter, max, keyBudgets, budgets)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uint64, len(keySlots))
	for i, s := range keySlots {
		if s.Size == status.NoMoreKeys {
			ids[i] = status.NoMoreDocs
			continue
		}
		_, id, ok := dockey.Decode(s.Data)
		if !ok {
			ids[i] = status.NoMoreDocs
			continue
		}
		ids[i] = id
	}
	return ids, docSlots, nil
}

// DocIter implements backend.Engine the same way DocList does, but
// streaming: the key fn receives is likewise the full mixin-encoded key.
func (e *Engine) DocIter(ctx context.Context, mode opmode.Mode, collection string, max uint64, fromID uint64, f filter.Doc, fn backend.DocIterFunc) error {
	kvFilter := filter.ToKeyValueFilter(f, collection)
	fromKey := dockey.Encode(collection, fromID)
	ignoreValues := mode.Has(opmode.IgnoreDocs)
	return e.Engine.Iter(ctx, mode, max, fromKey, kvFilter, ignoreValues, func(key, val []byte) error {
		_, id, ok := dockey.Decode(key)
		if !ok {
			return status.Newf(status.Corruption, "docstore: malformed document key in collection %q", collection)
		}
		return fn(id, val)
	})
}

func idsToKeys(collection string, ids []uint64) [][]byte {
	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = dockey.Encode(collection, id)
	}
	return keys
}

// mixinKeyBudgets builds the key-side budget array docList's underlying
// listKeyValues call needs. Every emitted "key" is a full mixin-encoded
// key (collection, a NUL separator, and the 8-byte id), so each slot needs
// at least that many bytes or backend.BuildOutput marks it
// status.SizeTooSmall instead of returning the real key.
func mixinKeyBudgets(collection string, packed bool, max int) []uint64 {
	width := uint64(len(collection) + 1 + dockey.IDSize)
	if packed {
		return []uint64{width * uint64(max)}
	}
	b := make([]uint64, max)
	for i := range b {
		b[i] = width
	}
	return b
}
