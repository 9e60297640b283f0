// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package kvcore

import (
	"context"
	"sync"

	"storj.io/yokan/backend"
	"storj.io/yokan/backend/watcher"
	"storj.io/yokan/filter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
	"storj.io/yokan/usermem"
)

// Core implements the key/value operation set of §4.3 once, against any
// Store. Ordered-only operations (ListKeys, ListKeyValues, Iter) require the
// embedded store to additionally implement OrderedStore; Core reports
// IsSorted accordingly.
//
// A concrete engine embeds *Core and forwards every Engine method Core
// implements; it still implements Type/Config/Destroy/the Coll*/Doc*
// methods/StartMigration itself (or inherits backend.Base's NotSupported
// defaults for what it doesn't support).
type Core struct {
	mu      sync.RWMutex
	store   Store
	waiters *watcher.Table

	// valuesAreKeysOnly marks a set-shaped engine (orderedset/unorderedset):
	// Put requires an empty value and Get/Fetch never return one.
	valuesAreKeysOnly bool

	// allowedModes is the union of mode bits this particular store honors,
	// consulted by SupportsMode; engines set it at construction time to
	// describe exactly which combinations they claim to support.
	allowedModes opmode.Mode
}

// NewCore builds a Core over store. valuesAreKeysOnly should be true for the
// *set engines. allowedModes documents, for SupportsMode, every mode bit the
// concrete engine is prepared to honor across its operations.
func NewCore(store Store, valuesAreKeysOnly bool, allowedModes opmode.Mode) *Core {
	return &Core{
		store:             store,
		waiters:           watcher.NewTable(),
		valuesAreKeysOnly: valuesAreKeysOnly,
		allowedModes:      allowedModes,
	}
}

// Waiters exposes the WAIT/NOTIFY table so the embedding engine's Destroy
// can wake any waiter left blocked on teardown.
func (c *Core) Waiters() *watcher.Table { return c.waiters }

// SupportsMode reports whether mode is a subset of the bits the engine was
// constructed to honor.
func (c *Core) SupportsMode(mode opmode.Mode) bool {
	return mode&^c.allowedModes == 0
}

// IsSorted reports whether the underlying store is an OrderedStore.
func (c *Core) IsSorted() bool {
	_, ok := c.store.(OrderedStore)
	return ok
}

// Count implements Engine.Count.
func (c *Core) Count(ctx context.Context, mode opmode.Mode) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.RawCount(ctx)
}

// Exists implements Engine.Exists.
func (c *Core) Exists(ctx context.Context, mode opmode.Mode, keys usermem.Packed) (usermem.BitField, error) {
	if err := keys.Validate(); err != nil {
		return usermem.BitField{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	elems := keys.Elements()
	out := usermem.NewBitField(len(elems))
	for i, k := range elems {
		_, found, err := c.store.RawGet(ctx, k)
		if err != nil {
			return usermem.BitField{}, err
		}
		out.Set(i, found)
	}
	return out, nil
}

// Length implements Engine.Length.
func (c *Core) Length(ctx context.Context, mode opmode.Mode, keys usermem.Packed) ([]uint64, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	elems := keys.Elements()
	out := make([]uint64, len(elems))
	for i, k := range elems {
		v, found, err := c.store.RawGet(ctx, k)
		if err != nil {
			return nil, err
		}
		if !found {
			out[i] = status.KeyNotFound
			continue
		}
		out[i] = uint64(len(v))
	}
	return out, nil
}

// Put implements Engine.Put. NEW_ONLY is deliberately asymmetric between the
// single-key and multi-key cases, preserving the original's documented
// behavior (§9, Open Question (a)): a single-key batch that collides returns
// status.KeyExists, while a multi-key batch silently skips colliding keys so
// that one conflicting key in a large batch does not abort the rest.
func (c *Core) Put(ctx context.Context, mode opmode.Mode, keys, vals usermem.Packed) error {
	if err := keys.Validate(); err != nil {
		return err
	}
	if err := vals.Validate(); err != nil {
		return err
	}
	if keys.Count() != vals.Count() {
		return status.Newf(status.InvalidArg, "put: %d keys but %d values", keys.Count(), vals.Count())
	}
	if c.valuesAreKeysOnly {
		for _, v := range vals.Elements() {
			if len(v) != 0 {
				return status.Newf(status.InvalidArg, "put: non-empty value given to a set-shaped engine")
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	keyElems, valElems := keys.Elements(), vals.Elements()
	single := len(keyElems) == 1

	for i, k := range keyElems {
		existing, found, err := c.store.RawGet(ctx, k)
		if err != nil {
			return err
		}
		if mode.Has(opmode.NewOnly) && found {
			if single {
				return status.Newf(status.KeyExists, "put: key already exists")
			}
			continue
		}
		if mode.Has(opmode.ExistOnly) && !found {
			if single {
				return status.Newf(status.NotFound, "put: key does not exist")
			}
			continue
		}
		v := valElems[i]
		if mode.Has(opmode.Append) && found {
			v = append(append([]byte(nil), existing...), v...)
		}
		if err := c.store.RawSet(ctx, k, v); err != nil {
			return err
		}
		if mode.Has(opmode.Notify) {
			c.waiters.Notify(k)
		}
	}
	return nil
}

// Get implements Engine.Get.
func (c *Core) Get(ctx context.Context, mode opmode.Mode, packed bool, keys usermem.Packed, budgets []uint64) ([]backend.Slot, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	elems := keys.Elements()
	values := make([][]byte, len(elems))

	for i, k := range elems {
		v, err := c.getOne(ctx, mode, k)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	if mode.Has(opmode.Consume) {
		c.mu.Lock()
		for i, k := range elems {
			if values[i] != nil {
				_ = c.store.RawDelete(ctx, k)
			}
		}
		c.mu.Unlock()
	}

	return backend.BuildOutput(values, packed, budgets, status.KeyNotFound), nil
}

func (c *Core) getOne(ctx context.Context, mode opmode.Mode, key []byte) ([]byte, error) {
	recheck := func() (bool, error) {
		c.mu.RLock()
		_, found, err := c.store.RawGet(ctx, key)
		c.mu.RUnlock()
		return found, err
	}
	if !mode.Has(opmode.Wait) {
		c.mu.RLock()
		v, found, err := c.store.RawGet(ctx, key)
		c.mu.RUnlock()
		if err != nil || !found {
			return nil, err
		}
		if v == nil {
			v = []byte{}
		}
		return v, nil
	}
	if err := c.waiters.Wait(ctx, key, recheck); err != nil {
		return nil, err
	}
	c.mu.RLock()
	v, found, err := c.store.RawGet(ctx, key)
	c.mu.RUnlock()
	if err != nil || !found {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

// Fetch implements Engine.Fetch.
func (c *Core) Fetch(ctx context.Context, mode opmode.Mode, keys usermem.Packed, fn backend.FetchFunc) error {
	if err := keys.Validate(); err != nil {
		return err
	}
	for _, k := range keys.Elements() {
		c.mu.RLock()
		v, found, err := c.store.RawGet(ctx, k)
		c.mu.RUnlock()
		if err != nil {
			return err
		}
		var slot backend.Slot
		if found {
			slot = backend.Slot{Data: v, Size: uint64(len(v))}
		} else {
			slot = backend.NotFoundSlot()
		}
		if err := fn(k, slot); err != nil {
			if status.CodeOf(err) == status.StopIteration {
				return nil
			}
			return err
		}
		if found && mode.Has(opmode.Consume) {
			c.mu.Lock()
			_ = c.store.RawDelete(ctx, k)
			c.mu.Unlock()
		}
	}
	return nil
}

// Erase implements Engine.Erase.
func (c *Core) Erase(ctx context.Context, mode opmode.Mode, keys usermem.Packed) error {
	if err := keys.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys.Elements() {
		if err := c.store.RawDelete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (c *Core) ordered() (OrderedStore, error) {
	os, ok := c.store.(OrderedStore)
	if !ok {
		return nil, status.Newf(status.NotSupported, "this engine's storage is not ordered")
	}
	return os, nil
}

// stripKey applies NO_PREFIX stripping via f, when f implements
// filter.Stripper and mode requests it.
func stripKey(mode opmode.Mode, f filter.KeyValue, key []byte) []byte {
	if !mode.Has(opmode.NoPrefix) {
		return key
	}
	if s, ok := f.(filter.Stripper); ok {
		return s.Strip(key)
	}
	return key
}

// ListKeys implements Engine.ListKeys.
func (c *Core) ListKeys(ctx context.Context, mode opmode.Mode, packed bool, fromKey []byte, f filter.KeyValue, max int, budgets []uint64) ([]backend.Slot, error) {
	os, err := c.ordered()
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var collected [][]byte
	err = os.RawIterate(ctx, fromKey, mode.Has(opmode.Inclusive), func(key, val []byte) (bool, error) {
		if max > 0 && len(collected) >= max {
			return false, nil
		}
		var checkVal []byte
		if f.RequiresValue() {
			checkVal = val
		}
		if !f.Check(key, checkVal) {
			if f.ShouldStop(key, checkVal) {
				return false, nil
			}
			return true, nil
		}
		collected = append(collected, append([]byte(nil), stripKey(mode, f, key)...))
		return len(collected) < max || max <= 0, nil
	})
	if err != nil {
		return nil, err
	}
	for len(collected) < max {
		collected = append(collected, nil)
	}
	return backend.BuildOutput(collected, packed, budgets, status.NoMoreKeys), nil
}

// ListKeyValues implements Engine.ListKeyValues.
func (c *Core) ListKeyValues(ctx context.Context, mode opmode.Mode, packed bool, fromKey []byte, f filter.KeyValue, max int, keyBudgets, valBudgets []uint64) ([]backend.Slot, []backend.Slot, error) {
	os, err := c.ordered()
	if err != nil {
		return nil, nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ks, vs [][]byte
	keepLast := mode.Has(opmode.KeepLast)
	ignoreKeys := mode.Has(opmode.IgnoreKeys)
	err = os.RawIterate(ctx, fromKey, mode.Has(opmode.Inclusive), func(key, val []byte) (bool, error) {
		if max > 0 && len(ks) >= max {
			return false, nil
		}
		var checkVal []byte
		if f.RequiresValue() {
			checkVal = val
		}
		if !f.Check(key, checkVal) {
			if f.ShouldStop(key, checkVal) {
				return false, nil
			}
			return true, nil
		}
		isLast := max > 0 && len(ks) == max-1
		if ignoreKeys && !(keepLast && isLast) {
			ks = append(ks, []byte{})
		} else {
			ks = append(ks, append([]byte(nil), stripKey(mode, f, key)...))
		}
		vs = append(vs, append([]byte{}, val...))
		return len(ks) < max || max <= 0, nil
	})
	if err != nil {
		return nil, nil, err
	}
	for len(ks) < max {
		ks = append(ks, nil)
		vs = append(vs, nil)
	}
	keySlots := backend.BuildOutput(ks, packed, keyBudgets, status.NoMoreKeys)
	valSlots := backend.BuildOutput(vs, packed, valBudgets, status.NoMoreKeys)
	return keySlots, valSlots, nil
}

// Iter implements Engine.Iter.
func (c *Core) Iter(ctx context.Context, mode opmode.Mode, max uint64, fromKey []byte, f filter.KeyValue, ignoreValues bool, fn backend.IterFunc) error {
	os, err := c.ordered()
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n uint64
	return os.RawIterate(ctx, fromKey, mode.Has(opmode.Inclusive), func(key, val []byte) (bool, error) {
		if max > 0 && n >= max {
			return false, nil
		}
		var checkVal []byte
		if f.RequiresValue() {
			checkVal = val
		}
		if !f.Check(key, checkVal) {
			if f.ShouldStop(key, checkVal) {
				return false, nil
			}
			return true, nil
		}
		outVal := val
		if ignoreValues {
			outVal = nil
		}
		if err := fn(stripKey(mode, f, key), outVal); err != nil {
			if status.CodeOf(err) == status.StopIteration {
				return false, nil
			}
			return false, err
		}
		n++
		return max == 0 || n < max, nil
	})
}
