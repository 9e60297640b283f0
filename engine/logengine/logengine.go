// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package logengine implements the append-only, document-native "log"
// backend engine (§4.7). Each collection is a directory holding a memory-
// mapped metadata file — `[live_count u64][next_id u64][last_chunk_id
// u64]` followed by a `(chunk u64, offset u64, size u64)` entry per id —
// plus numbered memory-mapped chunk files, each prefixed by an 8-byte
// next-free-offset header. docStore appends the payload to the current
// chunk (opening a new one when it doesn't fit), syncs the chunk header,
// then the id's metadata entry, then the metadata header, in that order,
// so that a crash mid-store leaves either no visible record or a fully
// committed one. Like the document-native array engine, it has no key/
// value representation: isSorted is meaningless and reported false.
package logengine

import (
	"context"
	"os"
	"path/filepath"
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
	backend.RegisterRecoverable("log", create, recoverEngine)
}

// Config is the "log" backend's configuration document.
type Config struct {
	// Path is the root directory holding one subdirectory per collection.
	Path string `mapstructure:"path"`
	// ChunkSize bounds how large a single chunk file's payload region may
	// grow before a new chunk is opened. A payload larger than ChunkSize
	// is rejected with status.SizeError.
	ChunkSize uint64 `mapstructure:"chunk_size"`
}

// Validate implements config.Validator.
func (c Config) Validate() error {
	if c.Path == "" {
		return status.Newf(status.InvalidConf, "log: \"path\" is required")
	}
	if c.ChunkSize == 0 {
		return status.Newf(status.InvalidConf, "log: \"chunk_size\" must be positive")
	}
	return nil
}

// Engine is the append-only document-native log backend.
type Engine struct {
	backend.Base
	cfg   Config
	mu    sync.RWMutex
	colls map[string]*logCollection
	log   *zap.Logger
}

func create(ctx context.Context, raw []byte) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	cfg := Config{ChunkSize: 64 * 1024 * 1024}
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Path, 0700); err != nil {
		return nil, status.Newf(status.IOError, "log: creating %q: %v", cfg.Path, err)
	}
	e := &Engine{cfg: cfg, colls: make(map[string]*logCollection), log: zap.L().Named("yokan.log")}
	entries, err := os.ReadDir(cfg.Path)
	if err != nil {
		return nil, status.Newf(status.IOError, "log: scanning %q: %v", cfg.Path, err)
	}
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		c, err := openCollection(filepath.Join(cfg.Path, ent.Name()), cfg.ChunkSize)
		if err != nil {
			return nil, err
		}
		e.colls[ent.Name()] = c
	}
	return e, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "log" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine: closes every collection's mapped files
// and removes the root directory.
func (e *Engine) Destroy(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.colls {
		_ = c.close()
	}
	if err := os.RemoveAll(e.cfg.Path); err != nil && !os.IsNotExist(err) {
		return status.Newf(status.IOError, "log: removing %q: %v", e.cfg.Path, err)
	}
	return nil
}

// IsSorted implements backend.Engine.
func (e *Engine) IsSorted() bool { return false }

// SupportsMode implements backend.Engine.
func (e *Engine) SupportsMode(mode opmode.Mode) bool {
	const allowed = opmode.Inclusive | opmode.IgnoreDocs | opmode.FilterValue |
		opmode.Suffix | opmode.LuaFilter | opmode.LibFilter
	return mode&^allowed == 0
}

func (e *Engine) coll(name string) (*logCollection, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.colls[name]
	if !ok {
		return nil, status.Newf(status.InvalidArg, "log: no such collection %q", name)
	}
	return c, nil
}

// CollCreate implements backend.Engine.
func (e *Engine) CollCreate(_ context.Context, _ opmode.Mode, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.colls[name]; ok {
		return status.Newf(status.KeyExists, "log: collection %q already exists", name)
	}
	dir := filepath.Join(e.cfg.Path, name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return status.Newf(status.IOError, "log: creating %q: %v", dir, err)
	}
	c, err := openCollection(dir, e.cfg.ChunkSize)
	if err != nil {
		return err
	}
	e.colls[name] = c
	return nil
}

// CollDrop implements backend.Engine.
func (e *Engine) CollDrop(_ context.Context, _ opmode.Mode, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.colls[name]
	if !ok {
		return nil
	}
	_ = c.close()
	delete(e.colls, name)
	return os.RemoveAll(filepath.Join(e.cfg.Path, name))
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
	c, err := e.coll(name)
	if err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	next := c.nextID()
	if next == 0 {
		return 0, nil
	}
	return next - 1, nil
}

// CollSize implements backend.Engine.
func (e *Engine) CollSize(_ context.Context, _ opmode.Mode, name string) (uint64, error) {
	c, err := e.coll(name)
	if err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.liveCount(), nil
}

// DocSize implements backend.Engine.
func (e *Engine) DocSize(_ context.Context, _ opmode.Mode, name string, ids []uint64) ([]uint64, error) {
	c, err := e.coll(name)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uint64, len(ids))
	for i, id := range ids {
		ent, ok := c.entry(id)
		if !ok || ent.size == status.KeyNotFound {
			out[i] = status.KeyNotFound
			continue
		}
		out[i] = ent.size
	}
	return out, nil
}

// DocStore implements backend.Engine.
func (e *Engine) DocStore(_ context.Context, _ opmode.Mode, name string, docs usermem.Packed) ([]uint64, error) {
	if err := docs.Validate(); err != nil {
		return nil, err
	}
	c, err := e.coll(name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	elems := docs.Elements()
	ids := make([]uint64, len(elems))
	for i, doc := range elems {
		id, err := c.store(doc)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// DocUpdate implements backend.Engine.
func (e *Engine) DocUpdate(_ context.Context, _ opmode.Mode, name string, ids []uint64, docs usermem.Packed) error {
	if err := docs.Validate(); err != nil {
		return err
	}
	c, err := e.coll(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	elems := docs.Elements()
	if len(ids) != len(elems) {
		return status.Newf(status.InvalidArg, "log: docUpdate: %d ids but %d documents", len(ids), len(elems))
	}
	for i, id := range ids {
		if id >= c.nextID() {
			return status.Newf(status.InvalidID, "log: docUpdate: id %d beyond last allocated id", id)
		}
		if err := c.update(id, elems[i]); err != nil {
			return err
		}
	}
	return nil
}

// DocLoad implements backend.Engine.
func (e *Engine) DocLoad(_ context.Context, _ opmode.Mode, packed bool, name string, ids []uint64, budgets []uint64) ([]backend.Slot, error) {
	c, err := e.coll(name)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	values := make([][]byte, len(ids))
	for i, id := range ids {
		if v, ok := c.load(id); ok {
			values[i] = v
		}
	}
	return backend.BuildOutput(values, packed, budgets, status.KeyNotFound), nil
}

// DocFetch implements backend.Engine: zero-copies each payload straight out
// of the mapped chunk region into the callback.
func (e *Engine) DocFetch(_ context.Context, _ opmode.Mode, name string, ids []uint64, fn backend.DocFetchFunc) error {
	c, err := e.coll(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		c.mu.RLock()
		v, ok := c.load(id)
		c.mu.RUnlock()
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
	c, err := e.coll(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.erase(id)
	}
	return nil
}

// DocList implements backend.Engine.
func (e *Engine) DocList(_ context.Context, mode opmode.Mode, packed bool, name string, fromID uint64, f filter.Doc, max int, budgets []uint64) ([]uint64, []backend.Slot, error) {
	c, err := e.coll(name)
	if err != nil {
		return nil, nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
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
	c, err := e.coll(name)
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
		c.mu.RLock()
		doc, ok := c.load(id)
		c.mu.RUnlock()
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

// StartMigration implements backend.Engine: the persisted directory tree is
// already in its final committed form, so the migration handle simply
// enumerates it.
func (e *Engine) StartMigration(context.Context) (migration.Handle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var files []string
	err := filepath.Walk(e.cfg.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, status.Newf(status.IOError, "log: enumerating %q: %v", e.cfg.Path, err)
	}
	return &dirHandle{root: e.cfg.Path, files: files}, nil
}

type dirHandle struct {
	root  string
	files []string
}

func (h *dirHandle) Root() string                { return h.root }
func (h *dirHandle) Files() []string             { return h.files }
func (h *dirHandle) Cancel()                     {}
func (h *dirHandle) Close(context.Context) error { return nil }

// recoverEngine implements backend.RecoverFunc. StartMigration never
// relocates the log's directory tree — it is already in its final
// committed form on disk — so recovering simply means the files a prior
// StartMigration enumerated have since been placed (by whatever external
// means moved them, e.g. a filesystem copy to a new host) at the path the
// new configuration names, and create can reopen them directly. Recover
// checks every listed file is actually present first, so a short or stale
// file list surfaces as status.NotFound rather than a silently empty
// reopen.
func recoverEngine(ctx context.Context, raw, migrationConfig []byte, files []string) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	for _, f := range files {
		if _, statErr := os.Stat(f); statErr != nil {
			return nil, status.Newf(status.NotFound, "log: migration file %q missing: %v", f, statErr)
		}
	}
	return create(ctx, raw)
}
