// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package mmapengine implements the sorted, directory-backed "mmap" backend
// engine (§4.6): transactional writes over a memory-mapped region. A single
// data file inside the configured directory holds an append-only record log
// behind an 8-byte next-free-offset header (the same header convention
// engine/logengine uses for its chunk files); each write is msync'd via
// mmap-go's Flush before the header advances, so a crash mid-write leaves
// either the previous or the new committed state, never a torn one. An
// in-memory btree replayed from the log on open drives sorted iteration.
package mmapengine

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/google/btree"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/yokan/backend"
	"storj.io/yokan/backend/kvcore"
	"storj.io/yokan/config"
	"storj.io/yokan/migration"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

var mon = monkit.Package()

func init() {
	backend.RegisterRecoverable("mmap", create, recoverEngine)
}

// Config is the "mmap" backend's configuration document.
type Config struct {
	// Path is the directory holding the data file.
	Path string `mapstructure:"path"`
	// InitialSize is the data file's initial allocation in bytes.
	InitialSize int64 `mapstructure:"initial_size"`
}

// Validate implements config.Validator.
func (c Config) Validate() error {
	if c.Path == "" {
		return status.Newf(status.InvalidConf, "mmap: \"path\" is required")
	}
	return nil
}

const allowedModes = opmode.Inclusive | opmode.Append | opmode.Consume | opmode.Wait |
	opmode.NewOnly | opmode.ExistOnly | opmode.NoPrefix | opmode.IgnoreKeys | opmode.KeepLast |
	opmode.Suffix | opmode.LuaFilter | opmode.FilterValue | opmode.LibFilter

const headerSize = 8

// Engine is the mmap-backed backend.
type Engine struct {
	backend.Base
	*kvcore.Core
	cfg Config
	st  *store
	log *zap.Logger
}

func create(ctx context.Context, raw []byte) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.InitialSize <= 0 {
		cfg.InitialSize = 64 * 1024
	}
	if err := os.MkdirAll(cfg.Path, 0700); err != nil {
		return nil, status.Newf(status.IOError, "mmap: creating directory %q: %v", cfg.Path, err)
	}
	st, err := openStore(filepath.Join(cfg.Path, "data.log"), cfg.InitialSize)
	if err != nil {
		return nil, err
	}
	l := zap.L().Named("yokan.mmap")
	l.Debug("mmap engine created", zap.String("path", cfg.Path))
	return &Engine{
		cfg:  cfg,
		st:   st,
		Core: kvcore.NewCore(st, false, allowedModes),
		log:  l,
	}, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "mmap" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine: unmaps, closes, and removes the
// backing directory.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	if err := e.st.close(); err != nil {
		return err
	}
	if err := os.RemoveAll(e.cfg.Path); err != nil && !os.IsNotExist(err) {
		return status.Newf(status.IOError, "mmap: removing %q: %v", e.cfg.Path, err)
	}
	return nil
}

// StartMigration implements backend.Engine: the data file is already in its
// final committed form on disk, so the migration handle simply names it.
func (e *Engine) StartMigration(context.Context) (migration.Handle, error) {
	return &fileHandle{root: e.cfg.Path, path: e.st.path}, nil
}

type fileHandle struct {
	root, path string
}

func (h *fileHandle) Root() string                { return h.root }
func (h *fileHandle) Files() []string             { return []string{h.path} }
func (h *fileHandle) Cancel()                     {}
func (h *fileHandle) Close(context.Context) error { return nil }

// recoverEngine implements backend.RecoverFunc: the data file named by the
// prior StartMigration's file list is expected to already be at the path the
// new configuration names, so recovering just reopens and replays it. A
// missing file surfaces as status.NotFound rather than silently starting an
// empty store.
func recoverEngine(ctx context.Context, raw, migrationConfig []byte, files []string) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	for _, f := range files {
		if _, statErr := os.Stat(f); statErr != nil {
			return nil, status.Newf(status.NotFound, "mmap: migration file %q missing: %v", f, statErr)
		}
	}
	return create(ctx, raw)
}

type item struct {
	key, val []byte
}

type store struct {
	mu    sync.Mutex
	file  *os.File
	mm    mmap.MMap
	path  string
	tree  *btree.BTreeG[item]
}

func openStore(path string, initialSize int64) (*store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, status.Newf(status.IOError, "mmap: opening %q: %v", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, status.Newf(status.IOError, "mmap: stat %q: %v", path, err)
	}
	if fi.Size() < headerSize {
		if err := f.Truncate(initialSize); err != nil {
			_ = f.Close()
			return nil, status.Newf(status.IOError, "mmap: truncating %q: %v", path, err)
		}
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		return nil, status.Newf(status.IOError, "mmap: mapping %q: %v", path, err)
	}
	s := &store{file: f, mm: m, path: path, tree: btree.NewG[item](32, lessItem)}
	if readU64(m, 0) == 0 {
		writeU64(m, 0, headerSize)
	}
	if err := s.replay(); err != nil {
		return nil, status.Newf(status.Corruption, "mmap: replaying %q: %v", path, err)
	}
	return s, nil
}

func lessItem(a, b item) bool {
	for i := 0; i < len(a.key) && i < len(b.key); i++ {
		if a.key[i] != b.key[i] {
			return a.key[i] < b.key[i]
		}
	}
	return len(a.key) < len(b.key)
}

func readU64(b []byte, off int) uint64 { return binary.LittleEndian.Uint64(b[off : off+8]) }
func writeU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

func (s *store) replay() error {
	next := readU64(s.mm, 0)
	off := uint64(headerSize)
	for off < next {
		op := s.mm[off]
		off++
		var klen uint32
		klen = binary.LittleEndian.Uint32(s.mm[off : off+4])
		off += 4
		key := append([]byte(nil), s.mm[off:off+uint64(klen)]...)
		off += uint64(klen)
		if op == 0 {
			s.tree.Delete(item{key: key})
			continue
		}
		var vlen uint32
		vlen = binary.LittleEndian.Uint32(s.mm[off : off+4])
		off += 4
		val := append([]byte(nil), s.mm[off:off+uint64(vlen)]...)
		off += uint64(vlen)
		s.tree.ReplaceOrInsert(item{key: key, val: val})
	}
	return nil
}

func (s *store) ensureCapacity(extra uint64) error {
	needed := readU64(s.mm, 0) + extra
	if needed <= uint64(len(s.mm)) {
		return nil
	}
	newSize := uint64(len(s.mm))
	if newSize == 0 {
		newSize = 64 * 1024
	}
	for needed > newSize {
		newSize *= 2
	}
	if err := s.mm.Unmap(); err != nil {
		return err
	}
	if err := s.file.Truncate(int64(newSize)); err != nil {
		return err
	}
	m, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return err
	}
	s.mm = m
	return nil
}

func (s *store) appendRecord(op byte, key, val []byte) error {
	size := uint64(1 + 4 + len(key))
	if op != 0 {
		size += uint64(4 + len(val))
	}
	if err := s.ensureCapacity(size); err != nil {
		return err
	}
	off := readU64(s.mm, 0)
	s.mm[off] = op
	off++
	binary.LittleEndian.PutUint32(s.mm[off:off+4], uint32(len(key)))
	off += 4
	copy(s.mm[off:], key)
	off += uint64(len(key))
	if op != 0 {
		binary.LittleEndian.PutUint32(s.mm[off:off+4], uint32(len(val)))
		off += 4
		copy(s.mm[off:], val)
		off += uint64(len(val))
	}
	if err := s.mm.Flush(); err != nil {
		return err
	}
	writeU64(s.mm, 0, off)
	return s.mm.Flush()
}

func (s *store) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mm.Unmap(); err != nil {
		return status.Newf(status.IOError, "mmap: unmapping: %v", err)
	}
	if err := s.file.Close(); err != nil {
		return status.Newf(status.IOError, "mmap: closing: %v", err)
	}
	return nil
}

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return v.val, true, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendRecord(1, key, value); err != nil {
		return status.Newf(status.IOError, "mmap: append: %v", err)
	}
	s.tree.ReplaceOrInsert(item{key: append([]byte(nil), key...), val: append([]byte(nil), value...)})
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tree.Get(item{key: key}); !ok {
		return nil
	}
	if err := s.appendRecord(0, key, nil); err != nil {
		return status.Newf(status.IOError, "mmap: append: %v", err)
	}
	s.tree.Delete(item{key: key})
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(s.tree.Len()), nil
}

func (s *store) RawIterate(ctx context.Context, from []byte, inclusive bool, fn func(key, val []byte) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var outerErr error
	visit := func(it item) bool {
		cont, err := fn(it.key, it.val)
		if err != nil {
			outerErr = err
			return false
		}
		return cont
	}
	if from == nil {
		s.tree.Ascend(visit)
		return outerErr
	}
	if inclusive {
		s.tree.AscendGreaterOrEqual(item{key: from}, visit)
		return outerErr
	}
	skippedPivot := false
	s.tree.AscendGreaterOrEqual(item{key: from}, func(it item) bool {
		if !skippedPivot {
			skippedPivot = true
			if string(it.key) == string(from) {
				return true
			}
		}
		return visit(it)
	})
	return outerErr
}
