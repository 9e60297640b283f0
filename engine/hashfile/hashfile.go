// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package hashfile implements the unordered, single-file "hashfile" backend
// engine (§4.6): an append-only log of put/delete records on stdlib
// os/encoding/binary, replayed into an in-memory hash table on open. No
// third-party single-file DBM library (the analogue of the original's
// gdbm/tkrzw/unqlite backends) appears anywhere in the example pack, so
// this one engine is built directly on the standard library (see
// DESIGN.md).
package hashfile

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"os"
	"sync"

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
	backend.RegisterRecoverable("hashfile", create, recoverEngine)
}

// Config is the "hashfile" backend's configuration document.
type Config struct {
	// Path is the single backing file holding the append-only record log.
	Path string `mapstructure:"path"`
}

// Validate implements config.Validator.
func (c Config) Validate() error {
	if c.Path == "" {
		return status.Newf(status.InvalidConf, "hashfile: \"path\" is required")
	}
	return nil
}

const allowedModes = opmode.Append | opmode.Consume | opmode.Wait |
	opmode.NewOnly | opmode.ExistOnly

const (
	opPut    = byte(1)
	opDelete = byte(0)
)

// Engine is the single-file, unordered backend.
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
	st, err := openStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	l := zap.L().Named("yokan.hashfile")
	l.Debug("hashfile engine created", zap.String("path", cfg.Path), zap.Int("records_replayed", len(st.data)))
	return &Engine{
		cfg:  cfg,
		st:   st,
		Core: kvcore.NewCore(st, false, allowedModes),
		log:  l,
	}, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "hashfile" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine: closes and removes the backing file.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	if err := e.st.file.Close(); err != nil {
		return status.Newf(status.IOError, "hashfile: closing: %v", err)
	}
	if err := os.Remove(e.cfg.Path); err != nil && !os.IsNotExist(err) {
		return status.Newf(status.IOError, "hashfile: removing %q: %v", e.cfg.Path, err)
	}
	return nil
}

// StartMigration implements backend.Engine: the record log is already in its
// final committed form on disk, so the migration handle simply names it.
func (e *Engine) StartMigration(context.Context) (migration.Handle, error) {
	return &fileHandle{path: e.cfg.Path}, nil
}

type fileHandle struct {
	path string
}

func (h *fileHandle) Root() string                { return h.path }
func (h *fileHandle) Files() []string             { return []string{h.path} }
func (h *fileHandle) Cancel()                     {}
func (h *fileHandle) Close(context.Context) error { return nil }

// recoverEngine implements backend.RecoverFunc: the record log named by the
// prior StartMigration's file list is expected to already be at the path the
// new configuration names, so recovering just reopens and replays it. A
// missing file surfaces as status.NotFound rather than silently starting an
// empty log.
func recoverEngine(ctx context.Context, raw, migrationConfig []byte, files []string) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	for _, f := range files {
		if _, statErr := os.Stat(f); statErr != nil {
			return nil, status.Newf(status.NotFound, "hashfile: migration file %q missing: %v", f, statErr)
		}
	}
	return create(ctx, raw)
}

type store struct {
	mu   sync.Mutex
	file *os.File
	data map[string][]byte
}

func openStore(path string) (*store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, status.Newf(status.IOError, "hashfile: opening %q: %v", path, err)
	}
	data := make(map[string][]byte)
	if err := replay(f, data); err != nil {
		_ = f.Close()
		return nil, status.Newf(status.Corruption, "hashfile: replaying %q: %v", path, err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, status.Newf(status.IOError, "hashfile: seeking %q: %v", path, err)
	}
	return &store{file: f, data: data}, nil
}

func replay(f *os.File, data map[string][]byte) error {
	r := bufio.NewReader(f)
	for {
		op, err := r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		key, err := readChunk(r)
		if err != nil {
			return err
		}
		if op == opDelete {
			delete(data, string(key))
			continue
		}
		val, err := readChunk(r)
		if err != nil {
			return err
		}
		data[string(key)] = val
	}
}

func readChunk(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeChunk(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(key)]
	return v, ok, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write([]byte{opPut}); err != nil {
		return status.Newf(status.IOError, "hashfile: append: %v", err)
	}
	if err := writeChunk(s.file, key); err != nil {
		return status.Newf(status.IOError, "hashfile: append: %v", err)
	}
	if err := writeChunk(s.file, value); err != nil {
		return status.Newf(status.IOError, "hashfile: append: %v", err)
	}
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[string(key)]; !ok {
		return nil
	}
	if _, err := s.file.Write([]byte{opDelete}); err != nil {
		return status.Newf(status.IOError, "hashfile: append: %v", err)
	}
	if err := writeChunk(s.file, key); err != nil {
		return status.Newf(status.IOError, "hashfile: append: %v", err)
	}
	delete(s.data, string(key))
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.data)), nil
}
