// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package lsmengine implements the embedded LSM-tree "lsm" backend engine
// (§4.6) on top of github.com/dgraph-io/badger/v4. Badger keeps keys in
// byte-lexicographic order across its SSTable levels, so, like bbolt, it
// supports the full ordered operation set.
package lsmengine

import (
	"context"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
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
	backend.RegisterRecoverable("lsm", create, recoverEngine)
}

// Config is the "lsm" backend's configuration document.
type Config struct {
	// Path is the badger data directory.
	Path string `mapstructure:"path"`
	// InMemory runs badger without touching disk, for ephemeral databases.
	InMemory bool `mapstructure:"in_memory"`
}

// Validate implements config.Validator.
func (c Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return status.Newf(status.InvalidConf, "lsm: \"path\" is required unless \"in_memory\" is set")
	}
	return nil
}

const allowedModes = opmode.Inclusive | opmode.Append | opmode.Consume | opmode.Wait |
	opmode.NewOnly | opmode.ExistOnly | opmode.NoPrefix | opmode.IgnoreKeys | opmode.KeepLast |
	opmode.Suffix | opmode.LuaFilter | opmode.FilterValue | opmode.LibFilter

// Engine is the badger-backed backend.
type Engine struct {
	backend.Base
	*kvcore.Core
	cfg Config
	db  *badger.DB
	log *zap.Logger
}

func create(ctx context.Context, raw []byte) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, status.Newf(status.IOError, "lsm: opening %q: %v", cfg.Path, err)
	}
	log := zap.L().Named("yokan.lsm")
	log.Debug("lsm engine created", zap.String("path", cfg.Path), zap.Bool("in_memory", cfg.InMemory))
	return &Engine{
		cfg:  cfg,
		db:   db,
		Core: kvcore.NewCore(&store{db: db}, false, allowedModes),
		log:  log,
	}, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "lsm" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine: closes and wipes the data directory.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	if err := e.db.DropAll(); err != nil {
		return status.Newf(status.IOError, "lsm: dropping data: %v", err)
	}
	if err := e.db.Close(); err != nil {
		return status.Newf(status.IOError, "lsm: closing: %v", err)
	}
	return nil
}

// StartMigration implements backend.Engine. An in-memory database has no
// file representation to hand off, so it reports status.NotSupported per
// §4.9; otherwise the badger data directory is already in its final
// committed form on disk, so the handle simply enumerates it.
func (e *Engine) StartMigration(context.Context) (migration.Handle, error) {
	if e.cfg.InMemory {
		return nil, status.Newf(status.NotSupported, "lsm: in-memory database has no file representation")
	}
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
		return nil, status.Newf(status.IOError, "lsm: enumerating %q: %v", e.cfg.Path, err)
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

// recoverEngine implements backend.RecoverFunc: the badger directory named
// by the prior StartMigration's file list is expected to already be at the
// path the new configuration names, so recovering just reopens it. A
// missing file surfaces as status.NotFound rather than silently opening an
// empty database.
func recoverEngine(ctx context.Context, raw, migrationConfig []byte, files []string) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	for _, f := range files {
		if _, statErr := os.Stat(f); statErr != nil {
			return nil, status.Newf(status.NotFound, "lsm: migration file %q missing: %v", f, statErr)
		}
	}
	return create(ctx, raw)
}

type store struct {
	db *badger.DB
}

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, status.Newf(status.IOError, "lsm: get: %v", err)
	}
	return out, out != nil, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append([]byte(nil), key...), append([]byte(nil), value...))
	})
	if err != nil {
		return status.Newf(status.IOError, "lsm: put: %v", err)
	}
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return status.Newf(status.IOError, "lsm: delete: %v", err)
	}
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, status.Newf(status.IOError, "lsm: count: %v", err)
	}
	return n, nil
}

func (s *store) RawIterate(ctx context.Context, from []byte, inclusive bool, fn func(key, val []byte) (bool, error)) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		if from == nil {
			it.Rewind()
		} else {
			it.Seek(from)
			if it.Valid() && !inclusive && string(it.Item().Key()) == string(from) {
				it.Next()
			}
		}
		for ; it.Valid(); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()...)
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			cont, err := fn(key, val)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}
