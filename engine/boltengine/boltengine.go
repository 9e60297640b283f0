// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package boltengine implements the embedded B-tree "bolt" backend engine
// (§4.6) on top of go.etcd.io/bbolt, the same embedded B-tree storj's own
// private/kvstore/boltdb wraps. A single bucket holds every key; iteration
// uses a bbolt Cursor, which already walks in byte-lexicographic order,
// matching engine/orderedmap's default comparator.
package boltengine

import (
	"context"
	"os"

	"go.etcd.io/bbolt"
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

var bucketName = []byte("kv")

func init() {
	backend.RegisterRecoverable("bolt", create, recoverEngine)
}

// Config is the "bolt" backend's configuration document.
type Config struct {
	// Path is the bbolt database file path.
	Path string `mapstructure:"path"`
}

// Validate implements config.Validator.
func (c Config) Validate() error {
	if c.Path == "" {
		return status.Newf(status.InvalidConf, "bolt: \"path\" is required")
	}
	return nil
}

const allowedModes = opmode.Inclusive | opmode.Append | opmode.Consume | opmode.Wait |
	opmode.NewOnly | opmode.ExistOnly | opmode.NoPrefix | opmode.IgnoreKeys | opmode.KeepLast |
	opmode.Suffix | opmode.LuaFilter | opmode.FilterValue | opmode.LibFilter

// Engine is the bbolt-backed backend.
type Engine struct {
	backend.Base
	*kvcore.Core
	cfg Config
	db  *bbolt.DB
	log *zap.Logger
}

func create(ctx context.Context, raw []byte) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(cfg.Path, 0600, nil)
	if err != nil {
		return nil, status.Newf(status.IOError, "bolt: opening %q: %v", cfg.Path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, status.Newf(status.IOError, "bolt: creating bucket: %v", err)
	}
	log := zap.L().Named("yokan.bolt")
	log.Debug("bolt engine created", zap.String("path", cfg.Path))
	return &Engine{
		cfg:  cfg,
		db:   db,
		Core: kvcore.NewCore(&store{db: db}, false, allowedModes),
		log:  log,
	}, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "bolt" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine: closes and removes the database file.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	if err := e.db.Close(); err != nil {
		return status.Newf(status.IOError, "bolt: closing: %v", err)
	}
	if err := os.Remove(e.cfg.Path); err != nil && !os.IsNotExist(err) {
		return status.Newf(status.IOError, "bolt: removing %q: %v", e.cfg.Path, err)
	}
	return nil
}

// StartMigration implements backend.Engine: the bbolt file is already in its
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

// recoverEngine implements backend.RecoverFunc: the bbolt file named by the
// prior StartMigration's file list is expected to already be at the path the
// new configuration names (moved there by whatever external means carried
// it), so recovering just reopens it. A missing file surfaces as
// status.NotFound rather than silently creating an empty database.
func recoverEngine(ctx context.Context, raw, migrationConfig []byte, files []string) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	for _, f := range files {
		if _, statErr := os.Stat(f); statErr != nil {
			return nil, status.Newf(status.NotFound, "bolt: migration file %q missing: %v", f, statErr)
		}
	}
	return create(ctx, raw)
}

type store struct {
	db *bbolt.DB
}

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, status.Newf(status.IOError, "bolt: get: %v", err)
	}
	return out, out != nil, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
	if err != nil {
		return status.Newf(status.IOError, "bolt: put: %v", err)
	}
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
	if err != nil {
		return status.Newf(status.IOError, "bolt: delete: %v", err)
	}
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = uint64(tx.Bucket(bucketName).Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, status.Newf(status.IOError, "bolt: count: %v", err)
	}
	return n, nil
}

func (s *store) RawIterate(ctx context.Context, from []byte, inclusive bool, fn func(key, val []byte) (bool, error)) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		var k, v []byte
		if from == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(from)
			if k != nil && !inclusive && string(k) == string(from) {
				k, v = c.Next()
			}
		}
		for ; k != nil; k, v = c.Next() {
			cont, err := fn(k, v)
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
