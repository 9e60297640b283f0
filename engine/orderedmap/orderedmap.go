// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package orderedmap implements the in-memory, sorted "map" backend engine
// (§4.6): a btree.BTreeG ordered by either byte-lexicographic comparison or
// a caller-registered comparator (package comparator), supporting every
// ordered operation (ListKeys, ListKeyValues, Iter).
package orderedmap

import (
	"context"

	"github.com/google/btree"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/yokan/backend"
	"storj.io/yokan/backend/kvcore"
	"storj.io/yokan/comparator"
	"storj.io/yokan/config"
	"storj.io/yokan/opmode"
)

var mon = monkit.Package()

func init() {
	backend.Register("map", create)
}

// Config is the "map" backend's configuration document.
type Config struct {
	// Comparator names a registered comparator.Func (package comparator);
	// empty selects the default byte-lexicographic order.
	Comparator string `mapstructure:"comparator"`
	// Degree sets the btree node fanout; zero selects a sane default.
	Degree int `mapstructure:"degree"`
}

const allowedModes = opmode.Inclusive | opmode.Append | opmode.Consume | opmode.Wait |
	opmode.NewOnly | opmode.ExistOnly | opmode.NoPrefix | opmode.IgnoreKeys | opmode.KeepLast |
	opmode.Suffix | opmode.LuaFilter | opmode.FilterValue | opmode.LibFilter

// Engine is the in-memory ordered map backend.
type Engine struct {
	backend.Base
	*kvcore.Core
	cfg Config
	log *zap.Logger
}

func create(ctx context.Context, raw []byte) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	cmp, err := comparator.Lookup(cfg.Comparator)
	if err != nil {
		return nil, err
	}
	degree := cfg.Degree
	if degree <= 0 {
		degree = 32
	}
	st := newStore(cmp, degree)
	e := &Engine{
		cfg:  cfg,
		Core: kvcore.NewCore(st, false, allowedModes),
		log:  zap.L().Named("yokan.map"),
	}
	e.log.Debug("map engine created", zap.String("comparator", cfg.Comparator))
	return e, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "map" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine: an in-memory engine has nothing to
// remove from disk, but any blocked WAIT caller must be woken.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	return nil
}

// StartMigration is not overridden: the map engine has no on-disk state, so
// migration stays status.NotSupported via the embedded backend.Base.

type item struct {
	key, val []byte
}

type store struct {
	tree *btree.BTreeG[item]
}

func newStore(cmp comparator.Func, degree int) *store {
	less := func(a, b item) bool { return cmp(a.key, b.key) < 0 }
	return &store{tree: btree.NewG[item](degree, less)}
}

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, ok := s.tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return v.val, true, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	s.tree.ReplaceOrInsert(item{
		key: append([]byte(nil), key...),
		val: append([]byte(nil), value...),
	})
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	s.tree.Delete(item{key: key})
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	return uint64(s.tree.Len()), nil
}

func (s *store) RawIterate(ctx context.Context, from []byte, inclusive bool, fn func(key, val []byte) (bool, error)) error {
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
