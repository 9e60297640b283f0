// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package orderedset implements the in-memory, sorted "set" backend engine
// (§4.6): identical storage to engine/orderedmap, but Put requires an empty
// value and Get/Fetch never materialize one — key presence is the only
// payload.
package orderedset

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
	backend.Register("set", create)
}

// Config is the "set" backend's configuration document.
type Config struct {
	Comparator string `mapstructure:"comparator"`
	Degree     int    `mapstructure:"degree"`
}

const allowedModes = opmode.Inclusive | opmode.Consume | opmode.Wait |
	opmode.NewOnly | opmode.NoPrefix | opmode.Suffix | opmode.LuaFilter | opmode.LibFilter

// Engine is the in-memory ordered set backend.
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
	e := &Engine{
		cfg:  cfg,
		Core: kvcore.NewCore(newStore(cmp, degree), true, allowedModes),
		log:  zap.L().Named("yokan.set"),
	}
	return e, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "set" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	return nil
}

type store struct {
	tree *btree.BTreeG[[]byte]
}

func newStore(cmp comparator.Func, degree int) *store {
	less := func(a, b []byte) bool { return cmp(a, b) < 0 }
	return &store{tree: btree.NewG[[]byte](degree, less)}
}

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	_, ok := s.tree.Get(key)
	if !ok {
		return nil, false, nil
	}
	return []byte{}, true, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	s.tree.ReplaceOrInsert(append([]byte(nil), key...))
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	s.tree.Delete(key)
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	return uint64(s.tree.Len()), nil
}

func (s *store) RawIterate(ctx context.Context, from []byte, inclusive bool, fn func(key, val []byte) (bool, error)) error {
	var outerErr error
	visit := func(k []byte) bool {
		cont, err := fn(k, nil)
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
		s.tree.AscendGreaterOrEqual(from, visit)
		return outerErr
	}
	skippedPivot := false
	s.tree.AscendGreaterOrEqual(from, func(k []byte) bool {
		if !skippedPivot {
			skippedPivot = true
			if string(k) == string(from) {
				return true
			}
		}
		return visit(k)
	})
	return outerErr
}
