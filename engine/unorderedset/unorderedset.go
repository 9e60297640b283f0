// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package unorderedset implements the in-memory, unsorted "unordered_set"
// backend engine (§4.6): a plain Go set (map[string]struct{}) guarded by
// kvcore.Core's lock.
package unorderedset

import (
	"context"

	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/yokan/backend"
	"storj.io/yokan/backend/kvcore"
	"storj.io/yokan/config"
	"storj.io/yokan/opmode"
)

var mon = monkit.Package()

func init() {
	backend.Register("unordered_set", create)
}

// Config is the "unordered_set" backend's configuration document.
type Config struct{}

const allowedModes = opmode.Consume | opmode.Wait | opmode.NewOnly

// Engine is the in-memory unordered set backend.
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
	e := &Engine{
		cfg:  cfg,
		Core: kvcore.NewCore(newStore(), true, allowedModes),
		log:  zap.L().Named("yokan.unordered_set"),
	}
	return e, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "unordered_set" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	return nil
}

type store struct {
	data map[string]struct{}
}

func newStore() *store { return &store{data: make(map[string]struct{})} }

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	_, ok := s.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return []byte{}, true, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	s.data[string(key)] = struct{}{}
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	delete(s.data, string(key))
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	return uint64(len(s.data)), nil
}
