// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package unorderedmap implements the in-memory, unsorted "unordered_map"
// backend engine (§4.6): a plain Go map guarded by kvcore.Core's lock.
// ListKeys/ListKeyValues/Iter are status.NotSupported since a Go map has no
// defined iteration order to make ShouldStop/fromKey meaningful.
package unorderedmap

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
	backend.Register("unordered_map", create)
}

// Config is the "unordered_map" backend's configuration document.
type Config struct{}

const allowedModes = opmode.Append | opmode.Consume | opmode.Wait |
	opmode.NewOnly | opmode.ExistOnly

// Engine is the in-memory unordered map backend.
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
		Core: kvcore.NewCore(newStore(), false, allowedModes),
		log:  zap.L().Named("yokan.unordered_map"),
	}
	return e, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "unordered_map" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	return nil
}

type store struct {
	data map[string][]byte
}

func newStore() *store { return &store{data: make(map[string][]byte)} }

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, ok := s.data[string(key)]
	return v, ok, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	delete(s.data, string(key))
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	return uint64(len(s.data)), nil
}
