// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package redisengine implements the additive "redis" backend engine (§3 of
// SPEC_FULL.md): an unordered, externally persisted engine backed by
// github.com/redis/go-redis/v9, every key namespaced under a configured
// prefix so several databases can share one redis instance. It extends the
// original's engine catalogue (which has no remote-store-backed engine) the
// same way storj's private/kvstore/redis backend stands in behind the same
// Store interface as its boltdb and teststore siblings.
package redisengine

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/yokan/backend"
	"storj.io/yokan/backend/kvcore"
	"storj.io/yokan/config"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

var mon = monkit.Package()

func init() {
	backend.Register("redis", create)
}

// Config is the "redis" backend's configuration document.
type Config struct {
	// Address is the redis server's host:port.
	Address string `mapstructure:"address"`
	// DB selects the redis logical database index.
	DB int `mapstructure:"db"`
	// Namespace prefixes every key this engine instance touches, so
	// several yokan databases can share one redis instance.
	Namespace string `mapstructure:"namespace"`
}

// Validate implements config.Validator.
func (c Config) Validate() error {
	if c.Address == "" {
		return status.Newf(status.InvalidConf, "redis: \"address\" is required")
	}
	return nil
}

const allowedModes = opmode.Append | opmode.Consume | opmode.NewOnly | opmode.ExistOnly

// Engine is the redis-backed backend. IsSorted is false: redis has no
// notion of sorted key iteration in the general case, so ListKeys,
// ListKeyValues, and Iter stay status.NotSupported via backend.Base.
type Engine struct {
	backend.Base
	*kvcore.Core
	cfg    Config
	client *redis.Client
	log    *zap.Logger
}

func create(ctx context.Context, raw []byte) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Address, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, status.Newf(status.IOError, "redis: connecting to %q: %v", cfg.Address, err)
	}
	l := zap.L().Named("yokan.redis")
	l.Debug("redis engine created", zap.String("address", cfg.Address), zap.String("namespace", cfg.Namespace))
	return &Engine{
		cfg:    cfg,
		client: client,
		Core:   kvcore.NewCore(&store{client: client, ns: cfg.Namespace}, false, allowedModes),
		log:    l,
	}, nil
}

// Type implements backend.Engine.
func (e *Engine) Type() string { return "redis" }

// Config implements backend.Engine.
func (e *Engine) Config() string { return config.Encode(e.cfg) }

// Destroy implements backend.Engine: deletes every namespaced key and
// closes the connection, but leaves the external redis instance running.
func (e *Engine) Destroy(ctx context.Context) error {
	e.Core.Waiters().Close()
	st := &store{client: e.client, ns: e.cfg.Namespace}
	keys, err := st.client.Keys(ctx, st.nsKey("*")).Result()
	if err != nil {
		return status.Newf(status.IOError, "redis: listing keys for destroy: %v", err)
	}
	if len(keys) > 0 {
		if err := st.client.Del(ctx, keys...).Err(); err != nil {
			return status.Newf(status.IOError, "redis: destroy: %v", err)
		}
	}
	if err := e.client.Close(); err != nil {
		return status.Newf(status.IOError, "redis: closing client: %v", err)
	}
	return nil
}

type store struct {
	client *redis.Client
	ns     string
}

func (s *store) nsKey(key string) string {
	if s.ns == "" {
		return key
	}
	return s.ns + ":" + key
}

func (s *store) RawGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.nsKey(string(key))).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, status.Newf(status.IOError, "redis: get: %v", err)
	}
	return v, true, nil
}

func (s *store) RawSet(ctx context.Context, key, value []byte) error {
	if err := s.client.Set(ctx, s.nsKey(string(key)), value, 0).Err(); err != nil {
		return status.Newf(status.IOError, "redis: set: %v", err)
	}
	return nil
}

func (s *store) RawDelete(ctx context.Context, key []byte) error {
	if err := s.client.Del(ctx, s.nsKey(string(key))).Err(); err != nil {
		return status.Newf(status.IOError, "redis: delete: %v", err)
	}
	return nil
}

func (s *store) RawCount(ctx context.Context) (uint64, error) {
	keys, err := s.client.Keys(ctx, s.nsKey("*")).Result()
	if err != nil {
		return 0, status.Newf(status.IOError, "redis: count: %v", err)
	}
	return uint64(len(keys)), nil
}
