// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package provider is a thin in-process stand-in for the external
// collaborator that would otherwise own RPC request routing (§1, §6): it
// maps database identifiers to live backend.Engine instances so the core
// is exercisable without a real network transport, the way storj's
// satellite/metainfo packages hold a map of open stores behind a
// sync.RWMutex rather than reaching for a transport of their own.
package provider

import (
	"context"
	"sync"

	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/yokan/backend"
	"storj.io/yokan/config"
	"storj.io/yokan/docstore"
	"storj.io/yokan/status"
)

var mon = monkit.Package()

// Provider owns a set of open databases, each addressed by a
// config.DatabaseID, the Go analogue of the original's provider object
// that a process hosts one or more of (§1).
type Provider struct {
	log *zap.Logger

	mu  sync.RWMutex
	dbs map[config.DatabaseID]backend.Engine
}

// New constructs an empty Provider.
func New(log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{log: log.Named("yokan.provider"), dbs: make(map[config.DatabaseID]backend.Engine)}
}

// AttachOptions controls how Attach builds the engine wrapped for a new
// database.
type AttachOptions struct {
	// Backend is the registered backend name (e.g. "bolt", "map").
	Backend string
	// Config is the backend's raw configuration document.
	Config []byte
	// Documented opts the database into the document-store mixin
	// (docstore.Wrap), adding Coll*/Doc* support on top of the backend's
	// native key/value operations.
	Documented bool
}

// Attach constructs a new database with the given id and registers it with
// the provider, returning status.KeyExists if id is already in use.
func (p *Provider) Attach(ctx context.Context, id config.DatabaseID, opts AttachOptions) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.dbs[id]; ok {
		return nil, status.Newf(status.KeyExists, "provider: database %s already attached", id)
	}
	e, err := backend.Create(ctx, opts.Backend, opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Documented {
		e = docstore.Wrap(e)
	}
	p.dbs[id] = e
	p.log.Info("database attached", zap.Stringer("id", id), zap.String("backend", opts.Backend))
	return e, nil
}

// Lookup returns the live engine for id, or status.NotFound.
func (p *Provider) Lookup(id config.DatabaseID) (backend.Engine, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.dbs[id]
	if !ok {
		return nil, status.Newf(status.NotFound, "provider: no database %s attached", id)
	}
	return e, nil
}

// Detach destroys the database identified by id and removes it from the
// provider.
func (p *Provider) Detach(ctx context.Context, id config.DatabaseID) (err error) {
	defer mon.Task()(&ctx)(&err)
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.dbs[id]
	if !ok {
		return status.Newf(status.NotFound, "provider: no database %s attached", id)
	}
	if err := e.Destroy(ctx); err != nil {
		return err
	}
	delete(p.dbs, id)
	p.log.Info("database detached", zap.Stringer("id", id))
	return nil
}

// List returns the identifiers of every attached database.
func (p *Provider) List() []config.DatabaseID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]config.DatabaseID, 0, len(p.dbs))
	for id := range p.dbs {
		ids = append(ids, id)
	}
	return ids
}
