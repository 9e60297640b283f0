// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package backend

import (
	"context"
	"sync"

	"storj.io/yokan/status"
)

// CreateFunc constructs a fresh Engine from a backend-specific
// configuration document.
type CreateFunc func(ctx context.Context, config []byte) (Engine, error)

// RecoverFunc rebuilds an Engine from a (config, migration-config,
// file-list) tuple produced by a prior StartMigration on the sending side
// (§4.9). A backend that only ever runs in-memory leaves this nil.
type RecoverFunc func(ctx context.Context, config, migrationConfig []byte, files []string) (Engine, error)

type registration struct {
	create  CreateFunc
	recover RecoverFunc
}

// Registry is the process-wide table mapping a backend name to its
// constructor functions. Static-initializer side effects do not translate
// idiomatically from C++; each engine package instead calls Register from
// its own init() function (§9), and the in-process provider (see package
// provider) calls the init routines transitively by importing the engine
// packages it wants to offer.
type Registry struct {
	mu    sync.RWMutex
	types map[string]registration
}

// global is the default process-wide registry that engine packages
// register themselves against via Register/RegisterRecoverable.
var global = &Registry{types: make(map[string]registration)}

// Register adds a backend that supports Create but not Recover (e.g.
// memory-only engines, for which migration state transfer is always
// status.NotSupported).
func Register(name string, create CreateFunc) {
	RegisterRecoverable(name, create, nil)
}

// RegisterRecoverable adds a backend supporting both Create and Recover.
func RegisterRecoverable(name string, create CreateFunc, recover RecoverFunc) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.types[name] = registration{create: create, recover: recover}
}

// HasType reports whether name is registered in the global registry.
func HasType(name string) bool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	_, ok := global.types[name]
	return ok
}

// Create builds a new Engine of the named backend type.
func Create(ctx context.Context, name string, config []byte) (Engine, error) {
	global.mu.RLock()
	reg, ok := global.types[name]
	global.mu.RUnlock()
	if !ok {
		return nil, status.Newf(status.InvalidType, "unknown backend type %q", name)
	}
	return reg.create(ctx, config)
}

// Recover rebuilds an Engine of the named backend type from a migration
// file list.
func Recover(ctx context.Context, name string, config, migrationConfig []byte, files []string) (Engine, error) {
	global.mu.RLock()
	reg, ok := global.types[name]
	global.mu.RUnlock()
	if !ok {
		return nil, status.Newf(status.InvalidType, "unknown backend type %q", name)
	}
	if reg.recover == nil {
		return nil, status.Newf(status.NotSupported, "backend %q does not support recovery", name)
	}
	return reg.recover(ctx, config, migrationConfig, files)
}

// Types lists every registered backend name, for diagnostics and the
// admin CLI's `yokanctl backends` subcommand.
func Types() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	out := make([]string, 0, len(global.types))
	for name := range global.types {
		out = append(out, name)
	}
	return out
}
