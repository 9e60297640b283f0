// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package migration defines the scoped handle an engine hands out to let a
// provider snapshot a live database's on-disk state while the service
// remains usable (§4.9).
package migration

import "context"

// Handle is obtained from an engine's StartMigration. Root and Files report
// where the engine's on-disk state lives; the receiving side rebuilds an
// engine from that file list via the backend's Recover entry point.
//
// The owning engine stays usable while the handle is alive and after it is
// closed: the handle does not block mutations, and neither Close nor Cancel
// marks the engine migrated or clears its state. Handle is not safe for
// concurrent use from multiple goroutines.
type Handle interface {
	// Root names where the engine's state lives: its directory, or the
	// backing file itself for a single-file engine.
	Root() string

	// Files lists the engine's backing files as paths under Root (or Root
	// itself for a single-file engine), not relative to it.
	Files() []string

	// Cancel abandons the migration; the owning engine is not affected.
	Cancel()

	// Close releases the handle and any staging files it created. It is
	// idempotent.
	Close(ctx context.Context) error
}
