// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package lsmengine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/docstore"
	"storj.io/yokan/enginetest"
	"storj.io/yokan/status"
)

func TestSuite(t *testing.T) {
	eng, err := create(context.Background(), []byte(fmt.Sprintf(`{"path":%q}`, t.TempDir())))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(context.Background()) })
	enginetest.RunKV(t, eng)
}

func TestDocStore(t *testing.T) {
	eng, err := create(context.Background(), []byte(fmt.Sprintf(`{"path":%q}`, t.TempDir())))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(context.Background()) })
	enginetest.RunDocStore(t, docstore.Wrap(eng))
}

// TestMigration exercises StartMigration/recoverEngine's structure directly
// rather than through enginetest.RunMigration: badger holds a directory lock
// for as long as an Engine has it open, so recovering against a still-open
// database's own directory (the only path it could name) would fail trying
// to acquire that lock. A real migration always recovers after the original
// has been detached.
func TestMigration(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	raw := []byte(fmt.Sprintf(`{"path":%q}`, dir))
	eng, err := create(ctx, raw)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	handle, err := eng.StartMigration(ctx)
	require.NoError(t, err)
	require.Equal(t, dir, handle.Root())
	require.NotEmpty(t, handle.Files())
	for _, f := range handle.Files() {
		require.True(t, strings.HasPrefix(f, dir))
	}
	require.NoError(t, handle.Close(ctx))

	_, err = recoverEngine(ctx, raw, nil, []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	require.Equal(t, status.NotFound, status.CodeOf(err))

	// Release the directory lock without deleting it, the way a real
	// process handoff would: the original holder exits, the directory
	// itself stays put.
	require.NoError(t, eng.(*Engine).db.Close())

	recovered, err := recoverEngine(ctx, raw, nil, handle.Files())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recovered.Destroy(ctx) })
	require.Equal(t, "lsm", recovered.Type())
}

// TestMigrationInMemoryNotSupported covers the carve-out from §4.9: an
// in-memory badger database has no file representation to hand off.
func TestMigrationInMemoryNotSupported(t *testing.T) {
	ctx := context.Background()
	eng, err := create(ctx, []byte(`{"in_memory":true}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(ctx) })

	_, err = eng.StartMigration(ctx)
	require.Error(t, err)
	require.Equal(t, status.NotSupported, status.CodeOf(err))
}
