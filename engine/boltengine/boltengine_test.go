// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package boltengine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/docstore"
	"storj.io/yokan/enginetest"
	"storj.io/yokan/status"
)

func TestSuite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolt.db")
	eng, err := create(context.Background(), []byte(fmt.Sprintf(`{"path":%q}`, path)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(context.Background()) })
	enginetest.RunKV(t, eng)
}

func TestDocStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolt.db")
	eng, err := create(context.Background(), []byte(fmt.Sprintf(`{"path":%q}`, path)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(context.Background()) })
	enginetest.RunDocStore(t, docstore.Wrap(eng))
}

// TestMigration exercises StartMigration/recoverEngine's structure
// directly rather than through enginetest.RunMigration: bbolt holds an
// exclusive file lock for as long as an Engine has it open, so recovering
// against a still-open database's own path (the only path it could name)
// would deadlock waiting for that lock. A real migration always recovers
// after the original has been detached.
func TestMigration(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bolt.db")
	raw := []byte(fmt.Sprintf(`{"path":%q}`, path))
	eng, err := create(ctx, raw)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	handle, err := eng.StartMigration(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{path}, handle.Files())
	require.Equal(t, path, handle.Root())
	require.NoError(t, handle.Close(ctx))

	_, err = recoverEngine(ctx, raw, nil, []string{filepath.Join(t.TempDir(), "missing.db")})
	require.Error(t, err)
	require.Equal(t, status.NotFound, status.CodeOf(err))

	// Release the flock without deleting the file, the way a real process
	// handoff would: the original holder exits, the file itself stays put.
	require.NoError(t, eng.(*Engine).db.Close())

	recovered, err := recoverEngine(ctx, raw, nil, handle.Files())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recovered.Destroy(ctx) })
	require.Equal(t, "bolt", recovered.Type())
}
