// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package hashfile

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/enginetest"
	"storj.io/yokan/usermem"
)

func TestSuite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hash.db")
	eng, err := create(context.Background(), []byte(fmt.Sprintf(`{"path":%q}`, path)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(context.Background()) })
	enginetest.RunKV(t, eng)
}

func TestMigration(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hash.db")
	raw := []byte(fmt.Sprintf(`{"path":%q}`, path))
	eng, err := create(ctx, raw)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(ctx) })
	require.NoError(t, eng.Put(ctx, 0, usermem.Pack([][]byte{[]byte("k")}), usermem.Pack([][]byte{[]byte("v")})))

	// The record log file is already on disk in its final form, so
	// recovering against the same path stands in for the external copy a
	// real migration would have performed.
	recovered := enginetest.RunMigration(t, "hashfile", eng, raw)

	slots, err := recovered.Get(ctx, 0, false, usermem.Pack([][]byte{[]byte("k")}), []uint64{16})
	require.NoError(t, err)
	require.Equal(t, []byte("v"), slots[0].Data)
}
