// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package logengine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/enginetest"
	"storj.io/yokan/usermem"
)

func TestSuite(t *testing.T) {
	eng, err := create(context.Background(), []byte(fmt.Sprintf(`{"path":%q}`, t.TempDir())))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(context.Background()) })
	enginetest.RunDocStore(t, eng)
}

func TestMigration(t *testing.T) {
	ctx := context.Background()
	raw := []byte(fmt.Sprintf(`{"path":%q}`, t.TempDir()))
	eng, err := create(ctx, raw)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(ctx) })
	require.NoError(t, eng.CollCreate(ctx, 0, "widgets"))
	ids, err := eng.DocStore(ctx, 0, "widgets", usermem.Pack([][]byte{[]byte("doc-0")}))
	require.NoError(t, err)

	// The directory is already on disk in its final form, so recovering
	// against the same path (a stand-in for the external copy a real
	// migration would have performed) is the realistic scenario.
	recovered := enginetest.RunMigration(t, "log", eng, raw)

	exists, err := recovered.CollExists(ctx, 0, "widgets")
	require.NoError(t, err)
	require.True(t, exists)

	slots, err := recovered.DocLoad(ctx, 0, false, "widgets", ids, []uint64{16})
	require.NoError(t, err)
	require.Equal(t, []byte("doc-0"), slots[0].Data)
}
