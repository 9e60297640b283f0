// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package arrayengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/enginetest"
	"storj.io/yokan/usermem"
)

func TestSuite(t *testing.T) {
	eng, err := create(context.Background(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enginetest.RunDocStore(t, eng)
}

func TestMigration(t *testing.T) {
	ctx := context.Background()
	eng, err := create(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	require.NoError(t, eng.CollCreate(ctx, 0, "widgets"))
	ids, err := eng.DocStore(ctx, 0, "widgets", usermem.Pack([][]byte{[]byte("doc-0")}))
	require.NoError(t, err)

	recovered := enginetest.RunMigration(t, "array", eng, nil)

	exists, err := recovered.CollExists(ctx, 0, "widgets")
	require.NoError(t, err)
	require.True(t, exists)

	slots, err := recovered.DocLoad(ctx, 0, false, "widgets", ids, []uint64{16})
	require.NoError(t, err)
	require.Equal(t, []byte("doc-0"), slots[0].Data)
}
