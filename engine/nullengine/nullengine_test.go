// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package nullengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/status"
	"storj.io/yokan/usermem"
)

// TestSuite exercises the null engine's zero-effect contract directly
// rather than through enginetest's suites, since every operation there
// asserts real persistence round-trips the null engine deliberately never
// provides.
func TestSuite(t *testing.T) {
	ctx := context.Background()
	eng, err := create(ctx, nil)
	require.NoError(t, err)

	keys := usermem.Pack([][]byte{[]byte("a"), []byte("b")})
	vals := usermem.Pack([][]byte{[]byte("1"), []byte("2")})
	require.NoError(t, eng.Put(ctx, 0, keys, vals))

	slots, err := eng.Get(ctx, 0, false, keys, []uint64{16, 16})
	require.NoError(t, err)
	for _, s := range slots {
		require.Equal(t, status.KeyNotFound, s.Size)
	}

	bits, err := eng.Exists(ctx, 0, keys)
	require.NoError(t, err)
	require.False(t, bits.Get(0))
	require.False(t, bits.Get(1))

	n, err := eng.Count(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)

	require.NoError(t, eng.CollCreate(ctx, 0, "anything"))
	ids, err := eng.DocStore(ctx, 0, "anything", usermem.Pack([][]byte{[]byte("x")}))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	_, err = eng.StartMigration(ctx)
	require.Equal(t, status.NotSupported, status.CodeOf(err))
}
