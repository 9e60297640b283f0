// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package enginetest is the shared conformance suite every backend engine
// package runs against its own constructed Engine, the Go analogue of
// storj's private/kvstore/testsuite: one RunXxx entry point per concern,
// called from a one-line per-package *_test.go (see engine/boltengine's
// TestSuite for the pattern).
package enginetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/backend"
	"storj.io/yokan/filter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
	"storj.io/yokan/usermem"
)

// RunKV exercises the uniform key/value operation set (§4.3) against eng:
// put/get/exists/length/erase, and — when eng.IsSorted() — listKeys,
// listKeyValues, and iter over an ordered key range.
func RunKV(t *testing.T, eng backend.Engine) {
	ctx := context.Background()

	keys := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma"), []byte("delta")}
	vals := [][]byte{[]byte("1"), []byte("22"), []byte("333"), []byte("4444")}

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, eng.Put(ctx, 0, usermem.Pack(keys), usermem.Pack(vals)))

		slots, err := eng.Get(ctx, 0, false, usermem.Pack(keys), budgetsFor(vals))
		require.NoError(t, err)
		require.Len(t, slots, len(keys))
		for i, s := range slots {
			require.Equal(t, vals[i], s.Data)
			require.Equal(t, uint64(len(vals[i])), s.Size)
		}
	})

	t.Run("get missing key", func(t *testing.T) {
		slots, err := eng.Get(ctx, 0, false, usermem.Pack([][]byte{[]byte("missing")}), []uint64{16})
		require.NoError(t, err)
		require.Len(t, slots, 1)
		require.Equal(t, status.KeyNotFound, slots[0].Size)
	})

	t.Run("exists", func(t *testing.T) {
		probe := append(append([][]byte{}, keys...), []byte("missing"))
		bits, err := eng.Exists(ctx, 0, usermem.Pack(probe))
		require.NoError(t, err)
		for i := range keys {
			require.True(t, bits.Get(i), "key %q should exist", keys[i])
		}
		require.False(t, bits.Get(len(keys)))
	})

	t.Run("length", func(t *testing.T) {
		lens, err := eng.Length(ctx, 0, usermem.Pack(keys))
		require.NoError(t, err)
		for i, l := range lens {
			require.Equal(t, uint64(len(vals[i])), l)
		}
	})

	t.Run("count", func(t *testing.T) {
		n, err := eng.Count(ctx, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, uint64(len(keys)))
	})

	if eng.IsSorted() {
		t.Run("listKeys ordered", func(t *testing.T) {
			f := filter.NewPrefix(nil, false)
			slots, err := eng.ListKeys(ctx, opmode.Inclusive, false, nil, f, len(keys)+1, repeat(16, len(keys)+1))
			require.NoError(t, err)
			var seen int
			for _, s := range slots {
				if s.Size == status.NoMoreKeys {
					break
				}
				seen++
			}
			require.GreaterOrEqual(t, seen, len(keys))
		})
	}

	t.Run("erase", func(t *testing.T) {
		require.NoError(t, eng.Erase(ctx, 0, usermem.Pack(keys)))
		slots, err := eng.Get(ctx, 0, false, usermem.Pack(keys), budgetsFor(vals))
		require.NoError(t, err)
		for _, s := range slots {
			require.Equal(t, status.KeyNotFound, s.Size)
		}
	})
}

// RunDocStore exercises the document-store collection operations (§4.4)
// against eng, which must support Coll*/Doc* (either natively, like
// arrayengine/logengine, or via docstore.Wrap).
func RunDocStore(t *testing.T, eng backend.Engine) {
	ctx := context.Background()
	const coll = "widgets"

	require.NoError(t, eng.CollCreate(ctx, 0, coll))
	t.Cleanup(func() { _ = eng.CollDrop(ctx, 0, coll) })

	exists, err := eng.CollExists(ctx, 0, coll)
	require.NoError(t, err)
	require.True(t, exists)

	docs := usermem.Pack([][]byte{[]byte("doc-0"), []byte("doc-1"), []byte("doc-2")})
	ids, err := eng.DocStore(ctx, 0, coll, docs)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	for i, id := range ids {
		require.Equal(t, uint64(i), id)
	}

	last, err := eng.CollLastID(ctx, 0, coll)
	require.NoError(t, err)
	require.Equal(t, ids[len(ids)-1], last)

	size, err := eng.CollSize(ctx, 0, coll)
	require.NoError(t, err)
	require.Equal(t, uint64(3), size)

	slots, err := eng.DocLoad(ctx, 0, false, coll, ids, repeat(16, len(ids)))
	require.NoError(t, err)
	require.Equal(t, []byte("doc-0"), slots[0].Data)
	require.Equal(t, []byte("doc-1"), slots[1].Data)
	require.Equal(t, []byte("doc-2"), slots[2].Data)

	require.NoError(t, eng.DocUpdate(ctx, 0, coll, []uint64{ids[1]}, usermem.Pack([][]byte{[]byte("doc-1-updated")})))
	slots, err = eng.DocLoad(ctx, 0, false, coll, []uint64{ids[1]}, []uint64{32})
	require.NoError(t, err)
	require.Equal(t, []byte("doc-1-updated"), slots[0].Data)

	require.NoError(t, eng.DocErase(ctx, 0, coll, []uint64{ids[0]}))
	slots, err = eng.DocLoad(ctx, 0, false, coll, []uint64{ids[0]}, []uint64{16})
	require.NoError(t, err)
	require.Equal(t, status.KeyNotFound, slots[0].Size)

	size, err = eng.CollSize(ctx, 0, coll)
	require.NoError(t, err)
	require.Equal(t, uint64(2), size)

	t.Run("docList returns real ids and NO_MORE_DOCS padding", func(t *testing.T) {
		gotIDs, docs, err := eng.DocList(ctx, opmode.Inclusive, false, coll, 0, filter.NewDocPrefix(nil, false), 5, repeat(32, 5))
		require.NoError(t, err)
		require.Equal(t, []uint64{ids[1], ids[2], status.NoMoreDocs, status.NoMoreDocs, status.NoMoreDocs}, gotIDs)
		require.Equal(t, []byte("doc-1-updated"), docs[0].Data)
		require.Equal(t, []byte("doc-2"), docs[1].Data)
		require.Equal(t, status.NoMoreDocs, docs[2].Size)
	})

	t.Run("docIter visits live ids in order", func(t *testing.T) {
		var visited []uint64
		err := eng.DocIter(ctx, opmode.Inclusive, coll, 0, 0, filter.NewDocPrefix(nil, false), func(id uint64, doc []byte) error {
			visited = append(visited, id)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []uint64{ids[1], ids[2]}, visited)
	})
}

// RunMigration exercises StartMigration/Recover (§4.9, scenario S6): it
// starts a migration against eng, then rebuilds a second engine of the same
// backend type from the handle's file list via backend.Recover. name is the
// registered backend name eng was created with, and recoverConfig is the raw
// configuration the recovered copy should use (normally pointing at a fresh
// path/directory a real migration would have copied the files into). Callers
// needing to assert on the recovered engine's contents (e.g. via DocList or
// CollSize, since not every engine implements the key/value Count op) get
// the recovered engine back to do so.
func RunMigration(t *testing.T, name string, eng backend.Engine, recoverConfig []byte) backend.Engine {
	ctx := context.Background()

	handle, err := eng.StartMigration(ctx)
	if err != nil {
		if status.CodeOf(err) == status.NotSupported {
			t.Skipf("%s: migration not supported", name)
		}
		require.NoError(t, err)
	}
	defer handle.Close(ctx)

	require.NotEmpty(t, handle.Root())
	files := handle.Files()

	recovered, err := backend.Recover(ctx, name, recoverConfig, recoverConfig, files)
	require.NoError(t, err)
	t.Cleanup(func() { _ = recovered.Destroy(ctx) })
	require.Equal(t, eng.Type(), recovered.Type())
	return recovered
}

func budgetsFor(vals [][]byte) []uint64 {
	b := make([]uint64, len(vals))
	for i, v := range vals {
		b[i] = uint64(len(v))
	}
	return b
}

func repeat(v uint64, n int) []uint64 {
	b := make([]uint64, n)
	for i := range b {
		b[i] = v
	}
	return b
}
