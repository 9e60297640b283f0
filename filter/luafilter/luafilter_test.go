// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package luafilter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/filter"
	_ "storj.io/yokan/filter/luafilter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

func TestKeyValuePredicate(t *testing.T) {
	f, err := filter.New(opmode.LuaFilter, []byte(`function check(key, value) return key == "widget" end`))
	require.NoError(t, err)
	require.True(t, f.Check([]byte("widget"), nil))
	require.False(t, f.Check([]byte("gadget"), nil))
}

func TestKeyValuePredicateSeesValue(t *testing.T) {
	f, err := filter.New(opmode.LuaFilter|opmode.FilterValue,
		[]byte(`function check(key, value) return value == "yes" end`))
	require.NoError(t, err)
	require.True(t, f.RequiresValue())
	require.True(t, f.Check([]byte("k"), []byte("yes")))
	require.False(t, f.Check([]byte("k"), []byte("no")))
}

func TestKeyValueInvalidSource(t *testing.T) {
	_, err := filter.New(opmode.LuaFilter, []byte(`not valid lua (`))
	require.Error(t, err)
	require.Equal(t, status.InvalidArg, status.CodeOf(err))
}

func TestKeyValueMissingCheckFunction(t *testing.T) {
	_, err := filter.New(opmode.LuaFilter, []byte(`x = 1`))
	require.Error(t, err)
	require.Equal(t, status.InvalidArg, status.CodeOf(err))
}

func TestDocPredicate(t *testing.T) {
	f, err := filter.NewDoc(opmode.LuaFilter,
		[]byte(`function check(collection, id, doc) return collection == "widgets" and id > 1 end`))
	require.NoError(t, err)
	require.True(t, f.Check("widgets", 2, []byte("anything")))
	require.False(t, f.Check("widgets", 1, []byte("anything")))
	require.False(t, f.Check("gadgets", 2, []byte("anything")))
}
