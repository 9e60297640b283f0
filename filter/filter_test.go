// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package filter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/filter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

func TestNewDispatch(t *testing.T) {
	t.Run("default is prefix", func(t *testing.T) {
		f, err := filter.New(0, []byte("wid"))
		require.NoError(t, err)
		require.True(t, f.Check([]byte("widget"), nil))
		require.False(t, f.Check([]byte("gadget"), nil))
	})

	t.Run("suffix bit selects suffix filter", func(t *testing.T) {
		f, err := filter.New(opmode.Suffix, []byte("get"))
		require.NoError(t, err)
		require.True(t, f.Check([]byte("widget"), nil))
		require.False(t, f.Check([]byte("widgetry"), nil))
	})

	t.Run("lua bit without luafilter linked in is not supported", func(t *testing.T) {
		_, err := filter.New(opmode.LuaFilter, []byte("function check() return true end"))
		require.Error(t, err)
		require.Equal(t, status.NotSupported, status.CodeOf(err))
	})

	t.Run("lib bit without libfilter linked in is not supported", func(t *testing.T) {
		_, err := filter.New(opmode.LibFilter, []byte("lib:name:args"))
		require.Error(t, err)
		require.Equal(t, status.NotSupported, status.CodeOf(err))
	})
}

func TestNewDocDispatch(t *testing.T) {
	t.Run("default is doc prefix", func(t *testing.T) {
		f, err := filter.NewDoc(0, []byte("pre"))
		require.NoError(t, err)
		require.True(t, f.Check("coll", 1, []byte("prefixed")))
		require.False(t, f.Check("coll", 1, []byte("other")))
	})

	t.Run("lua bit without luafilter linked in is not supported", func(t *testing.T) {
		_, err := filter.NewDoc(opmode.LuaFilter, []byte("function check() return true end"))
		require.Error(t, err)
		require.Equal(t, status.NotSupported, status.CodeOf(err))
	})
}
