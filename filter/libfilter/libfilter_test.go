// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package libfilter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/yokan/filter"
	_ "storj.io/yokan/filter/libfilter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

func TestKeyValueRequiresFileComponent(t *testing.T) {
	_, err := filter.New(opmode.LibFilter, []byte("justaname"))
	require.Error(t, err)
	require.Equal(t, status.InvalidArg, status.CodeOf(err))
}

func TestKeyValueMissingPluginFile(t *testing.T) {
	_, err := filter.New(opmode.LibFilter, []byte("/no/such/plugin.so:symbolName:args"))
	require.Error(t, err)
	require.Equal(t, status.InvalidArg, status.CodeOf(err))
}

func TestDocRequiresFileComponent(t *testing.T) {
	_, err := filter.NewDoc(opmode.LibFilter, []byte("justaname"))
	require.Error(t, err)
	require.Equal(t, status.InvalidArg, status.CodeOf(err))
}

func TestDocMissingPluginFile(t *testing.T) {
	_, err := filter.NewDoc(opmode.LibFilter, []byte("/no/such/plugin.so:symbolName:args"))
	require.Error(t, err)
	require.Equal(t, status.InvalidArg, status.CodeOf(err))
}
