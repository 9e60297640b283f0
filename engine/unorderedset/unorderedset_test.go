// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package unorderedset

import (
	"context"
	"testing"

	"storj.io/yokan/enginetest"
)

func TestSuite(t *testing.T) {
	eng, err := create(context.Background(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enginetest.RunKV(t, eng)
}
