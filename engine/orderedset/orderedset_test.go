// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package orderedset

import (
	"context"
	"testing"

	"storj.io/yokan/enginetest"
)

// The set engine is value-less (kvcore rejects a non-empty Put value), so
// it cannot host docstore.Wrap: a document's content has no home in a
// set-shaped key/value pair.
func TestSuite(t *testing.T) {
	eng, err := create(context.Background(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enginetest.RunKV(t, eng)
}
