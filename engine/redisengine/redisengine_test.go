// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package redisengine

import (
	"context"
	"testing"

	"storj.io/yokan/enginetest"
	"storj.io/yokan/status"
)

// TestSuite requires a redis instance reachable at localhost:6379; it skips
// itself rather than failing when none is running, the same accommodation
// private/kvstore/redis's client_test.go makes for its own docker-backed
// suite.
func TestSuite(t *testing.T) {
	eng, err := create(context.Background(), []byte(`{"address":"127.0.0.1:6379","namespace":"yokan-test"}`))
	if err != nil {
		if status.CodeOf(err) == status.IOError {
			t.Skipf("no redis reachable at 127.0.0.1:6379: %v", err)
		}
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = eng.Destroy(context.Background()) })
	enginetest.RunKV(t, eng)
}
