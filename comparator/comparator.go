// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package comparator holds the registry of named byte-comparators that the
// in-memory ordered engines (orderedmap, orderedset) can be configured
// with via the "comparator" configuration field (§6). Following the same
// explicit-registry pattern as package backend and package filter (§9), a
// comparator is installed by calling Register from an init() function
// rather than relying on a static-initializer side effect.
package comparator

import (
	"bytes"
	"sync"

	"storj.io/yokan/status"
)

// Func compares two keys the way bytes.Compare does: negative if a < b,
// zero if equal, positive if a > b. Ordered engines use this total order
// for both storage order and for interpreting "greater than fromKey".
type Func func(a, b []byte) int

var (
	mu    sync.RWMutex
	funcs = map[string]Func{
		"default": func(a, b []byte) int { return bytes.Compare(a, b) },
	}
)

// Register installs a named comparator. Re-registering "default" is
// rejected to keep the byte-lexicographic baseline stable.
func Register(name string, fn Func) {
	if name == "default" {
		panic("comparator: \"default\" is reserved")
	}
	mu.Lock()
	defer mu.Unlock()
	funcs[name] = fn
}

// Lookup resolves a comparator by name, as named in an engine's "comparator"
// configuration field. An unknown name is status.InvalidConf.
func Lookup(name string) (Func, error) {
	if name == "" {
		name = "default"
	}
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := funcs[name]
	if !ok {
		return nil, status.Newf(status.InvalidConf, "unknown comparator %q", name)
	}
	return fn, nil
}
