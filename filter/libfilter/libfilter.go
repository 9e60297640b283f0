// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package libfilter implements the LIB_FILTER predicate: the filter
// descriptor names a dynamically loaded symbol as "lib:name:args",
// resolved with the standard library's plugin package. This is the one
// concern in the engine where the Go rewrite reaches for the standard
// library instead of a third-party dependency: no dynamic-loading library
// appears anywhere in the example corpus, and the original C++ backend
// (src/common/linker.hpp) itself calls straight into dlfcn.h, for which
// plugin.Open/plugin.Lookup is the direct Go analogue.
//
// Imported for its init side effect, wiring itself into
// storj.io/yokan/filter via filter.RegisterLibHooks.
package libfilter

import (
	"plugin"

	"storj.io/yokan/filter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

func init() {
	filter.RegisterLibHooks(newKeyValue, newDoc)
}

// Symbol is the shape every dynamically loaded key/value filter
// constructor must have, looked up under the "name" component of a
// "lib:name:args" descriptor.
type Symbol func(args string) (filter.KeyValue, error)

// DocSymbol is the Doc analogue of Symbol.
type DocSymbol func(args string) (filter.Doc, error)

func resolve(descriptor []byte) (file, name, args string) {
	return splitLibDescriptor(string(descriptor))
}

func splitLibDescriptor(descriptor string) (file, name, args string) {
	i := indexByte(descriptor, ':')
	if i < 0 {
		return "", descriptor, ""
	}
	rest := descriptor[i+1:]
	j := indexByte(rest, ':')
	if j < 0 {
		return descriptor[:i], rest, ""
	}
	return descriptor[:i], rest[:j], rest[j+1:]
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func newKeyValue(_ opmode.Mode, descriptor []byte) (filter.KeyValue, error) {
	file, name, args := resolve(descriptor)
	if file == "" {
		return nil, status.Newf(status.InvalidArg, "LIB_FILTER descriptor %q must name a plugin file: lib:name:args", descriptor)
	}
	p, err := plugin.Open(file)
	if err != nil {
		return nil, status.Wrap(status.InvalidArg, err)
	}
	sym, err := p.Lookup(name)
	if err != nil {
		return nil, status.Wrap(status.InvalidArg, err)
	}
	ctor, ok := sym.(Symbol)
	if !ok {
		if fn, ok := sym.(func(string) (filter.KeyValue, error)); ok {
			ctor = fn
		} else {
			return nil, status.Newf(status.InvalidArg, "symbol %q in %q is not a libfilter.Symbol", name, file)
		}
	}
	return ctor(args)
}

func newDoc(_ opmode.Mode, descriptor []byte) (filter.Doc, error) {
	file, name, args := resolve(descriptor)
	if file == "" {
		return nil, status.Newf(status.InvalidArg, "LIB_FILTER descriptor %q must name a plugin file: lib:name:args", descriptor)
	}
	p, err := plugin.Open(file)
	if err != nil {
		return nil, status.Wrap(status.InvalidArg, err)
	}
	sym, err := p.Lookup(name)
	if err != nil {
		return nil, status.Wrap(status.InvalidArg, err)
	}
	ctor, ok := sym.(DocSymbol)
	if !ok {
		if fn, ok := sym.(func(string) (filter.Doc, error)); ok {
			ctor = fn
		} else {
			return nil, status.Newf(status.InvalidArg, "symbol %q in %q is not a libfilter.DocSymbol", name, file)
		}
	}
	return ctor(args)
}
