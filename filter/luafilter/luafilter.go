// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package luafilter implements the LUA_FILTER predicate: the filter
// descriptor is Lua source defining a global check function that receives
// the candidate key and value as strings and returns a boolean. It is
// imported for its init side effect, which wires itself into
// storj.io/yokan/filter via filter.RegisterLuaHooks (§9: "Static
// constructors with side effects do not translate idiomatically. Replace
// with an explicit registry" — here the registry lives in the filter
// package and luafilter registers against it rather than the filter
// package importing luafilter directly, avoiding an import cycle since
// luafilter needs the filter.KeyValue/Doc interfaces).
package luafilter

import (
	"sync"

	lua "github.com/yuin/gopher-lua"

	"storj.io/yokan/filter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

func init() {
	filter.RegisterLuaHooks(newKeyValue, newDoc)
}

// keyValue evaluates a Lua predicate of the form:
//
//	function check(key, value) return true end
//
// against each candidate key/value pair. A fresh *lua.LState is expensive
// to build per call, so one is kept per filter instance guarded by a
// mutex; engines only ever drive a filter from a single goroutine at a
// time during a scan, but the mutex keeps the type safe to share.
type keyValue struct {
	mu            sync.Mutex
	state         *lua.LState
	fn            *lua.LFunction
	requiresValue bool
}

func newKeyValue(mode opmode.Mode, descriptor []byte) (filter.KeyValue, error) {
	state, fn, err := compile(descriptor)
	if err != nil {
		return nil, err
	}
	return &keyValue{state: state, fn: fn, requiresValue: mode.Has(opmode.FilterValue)}, nil
}

func compile(source []byte) (*lua.LState, *lua.LFunction, error) {
	l := lua.NewState()
	if err := l.DoString(string(source)); err != nil {
		l.Close()
		return nil, nil, status.Wrap(status.InvalidArg, err)
	}
	fn, ok := l.GetGlobal("check").(*lua.LFunction)
	if !ok {
		l.Close()
		return nil, nil, status.Newf(status.InvalidArg, "lua filter must define a global check(key, value) function")
	}
	return l, fn, nil
}

func (f *keyValue) RequiresValue() bool { return f.requiresValue }

func (f *keyValue) Check(key, val []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Push(f.fn)
	f.state.Push(lua.LString(key))
	f.state.Push(lua.LString(val))
	if err := f.state.PCall(2, 1, nil); err != nil {
		return false
	}
	ret := f.state.Get(-1)
	f.state.Pop(1)
	return lua.LVAsBool(ret)
}

func (f *keyValue) ShouldStop([]byte, []byte) bool { return false }

func (f *keyValue) KeySizeFrom(key []byte) uint64 { return uint64(len(key)) }
func (f *keyValue) ValSizeFrom(val []byte) uint64 { return uint64(len(val)) }

func (f *keyValue) KeyCopy(dst []byte, max uint64, key []byte) uint64 {
	return boundedCopy(dst, max, key)
}

func (f *keyValue) ValCopy(dst []byte, max uint64, val []byte) uint64 {
	return boundedCopy(dst, max, val)
}

func boundedCopy(dst []byte, max uint64, src []byte) uint64 {
	n := uint64(len(src))
	if n > max {
		n = max
	}
	if uint64(len(dst)) < n {
		n = uint64(len(dst))
	}
	copy(dst[:n], src[:n])
	return n
}

// doc is the document-store analogue of keyValue, calling a
// check(collection, id, doc) Lua function.
type doc struct {
	mu    sync.Mutex
	state *lua.LState
	fn    *lua.LFunction
}

func newDoc(_ opmode.Mode, descriptor []byte) (filter.Doc, error) {
	state, fn, err := compile(descriptor)
	if err != nil {
		return nil, err
	}
	return &doc{state: state, fn: fn}, nil
}

func (f *doc) Check(collection string, id uint64, payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Push(f.fn)
	f.state.Push(lua.LString(collection))
	f.state.Push(lua.LNumber(id))
	f.state.Push(lua.LString(payload))
	if err := f.state.PCall(3, 1, nil); err != nil {
		return false
	}
	ret := f.state.Get(-1)
	f.state.Pop(1)
	return lua.LVAsBool(ret)
}

func (f *doc) DocSizeFrom(_ string, payload []byte) uint64 { return uint64(len(payload)) }

func (f *doc) DocCopy(_ string, dst []byte, max uint64, payload []byte) uint64 {
	return boundedCopy(dst, max, payload)
}
