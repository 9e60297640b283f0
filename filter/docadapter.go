// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package filter

import "storj.io/yokan/dockey"

// docAdapter wraps a Doc filter so it can drive the key/value iteration
// that the document-store mixin's docList/docIter are themselves built on
// top of. It does this by prefix-matching "collection\0" on the stored
// mixin key, extracting and byte-swapping the trailing id back to native
// endianness, and delegating Check/size/copy to the wrapped Doc filter.
type docAdapter struct {
	baseStop
	collection string
	inner      Doc
}

// ToKeyValueFilter adapts a Doc filter to a KeyValue filter scoped to a
// single collection, the way docList/docIter need in order to reuse
// listKeyValues under the hood.
func ToKeyValueFilter(inner Doc, collection string) KeyValue {
	return &docAdapter{collection: collection, inner: inner}
}

// RequiresValue implements KeyValue: document filters always need the
// payload, since there is no cheaper document-level metadata to check
// against.
func (a *docAdapter) RequiresValue() bool { return true }

// Check implements KeyValue.
func (a *docAdapter) Check(key, val []byte) bool {
	_, id, ok := dockey.Decode(key)
	if !ok {
		return false
	}
	return a.inner.Check(a.collection, id, val)
}

// ShouldStop implements KeyValue: once the key no longer belongs to the
// collection's namespace, no further key in an ordered scan can belong to
// it either.
func (a *docAdapter) ShouldStop(key, _ []byte) bool {
	return !dockey.HasCollectionPrefix(key, a.collection)
}

// KeySizeFrom implements KeyValue: the emitted "key" for a document
// listing is the 8-byte big-endian id, matching BasicUserMem<yk_id_t>
// on the wire.
func (a *docAdapter) KeySizeFrom([]byte) uint64 { return dockey.IDSize }

// ValSizeFrom implements KeyValue.
func (a *docAdapter) ValSizeFrom(val []byte) uint64 {
	return a.inner.DocSizeFrom(a.collection, val)
}

// KeyCopy implements KeyValue: copies the raw 8-byte big-endian id out of
// the mixin key.
func (a *docAdapter) KeyCopy(dst []byte, max uint64, key []byte) uint64 {
	_, id, ok := dockey.Decode(key)
	if !ok {
		return 0
	}
	idBytes := make([]byte, dockey.IDSize)
	for i := 0; i < dockey.IDSize; i++ {
		idBytes[i] = byte(id >> uint(8*(dockey.IDSize-1-i)))
	}
	return boundedCopy(dst, max, idBytes)
}

// ValCopy implements KeyValue.
func (a *docAdapter) ValCopy(dst []byte, max uint64, val []byte) uint64 {
	return a.inner.DocCopy(a.collection, dst, max, val)
}
