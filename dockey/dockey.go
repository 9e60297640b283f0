// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package dockey implements the key layout the document-store mixin uses
// to embed collection name and document id into the single keyspace of an
// underlying key/value engine (§3, "Key layout used by the mixin").
//
// For collection C and id i, the key is the bytes of C, a NUL byte, then i
// encoded big-endian, so that byte-lexicographic order over the encoded
// key agrees with numeric order over i. The collection's own metadata key
// is C alone, with no trailing NUL, which can never collide with a
// document key because every document key contains an internal NUL that a
// bare collection name lacks.
package dockey

import "encoding/binary"

// IDSize is the encoded width of a document id.
const IDSize = 8

// Encode returns the mixin key for (collection, id).
func Encode(collection string, id uint64) []byte {
	key := make([]byte, len(collection)+1+IDSize)
	copy(key, collection)
	binary.BigEndian.PutUint64(key[len(collection)+1:], id)
	return key
}

// Prefix returns the shared prefix of every document key in collection,
// i.e. collection followed by the NUL separator.
func Prefix(collection string) []byte {
	p := make([]byte, len(collection)+1)
	copy(p, collection)
	return p
}

// Decode splits a mixin-encoded key back into its collection name and id.
// ok is false if key is not a validly-shaped document key for any
// collection (too short to hold a NUL and 8 id bytes).
func Decode(key []byte) (collection string, id uint64, ok bool) {
	if len(key) < IDSize+1 {
		return "", 0, false
	}
	nul := len(key) - IDSize - 1
	if key[nul] != 0 {
		return "", 0, false
	}
	return string(key[:nul]), binary.BigEndian.Uint64(key[nul+1:]), true
}

// HasCollectionPrefix reports whether key belongs to collection's
// namespace, i.e. begins with collection followed by a NUL.
func HasCollectionPrefix(key []byte, collection string) bool {
	p := Prefix(collection)
	if len(key) < len(p) {
		return false
	}
	for i, b := range p {
		if key[i] != b {
			return false
		}
	}
	return true
}
