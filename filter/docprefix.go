// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package filter

import "bytes"

// DocPrefix is the default Doc filter: it accepts a document when its raw
// bytes begin with a fixed byte string. It is the document-store analogue
// of Prefix, used e.g. to filter documents by a leading tag byte.
type DocPrefix struct {
	prefix        []byte
	requiresValue bool
}

// NewDocPrefix builds a DocPrefix filter.
func NewDocPrefix(prefix []byte, requiresValue bool) *DocPrefix {
	return &DocPrefix{prefix: prefix, requiresValue: requiresValue}
}

// Check implements Doc.
func (f *DocPrefix) Check(_ string, _ uint64, doc []byte) bool {
	return bytes.HasPrefix(doc, f.prefix)
}

// DocSizeFrom implements Doc.
func (f *DocPrefix) DocSizeFrom(_ string, doc []byte) uint64 { return uint64(len(doc)) }

// DocCopy implements Doc.
func (f *DocPrefix) DocCopy(_ string, dst []byte, max uint64, doc []byte) uint64 {
	return boundedCopy(dst, max, doc)
}
