// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package backend

import "storj.io/yokan/status"

// Slot is one output element of a multi-key operation. A successfully
// materialized element has Size == len(Data); a not-found, exhausted-
// iteration, or too-small-buffer element carries one of the status
// sentinel sizes and empty Data.
type Slot struct {
	Data []byte
	Size uint64
}

// NotFoundSlot is the not-found sentinel element.
func NotFoundSlot() Slot { return Slot{Size: status.KeyNotFound} }

// BuildOutput applies the shared unpacked/packed output-sizing rule used by
// Get, ListKeys/ListKeyValues, DocLoad, and DocList: given the full value
// bytes for each requested or listed item (nil meaning "absent", in
// whichever sense applies to the caller: not-found for Get/DocLoad,
// end-of-scan for ListKeys/DocList), it trims each value to fit either a
// per-item budget (unpacked) or a shared total capacity consumed in order
// (packed), marking status.SizeTooSmall once an item no longer fits.
// missing is the sentinel used for a nil entry — status.KeyNotFound for
// point lookups, status.NoMoreKeys/NoMoreDocs for exhausted iteration.
//
// Packed mode never decrements remaining capacity for an item that didn't
// fit: a later, smaller item may still fit in what's left, matching the
// literal worked example in the specification (§8, scenario S2).
func BuildOutput(values [][]byte, packed bool, budgets []uint64, missing uint64) []Slot {
	out := make([]Slot, len(values))
	if !packed {
		for i, v := range values {
			budget := uint64(0)
			if i < len(budgets) {
				budget = budgets[i]
			}
			out[i] = buildUnpackedSlot(v, budget, missing)
		}
		return out
	}
	remaining := uint64(0)
	if len(budgets) > 0 {
		remaining = budgets[0]
	}
	for i, v := range values {
		if v == nil {
			out[i] = Slot{Size: missing}
			continue
		}
		n := uint64(len(v))
		if n > remaining {
			out[i] = Slot{Size: status.SizeTooSmall}
			continue
		}
		out[i] = Slot{Data: append([]byte(nil), v...), Size: n}
		remaining -= n
	}
	return out
}

func buildUnpackedSlot(v []byte, budget, missing uint64) Slot {
	if v == nil {
		return Slot{Size: missing}
	}
	n := uint64(len(v))
	if n > budget {
		return Slot{Size: status.SizeTooSmall}
	}
	return Slot{Data: append([]byte(nil), v...), Size: n}
}
