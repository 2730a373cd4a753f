// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Modifications (c) 2026 The Malloc Authors.

package malloc

import "unsafe"

// nLists is the segregated free-list count, fixed at 59: lists 0..57
// each hold one exact size (16, 24, ..., 472 bytes), list 58 holds
// everything >= 480 bytes, kept in ascending address order.
const nLists = 59

// lastList is the variable-size, address-ordered list index.
const lastList = nLists - 1

// classIndex maps a block size to its free-list index, clamped into
// [0, lastList].
func classIndex(size int) int {
	idx := size/8 - 2
	switch {
	case idx < 0:
		return 0
	case idx > lastList:
		return lastList
	default:
		return idx
	}
}

// sentinelNode is a list head that is not itself a heap block: header
// and ln are declared back to back so that (&sentinel.header).freeLink()
// lands on &sentinel.ln by the same pointer arithmetic used for every
// real block, letting sentinels and real blocks share one linking
// implementation with no special-casing for empty lists.
type sentinelNode struct {
	header blockHeader
	ln     link
}

func (s *sentinelNode) asHeader() *blockHeader { return &s.header }

// freeLists is the segregated free-list set: 59 doubly-linked circular
// lists, each with a self-linked sentinel head.
type freeLists struct {
	sentinels [nLists]sentinelNode
}

func newFreeLists() *freeLists {
	fl := &freeLists{}
	for i := range fl.sentinels {
		h := fl.sentinels[i].asHeader()
		l := h.freeLink()
		l.prev = h
		l.next = h
	}
	return fl
}

// insert threads an UNALLOCATED block into the list matching its
// current size. Lists 0..lastList-1 insert at the head (order within
// a fixed-size list is irrelevant); list lastList keeps ascending
// address order.
func (fl *freeLists) insert(h *blockHeader) {
	idx := classIndex(h.size())
	sentinel := fl.sentinels[idx].asHeader()
	if idx != lastList {
		insertAfter(sentinel, h)
		return
	}

	cur := sentinel.freeLink().next
	for cur != sentinel && uintptr(unsafe.Pointer(cur)) < uintptr(unsafe.Pointer(h)) {
		cur = cur.freeLink().next
	}
	insertBefore(cur, h)
}

// remove unlinks h from whichever list it currently occupies. The
// caller must know h is actually free and currently linked.
func (fl *freeLists) remove(h *blockHeader) {
	l := h.freeLink()
	l.prev.freeLink().next = l.next
	l.next.freeLink().prev = l.prev
	l.prev = nil
	l.next = nil
}

// popAtLeast returns the first block of size >= minSize found by
// scanning lists [idx..lastList]: for the fixed-size lists any head
// qualifies, since every block on a fixed-size list already has
// exactly the size that list's index implies and idx was computed
// from the same minSize; for the variable-size list a first-fit,
// address-ordered scan is performed. Returns nil if nothing qualifies.
func (fl *freeLists) popAtLeast(idx, minSize int) *blockHeader {
	for i := idx; i < nLists; i++ {
		sentinel := fl.sentinels[i].asHeader()
		if i != lastList {
			if first := sentinel.freeLink().next; first != sentinel {
				fl.remove(first)
				return first
			}
			continue
		}

		for cur := sentinel.freeLink().next; cur != sentinel; cur = cur.freeLink().next {
			if cur.size() >= minSize {
				fl.remove(cur)
				return cur
			}
		}
	}
	return nil
}

// insertAfter splices the not-yet-linked block h immediately after
// the already-linked node at (at may be a sentinel).
func insertAfter(at, h *blockHeader) {
	al := at.freeLink()
	hl := h.freeLink()
	hl.prev = at
	hl.next = al.next
	al.next.freeLink().prev = h
	al.next = h
}

// insertBefore splices the not-yet-linked block h immediately before
// the already-linked node at (at may be a sentinel, which yields an
// append at the tail of the list).
func insertBefore(at, h *blockHeader) {
	al := at.freeLink()
	hl := h.freeLink()
	hl.next = at
	hl.prev = al.prev
	al.prev.freeLink().next = h
	al.prev = h
}
