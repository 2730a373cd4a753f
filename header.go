// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Modifications (c) 2026 The Malloc Authors.

package malloc

import "unsafe"

// blockState is the two-bit tag packed into the low bits of a
// blockHeader's size field.
type blockState uint64

const (
	stateUnallocated blockState = iota
	stateAllocated
	stateFencepost
)

func (s blockState) String() string {
	switch s {
	case stateUnallocated:
		return "UNALLOCATED"
	case stateAllocated:
		return "ALLOCATED"
	case stateFencepost:
		return "FENCEPOST"
	default:
		return "INVALID"
	}
}

const (
	// stateMask covers the low 3 reserved bits of the state tag, though
	// only 2 are ever consumed.
	stateMask = 0x7

	// headerSize is the boundary-tag header footprint: two uint64
	// fields, size and left-size.
	headerSize = int(unsafe.Sizeof(blockHeader{}))

	// linkSize is the free-list prev/next pair overlaid on the first
	// payload bytes of an UNALLOCATED block.
	linkSize = int(unsafe.Sizeof(link{}))

	// minAllocatedSize is the smallest legal footprint for an
	// ALLOCATED block: header only, zero-length payload.
	minAllocatedSize = headerSize

	// minFreeSize is the smallest legal footprint for an UNALLOCATED
	// block: header plus the link pair it must hold once freed.
	minFreeSize = headerSize + linkSize
)

// blockHeader is the in-band layout shared by every block in every
// chunk: size (including this header) and state share one word;
// left-size mirrors the immediate left neighbour's size field, forming
// the boundary tag.
type blockHeader struct {
	sizeState uint64
	leftSize  uint64
}

// link is the free-list forward/back pointer pair. For an UNALLOCATED
// block it is overlaid on the first 16 payload bytes; for an ALLOCATED
// block those same bytes belong to the caller and link is never
// consulted.
type link struct {
	prev, next *blockHeader
}

// roundup8 rounds n up to the next multiple of 8.
func roundup8(n int) int { return (n + 7) &^ 7 }

func (h *blockHeader) size() int { return int(h.sizeState &^ stateMask) }

// setSize overwrites the size field, preserving the state tag. size
// must already be a multiple of 8.
func (h *blockHeader) setSize(size int) {
	h.sizeState = (h.sizeState & stateMask) | uint64(size)
}

func (h *blockHeader) state() blockState { return blockState(h.sizeState & stateMask) }

// setState overwrites the state tag, preserving the size field.
func (h *blockHeader) setState(s blockState) {
	h.sizeState = (h.sizeState &^ stateMask) | uint64(s)
}

func (h *blockHeader) leftBlockSize() int { return int(h.leftSize) }

func (h *blockHeader) setLeftBlockSize(size int) { h.leftSize = uint64(size) }

// rightNeighbor returns the block physically adjacent on the right,
// i.e. at byte offset h.size() from h. Always legal to call: every
// chunk ends in a right fencepost, so there is always a block there.
func (h *blockHeader) rightNeighbor() *blockHeader {
	return (*blockHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(h)) + uintptr(h.size())))
}

// leftNeighbor returns the block physically adjacent on the left.
// Undefined (and never called) when h.leftBlockSize() == 0, i.e. when
// h is the first block in its chunk.
func (h *blockHeader) leftNeighbor() *blockHeader {
	return (*blockHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(h)) - uintptr(h.leftBlockSize())))
}

// freeLink overlays the free-list link pair on h's payload. Only valid
// while h is UNALLOCATED (or a sentinel standing in for a list head).
func (h *blockHeader) freeLink() *link {
	return (*link)(unsafe.Pointer(uintptr(unsafe.Pointer(h)) + uintptr(headerSize)))
}

// userPointer derives the application-visible pointer from a header:
// the first byte past the fixed header fields.
func (h *blockHeader) userPointer() unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + uintptr(headerSize))
}

// headerFromUserPointer is userPointer's inverse.
func headerFromUserPointer(p unsafe.Pointer) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(uintptr(p) - uintptr(headerSize)))
}

// initFencepost writes a minimum-footprint, never-coalesced marker at
// h with the given left-size.
func initFencepost(h *blockHeader, leftSize int) {
	h.setSize(roundup8(headerSize))
	h.setState(stateFencepost)
	h.setLeftBlockSize(leftSize)
}

// initFreeBlock writes an UNALLOCATED header of the given size at h,
// with the given left-size. The link pair is left uninitialized; the
// caller is responsible for threading the block into a list (via
// freeLists.insert) before anyone else can observe it.
func initFreeBlock(h *blockHeader, size, leftSize int) {
	h.setSize(size)
	h.setState(stateUnallocated)
	h.setLeftBlockSize(leftSize)
}
