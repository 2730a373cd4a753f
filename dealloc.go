// Copyright 2026 The Malloc Authors.

package malloc

import (
	"fmt"
	"os"
	"unsafe"
)

// Deallocate returns the memory at p, previously obtained from
// Allocate, Callocate, or Reallocate, to the allocator. p may be nil,
// in which case Deallocate is a no-op.
//
// Passing a pointer that was already deallocated, or that was never
// returned by this allocator, is a contract violation; the double-free
// case is detected best-effort and is fatal.
func (a *Allocator) Deallocate(p unsafe.Pointer) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "Deallocate(%p)\n", p)
		}()
	}
	if p == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.init()
	a.deallocateLocked(p)
}

// deallocateLocked validates and frees h. Must be called with mu held.
func (a *Allocator) deallocateLocked(p unsafe.Pointer) {
	h := headerFromUserPointer(p)
	if h.state() != stateAllocated {
		fatalf("double free or corruption: block at %p is %s, not ALLOCATED", p, h.state())
	}

	h.setState(stateUnallocated)
	h = a.coalesce(h)
	a.free.insert(h)
}

// coalesce merges h with its right and then left neighbour if either is
// UNALLOCATED. Fenceposts never
// participate (their state is never UNALLOCATED so the state checks
// below exclude them automatically). Returns the canonical header for
// the (possibly larger) resulting free block.
func (a *Allocator) coalesce(h *blockHeader) *blockHeader {
	right := h.rightNeighbor()
	if right.state() == stateUnallocated {
		a.free.remove(right)
		h.setSize(h.size() + right.size())
		h.rightNeighbor().setLeftBlockSize(h.size())
	}

	if h.leftBlockSize() != 0 {
		left := h.leftNeighbor()
		if left.state() == stateUnallocated {
			a.free.remove(left)
			left.setSize(left.size() + h.size())
			left.rightNeighbor().setLeftBlockSize(left.size())
			h = left
		}
	}

	return h
}
