// Copyright 2026 The Malloc Authors.

// Package malloc implements a general-purpose dynamic memory allocator
// over raw OS-backed memory: an in-band block-header layout, segregated
// free lists indexed by size class, best-fit-with-splitting allocation,
// bidirectional boundary-tag coalescing on free, and fencepost markers
// that delimit OS-obtained chunks and let physically adjacent chunks be
// fused into one. It presents an interface semantically equivalent to
// the C malloc/free/calloc/realloc family.
package malloc

import (
	"fmt"
	"os"
	"sync"
	"unsafe"
)

// Allocator allocates and frees memory obtained from the OS in
// arena-sized chunks. Every public method is serialized by a single
// mutex: all internal state — free lists, chunk table, block headers —
// is only ever touched while mu is held.
//
// The zero value is ready for use and behaves like NewAllocator() with
// no options: internal state is installed lazily on first use.
type Allocator struct {
	mu sync.Mutex

	arenaSize int
	once      sync.Once

	chunks *chunkManager
	free   *freeLists
}

// NewAllocator constructs an Allocator ready for concurrent use.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{arenaSize: defaultArenaSize}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// init lazily installs the free-list sentinels and the chunk manager on
// first use, since Go has no pre-main initialization hook to run this
// ahead of the constructor; guarded by sync.Once so it is itself
// race-free under concurrent first calls.
func (a *Allocator) init() {
	a.once.Do(func() {
		a.free = newFreeLists()
		a.chunks = newChunkManager(a.arenaSize, a.free)
	})
}

// Allocate returns a pointer to at least n usable, 8-byte-aligned
// bytes, valid until passed to Deallocate. n == 0 returns a live,
// minimum-size block rather than nil, so the result is always safely
// passable to Deallocate without a separate null check. Returns nil
// only on out-of-memory.
func (a *Allocator) Allocate(n int) (r unsafe.Pointer) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "Allocate(%#x) %p\n", n, r)
		}()
	}
	if n < 0 {
		panic("malloc: negative allocation size")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.init()

	h, ok := a.allocateLocked(n)
	if !ok {
		return nil
	}
	r = h.userPointer()
	return r
}

// allocSizeFor computes the rounded total block footprint for a
// request of n payload bytes: room for the header, rounded up to a
// multiple of 8, floored at minFreeSize so the block can hold the
// free-list link pair once it is freed.
func allocSizeFor(n int) int {
	size := roundup8(n + headerSize)
	if size < minFreeSize {
		size = minFreeSize
	}
	return size
}

// allocateLocked finds or creates a free block big enough for allocSize
// and hands back its carved allocation. Must be called with mu held and
// the allocator initialized.
func (a *Allocator) allocateLocked(n int) (*blockHeader, bool) {
	allocSize := allocSizeFor(n)
	idx := classIndex(allocSize)

	h := a.free.popAtLeast(idx, allocSize)
	if h == nil {
		fresh, err := a.chunks.acquireChunk(allocSize)
		if err != nil {
			return nil, false
		}
		a.free.insert(fresh)
		h = a.free.popAtLeast(idx, allocSize)
		if h == nil {
			// The freshly acquired chunk fused with existing free
			// space that still doesn't satisfy allocSize (can only
			// happen if the caller requested something larger than a
			// single arena and the chunk manager under-provisioned;
			// acquireChunk's own rounding prevents this in practice).
			return nil, false
		}
	}

	return a.splitAndTake(h, allocSize), true
}

// splitAndTake carves the tail allocSize bytes out of h if the
// remainder would still be a legal free block, otherwise hands out h
// whole.
func (a *Allocator) splitAndTake(h *blockHeader, allocSize int) *blockHeader {
	foundSize := h.size()
	remainder := foundSize - allocSize

	var allocated *blockHeader
	if remainder >= minFreeSize {
		// Tail split: the surviving free block keeps h's base address,
		// minimizing churn in list 58's address order, and the
		// returned block is carved from the end.
		initFreeBlock(h, remainder, h.leftBlockSize())
		allocated = (*blockHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(h)) + uintptr(remainder)))
		allocated.setSize(allocSize)
		allocated.setLeftBlockSize(remainder)

		right := allocated.rightNeighbor()
		right.setLeftBlockSize(allocSize)

		a.free.insert(h)
	} else {
		allocated = h
		right := allocated.rightNeighbor()
		right.setLeftBlockSize(allocated.size())
	}

	allocated.setState(stateAllocated)
	return allocated
}
