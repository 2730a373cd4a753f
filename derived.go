// Copyright 2026 The Malloc Authors.

package malloc

import (
	"fmt"
	"math"
	"os"
	"unsafe"
)

// UsableSize reports the number of payload bytes available at p, which
// must point at the first byte of a block returned by Allocate,
// Callocate, or Reallocate and not yet deallocated. The allocated
// footprint can exceed what was originally requested once best-fit
// rounding and the no-split floor are accounted for.
func (a *Allocator) UsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return headerFromUserPointer(p).size() - headerSize
}

// Callocate is Allocate(nmemb*size) with the result zeroed. An
// overflowing nmemb*size returns nil without touching allocator state,
// the same "no partial state change" contract as out-of-memory.
func (a *Allocator) Callocate(nmemb, size int) (r unsafe.Pointer) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "Callocate(%#x, %#x) %p\n", nmemb, size, r)
		}()
	}
	if nmemb < 0 || size < 0 {
		panic("malloc: negative callocate argument")
	}
	if nmemb != 0 && size > math.MaxInt/nmemb {
		return nil
	}

	n := nmemb * size
	p := a.Allocate(n)
	if p == nil {
		return nil
	}

	zero(p, n)
	r = p
	return r
}

// zero clears n bytes starting at p via a reslice-and-range over the
// raw memory.
func zero(p unsafe.Pointer, n int) {
	if n == 0 {
		return
	}
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}

// Reallocate changes the size of the block at p to n bytes, copying
// min(old usable size, n) bytes and returning a pointer to the new
// block. No in-place grow or shrink is attempted.
//
// p == nil behaves as Allocate(n). n == 0 frees p and returns a fresh,
// live, minimum-size block rather than nil, for the same reason
// Allocate(0) does.
func (a *Allocator) Reallocate(p unsafe.Pointer, n int) (r unsafe.Pointer) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "Reallocate(%p, %#x) %p\n", p, n, r)
		}()
	}
	if n < 0 {
		panic("malloc: negative reallocate size")
	}
	if p == nil {
		return a.Allocate(n)
	}

	old := a.UsableSize(p)
	next := a.Allocate(n)
	if next == nil {
		return nil
	}

	copyN := old
	if n < copyN {
		copyN = n
	}
	if copyN > 0 {
		dst := unsafe.Slice((*byte)(next), copyN)
		src := unsafe.Slice((*byte)(p), copyN)
		copy(dst, src)
	}

	a.Deallocate(p)
	r = next
	return r
}
