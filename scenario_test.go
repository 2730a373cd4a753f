// Copyright 2026 The Malloc Authors.

package malloc

import (
	"math"
	"testing"
	"unsafe"

	"github.com/cznic/mathutil"
)

// TestScenarioSingleAllocFree covers the simplest lifecycle: one
// allocation, one matching free, heap ends up indistinguishable from
// fresh.
func TestScenarioSingleAllocFree(t *testing.T) {
	a := NewAllocator()
	p := a.Allocate(64)
	if p == nil {
		t.Fatal("Allocate(64) = nil")
	}
	a.Deallocate(p)
	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

// TestScenarioMiddleFreeNoCoalesce allocates three blocks and frees only
// the middle one: its neighbours are both still ALLOCATED, so it must
// stay a lone free block rather than merge with anything.
func TestScenarioMiddleFreeNoCoalesce(t *testing.T) {
	a := NewAllocator(WithArenaSize(4096))
	p := a.Allocate(32)
	q := a.Allocate(32)
	r := a.Allocate(32)
	if p == nil || q == nil || r == nil {
		t.Fatal("Allocate returned nil")
	}

	a.Deallocate(q)

	hp := headerFromUserPointer(p)
	hr := headerFromUserPointer(r)
	if hp.state() != stateAllocated || hr.state() != stateAllocated {
		t.Fatal("freeing the middle block must not disturb its still-allocated neighbours")
	}
	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}

	a.Deallocate(p)
	a.Deallocate(r)
}

// TestScenarioBothNeighboursFreeCoalesce frees two adjacent blocks and
// checks the result merges into one larger free span rather than
// leaving two adjacent UNALLOCATED blocks (which CheckInvariants treats
// as corruption).
func TestScenarioBothNeighboursFreeCoalesce(t *testing.T) {
	a := NewAllocator(WithArenaSize(4096))
	p := a.Allocate(32)
	q := a.Allocate(32)
	if p == nil || q == nil {
		t.Fatal("Allocate returned nil")
	}

	a.Deallocate(p)
	a.Deallocate(q)
	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after freeing both neighbours: %v", err)
	}
}

// TestScenarioLargeAllocationBeyondOneArena allocates more than one
// arena's worth in a single call; the chunk manager must grow the
// footprint to cover it in one extension (see DESIGN.md's note on the
// acquireChunk/scenario-4 divergence) and the returned block must be
// usable end to end.
func TestScenarioLargeAllocationBeyondOneArena(t *testing.T) {
	a := NewAllocator(WithArenaSize(4096))
	n := 4096 * 3
	p := a.Allocate(n)
	if p == nil {
		t.Fatal("large Allocate returned nil")
	}
	if got := a.UsableSize(p); got < n {
		t.Fatalf("UsableSize(p) = %d, want >= %d", got, n)
	}
	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
	a.Deallocate(p)
}

// TestScenarioShuffleConverges drives a thousand-allocation
// allocate/free workload through a deterministic PRNG (mathutil's FC32)
// and checks the heap is fully consistent and returns everything it
// handed out.
func TestScenarioShuffleConverges(t *testing.T) {
	a := NewAllocator()
	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		t.Fatal(err)
	}
	rng.Seed(42)

	const n = 1000
	ptrs := make([]unsafe.Pointer, 0, n)
	for i := 0; i < n; i++ {
		size := rng.Next()%2048 + 1
		p := a.Allocate(size)
		if p == nil {
			t.Fatalf("Allocate(%d) = nil at iteration %d", size, i)
		}
		ptrs = append(ptrs, p)
	}

	// Fisher-Yates shuffle the free order using the same PRNG.
	for i := len(ptrs) - 1; i > 0; i-- {
		j := rng.Next() % (i + 1)
		ptrs[i], ptrs[j] = ptrs[j], ptrs[i]
	}

	for _, p := range ptrs {
		a.Deallocate(p)
	}

	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after shuffle-free-all: %v", err)
	}
}
