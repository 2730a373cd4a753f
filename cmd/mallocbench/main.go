// Copyright 2026 The Malloc Authors.

// Command mallocbench runs a deterministic allocate/shuffle/free
// workload against the allocator and reports allocation overhead
// statistics, without needing `go test -bench`.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"unsafe"

	"github.com/cznic/mathutil"

	malloc "github.com/Neel-Vachhani/Malloc"
)

func main() {
	var (
		count   = flag.Int("n", 10000, "number of allocations in the workload")
		maxSize = flag.Int("max-size", 2048, "maximum payload size per allocation, in bytes")
		arena   = flag.Int("arena", 0, "override the allocator's arena size in bytes (0 = default)")
		seed    = flag.Int("seed", 42, "PRNG seed for the size and shuffle sequence")
	)
	flag.Parse()

	var opts []malloc.Option
	if *arena > 0 {
		opts = append(opts, malloc.WithArenaSize(*arena))
	}
	a := malloc.NewAllocator(opts...)

	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mallocbench:", err)
		os.Exit(1)
	}
	rng.Seed(*seed)

	ptrs := make([]unsafe.Pointer, 0, *count)
	var totalRequested, totalUsable int
	for i := 0; i < *count; i++ {
		size := rng.Next()%(*maxSize) + 1
		p := a.Allocate(size)
		if p == nil {
			fmt.Fprintf(os.Stderr, "mallocbench: Allocate(%d) returned nil at iteration %d\n", size, i)
			os.Exit(1)
		}
		ptrs = append(ptrs, p)
		totalRequested += size
		totalUsable += a.UsableSize(p)
	}

	for i := len(ptrs) - 1; i > 0; i-- {
		j := rng.Next() % (i + 1)
		ptrs[i], ptrs[j] = ptrs[j], ptrs[i]
	}

	for _, p := range ptrs {
		a.Deallocate(p)
	}

	if err := a.CheckInvariants(); err != nil {
		fmt.Fprintln(os.Stderr, "mallocbench: heap corrupted after workload:", err)
		os.Exit(1)
	}

	overheadPct := 0.0
	if totalRequested > 0 {
		overheadPct = 100 * float64(totalUsable-totalRequested) / float64(totalRequested)
	}
	fmt.Printf("allocs=%d requested=%d usable=%d overhead=%.1f%%\n",
		*count, totalRequested, totalUsable, overheadPct)
}
