// Copyright 2026 The Malloc Authors.

package malloc

import (
	"fmt"
	"os"
	"unsafe"
)

// maxChunks bounds the chunk table: no support for more than 1024
// distinct, non-contiguous OS extensions.
const maxChunks = 1024

// defaultArenaSize is the minimum number of bytes requested per OS
// extension.
const defaultArenaSize = 4096

var (
	osPageSize = os.Getpagesize()
	osPageMask = osPageSize - 1
)

// errTooManyChunks is returned once the 1024-chunk cap would be
// exceeded by a non-fusing extension.
var errTooManyChunks = fmt.Errorf("malloc: chunk table full (limit %d)", maxChunks)

// blockAt reinterprets the bytes at offset into mem as a blockHeader.
// mem must stay alive at least as long as the returned header is used;
// every caller here holds mem (or a header already rooted in it) for
// the chunk's whole lifetime, so that's satisfied by construction.
func blockAt(mem []byte, offset int) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(&mem[offset]))
}

// chunkManager requests memory from the OS in arena-sized pieces,
// installs the left/right fencepost markers that delimit each piece,
// and tracks chunk base addresses so it can detect — and fuse — chunks
// that happen to land physically adjacent to one another.
type chunkManager struct {
	arenaSize int
	bases     []uintptr

	// free is the allocator's own free-list set. fuse needs it: when a
	// new extension's left fencepost lands next to an already-free
	// block, that block must be unlinked from whatever list currently
	// threads it before its header is overwritten and it is handed
	// back as part of a (larger) free block the caller will insert
	// itself.
	free *freeLists

	// lastEnd and lastRightFence describe the most recently acquired
	// chunk's tail, used to request (and detect) adjacency on the
	// next extension. Zero/nil before the first chunk exists.
	lastEnd        uintptr
	lastRightFence *blockHeader
}

func newChunkManager(arenaSize int, fl *freeLists) *chunkManager {
	if arenaSize <= 0 {
		arenaSize = defaultArenaSize
	}
	return &chunkManager{arenaSize: roundup8(arenaSize), free: fl}
}

// acquireChunk returns a fresh UNALLOCATED block of at least minBytes
// usable for further subdivision, extending the heap by a multiple of
// the configured arena size including both fenceposts.
func (cm *chunkManager) acquireChunk(minBytes int) (*blockHeader, error) {
	fence := roundup8(headerSize)
	footprint := roundup8(minBytes + 2*fence)
	if footprint < cm.arenaSize {
		footprint = cm.arenaSize
	} else {
		footprint = roundNextMultiple(footprint, cm.arenaSize)
	}

	hint := cm.lastEnd
	mem, err := mmapChunk(hint, footprint)
	if err != nil {
		return nil, fmt.Errorf("malloc: acquire chunk: %w", err)
	}

	base := uintptr(unsafe.Pointer(&mem[0]))
	if hint != 0 && base == hint {
		return cm.fuse(mem, footprint)
	}
	return cm.installFresh(mem, footprint, fence)
}

// installFresh installs both fenceposts on a brand new, non-adjacent
// chunk and records its base address.
func (cm *chunkManager) installFresh(mem []byte, footprint, fence int) (*blockHeader, error) {
	if len(cm.bases) >= maxChunks {
		_ = munmapChunk(unsafe.Pointer(&mem[0]), footprint)
		return nil, errTooManyChunks
	}

	left := blockAt(mem, 0)
	initFencepost(left, 0)

	innerSize := footprint - 2*fence
	inner := blockAt(mem, fence)
	initFreeBlock(inner, innerSize, fence)

	right := blockAt(mem, footprint-fence)
	initFencepost(right, innerSize)

	base := uintptr(unsafe.Pointer(&mem[0]))
	cm.bases = append(cm.bases, base)
	cm.lastEnd = base + uintptr(footprint)
	cm.lastRightFence = right
	return inner, nil
}

// fuse handles the case where the newly mapped region's base equals
// the previous chunk's end address: the old chunk's right fencepost and
// the new chunk's left fencepost — two adjacent minimum-footprint
// blocks — are demoted to a single UNALLOCATED block, which is further
// coalesced with its own left neighbour if that, too, is free. Only the
// new chunk's right fencepost is installed and the old chunk's recorded
// tail now describes the new chunk's end. The chunk table gains no
// entry: the fused region is walked from the earlier chunk's base.
func (cm *chunkManager) fuse(mem []byte, footprint int) (*blockHeader, error) {
	fence := roundup8(headerSize)
	oldRight := cm.lastRightFence
	merged := oldRight
	mergedSize := 2 * fence // the two demoted fencepost slots

	if oldRight.leftBlockSize() != 0 {
		leftOfFence := oldRight.leftNeighbor()
		if leftOfFence.state() == stateUnallocated {
			cm.free.remove(leftOfFence)
			mergedSize += leftOfFence.size()
			merged = leftOfFence
		}
	}

	// Everything past the demoted pair, up to the new chunk's own
	// right fencepost, is untouched free space and joins the same
	// block: the new mapping was never carved into smaller blocks.
	mergedSize += footprint - 2*fence

	initFreeBlock(merged, mergedSize, merged.leftBlockSize())

	right := blockAt(mem, footprint-fence)
	initFencepost(right, mergedSize)

	cm.lastEnd = uintptr(unsafe.Pointer(&mem[0])) + uintptr(footprint)
	cm.lastRightFence = right
	return merged, nil
}

// roundNextMultiple rounds n up to the next multiple of m (m > 0).
func roundNextMultiple(n, m int) int {
	if n%m == 0 {
		return n
	}
	return n + (m - n%m)
}
