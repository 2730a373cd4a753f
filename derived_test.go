// Copyright 2026 The Malloc Authors.

package malloc

import (
	"bytes"
	"math"
	"testing"
	"unsafe"
)

func TestUsableSizeAtLeastRequested(t *testing.T) {
	a := NewAllocator()
	p := a.Allocate(37)
	if got := a.UsableSize(p); got < 37 {
		t.Fatalf("UsableSize(p) = %d, want >= 37", got)
	}
	if got := a.UsableSize(nil); got != 0 {
		t.Fatalf("UsableSize(nil) = %d, want 0", got)
	}
	a.Deallocate(p)
}

func TestCallocateZeroesPayload(t *testing.T) {
	a := NewAllocator()
	p := a.Callocate(16, 8)
	if p == nil {
		t.Fatal("Callocate(16, 8) = nil")
	}
	b := unsafe.Slice((*byte)(p), 16*8)
	if !bytes.Equal(b, make([]byte, 16*8)) {
		t.Fatal("Callocate did not zero the returned block")
	}
	a.Deallocate(p)
}

func TestCallocateOverflowReturnsNil(t *testing.T) {
	a := NewAllocator()
	p := a.Callocate(math.MaxInt/2, 3)
	if p != nil {
		t.Fatal("Callocate with an overflowing nmemb*size did not return nil")
	}
}

func TestCallocateZeroArgsStillLive(t *testing.T) {
	a := NewAllocator()
	p := a.Callocate(0, 0)
	if p == nil {
		t.Fatal("Callocate(0, 0) = nil; should be a live, freeable minimum-size block")
	}
	a.Deallocate(p)
}

func TestReallocateNilActsLikeAllocate(t *testing.T) {
	a := NewAllocator()
	p := a.Reallocate(nil, 64)
	if p == nil {
		t.Fatal("Reallocate(nil, 64) = nil")
	}
	a.Deallocate(p)
}

func TestReallocatePreservesContent(t *testing.T) {
	a := NewAllocator()
	p := a.Allocate(32)
	src := unsafe.Slice((*byte)(p), 32)
	for i := range src {
		src[i] = byte(i)
	}

	grown := a.Reallocate(p, 256)
	if grown == nil {
		t.Fatal("Reallocate to a larger size returned nil")
	}
	got := unsafe.Slice((*byte)(grown), 32)
	for i := range got {
		if got[i] != byte(i) {
			t.Fatalf("byte %d = %d, want %d; Reallocate did not preserve content", i, got[i], byte(i))
		}
	}
	a.Deallocate(grown)
}

func TestReallocateShrinkTruncatesCopy(t *testing.T) {
	a := NewAllocator()
	p := a.Allocate(64)
	src := unsafe.Slice((*byte)(p), 64)
	for i := range src {
		src[i] = byte(i + 1)
	}

	shrunk := a.Reallocate(p, 8)
	if shrunk == nil {
		t.Fatal("Reallocate to a smaller size returned nil")
	}
	got := unsafe.Slice((*byte)(shrunk), 8)
	for i := range got {
		if got[i] != byte(i+1) {
			t.Fatalf("byte %d = %d, want %d", i, got[i], byte(i+1))
		}
	}
	a.Deallocate(shrunk)
}

func TestReallocateZeroFreesAndReturnsLiveBlock(t *testing.T) {
	a := NewAllocator()
	p := a.Allocate(64)
	q := a.Reallocate(p, 0)
	if q == nil {
		t.Fatal("Reallocate(p, 0) = nil; DESIGN.md pins this to a live, freeable block")
	}
	a.Deallocate(q)
}
