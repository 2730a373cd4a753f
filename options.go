// Copyright 2026 The Malloc Authors.

package malloc

// Option configures an Allocator at construction time, the functional-
// options shape adapted from cznic-exp/dbm's Options struct pattern for
// this allocator's single numeric knob, realized as a run-time setting
// since Go programs have no user-facing #define.
type Option func(*Allocator)

// WithArenaSize overrides the minimum number of bytes requested per OS
// extension (default 4096). Values are rounded up to a multiple of 8.
func WithArenaSize(bytes int) Option {
	return func(a *Allocator) {
		a.arenaSize = bytes
	}
}
