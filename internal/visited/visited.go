// Package visited tracks nodes already expanded during a graph traversal.
package visited

import "github.com/bits-and-blooms/bitset"

// Set records visited node indices in a bitset and keeps a dirty list so a
// Reset between queries touches only the bits that were actually set.
type Set struct {
	bits  *bitset.BitSet
	dirty []uint
}

// New creates a visited set sized for capacity nodes. The set grows
// automatically if larger indices are visited.
func New(capacity int) *Set {
	if capacity < 0 {
		capacity = 0
	}
	return &Set{
		bits:  bitset.New(uint(capacity)),
		dirty: make([]uint, 0, 128),
	}
}

// Visit marks id as visited. It is a no-op if already visited.
func (s *Set) Visit(id uint32) {
	i := uint(id)
	if s.bits.Test(i) {
		return
	}
	s.bits.Set(i)
	s.dirty = append(s.dirty, i)
}

// Visited reports whether id has been visited since the last Reset.
func (s *Set) Visited(id uint32) bool {
	return s.bits.Test(uint(id))
}

// Reset clears only the bits set since the previous Reset.
func (s *Set) Reset() {
	for _, i := range s.dirty {
		s.bits.Clear(i)
	}
	s.dirty = s.dirty[:0]
}
