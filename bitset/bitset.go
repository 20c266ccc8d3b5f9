// Package bitset provides the word-packed visited set used by route search.
package bitset

// Set holds a fixed number of bits. Allocate with New; the zero value holds
// no bits.
type Set []uint64

// New returns a set able to hold n bits, all unset.
func New(n int) Set {
	return make(Set, (n+63)/64)
}

// Has reports whether bit i is set.
func (s Set) Has(i int) bool {
	return s[i/64]&(1<<(uint(i)%64)) != 0
}

// Add sets bit i.
func (s Set) Add(i int) {
	s[i/64] |= 1 << (uint(i) % 64)
}

// Remove unsets bit i.
func (s Set) Remove(i int) {
	s[i/64] &^= 1 << (uint(i) % 64)
}
