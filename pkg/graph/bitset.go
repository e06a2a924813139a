package graph

import "math/bits"

// BitSet is a fixed-capacity set of vertex ids. It is not safe for concurrent
// mutation; the engine only uses it on the single-threaded drain path.
type BitSet struct {
	buckets []uint64
	size    uint32
}

func NewBitSet(size uint32) *BitSet {
	return &BitSet{
		buckets: make([]uint64, (size>>6)+1), // >> 6 == / 64
		size:    size,
	}
}

// Size returns the number of addressable ids.
func (bs *BitSet) Size() uint32 {
	return bs.size
}

func (bs *BitSet) Add(n VID) {
	bs.buckets[n>>6] |= 1 << (n & 63) // n & 63 == n % 64
}

func (bs *BitSet) Has(n VID) bool {
	if n >= bs.size {
		return false
	}
	return bs.buckets[n>>6]&(1<<(n&63)) != 0
}

// TestAndAdd adds n and reports whether it was already present.
func (bs *BitSet) TestAndAdd(n VID) bool {
	mask := uint64(1) << (n & 63)
	b := &bs.buckets[n>>6]
	seen := *b&mask != 0
	*b |= mask
	return seen
}

// Count returns the number of ids in the set.
func (bs *BitSet) Count() int {
	c := 0
	for _, b := range bs.buckets {
		c += bits.OnesCount64(b)
	}
	return c
}

func (bs *BitSet) Clear() {
	for i := range bs.buckets {
		bs.buckets[i] = 0
	}
}
