// Package priceindex implements the sparse occupied-tick set used by a
// Market's four price indexes (yes/no × unified/bid-only).
package priceindex

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// BPS is the basis-points denominator for prices. Valid ticks are [1, BPS-1].
const BPS = 1000

// None is the sentinel returned by FindLastSet when no tick is set below
// the given upper bound.
const None = -1

// Index is a sparse set of occupied price ticks over [1, BPS-1] supporting
// O(1) point set/unset and a sub-linear "highest set tick < upperBound"
// query, backed by a word-packed bitset with per-word bitscan.
type Index struct {
	bits *bitset.BitSet
}

// New returns an empty Index.
func New() *Index {
	return &Index{bits: bitset.New(BPS)}
}

// Set marks tick p as occupied.
func (idx *Index) Set(p int64) {
	idx.bits.Set(uint(p))
}

// Unset marks tick p as unoccupied.
func (idx *Index) Unset(p int64) {
	idx.bits.Clear(uint(p))
}

// IsSet reports whether tick p is currently marked occupied.
func (idx *Index) IsSet(p int64) bool {
	return idx.bits.Test(uint(p))
}

// FindLastSet returns the highest occupied tick strictly less than
// upperBound, or None if no such tick exists. Scans the underlying words
// from upperBound down, using a leading-zero bitscan within each word so
// cost is O(words skipped) rather than O(ticks skipped).
func (idx *Index) FindLastSet(upperBound int64) int64 {
	if upperBound <= 0 {
		return None
	}
	limit := upperBound - 1
	if limit >= BPS {
		limit = BPS - 1
	}

	words := idx.bits.Bytes() // little-endian []uint64, one word per 64 ticks
	wordIdx := int(limit) / 64
	bitInWord := uint(limit) % 64

	for w := wordIdx; w >= 0; w-- {
		if w >= len(words) {
			continue
		}
		word := words[w]
		if w == wordIdx {
			// mask off bits above bitInWord so the first word only considers
			// ticks <= limit
			if bitInWord < 63 {
				word &= (uint64(1) << (bitInWord + 1)) - 1
			}
		}
		if word == 0 {
			continue
		}
		highBit := 63 - bits.LeadingZeros64(word)
		return int64(w*64 + highBit)
	}
	return None
}
