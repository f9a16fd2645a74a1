// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pivot

import (
	"sort"

	"code.hybscloud.com/rpq/internal/block"
)

// Set holds a per-block [lower, upper) window and a global maximal
// pivot key, maintained so the union of windows bounds the set of
// relaxed-minimum candidates to roughly R+1 items (invariant PV1).
type Set[K block.Key] struct {
	lower    []int
	upper    []int
	maxPivot K
	total    int
}

// NewSet returns an empty pivot set.
func NewSet[K block.Key]() *Set[K] {
	return &Set[K]{}
}

// MaxPivot returns the current global maximal pivot key.
func (s *Set[K]) MaxPivot() K { return s.maxPivot }

// Total returns the cached Σ count_in(i).
func (s *Set[K]) Total() int { return s.total }

// CountIn returns upper[i] - lower[i] for block i.
func (s *Set[K]) CountIn(i int) int {
	if i < 0 || i >= len(s.lower) {
		return 0
	}
	return s.upper[i] - s.lower[i]
}

// LowerUpper returns block i's current window.
func (s *Set[K]) LowerUpper(i int) (lower, upper int) {
	return s.lower[i], s.upper[i]
}

// MarkFirstTakenIn records that the first candidate of block i's
// window has been consumed: advances lower[i] and decrements the
// cached total.
func (s *Set[K]) MarkFirstTakenIn(i int) {
	if i < 0 || i >= len(s.lower) {
		return
	}
	if s.lower[i] < s.upper[i] {
		s.lower[i]++
		s.total--
	}
}

// Translate maps a uniformly chosen index in [0, Total()) to a
// (block, absolute entry) pair via the cumulative per-block window
// sizes, as used by SLSM's relaxed delete_min to pick a random
// candidate from the union of pivot windows.
func (s *Set[K]) Translate(r int) (blockIndex, entryIndex int, ok bool) {
	if r < 0 || r >= s.total {
		return 0, 0, false
	}
	rem := r
	for i := range s.lower {
		c := s.upper[i] - s.lower[i]
		if rem < c {
			return i, s.lower[i] + rem, true
		}
		rem -= c
	}
	return 0, 0, false
}

// Shrink recomputes the tightest max_pivot (by bisection on the key
// space) whose pivot set size lies within [R/2, R+1], given R+1 or
// more owned items are present across blocks. Called when the
// current pivot set has grown past its upper bound.
func (s *Set[K]) Shrink(blocks []*block.Block[K], r int) {
	s.recompute(blocks, r)
}

// Grow widens max_pivot upward when the pivot set has shrunk below
// R/2. The same bisection that Shrink performs already converges on
// the minimal threshold satisfying the lower bound, so Grow shares
// its implementation.
func (s *Set[K]) Grow(blocks []*block.Block[K], r int) {
	s.recompute(blocks, r)
}

func (s *Set[K]) recompute(blocks []*block.Block[K], r int) {
	n := len(blocks)
	if n == 0 {
		s.lower, s.upper, s.total, s.maxPivot = nil, nil, 0, 0
		return
	}

	lo, hasLo := globalMin(blocks)
	hi, hasHi := globalMax(blocks)
	if !hasLo || !hasHi {
		s.lower, s.upper, s.total, s.maxPivot = make([]int, n), make([]int, n), 0, lo
		for i, blk := range blocks {
			s.lower[i] = blk.First()
			s.upper[i] = blk.First()
		}
		return
	}

	target := (r + 1) / 2
	best := hi
	for lo <= hi {
		mid := lo + (hi-lo)/2
		_, _, total := countAtMost(blocks, mid)
		if total >= target {
			best = mid
			if mid == 0 {
				break
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	lower, upper, total := countAtMost(blocks, best)
	s.lower, s.upper, s.maxPivot, s.total = lower, upper, best, total
}

// countAtMost returns, for each block, the window from the block's
// first still-owned entry up to the first key > threshold, and the
// summed window size.
func countAtMost[K block.Key](blocks []*block.Block[K], threshold K) (lower, upper []int, total int) {
	lower = make([]int, len(blocks))
	upper = make([]int, len(blocks))
	for i, blk := range blocks {
		first, last := blk.First(), blk.Last()
		if _, j, ok := blk.PeekReadOnly(); ok {
			first = j
		} else {
			first = last
		}
		idx := first + sort.Search(last-first, func(j int) bool {
			return blk.KeyAt(first+j) > threshold
		})
		lower[i] = first
		upper[i] = idx
		total += idx - first
	}
	return
}

func globalMin[K block.Key](blocks []*block.Block[K]) (K, bool) {
	var min K
	found := false
	for _, blk := range blocks {
		if blk.First() >= blk.Last() {
			continue
		}
		k := blk.KeyAt(blk.First())
		if !found || k < min {
			min = k
			found = true
		}
	}
	return min, found
}

func globalMax[K block.Key](blocks []*block.Block[K]) (K, bool) {
	var max K
	found := false
	for _, blk := range blocks {
		if blk.First() >= blk.Last() {
			continue
		}
		k := blk.KeyAt(blk.Last() - 1)
		if !found || k > max {
			max = k
			found = true
		}
	}
	return max, found
}
