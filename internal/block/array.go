// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package block

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MaxBlocks bounds the number of blocks an Array may hold at once.
const MaxBlocks = 32

// Array is an ordered sequence of block pointers of strictly
// descending capacity (invariant BA1), plus a version counter that
// monotonically increases under publication (invariant BA2).
//
// Array is not itself safe for concurrent mutation: Insert/Compact
// are owner-only operations (see SLSM local's swap-array discipline).
// CopyFrom is the one operation readers use against a published
// Array they do not own.
type Array[K Key] struct {
	blocks  []*Block[K]
	version atomix.Uint64
}

// NewArray returns an empty block array.
func NewArray[K Key]() *Array[K] {
	return &Array[K]{blocks: make([]*Block[K], 0, MaxBlocks)}
}

// Len returns the current number of blocks.
func (a *Array[K]) Len() int { return len(a.blocks) }

// BlockAt returns the block at position i (0 = largest capacity).
func (a *Array[K]) BlockAt(i int) *Block[K] { return a.blocks[i] }

// Blocks returns the array's current block slice, largest capacity
// first. Callers must treat it as read-only.
func (a *Array[K]) Blocks() []*Block[K] { return a.blocks }

// Version returns the array's current version.
func (a *Array[K]) Version() uint64 { return a.version.LoadAcquire() }

// SetVersion stamps the array's version directly; CopyFrom and Insert
// maintain the version themselves.
func (a *Array[K]) SetVersion(v uint64) { a.version.StoreRelease(v) }

// Insert merges blk into the array at the position that keeps
// capacities strictly descending, merging with any existing
// same-power block first (possibly repeatedly, as a merge can grow
// the result by one power), then runs Compact.
func (a *Array[K]) Insert(blk *Block[K], pool *Pool[K]) {
	for {
		pos := 0
		for pos < len(a.blocks) && a.blocks[pos].Power() > blk.Power() {
			pos++
		}
		if pos < len(a.blocks) && a.blocks[pos].Power() == blk.Power() {
			existing := a.blocks[pos]
			a.blocks = append(a.blocks[:pos], a.blocks[pos+1:]...)
			newPower := blk.Power()
			if LiveCount(existing)+LiveCount(blk) > existing.Capacity() {
				newPower++
			}
			merged := pool.GetBlock(newPower)
			Copy(merged, existing)
			Copy(merged, blk)
			blk = merged
			continue
		}
		if len(a.blocks) >= MaxBlocks {
			panic("rpq: block array exceeded MAX_BLOCKS")
		}
		a.blocks = append(a.blocks, nil)
		copy(a.blocks[pos+1:], a.blocks[pos:])
		a.blocks[pos] = blk
		break
	}
	a.Compact(pool)
	a.version.AddAcqRel(1)
}

// Compact shrinks any block whose live size has fallen below half its
// capacity, then merges adjacent blocks wherever capacities are no
// longer strictly descending (which a shrink can produce).
func (a *Array[K]) Compact(pool *Pool[K]) {
	for i, blk := range a.blocks {
		if blk.Power() == 0 {
			continue
		}
		if LiveCount(blk) < blk.Capacity()/2 {
			shrunk := pool.GetBlock(blk.Power() - 1)
			Copy(shrunk, blk)
			a.blocks[i] = shrunk
		}
	}
	for {
		merged := false
		for i := len(a.blocks) - 1; i > 0; i-- {
			if a.blocks[i].Power() >= a.blocks[i-1].Power() {
				lo, hi := a.blocks[i], a.blocks[i-1]
				newPower := hi.Power()
				if LiveCount(lo)+LiveCount(hi) > hi.Capacity() {
					newPower++
				}
				m := pool.GetBlock(newPower)
				Copy(m, hi)
				Copy(m, lo)
				a.blocks[i-1] = m
				a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			break
		}
	}
}

// PeekResult identifies the globally smallest still-owned entry found
// across all blocks by a linear scan.
type PeekResult[K Key] struct {
	Key        K
	BlockIndex int
	EntryIndex int
}

// Peek scans the head of every block and returns the smallest key
// found, its block index, and its absolute entry index within that
// block — an upper bound of MAX_BLOCKS comparisons.
func (a *Array[K]) Peek() (PeekResult[K], bool) {
	var best PeekResult[K]
	found := false
	for bi, blk := range a.blocks {
		e, idx, ok := blk.PeekReadOnly()
		if ok && (!found || e.Key < best.Key) {
			best = PeekResult[K]{Key: e.Key, BlockIndex: bi, EntryIndex: idx}
			found = true
		}
	}
	return best, found
}

// TakeAt attempts to claim the entry identified by a prior Peek.
func (a *Array[K]) TakeAt(blockIndex, entryIndex int) bool {
	if blockIndex < 0 || blockIndex >= len(a.blocks) {
		return false
	}
	return a.blocks[blockIndex].Take(entryIndex)
}

// CopyFrom performs a safe shallow copy of src's block slice into a,
// retrying until the version observed before and after the slice
// copy are equal — the version-retry protocol that stands in for a
// single-CAS snapshot of a mutable-length slice.
func (a *Array[K]) CopyFrom(src *Array[K]) {
	sw := spin.Wait{}
	for {
		before := src.version.LoadAcquire()
		blocks := make([]*Block[K], len(src.blocks))
		copy(blocks, src.blocks)
		after := src.version.LoadAcquire()
		if before == after {
			a.blocks = blocks
			a.version.StoreRelease(before)
			return
		}
		sw.Once()
	}
}
