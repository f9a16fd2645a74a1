// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpq

import (
	"code.hybscloud.com/rpq/internal/block"
	"code.hybscloud.com/rpq/internal/itempool"
	"code.hybscloud.com/rpq/internal/tlv"
)

// dlsmNode is one link in a dlsmLocal's doubly-linked block list.
type dlsmNode[K Key] struct {
	blk        *block.Block[K]
	prev, next *dlsmNode[K]
}

// dlsmLocal is one worker's private, thread-owned block list plus the
// item and block pools backing it. Insert always appends and merges
// at the tail, so the head end is the oldest, least recently touched
// block — the one Spy targets on a peer.
type dlsmLocal[K Key, V any] struct {
	owner     tlv.TID
	items     *itempool.Pool[K, V]
	blocks    *block.Pool[K]
	threshold int // live size at/above which a merged block hands off to the SLSM
	rng       xorshift64Star

	head, tail *dlsmNode[K]
	spied      *dlsmNode[K]
	cached     *dlsmNode[K]
	cachedIdx  int
}

func (l *dlsmLocal[K, V]) ensureInit(owner tlv.TID, threshold int) {
	if l.items != nil {
		return
	}
	l.owner = owner
	l.items = itempool.New[K, V]()
	l.blocks = block.NewPool[K](owner)
	l.threshold = threshold
	l.rng = newXorshift64Star(uint64(owner)*0x9E3779B97F4A7C15 + 1)
}

func (l *dlsmLocal[K, V]) link(n *dlsmNode[K]) {
	n.prev = l.tail
	n.next = nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
}

func (l *dlsmLocal[K, V]) unlink(n *dlsmNode[K]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// insert stores key/val in a fresh capacity-1 block, merging it into
// the tail while tail and new block share a power, then either links
// the result as the new tail or, once its live size reaches
// threshold, hands it to slsm (if non-nil) instead.
func (l *dlsmLocal[K, V]) insert(tid tlv.TID, key K, val V, slsm *SLSM[K, V]) {
	cell := l.items.Acquire()
	expected := cell.Initialize(key, val)
	blk := l.blocks.GetBlock(0)
	blk.Insert(key, cell, expected)

	for l.tail != nil && l.tail.blk.Power() == blk.Power() {
		prevNode := l.tail
		newPower := blk.Power()
		if block.LiveCount(prevNode.blk)+block.LiveCount(blk) > blk.Capacity() {
			newPower++
		}
		merged := l.blocks.GetBlock(newPower)
		block.Copy(merged, prevNode.blk)
		block.Copy(merged, blk)
		blk = merged
		l.unlink(prevNode)
	}

	if slsm != nil && block.LiveCount(blk) >= l.threshold {
		slsm.InsertBlock(tid, blk)
		return
	}
	l.link(&dlsmNode[K]{blk: blk})
}

// compactAndPeek walks the main list once, shrinking undersized
// blocks, merging adjacent equal-power blocks, unlinking emptied
// blocks, and tracking the smallest still-owned key seen.
func (l *dlsmLocal[K, V]) compactAndPeek() (best *dlsmNode[K], entry block.Entry[K], idx int, found bool) {
	n := l.head
	for n != nil {
		if n.blk.Power() > 0 {
			if live := block.LiveCount(n.blk); live <= n.blk.Capacity()/2 {
				shrunk := l.blocks.GetBlock(n.blk.Power() - 1)
				block.Copy(shrunk, n.blk)
				n.blk = shrunk
			}
		}
		for n.next != nil && n.next.blk.Power() == n.blk.Power() {
			other := n.next
			newPower := n.blk.Power()
			if block.LiveCount(n.blk)+block.LiveCount(other.blk) > n.blk.Capacity() {
				newPower++
			}
			merged := l.blocks.GetBlock(newPower)
			block.Copy(merged, n.blk)
			block.Copy(merged, other.blk)
			n.blk = merged
			l.unlink(other)
		}

		e, i, ok := n.blk.Peek()
		if ok && (!found || e.Key < entry.Key) {
			best, entry, idx, found = n, e, i, true
		}

		next := n.next
		if block.LiveCount(n.blk) == 0 {
			l.unlink(n)
		}
		n = next
	}
	return best, entry, idx, found
}

// trySpy attempts to import a block from a random peer's DLSM local
// into this local's dedicated spied slot. It is a no-op whenever this
// local still has main-list work or an unconsumed prior spy result,
// per the "avoid redundant work" rule.
func (l *dlsmLocal[K, V]) trySpy(maxTID tlv.TID, peers *tlv.Vector[dlsmLocal[K, V]]) bool {
	if l.tail != nil {
		return false
	}
	if l.spied != nil {
		if _, _, ok := l.spied.blk.PeekReadOnly(); ok {
			return false
		}
		l.spied = nil
	}
	n := int(maxTID)
	if n <= 1 {
		return false
	}
	victimID := tlv.TID(l.rng.Intn(n))
	if victimID == l.owner {
		return false
	}
	victim := peers.Get(int(victimID))
	if victim == nil || victim.head == nil {
		return false
	}
	src := victim.head.blk
	if _, _, ok := src.PeekReadOnly(); !ok {
		return false
	}
	cloned := l.blocks.GetBlock(src.Power())
	block.Copy(cloned, src)
	if block.LiveCount(cloned) == 0 {
		return false
	}
	l.spied = &dlsmNode[K]{blk: cloned}
	return true
}

func (l *dlsmLocal[K, V]) deleteMin(maxTID tlv.TID, peers *tlv.Vector[dlsmLocal[K, V]]) (key K, val V, ok bool) {
	for {
		if l.cached != nil {
			if e, peekOK := l.cached.blk.PeekNth(l.cachedIdx); peekOK {
				if l.cached.blk.Take(l.cachedIdx) {
					if cell, isCell := e.Item.(*itempool.Cell[K, V]); isCell {
						return cell.Key(), cell.Val(), true
					}
				}
			} else {
				l.cached = nil
			}
		}

		best, entry, idx, found := l.compactAndPeek()
		if !found && l.spied != nil {
			if e, i, peekOK := l.spied.blk.PeekReadOnly(); peekOK {
				best, entry, idx, found = l.spied, e, i, true
			} else {
				l.spied = nil
			}
		}
		if !found {
			if l.trySpy(maxTID, peers) {
				continue
			}
			return key, val, false
		}
		if best.blk.Take(idx) {
			l.cached, l.cachedIdx = best, idx
			if cell, isCell := entry.Item.(*itempool.Cell[K, V]); isCell {
				return cell.Key(), cell.Val(), true
			}
		}
	}
}

// findMin is the non-mutating counterpart of deleteMin: it reports
// the smallest observed still-owned key without pruning, merging, or
// taking anything.
func (l *dlsmLocal[K, V]) findMin() (key K, val V, ok bool) {
	found := false
	var bestEntry block.Entry[K]
	for n := l.head; n != nil; n = n.next {
		if e, _, peekOK := n.blk.PeekReadOnly(); peekOK && (!found || e.Key < bestEntry.Key) {
			bestEntry, found = e, true
		}
	}
	if l.spied != nil {
		if e, _, peekOK := l.spied.blk.PeekReadOnly(); peekOK && (!found || e.Key < bestEntry.Key) {
			bestEntry, found = e, true
		}
	}
	if !found {
		return key, val, false
	}
	if cell, isCell := bestEntry.Item.(*itempool.Cell[K, V]); isCell {
		return cell.Key(), cell.Val(), true
	}
	return key, val, false
}

// DLSM is a distributed log-structured-merge relaxed priority queue:
// each registered thread keeps a private sorted block list and, when
// its own list is empty, spies on a random peer's oldest block.
type DLSM[K Key, V any] struct {
	reg       tlv.Registry
	locals    tlv.Vector[dlsmLocal[K, V]]
	threshold int
	slsm      *SLSM[K, V]
}

// NewDLSM returns a DLSM with handoff to slsm disabled. relax <= 0
// uses DefaultRelaxation.
func NewDLSM[K Key, V any](relax int) *DLSM[K, V] {
	return newDLSM[K, V](relax, nil)
}

func newDLSM[K Key, V any](relax int, slsm *SLSM[K, V]) *DLSM[K, V] {
	if relax <= 0 {
		relax = DefaultRelaxation
	}
	return &DLSM[K, V]{threshold: (relax + 2) / 2, slsm: slsm}
}

// InitThread registers the calling goroutine and lazily constructs
// its DLSM local state.
func (d *DLSM[K, V]) InitThread() tlv.TID {
	tid := d.reg.Register()
	d.locals.Get(int(tid)).ensureInit(tid, d.threshold)
	return tid
}

// Insert adds key/val to tid's local block list.
func (d *DLSM[K, V]) Insert(tid tlv.TID, key K, val V) {
	d.locals.Get(int(tid)).insert(tid, key, val, d.slsm)
}

// DeleteMin removes and returns a relaxed minimum from tid's local
// state, spying on peers if tid's own list is empty.
func (d *DLSM[K, V]) DeleteMin(tid tlv.TID) (key K, val V, ok bool) {
	return d.locals.Get(int(tid)).deleteMin(d.reg.MaxTID(), &d.locals)
}

// FindMin is the non-destructive variant of DeleteMin.
func (d *DLSM[K, V]) FindMin(tid tlv.TID) (key K, val V, ok bool) {
	return d.locals.Get(int(tid)).findMin()
}

// Spy attempts to import a block from a random peer into tid's spied
// slot, reporting whether it did.
func (d *DLSM[K, V]) Spy(tid tlv.TID) bool {
	return d.locals.Get(int(tid)).trySpy(d.reg.MaxTID(), &d.locals)
}
