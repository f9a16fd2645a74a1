// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpq

import (
	"code.hybscloud.com/rpq/internal/block"
	"code.hybscloud.com/rpq/internal/itempool"
	"code.hybscloud.com/rpq/internal/pivot"
	"code.hybscloud.com/rpq/internal/tlv"
	"code.hybscloud.com/rpq/internal/vptr"
	"code.hybscloud.com/spin"
)

// slsmLocal is one thread's caching state against the shared SLSM: an
// item pool for values it inserts directly, and a scratch block array
// refreshed from whichever of the SLSM's two swap arrays is currently
// published.
type slsmLocal[K Key, V any] struct {
	owner  tlv.TID
	items  *itempool.Pool[K, V]
	blocks *block.Pool[K]
	arr    *block.Array[K]
	rng    xorshift64Star
}

func (l *slsmLocal[K, V]) ensureInit(owner tlv.TID) {
	if l.items != nil {
		return
	}
	l.owner = owner
	l.items = itempool.New[K, V]()
	l.blocks = block.NewPool[K](owner)
	l.arr = block.NewArray[K]()
	l.rng = newXorshift64Star(uint64(owner)*0x2545F4914F6CDD1D + 1)
}

// SLSM is a shared log-structured-merge relaxed priority queue: a
// single globally published block array, updated by copy-on-write
// into one of two swap arrays and a version-tagged compare-and-swap
// on a versioned pointer.
//
// The reference design describes each thread owning "two swap
// arrays"; with Go's versioned pointer only able to address a single
// bit of slot identity (see internal/vptr), that pair is necessarily
// shared state owned by the SLSM itself rather than duplicated per
// thread — every publishing thread's copy-on-write target is one of
// these same two arrays, which is what keeps the pointer's one
// addressable bit meaningful.
type SLSM[K Key, V any] struct {
	ptr    vptr.Pointer
	swap   [2]*block.Array[K]
	pool   *block.Pool[K]
	locals tlv.Vector[slsmLocal[K, V]]
	reg    tlv.Registry
	relax  int
}

// NewSLSM returns an SLSM. relax <= 0 uses DefaultRelaxation. The
// initial referent (slot 0, version 0) is swap[0], a default-
// constructed empty array owned by the SLSM itself, not any thread's
// pool, so the very first load of the versioned pointer is valid.
func NewSLSM[K Key, V any](relax int) *SLSM[K, V] {
	if relax <= 0 {
		relax = DefaultRelaxation
	}
	s := &SLSM[K, V]{pool: block.NewPool[K](0), relax: relax}
	s.swap[0] = block.NewArray[K]()
	s.swap[1] = block.NewArray[K]()
	return s
}

// InitThread registers the calling goroutine and lazily constructs
// its SLSM local state.
func (s *SLSM[K, V]) InitThread() tlv.TID {
	tid := s.reg.Register()
	s.locals.Get(int(tid)).ensureInit(tid)
	return tid
}

// Insert builds a fresh capacity-1 block for key/val and publishes it
// into the shared array.
func (s *SLSM[K, V]) Insert(tid tlv.TID, key K, val V) {
	local := s.locals.Get(int(tid))
	local.ensureInit(tid)
	cell := local.items.Acquire()
	expected := cell.Initialize(key, val)
	blk := local.blocks.GetBlock(0)
	blk.Insert(key, cell, expected)
	s.insertBlock(tid, blk)
}

// InsertBlock publishes an already-built block (used by DLSM's
// size-threshold handoff in the KLSM composition) into the shared
// array, attributed to tid for local-state bookkeeping.
func (s *SLSM[K, V]) InsertBlock(tid tlv.TID, blk *block.Block[K]) {
	s.insertBlock(tid, blk)
}

func (s *SLSM[K, V]) insertBlock(tid tlv.TID, blk *block.Block[K]) {
	local := s.locals.Get(int(tid))
	local.ensureInit(tid)
	sw := spin.Wait{}
	for {
		packed := s.ptr.LoadPacked()
		slot, version := vptr.Unpack(packed)
		local.arr.CopyFrom(s.swap[slot])

		target := s.swap[1-slot]
		target.CopyFrom(local.arr)
		target.Insert(blk, s.pool)

		if s.ptr.CompareAndSwap(packed, 1-slot, version+1) {
			s.pool.Publish(target.Blocks(), version+1)
			return
		}
		s.pool.FreeLocalExcept(blk)
		sw.Once()
	}
}

// DeleteMin removes and returns a relaxed minimum chosen uniformly at
// random from the current block pivot window (see internal/pivot),
// retrying on a lost take race.
func (s *SLSM[K, V]) DeleteMin(tid tlv.TID) (key K, val V, ok bool) {
	local := s.locals.Get(int(tid))
	local.ensureInit(tid)
	sw := spin.Wait{}
	for {
		packed := s.ptr.LoadPacked()
		slot, _ := vptr.Unpack(packed)
		local.arr.CopyFrom(s.swap[slot])

		blocks := local.arr.Blocks()
		if len(blocks) == 0 {
			return key, val, false
		}
		set := pivot.NewSet[K]()
		set.Grow(blocks, s.relax)
		if set.Total() == 0 {
			return key, val, false
		}
		r := local.rng.Intn(set.Total())
		bi, ei, selected := set.Translate(r)
		if !selected {
			sw.Once()
			continue
		}
		entry, peekOK := local.arr.BlockAt(bi).PeekNth(ei)
		if !peekOK {
			sw.Once()
			continue
		}
		if !local.arr.TakeAt(bi, ei) {
			sw.Once()
			continue
		}
		if cell, isCell := entry.Item.(*itempool.Cell[K, V]); isCell {
			return cell.Key(), cell.Val(), true
		}
	}
}

// FindMin is the non-destructive variant of DeleteMin, returning the
// exact smallest still-owned key observed in the current snapshot.
func (s *SLSM[K, V]) FindMin(tid tlv.TID) (key K, val V, ok bool) {
	local := s.locals.Get(int(tid))
	local.ensureInit(tid)
	packed := s.ptr.LoadPacked()
	slot, _ := vptr.Unpack(packed)
	local.arr.CopyFrom(s.swap[slot])

	res, found := local.arr.Peek()
	if !found {
		return key, val, false
	}
	entry, peekOK := local.arr.BlockAt(res.BlockIndex).PeekNth(res.EntryIndex)
	if !peekOK {
		return key, val, false
	}
	if cell, isCell := entry.Item.(*itempool.Cell[K, V]); isCell {
		return cell.Key(), cell.Val(), true
	}
	return key, val, false
}
