// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catree

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/rpq/internal/block"
	"code.hybscloud.com/rpq/internal/qdlock"
	"code.hybscloud.com/spin"
)

// Contention-statistics deltas and thresholds, mirroring the values a
// CAPQ instance applies on every lock acquisition/contention event.
// Duplicated here rather than imported from the root package's
// options (which itself imports this package) to avoid a cycle.
const (
	successDelta   = -1
	failureDelta   = 250
	splitThreshold = 1000
	joinThreshold  = -1000
)

// node is a CA-tree node: either a route node (splitting [lowKey,
// highKey) into two children at splitKey) or a base node (a locked
// bulk list covering the whole range). A single tagged struct stands
// in for the two node kinds described in the reference design; Go's
// lack of a variant/union type makes a plain discriminated struct the
// simplest faithful rendition.
type node[K block.Key, V any] struct {
	isRoute bool

	// parentRoute is this node's parent in the tree, nil at the root.
	// Tracked for both route and base nodes so join can walk up from a
	// base node to its parent route and, after splicing the parent
	// out, reattach the surviving subtree to its grandparent.
	parentRoute *node[K, V]

	// Route node fields.
	splitKey K
	busy     atomix.Bool // TATAS lock guarding structural changes
	left     atomic.Pointer[node[K, V]]
	right    atomic.Pointer[node[K, V]]

	// Base node fields.
	valid      atomix.Bool
	lock       *qdlock.Lock
	list       *List[K, V]
	contention atomix.Int32
}

func newBase[K block.Key, V any](l *List[K, V]) *node[K, V] {
	n := &node[K, V]{lock: qdlock.New(64), list: l}
	n.valid.StoreRelease(true)
	return n
}

// Tree is a contention-adapting tree: a binary tree of route nodes
// over disjoint base-node key ranges, each base node a bulk list
// behind a queue-delegation lock.
type Tree[K block.Key, V any] struct {
	root atomic.Pointer[node[K, V]]
}

// NewTree returns a tree with a single, empty base node spanning the
// whole key space.
func NewTree[K block.Key, V any]() *Tree[K, V] {
	t := &Tree[K, V]{}
	t.root.Store(newBase[K, V](New[K, V]()))
	return t
}

func (t *Tree[K, V]) findBase(key K) *node[K, V] {
	n := t.root.Load()
	for n.isRoute {
		if key < n.splitKey {
			n = n.left.Load()
		} else {
			n = n.right.Load()
		}
	}
	return n
}

// Insert adds key/val to the base node whose range contains key,
// taking the node's lock when it is free or delegating through it when
// the holder has opened its delegation queue, and records a contention sample
// either way. The returned contended flag tells the caller whether
// this call had to delegate, for its own adaptive bookkeeping
// (distinct from the base node's own split/join contention counter).
func (t *Tree[K, V]) Insert(key K, val V) (contended bool) {
	for {
		base := t.findBase(key)
		if !base.valid.LoadAcquire() {
			continue
		}
		locked, handle := base.lock.TryLockOrDelegate()
		if !locked {
			done := make(chan struct{})
			base.lock.CloseDelegateBuffer(handle, func() {
				base.list.Insert(key, val)
				close(done)
			})
			<-done
			base.recordContention(false)
			return true
		}
		if !base.valid.LoadAcquire() {
			base.lock.Unlock()
			continue
		}
		base.lock.OpenQueue()
		base.list.Insert(key, val)
		base.lock.Flush()
		base.lock.Unlock()
		base.recordContention(true)
		base.adapt(t)
		return false
	}
}

// DeleteMin removes and returns the globally smallest key/value pair
// by walking left from the root to the leftmost base node.
func (t *Tree[K, V]) DeleteMin() (key K, val V, ok bool, contended bool) {
	for {
		n := t.root.Load()
		for n.isRoute {
			n = n.left.Load()
		}
		if !n.valid.LoadAcquire() {
			continue
		}
		locked, handle := n.lock.TryLockOrDelegate()
		if !locked {
			type result struct {
				k  K
				v  V
				ok bool
			}
			done := make(chan result, 1)
			n.lock.CloseDelegateBuffer(handle, func() {
				k, v, ok := n.list.PopMin()
				done <- result{k, v, ok}
			})
			r := <-done
			n.recordContention(false)
			return r.k, r.v, r.ok, true
		}
		if !n.valid.LoadAcquire() {
			n.lock.Unlock()
			continue
		}
		n.lock.OpenQueue()
		key, val, ok = n.list.PopMin()
		n.lock.Flush()
		n.lock.Unlock()
		n.recordContention(true)
		n.adapt(t)
		return key, val, ok, false
	}
}

// DetachLeftmostRun removes the leftmost up-to-r entries from the
// leftmost base node as a standalone list, for CAPQ's bulk delete-min
// buffer refill.
func (t *Tree[K, V]) DetachLeftmostRun(r int) (out *List[K, V], contended bool) {
	for {
		n := t.root.Load()
		for n.isRoute {
			n = n.left.Load()
		}
		if !n.valid.LoadAcquire() {
			continue
		}
		locked, handle := n.lock.TryLockOrDelegate()
		if !locked {
			done := make(chan *List[K, V], 1)
			n.lock.CloseDelegateBuffer(handle, func() {
				done <- n.list.DetachFirstR(r)
			})
			out := <-done
			n.recordContention(false)
			return out, true
		}
		if !n.valid.LoadAcquire() {
			n.lock.Unlock()
			continue
		}
		n.lock.OpenQueue()
		out = n.list.DetachFirstR(r)
		n.lock.Flush()
		n.lock.Unlock()
		n.recordContention(true)
		n.adapt(t)
		return out, false
	}
}

// recordContention applies the success/failure delta for one
// acquisition outcome, saturating rather than overflowing.
func (n *node[K, V]) recordContention(uncontended bool) {
	delta := int32(failureDelta)
	if uncontended {
		delta = int32(successDelta)
	}
	if c := n.contention.LoadAcquire(); (delta > 0 && c >= 1<<30) || (delta < 0 && c <= -(1<<30)) {
		return
	}
	n.contention.AddAcqRel(delta)
}

// adapt checks the base node's accumulated contention against the
// split/join thresholds and restructures the tree if warranted. A
// low-contention base is joined with its sibling when both children of
// its parent route are base nodes (the sibling's own counter is not
// consulted); high-contention bases are split in two.
func (n *node[K, V]) adapt(t *Tree[K, V]) {
	c := n.contention.LoadAcquire()
	switch {
	case c >= splitThreshold:
		n.trySplit(t)
	case c <= joinThreshold:
		n.tryJoin(t)
	}
}

func (n *node[K, V]) trySplit(t *Tree[K, V]) {
	if !n.lockSelf() {
		return
	}
	defer n.unlockSelf()

	right, splitKey, ok := n.list.Split()
	if !ok {
		n.contention.StoreRelease(0)
		return
	}
	leftBase := newBase[K, V](n.list)
	rightBase := newBase[K, V](right)
	route := &node[K, V]{isRoute: true, splitKey: splitKey}
	route.left.Store(leftBase)
	route.right.Store(rightBase)
	leftBase.parentRoute = route
	rightBase.parentRoute = route

	n.valid.StoreRelease(false)
	t.replace(n, route)
}

func (n *node[K, V]) tryJoin(t *Tree[K, V]) {
	parent := n.parentRoute
	if parent == nil {
		return
	}
	if !parent.busy.CompareAndSwapAcqRel(false, true) {
		return
	}
	defer parent.busy.StoreRelease(false)

	left := parent.left.Load()
	right := parent.right.Load()
	if left.isRoute || right.isRoute {
		return
	}
	if !left.lockSelf() {
		return
	}
	defer left.unlockSelf()
	if !right.lockSelf() {
		return
	}
	defer right.unlockSelf()

	left.valid.StoreRelease(false)
	right.valid.StoreRelease(false)

	merged := left.list
	merged.Join(right.list)
	joined := newBase[K, V](merged)
	t.replace(parent, joined)
}

// lockSelf is a bounded TATAS acquisition of the base node's
// structural lock, used only around Split/Join's list surgery, which
// must exclude ordinary Insert/DeleteMin traffic on this node. It
// gives up and reports false after 64 attempts.
func (n *node[K, V]) lockSelf() bool {
	sw := spin.Wait{}
	for i := 0; i < 64; i++ {
		if n.busy.CompareAndSwapAcqRel(false, true) {
			locked, handle := n.lock.TryLockOrDelegate()
			if locked {
				return true
			}
			// Someone else holds the data lock; release and retry.
			n.lock.CloseDelegateBuffer(handle, func() {})
			n.busy.StoreRelease(false)
			sw.Once()
			continue
		}
		sw.Once()
	}
	return false
}

func (n *node[K, V]) unlockSelf() {
	n.lock.Unlock()
	n.busy.StoreRelease(false)
}

// replace swaps old for replacement in the tree: at old's parent route
// node if old is not the root, or directly as the new root.
func (t *Tree[K, V]) replace(old, replacement *node[K, V]) {
	parent := old.parentRoute
	if parent == nil {
		t.root.Store(replacement)
		return
	}
	replacement.parentRoute = parent
	if parent.left.Load() == old {
		parent.left.Store(replacement)
	} else {
		parent.right.Store(replacement)
	}
}
