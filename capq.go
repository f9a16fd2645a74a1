// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpq

import (
	"code.hybscloud.com/rpq/internal/catree"
	"code.hybscloud.com/rpq/internal/tlv"
)

// capqPair is one put-buffer entry.
type capqPair[K Key, V any] struct {
	key K
	val V
}

// capqLocal is one thread's adaptive state against a CAPQ: a bounded
// binary min-heap absorbing inserts, a detached delete-min run held
// after an earlier bulk pop, and the two contention counters that
// drive adaptive resizing.
type capqLocal[K Key, V any] struct {
	owner tlv.TID

	put    []capqPair[K, V]
	putCap int

	deleteBuf *catree.List[K, V]
	r         int

	putContention    int
	removeContention int
}

func (l *capqLocal[K, V]) ensureInit(owner tlv.TID) {
	if l.putCap != 0 {
		return
	}
	l.owner = owner
	l.putCap = 1
	l.r = 0
}

func (l *capqLocal[K, V]) heapPush(key K, val V) {
	l.put = append(l.put, capqPair[K, V]{key, val})
	i := len(l.put) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if l.put[parent].key <= l.put[i].key {
			break
		}
		l.put[parent], l.put[i] = l.put[i], l.put[parent]
		i = parent
	}
}

func (l *capqLocal[K, V]) heapPeek() (key K, val V, ok bool) {
	if len(l.put) == 0 {
		return key, val, false
	}
	return l.put[0].key, l.put[0].val, true
}

// bufPeekMin and bufPopMin guard against a nil deleteBuf, which is
// the common case before the first bulk detach ever runs.
func (l *capqLocal[K, V]) bufPeekMin() (key K, val V, ok bool) {
	if l.deleteBuf == nil {
		return key, val, false
	}
	return l.deleteBuf.PeekMin()
}

func (l *capqLocal[K, V]) bufPopMin() (key K, val V, ok bool) {
	if l.deleteBuf == nil {
		return key, val, false
	}
	return l.deleteBuf.PopMin()
}

func (l *capqLocal[K, V]) heapPop() (key K, val V, ok bool) {
	if len(l.put) == 0 {
		return key, val, false
	}
	top := l.put[0]
	last := len(l.put) - 1
	l.put[0] = l.put[last]
	l.put = l.put[:last]
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < len(l.put) && l.put[left].key < l.put[smallest].key {
			smallest = left
		}
		if right < len(l.put) && l.put[right].key < l.put[smallest].key {
			smallest = right
		}
		if smallest == i {
			break
		}
		l.put[i], l.put[smallest] = l.put[smallest], l.put[i]
		i = smallest
	}
	return top.key, top.val, true
}

// recordPut applies the contention delta for one tree-level insert
// and adapts the put-buffer capacity across the split/join-style
// thresholds shared with the base-node contention statistic.
func (l *capqLocal[K, V]) recordPut(contended bool) {
	if contended {
		l.putContention += capqFailureDelta
	} else {
		l.putContention += capqSuccessDelta
	}
	switch {
	case l.putContention >= capqSplitThreshold && l.putCap < MaxPutBuffer:
		l.putCap = roundToPow2(l.putCap + 1)
		if l.putCap > MaxPutBuffer {
			l.putCap = MaxPutBuffer
		}
		l.putContention = 0
	case l.putContention <= capqJoinThreshold && l.putCap > 1:
		l.putCap /= 2
		if l.putCap < 1 {
			l.putCap = 1
		}
		l.putContention = 0
	}
}

// recordRemove is recordPut's counterpart for the delete-min path,
// adapting the bulk relaxation r instead of the put-buffer capacity.
func (l *capqLocal[K, V]) recordRemove(contended bool) {
	if contended {
		l.removeContention += capqFailureDelta
	} else {
		l.removeContention += capqSuccessDelta
	}
	switch {
	case l.removeContention >= capqSplitThreshold && l.r < MaxRelax:
		l.r++
		if l.r > MaxRelax {
			l.r = MaxRelax
		}
		l.removeContention = 0
	case l.removeContention <= capqJoinThreshold && l.r > 0:
		l.r--
		l.removeContention = 0
	}
}

// CAPQ is a contention-avoiding priority queue: a CA-tree of
// per-range bulk lists guarded by queue-delegation locks, fronted by
// a per-thread adaptive put buffer and delete-min buffer.
type CAPQ[K Key, V any] struct {
	tree   *catree.Tree[K, V]
	locals tlv.Vector[capqLocal[K, V]]
	reg    tlv.Registry
}

// NewCAPQ returns a CAPQ. relax is unused directly (CAPQ's relaxation
// is fully adaptive per thread, bounded by MaxRelax) but accepted for
// interface symmetry with the other three engines' constructors.
func NewCAPQ[K Key, V any](relax int) *CAPQ[K, V] {
	_ = relax
	return &CAPQ[K, V]{tree: catree.NewTree[K, V]()}
}

// InitThread registers the calling goroutine and lazily constructs
// its CAPQ local state.
func (c *CAPQ[K, V]) InitThread() tlv.TID {
	tid := c.reg.Register()
	c.locals.Get(int(tid)).ensureInit(tid)
	return tid
}

// Insert absorbs key/val into tid's put buffer, draining its current
// minimum into the CA-tree once the buffer reaches its adaptive
// capacity.
func (c *CAPQ[K, V]) Insert(tid tlv.TID, key K, val V) {
	local := c.locals.Get(int(tid))
	local.ensureInit(tid)
	local.heapPush(key, val)
	if len(local.put) < local.putCap {
		return
	}
	k, v, ok := local.heapPop()
	if !ok {
		return
	}
	contended := c.tree.Insert(k, v)
	local.recordPut(contended)
}

// DeleteMin returns the smaller of tid's put-buffer head and
// delete-min buffer head if either is non-empty; otherwise it pulls a
// fresh run from the CA-tree's leftmost base node (one item if tid's
// relaxation r is zero, up to r items as a bulk detach otherwise) and
// serves from that.
func (c *CAPQ[K, V]) DeleteMin(tid tlv.TID) (key K, val V, ok bool) {
	local := c.locals.Get(int(tid))
	local.ensureInit(tid)

	for {
		putKey, putVal, putOK := local.heapPeek()
		bufKey, bufVal, bufOK := local.bufPeekMin()

		switch {
		case putOK && (!bufOK || putKey <= bufKey):
			local.heapPop()
			return putKey, putVal, true
		case bufOK:
			local.bufPopMin()
			return bufKey, bufVal, true
		}

		if local.r == 0 {
			k, v, found, contended := c.tree.DeleteMin()
			local.recordRemove(contended)
			if found {
				return k, v, true
			}
			return key, val, false
		}

		run, contended := c.tree.DetachLeftmostRun(local.r)
		local.recordRemove(contended)
		if run == nil || run.Len() == 0 {
			return key, val, false
		}
		local.deleteBuf = run
	}
}

// FindMin reports the smaller of tid's put-buffer head and delete-min
// buffer head, falling back to the CA-tree's leftmost base node
// without mutating anything.
func (c *CAPQ[K, V]) FindMin(tid tlv.TID) (key K, val V, ok bool) {
	local := c.locals.Get(int(tid))
	local.ensureInit(tid)

	putKey, putVal, putOK := local.heapPeek()
	bufKey, bufVal, bufOK := local.bufPeekMin()
	switch {
	case putOK && (!bufOK || putKey <= bufKey):
		return putKey, putVal, true
	case bufOK:
		return bufKey, bufVal, true
	}
	return key, val, false
}
