// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catree

import (
	"sort"

	"code.hybscloud.com/rpq/internal/block"
)

// nodeCapacity bounds the number of entries a single list node holds
// before a new node is chained on. Sized after the bulk skiplist
// nodes of the reference implementation: large enough that split,
// join, and bulk delete-min can usually move whole nodes instead of
// touching individual entries.
const nodeCapacity = 90

type entry[K block.Key, V any] struct {
	key K
	val V
}

// listNode is one fixed-capacity run of entries. Entries appended by
// Insert land in the unsorted tail past sorted; a read that needs
// order calls ensureSorted to sort the whole node once, lazily,
// rather than keeping every insert sorted.
type listNode[K block.Key, V any] struct {
	entries []entry[K, V]
	sorted  int
	next    *listNode[K, V]
}

func newNode[K block.Key, V any]() *listNode[K, V] {
	return &listNode[K, V]{entries: make([]entry[K, V], 0, nodeCapacity)}
}

func (n *listNode[K, V]) full() bool { return len(n.entries) >= nodeCapacity }

func (n *listNode[K, V]) ensureSorted() {
	if n.sorted == len(n.entries) {
		return
	}
	sort.Slice(n.entries, func(i, j int) bool { return n.entries[i].key < n.entries[j].key })
	n.sorted = len(n.entries)
}

// List is a bulk-oriented sorted sequence used as a CA-tree base
// node's payload: insertion routes to whichever node the key belongs
// in (append to the tail node in the common case where the key is a
// new maximum), and split/join/bulk-delete-min all prefer moving
// whole nodes over touching individual entries.
type List[K block.Key, V any] struct {
	head, tail *listNode[K, V]
	count      int
}

// New returns an empty list.
func New[K block.Key, V any]() *List[K, V] {
	n := newNode[K, V]()
	return &List[K, V]{head: n, tail: n}
}

// Len returns the number of entries currently in the list.
func (l *List[K, V]) Len() int { return l.count }

// Insert routes key/val to whichever node's current range contains
// it — the first node (in chain order) whose greatest key is >= key,
// or the tail if key exceeds everything held so far — splitting that
// node in two once it reaches nodeCapacity. This keeps keys
// non-decreasing across the whole node chain, not just within one
// node, the way fat_skiplist.c's find_neighbours-then-insert routing
// does; a plain tail append would let the chain degenerate into
// arrival-order chunks instead of a sorted list.
func (l *List[K, V]) Insert(key K, val V) {
	if l.head == nil {
		l.head = newNode[K, V]()
		l.tail = l.head
	}
	n := l.findNode(key)
	n.entries = append(n.entries, entry[K, V]{key: key, val: val})
	l.count++
	if n.full() {
		l.splitNodeInPlace(n)
	}
}

// findNode returns the node key should be inserted into.
func (l *List[K, V]) findNode(key K) *listNode[K, V] {
	cur := l.head
	for cur.next != nil {
		if len(cur.entries) > 0 {
			cur.ensureSorted()
			if key <= cur.entries[len(cur.entries)-1].key {
				return cur
			}
		}
		cur = cur.next
	}
	return cur
}

// splitNodeInPlace halves a full node, keeping n's identity as the
// left half (so any predecessor's next pointer stays valid) and
// chaining a new node for the right half immediately after it.
func (l *List[K, V]) splitNodeInPlace(n *listNode[K, V]) {
	n.ensureSorted()
	mid := len(n.entries) / 2
	rightEntries := append([]entry[K, V]{}, n.entries[mid:]...)
	wasTail := n == l.tail

	n.entries = n.entries[:mid]
	n.sorted = mid

	right := &listNode[K, V]{entries: rightEntries, sorted: len(rightEntries), next: n.next}
	n.next = right
	if wasTail {
		l.tail = right
	}
}

func (l *List[K, V]) dropEmptyHead() {
	for l.head != nil && len(l.head.entries) == 0 {
		l.head = l.head.next
		if l.head == nil {
			l.tail = nil
		}
	}
}

// PeekMin returns the smallest key/value pair without removing it.
func (l *List[K, V]) PeekMin() (key K, val V, ok bool) {
	l.dropEmptyHead()
	if l.head == nil {
		return key, val, false
	}
	l.head.ensureSorted()
	e := l.head.entries[0]
	return e.key, e.val, true
}

// PopMin removes and returns the smallest key/value pair.
func (l *List[K, V]) PopMin() (key K, val V, ok bool) {
	key, val, ok = l.PeekMin()
	if !ok {
		return key, val, false
	}
	l.head.entries = l.head.entries[1:]
	if l.head.sorted > 0 {
		l.head.sorted--
	}
	l.count--
	return key, val, true
}

// Join appends other's entries after l's. Callers are responsible for
// ensuring every key in other is >= every key in l.
func (l *List[K, V]) Join(other *List[K, V]) {
	if other == nil || other.count == 0 {
		return
	}
	if l.tail == nil {
		l.head, l.tail, l.count = other.head, other.tail, other.count
		return
	}
	l.tail.next = other.head
	l.tail = other.tail
	l.count += other.count
}

// Split divides the list roughly in half, preferring a whole-node
// boundary, falling back to splitting a single oversized node's
// sorted entries. It reports the smallest key now held by the
// returned right half, which callers use as a route node's split key.
func (l *List[K, V]) Split() (right *List[K, V], splitKey K, ok bool) {
	if l.count < 2 {
		return nil, splitKey, false
	}
	target := l.count / 2
	acc := 0
	var prev *listNode[K, V]
	cur := l.head
	for cur != nil {
		if acc > 0 && acc+len(cur.entries) > target {
			break
		}
		acc += len(cur.entries)
		prev = cur
		cur = cur.next
	}
	if cur == nil {
		// Single-node list: fall back to an intra-node split.
		cur = l.head
		cur.ensureSorted()
		mid := len(cur.entries) / 2
		if mid == 0 || mid == len(cur.entries) {
			return nil, splitKey, false
		}
		rightEntries := append([]entry[K, V]{}, cur.entries[mid:]...)
		splitKey = rightEntries[0].key
		cur.entries = cur.entries[:mid]
		cur.sorted = mid
		rightNode := &listNode[K, V]{entries: rightEntries, sorted: len(rightEntries)}
		l.tail = cur
		l.count = mid
		return &List[K, V]{head: rightNode, tail: rightNode, count: len(rightEntries)}, splitKey, true
	}
	cur.ensureSorted()
	splitKey = cur.entries[0].key
	right = &List[K, V]{head: cur, tail: l.tail, count: l.count - acc}
	prev.next = nil
	l.tail = prev
	l.count = acc
	return right, splitKey, true
}

// DetachFirstR removes and returns the leftmost r entries as a
// standalone list, preferring whole-node transfer and splitting only
// the one node that straddles the boundary.
func (l *List[K, V]) DetachFirstR(r int) *List[K, V] {
	if r <= 0 || l.count == 0 {
		return nil
	}
	if r >= l.count {
		out := &List[K, V]{head: l.head, tail: l.tail, count: l.count}
		l.head, l.tail, l.count = nil, nil, 0
		return out
	}
	remaining := r
	var prev *listNode[K, V]
	cur := l.head
	for cur != nil && remaining >= len(cur.entries) {
		remaining -= len(cur.entries)
		prev = cur
		cur = cur.next
	}
	if remaining == 0 {
		out := &List[K, V]{head: l.head, tail: prev, count: r}
		prev.next = nil
		l.head = cur
		if l.head == nil {
			l.tail = nil
		}
		l.count -= r
		return out
	}
	cur.ensureSorted()
	leftEntries := append([]entry[K, V]{}, cur.entries[:remaining]...)
	rightEntries := append([]entry[K, V]{}, cur.entries[remaining:]...)
	leftNode := &listNode[K, V]{entries: leftEntries, sorted: len(leftEntries)}
	cur.entries = rightEntries
	cur.sorted = len(rightEntries)
	outHead := l.head
	if prev == nil {
		outHead = leftNode
	} else {
		prev.next = leftNode
	}
	out := &List[K, V]{head: outHead, tail: leftNode, count: r}
	l.head = cur
	l.count -= r
	return out
}
