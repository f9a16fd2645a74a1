// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package itempool

// Pool is a per-thread singly linked ring of item cells. It is
// owned by exactly one thread; threads never take cells from another
// thread's pool. head and tail are plain (non-atomic) pointers: only
// the owning thread ever mutates them.
type Pool[K any, V any] struct {
	head *Cell[K, V]
	tail *Cell[K, V]
}

// New returns an empty pool seeded with a single ring cell.
func New[K any, V any]() *Pool[K, V] {
	c := &Cell[K, V]{}
	c.next = c
	return &Pool[K, V]{head: c, tail: c}
}

// Acquire returns a cell ready for Initialize. If the next cell in
// the ring is reusable (its version is even), it is returned;
// otherwise a new cell is allocated and spliced into the ring
// immediately after the current tail.
//
// The caller must call Initialize on the returned cell before
// publishing a reference to it from any block.
func (p *Pool[K, V]) Acquire() *Cell[K, V] {
	next := p.head.next
	if next.Version()%2 == 0 {
		p.head = next
		return next
	}
	c := &Cell[K, V]{next: p.tail.next}
	p.tail.next = c
	p.tail = c
	p.head = c
	return c
}
