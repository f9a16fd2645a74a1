// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qdlock

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const (
	slotEmpty uint32 = iota
	slotReserved
	slotReady
	slotFull
)

// qdSlot holds one delegated request. fn is the closure variant the
// spec's "variant type (Empty | Full | Closure) per slot" fallback
// calls for in a language without raw byte aliasing: the reserving
// caller already has its key/value captured in its own stack frame,
// so the slot just needs somewhere to publish the resulting closure.
type qdSlot struct {
	state atomix.Uint32
	fn    func()
}

// Lock is a queue-delegation lock (QD-lock). The current holder may
// "open" the delegation queue so arrivals deposit a request into a
// ring-buffer slot instead of waiting; the holder later drains
// published requests with Flush.
type Lock struct {
	held   atomix.Bool
	open   atomix.Bool
	slots  []qdSlot
	mask   uint64
	next   atomix.Uint64 // arrival reservation cursor (FAA)
	cursor uint64        // owner-only flush cursor
}

// New returns a lock with a ring buffer of the given capacity
// (rounded up to a power of two).
func New(capacity int) *Lock {
	n := roundToPow2(capacity)
	return &Lock{slots: make([]qdSlot, n), mask: uint64(n - 1)}
}

func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

// TryLockOrDelegate either acquires the lock (locked=true) or, if it
// is held and its delegation queue is open, reserves a ring-buffer
// slot and returns its handle for the caller to fill via
// CloseDelegateBuffer. If the queue is closed, it spins (yielding
// between attempts) until the lock is free or the queue opens.
func (l *Lock) TryLockOrDelegate() (locked bool, handle int) {
	sw := spin.Wait{}
	for {
		if l.held.CompareAndSwapAcqRel(false, true) {
			return true, -1
		}
		if !l.open.LoadAcquire() {
			sw.Once()
			continue
		}
		pos := l.next.AddAcqRel(1) - 1
		idx := pos & l.mask
		slot := &l.slots[idx]
		if slot.state.CompareAndSwapAcqRel(slotEmpty, slotReserved) {
			return false, int(idx)
		}
		// Slot was not free: the ring has wrapped onto a request the
		// owner hasn't drained yet. Publish FULL so the flusher knows
		// to stop cleanly there, then retry lock acquisition.
		slot.state.StoreRelease(slotFull)
		sw.Once()
	}
}

// CloseDelegateBuffer publishes fn against the slot obtained from
// TryLockOrDelegate, making the request visible to the holder's next
// Flush.
func (l *Lock) CloseDelegateBuffer(handle int, fn func()) {
	slot := &l.slots[uint64(handle)&l.mask]
	slot.fn = fn
	slot.state.StoreRelease(slotReady)
}

// OpenQueue lets later arrivals delegate instead of spinning on the
// lock. Owner-only.
func (l *Lock) OpenQueue() { l.open.StoreRelease(true) }

// Flush is called by the current holder. It closes the delegation
// queue, then drains and executes every published request in
// reservation order, stopping at the first not-yet-published slot or
// at a buffer-full sentinel.
func (l *Lock) Flush() {
	l.open.StoreRelease(false)
	for {
		idx := l.cursor & l.mask
		slot := &l.slots[idx]
		switch slot.state.LoadAcquire() {
		case slotReady:
			fn := slot.fn
			fn()
			slot.fn = nil
			slot.state.StoreRelease(slotEmpty)
			l.cursor++
		case slotFull:
			slot.state.StoreRelease(slotEmpty)
			l.cursor++
			return
		default:
			return
		}
	}
}

// Unlock releases the lock. The queue must already be closed (via
// Flush) or have never been opened.
func (l *Lock) Unlock() {
	l.held.StoreRelease(false)
}

// Held reports whether the lock is currently held, for diagnostics
// and tests.
func (l *Lock) Held() bool { return l.held.LoadAcquire() }
