// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package block

import "code.hybscloud.com/rpq/internal/tlv"

// Ref is the type-erased handle to an item cell that a block entry
// points at. It is satisfied by *itempool.Cell[K, V] for any K, V;
// block only ever needs to compare versions and attempt Take, never
// the cell's value type, so it depends on this narrow interface
// instead of itempool directly.
type Ref interface {
	Version() uint64
	Take(expected uint64) bool
}

// Entry is one (key, item reference, expected version) triple.
type Entry[K Key] struct {
	Key             K
	Item            Ref
	ExpectedVersion uint64
}

// owned reports whether the block still owns this entry's item: the
// item's current version must still equal the version the block
// observed when the entry was written.
func (e Entry[K]) owned() bool {
	return e.Item.Version() == e.ExpectedVersion
}

// Block is a non-empty sorted window of (key, item ref, expected
// version) triples with capacity 2^power. Keys are non-decreasing by
// absolute index (invariant BK1). Blocks are immutable once published
// into a shared block array: from that point on, only Peek-family
// reads are permitted from any thread, and only the owner thread may
// advance first/last via the pruning rules below.
type Block[K Key] struct {
	entries  []Entry[K]
	first    int // inclusive
	last     int // exclusive
	capacity int
	power    uint8
	owner    tlv.TID
}

// New allocates an empty block of capacity 2^power, owned by owner.
func New[K Key](power uint8, owner tlv.TID) *Block[K] {
	return &Block[K]{
		entries:  make([]Entry[K], 1<<power),
		capacity: 1 << power,
		power:    power,
		owner:    owner,
	}
}

// Power returns log2(capacity).
func (b *Block[K]) Power() uint8 { return b.power }

// Capacity returns 2^power.
func (b *Block[K]) Capacity() int { return b.capacity }

// Owner returns the thread id that created this block. Informational
// only — no lock is taken on it.
func (b *Block[K]) Owner() tlv.TID { return b.owner }

// Size returns the block's current window size (last - first). It is
// an upper bound on the number of still-owned entries, not an exact
// live count, since entries between first and last may have been
// taken by a concurrent delete_min.
func (b *Block[K]) Size() int { return b.last - b.first }

// Full reports whether the block has no remaining insert capacity.
func (b *Block[K]) Full() bool { return b.last >= b.capacity }

// First returns the block's current window start (inclusive).
func (b *Block[K]) First() int { return b.first }

// Last returns the block's current window end (exclusive).
func (b *Block[K]) Last() int { return b.last }

// KeyAt returns the key stored at absolute index i, regardless of
// whether that entry is still owned. Keys are non-decreasing by
// absolute index for the lifetime of the block (invariant BK1), so
// this is safe to use for bisection even across entries that have
// since been taken.
func (b *Block[K]) KeyAt(i int) K { return b.entries[i].Key }

// reset clears the block's window for reuse from the pool, keeping
// its backing array, power, and owner.
func (b *Block[K]) reset() {
	b.first = 0
	b.last = 0
}

// Insert appends an item at the current tail. Callers must only call
// Insert while the block is in its local-only phase (before it is
// published into any shared block array) and only from the owner
// thread.
func (b *Block[K]) Insert(key K, item Ref, expectedVersion uint64) {
	if b.Full() {
		panic("rpq: block insert overflow")
	}
	b.entries[b.last] = Entry[K]{Key: key, Item: item, ExpectedVersion: expectedVersion}
	b.last++
}

// Peek returns the first still-owned entry and its absolute index.
// Called by the owner thread, it also prunes the leading run of
// no-longer-owned entries by advancing first across them — this is
// the only mutation Peek performs, and it is safe only because the
// owner thread is the sole mutator of first/last.
func (b *Block[K]) Peek() (e Entry[K], idx int, ok bool) {
	for b.first < b.last {
		if b.entries[b.first].owned() {
			return b.entries[b.first], b.first, true
		}
		b.first++
	}
	return Entry[K]{}, 0, false
}

// PeekReadOnly returns the first still-owned entry without pruning.
// Safe to call from any thread (e.g. a spying peer, or a block array
// peek across blocks owned by other threads).
func (b *Block[K]) PeekReadOnly() (e Entry[K], idx int, ok bool) {
	for i := b.first; i < b.last; i++ {
		if b.entries[i].owned() {
			return b.entries[i], i, true
		}
	}
	return Entry[K]{}, 0, false
}

// PeekNth returns the entry at absolute index n if it is still
// in-window and still owned.
func (b *Block[K]) PeekNth(n int) (e Entry[K], ok bool) {
	if n < b.first || n >= b.last {
		return Entry[K]{}, false
	}
	if !b.entries[n].owned() {
		return Entry[K]{}, false
	}
	return b.entries[n], true
}

// PeekTail returns the last still-owned entry's key, pruning the
// trailing run of no-longer-owned entries by decrementing last.
// Owner-thread only, for the same reason as Peek.
func (b *Block[K]) PeekTail() (key K, ok bool) {
	for b.last > b.first {
		if b.entries[b.last-1].owned() {
			return b.entries[b.last-1].Key, true
		}
		b.last--
	}
	return key, false
}

// Take attempts to claim the entry at absolute index idx, returning
// true iff this call's Take won the race.
func (b *Block[K]) Take(idx int) bool {
	e := &b.entries[idx]
	return e.Item.Take(e.ExpectedVersion)
}

// Iterator returns a weak, read-only cursor over this block's
// current window, used by spying. It observes a live, mutating
// window and makes no consistency promises beyond "every key it
// yields was present in the window at some point during the scan".
func (b *Block[K]) Iterator() *Iterator[K] {
	return &Iterator[K]{b: b, i: b.first}
}

// Iterator is a weak read-only cursor over a Block's window.
type Iterator[K Key] struct {
	b *Block[K]
	i int
}

// Next advances the iterator to the next still-owned entry.
func (it *Iterator[K]) Next() (Entry[K], bool) {
	for it.i < it.b.last {
		entry := it.b.entries[it.i]
		it.i++
		if entry.owned() {
			return entry, true
		}
	}
	return Entry[K]{}, false
}

// Merge produces a new block from the linear merge of lhs and rhs's
// owned entries, in capacity dstPower (2^dstPower must be at least
// the sum of owned sizes). lhs and rhs are read-only to this call;
// the result is always given owner's thread id.
func Merge[K Key](dstPower uint8, owner tlv.TID, lhs, rhs *Block[K]) *Block[K] {
	dst := New[K](dstPower, owner)
	li, ri := lhs.first, lhs.last
	ro, rl := rhs.first, rhs.last
	for li < ri || ro < rl {
		for li < ri && !lhs.entries[li].owned() {
			li++
		}
		for ro < rl && !rhs.entries[ro].owned() {
			ro++
		}
		switch {
		case li >= ri:
			for ro < rl {
				if rhs.entries[ro].owned() {
					e := rhs.entries[ro]
					dst.Insert(e.Key, e.Item, e.ExpectedVersion)
				}
				ro++
			}
		case ro >= rl:
			for li < ri {
				if lhs.entries[li].owned() {
					e := lhs.entries[li]
					dst.Insert(e.Key, e.Item, e.ExpectedVersion)
				}
				li++
			}
		case lhs.entries[li].Key <= rhs.entries[ro].Key:
			e := lhs.entries[li]
			dst.Insert(e.Key, e.Item, e.ExpectedVersion)
			li++
		default:
			e := rhs.entries[ro]
			dst.Insert(e.Key, e.Item, e.ExpectedVersion)
			ro++
		}
	}
	return dst
}

// Copy merges src's owned entries into dst, which must have been
// allocated with sufficient capacity. Entries already in dst and src's
// owned entries are combined by a linear merge, so dst stays sorted
// (BK1); into an empty dst this is a plain compaction of src.
func Copy[K Key](dst, src *Block[K]) {
	kept := append([]Entry[K]{}, dst.entries[dst.first:dst.last]...)
	dst.last = dst.first
	k := 0
	for i := src.first; i < src.last; i++ {
		if src.entries[i].owned() {
			e := src.entries[i]
			for ; k < len(kept) && kept[k].Key <= e.Key; k++ {
				dst.Insert(kept[k].Key, kept[k].Item, kept[k].ExpectedVersion)
			}
			dst.Insert(e.Key, e.Item, e.ExpectedVersion)
		}
	}
	for ; k < len(kept); k++ {
		dst.Insert(kept[k].Key, kept[k].Item, kept[k].ExpectedVersion)
	}
}

// LiveCount scans and counts src's currently owned entries. O(size).
func LiveCount[K Key](src *Block[K]) int {
	n := 0
	for i := src.first; i < src.last; i++ {
		if src.entries[i].owned() {
			n++
		}
	}
	return n
}
