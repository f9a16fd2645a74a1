// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package block_test

import (
	"testing"

	"code.hybscloud.com/rpq/internal/block"
	"code.hybscloud.com/rpq/internal/itempool"
)

func insertCell(t *testing.T, blk *block.Block[uint64], pool *itempool.Pool[uint64, string], key uint64, val string) {
	t.Helper()
	cell := pool.Acquire()
	expected := cell.Initialize(key, val)
	blk.Insert(key, cell, expected)
}

// =============================================================================
// Block
// =============================================================================

func TestBlockInsertPeekTake(t *testing.T) {
	pool := itempool.New[uint64, string]()
	blk := block.New[uint64](2, 0) // capacity 4

	insertCell(t, blk, pool, 30, "thirty")
	insertCell(t, blk, pool, 10, "ten")
	insertCell(t, blk, pool, 20, "twenty")

	if blk.Size() != 3 {
		t.Fatalf("Size: got %d, want 3", blk.Size())
	}
	e, idx, ok := blk.Peek()
	if !ok || e.Key != 30 {
		t.Fatalf("Peek: got (%v, %v), want head entry key 30", e, ok)
	}
	if !blk.Take(idx) {
		t.Fatalf("Take(%d): want success", idx)
	}
	e2, _, ok2 := blk.Peek()
	if !ok2 || e2.Key != 10 {
		t.Fatalf("Peek after Take: got key %d, want 10 (pruned to next still-owned entry)", e2.Key)
	}
}

func TestBlockFullPanicsOnOverflow(t *testing.T) {
	pool := itempool.New[uint64, string]()
	blk := block.New[uint64](0, 0) // capacity 1
	insertCell(t, blk, pool, 1, "one")
	if !blk.Full() {
		t.Fatalf("Full: want true once capacity 1 is used")
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("Insert into a full block: want panic")
		}
	}()
	insertCell(t, blk, pool, 2, "two")
}

func TestBlockPeekReadOnlyDoesNotPrune(t *testing.T) {
	pool := itempool.New[uint64, string]()
	blk := block.New[uint64](1, 0) // capacity 2
	insertCell(t, blk, pool, 1, "one")
	insertCell(t, blk, pool, 2, "two")

	if _, idx, ok := blk.PeekReadOnly(); !ok || idx != 0 {
		t.Fatalf("PeekReadOnly: want index 0")
	}
	blk.Take(0)
	if block.LiveCount(blk) != 1 {
		t.Fatalf("LiveCount after Take(0): got %d, want 1", block.LiveCount(blk))
	}
	if e, idx, ok := blk.PeekReadOnly(); !ok || idx != 1 || e.Key != 2 {
		t.Fatalf("PeekReadOnly after Take(0): got (%v, %d, %v), want key 2 at index 1", e, idx, ok)
	}
	// First() must be unchanged: PeekReadOnly never mutates the window.
	if blk.First() != 0 {
		t.Fatalf("First: got %d, want 0 (PeekReadOnly must not prune)", blk.First())
	}
}

func TestBlockMerge(t *testing.T) {
	pool := itempool.New[uint64, string]()
	lhs := block.New[uint64](1, 0)
	insertCell(t, lhs, pool, 1, "one")
	insertCell(t, lhs, pool, 3, "three")
	rhs := block.New[uint64](1, 0)
	insertCell(t, rhs, pool, 2, "two")
	insertCell(t, rhs, pool, 4, "four")

	merged := block.Merge[uint64](2, 0, lhs, rhs)
	var gotKeys []uint64
	it := merged.Iterator()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		gotKeys = append(gotKeys, e.Key)
	}
	want := []uint64{1, 2, 3, 4}
	if len(gotKeys) != len(want) {
		t.Fatalf("Merge: got %v, want %v", gotKeys, want)
	}
	for i := range want {
		if gotKeys[i] != want[i] {
			t.Fatalf("Merge order: got %v, want %v", gotKeys, want)
		}
	}
}

func TestBlockPeekTailPrunesTakenTrailingEntries(t *testing.T) {
	pool := itempool.New[uint64, string]()
	blk := block.New[uint64](2, 0)
	insertCell(t, blk, pool, 1, "one")
	insertCell(t, blk, pool, 2, "two")
	insertCell(t, blk, pool, 3, "three")

	blk.Take(2) // take the last entry (key 3)
	key, ok := blk.PeekTail()
	if !ok || key != 2 {
		t.Fatalf("PeekTail: got (%d, %v), want (2, true)", key, ok)
	}
	if blk.Last() != 2 {
		t.Fatalf("Last: got %d, want 2 (pruned past the taken trailing entry)", blk.Last())
	}
}
