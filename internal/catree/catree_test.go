// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catree_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/rpq/internal/catree"
)

func TestTreeInsertDeleteMinOrdering(t *testing.T) {
	tr := catree.NewTree[uint64, string]()
	keys := []uint64{50, 10, 40, 20, 30}
	for _, k := range keys {
		tr.Insert(k, "v")
	}
	want := []uint64{10, 20, 30, 40, 50}
	for _, w := range want {
		k, _, ok, _ := tr.DeleteMin()
		if !ok || k != w {
			t.Fatalf("DeleteMin: got (%d, %v), want (%d, true)", k, ok, w)
		}
	}
	if _, _, ok, _ := tr.DeleteMin(); ok {
		t.Fatalf("DeleteMin on an empty tree: want ok=false")
	}
}

func TestTreeOrdersCorrectlyAtScale(t *testing.T) {
	tr := catree.NewTree[uint64, string]()
	// Large enough to span many skiplist nodes and, if contention ever
	// drives a split, many route/base levels; ordering must hold
	// regardless of the tree's internal shape.
	const n = 5000
	for i := range uint64(n) {
		tr.Insert(n-1-i, "v") // descending insert order stresses the route logic
	}
	var prev uint64
	for i := 0; i < n; i++ {
		k, _, ok, _ := tr.DeleteMin()
		if !ok {
			t.Fatalf("DeleteMin #%d: want ok=true, tree should still hold %d items", i, n-i)
		}
		if i > 0 && k < prev {
			t.Fatalf("DeleteMin out of order: got %d after %d", k, prev)
		}
		prev = k
	}
	if _, _, ok, _ := tr.DeleteMin(); ok {
		t.Fatalf("DeleteMin after draining %d items: want ok=false", n)
	}
}

func TestTreeDetachLeftmostRunReturnsSmallestR(t *testing.T) {
	tr := catree.NewTree[uint64, string]()
	for i := range uint64(100) {
		tr.Insert(i, "v")
	}
	run, _ := tr.DetachLeftmostRun(20)
	if run == nil || run.Len() != 20 {
		t.Fatalf("DetachLeftmostRun(20): got %v, want a 20-entry run", run)
	}
	for i := uint64(0); i < 20; i++ {
		k, _, ok := run.PopMin()
		if !ok || k != i {
			t.Fatalf("detached run order: got (%d, %v), want (%d, true)", k, ok, i)
		}
	}
	k, _, ok, _ := tr.DeleteMin()
	if !ok || k != 20 {
		t.Fatalf("tree head after detaching the first 20: got %d, want 20", k)
	}
}

func TestTreeConcurrentInsertThenDrainIsComplete(t *testing.T) {
	tr := catree.NewTree[uint32, int]()
	const perWorker = 2000
	const workers = 8

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			base := uint32(w * perWorker)
			for i := range uint32(perWorker) {
				tr.Insert(base+i, w)
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[uint32]bool, perWorker*workers)
	var prev uint32
	for i := 0; i < perWorker*workers; i++ {
		k, _, ok, _ := tr.DeleteMin()
		if !ok {
			t.Fatalf("DeleteMin #%d: want ok=true, expected %d total entries", i, perWorker*workers)
		}
		if i > 0 && k < prev {
			t.Fatalf("DeleteMin out of order: got %d after %d", k, prev)
		}
		if seen[k] {
			t.Fatalf("key %d delivered twice", k)
		}
		seen[k] = true
		prev = k
	}
	if len(seen) != perWorker*workers {
		t.Fatalf("drained %d distinct keys, want %d", len(seen), perWorker*workers)
	}
}
