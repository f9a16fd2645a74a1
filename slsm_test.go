// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpq_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/rpq"
)

func TestSLSMSingleThreadInsertDeleteMinOrders(t *testing.T) {
	// R=1 narrows the pivot window to the current minimum key, so a
	// single thread drains in order.
	q := rpq.NewSLSM[uint64, string](1)
	tid := q.InitThread()

	want := map[uint64]string{30: "c", 10: "a", 20: "b", 5: "z"}
	for k, v := range want {
		q.Insert(tid, k, v)
	}

	var prev uint64
	for i := 0; i < len(want); i++ {
		k, v, ok := q.DeleteMin(tid)
		if !ok {
			t.Fatalf("DeleteMin #%d: want ok=true", i)
		}
		if i > 0 && k < prev {
			t.Fatalf("DeleteMin out of order: got %d after %d", k, prev)
		}
		if want[k] != v {
			t.Fatalf("DeleteMin(%d): got val %q, want %q", k, v, want[k])
		}
		prev = k
	}
	if _, _, ok := q.DeleteMin(tid); ok {
		t.Fatalf("DeleteMin on drained queue: want ok=false")
	}
}

func TestSLSMFindMinExactMinimum(t *testing.T) {
	q := rpq.NewSLSM[uint64, string](64)
	tid := q.InitThread()
	q.Insert(tid, 9, "nine")
	q.Insert(tid, 2, "two")
	q.Insert(tid, 5, "five")

	k, v, ok := q.FindMin(tid)
	if !ok || k != 2 || v != "two" {
		t.Fatalf("FindMin: got (%d, %q, %v), want (2, two, true)", k, v, ok)
	}
	// FindMin is exact and non-destructive regardless of relaxation.
	if k2, _, ok2 := q.FindMin(tid); !ok2 || k2 != 2 {
		t.Fatalf("second FindMin: got (%d, %v), want (2, true)", k2, ok2)
	}
}

func TestSLSMDeleteMinOnEmptyQueue(t *testing.T) {
	q := rpq.NewSLSM[uint64, int](16)
	tid := q.InitThread()
	if _, _, ok := q.DeleteMin(tid); ok {
		t.Fatalf("DeleteMin on a fresh, empty queue: want ok=false")
	}
}

func TestSLSMSharedAcrossThreadsVisibility(t *testing.T) {
	q := rpq.NewSLSM[uint64, string](16)
	producer := q.InitThread()
	consumer := q.InitThread()

	q.Insert(producer, 1, "one")

	var k uint64
	var v string
	var ok bool
	for i := 0; i < 10 && !ok; i++ {
		k, v, ok = q.DeleteMin(consumer)
	}
	if !ok || k != 1 || v != "one" {
		t.Fatalf("DeleteMin from a different thread than Insert: got (%d, %q, %v), want (1, one, true)", k, v, ok)
	}
}

func TestSLSMConcurrentInsertAndDrainIsComplete(t *testing.T) {
	q := rpq.NewSLSM[uint32, int](32)
	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			tid := q.InitThread()
			base := uint32(w * perWorker)
			for i := range uint32(perWorker) {
				q.Insert(tid, base+i, w)
			}
		}(w)
	}
	wg.Wait()

	drainer := q.InitThread()
	seen := make(map[uint32]bool, workers*perWorker)
	const maxAttempts = 100 * workers * perWorker
	attempts := 0
	for len(seen) < workers*perWorker {
		attempts++
		if attempts > maxAttempts {
			t.Fatalf("gave up after %d attempts, drained %d/%d keys", attempts, len(seen), workers*perWorker)
		}
		k, _, ok := q.DeleteMin(drainer)
		if !ok {
			continue
		}
		if seen[k] {
			t.Fatalf("key %d delivered twice", k)
		}
		seen[k] = true
	}
}
