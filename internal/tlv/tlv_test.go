// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tlv_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/rpq/internal/tlv"
)

// =============================================================================
// Registry
// =============================================================================

func TestRegistryAssignsDenseIDs(t *testing.T) {
	var reg tlv.Registry
	for i := range tlv.TID(8) {
		got := reg.Register()
		if got != i {
			t.Fatalf("Register() #%d: got %d, want %d", i, got, i)
		}
	}
	if max := reg.MaxTID(); max != 8 {
		t.Fatalf("MaxTID: got %d, want 8", max)
	}
}

func TestRegistryConcurrentRegisterIsDense(t *testing.T) {
	const n = 200
	var reg tlv.Registry
	seen := make([]int32, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := reg.Register()
			seen[id]++
		}()
	}
	wg.Wait()
	for i, c := range seen {
		if c != 1 {
			t.Fatalf("id %d assigned %d times, want exactly 1", i, c)
		}
	}
	if max := reg.MaxTID(); max != n {
		t.Fatalf("MaxTID: got %d, want %d", max, n)
	}
}

// =============================================================================
// Vector
// =============================================================================

func TestVectorGetIsStableAndZeroed(t *testing.T) {
	var v tlv.Vector[int]
	p := v.Get(0)
	if *p != 0 {
		t.Fatalf("fresh slot: got %d, want 0", *p)
	}
	*p = 42
	if got := v.Get(0); got != p || *got != 42 {
		t.Fatalf("Get(0) did not return the same stable slot")
	}
}

func TestVectorGetAcrossBucketBoundaries(t *testing.T) {
	var v tlv.Vector[int]
	// Exercise indices spanning several of the power-of-two buckets.
	indices := []int{0, 1, 2, 3, 6, 7, 14, 15, 100, 1000}
	for _, i := range indices {
		*v.Get(i) = i + 1
	}
	for _, i := range indices {
		if got := *v.Get(i); got != i+1 {
			t.Fatalf("Get(%d): got %d, want %d", i, got, i+1)
		}
	}
}

func TestVectorConcurrentGetSameIndex(t *testing.T) {
	var v tlv.Vector[int]
	const n = 64
	ptrs := make([]*int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ptrs[i] = v.Get(5)
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if ptrs[i] != ptrs[0] {
			t.Fatalf("concurrent Get(5) returned divergent pointers")
		}
	}
}
