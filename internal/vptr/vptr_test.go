// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vptr_test

import (
	"testing"

	"code.hybscloud.com/rpq/internal/vptr"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	var p vptr.Pointer
	p.Store(1, 7)
	slot, version := p.Load()
	if slot != 1 || version != 7 {
		t.Fatalf("Load: got (%d, %d), want (1, 7)", slot, version)
	}
}

func TestUnpackOfLoadPacked(t *testing.T) {
	var p vptr.Pointer
	p.Store(0, 100)
	slot, version := vptr.Unpack(p.LoadPacked())
	if slot != 0 || version != 100 {
		t.Fatalf("Unpack(LoadPacked()): got (%d, %d), want (0, 100)", slot, version)
	}
}

func TestCompareAndSwapSucceedsOnMatch(t *testing.T) {
	var p vptr.Pointer
	p.Store(0, 1)
	packed := p.LoadPacked()
	if !p.CompareAndSwap(packed, 1, 2) {
		t.Fatalf("CompareAndSwap: want success against the current packed word")
	}
	slot, version := p.Load()
	if slot != 1 || version != 2 {
		t.Fatalf("after CAS: got (%d, %d), want (1, 2)", slot, version)
	}
}

func TestCompareAndSwapFailsOnStaleExpected(t *testing.T) {
	var p vptr.Pointer
	p.Store(0, 1)
	stale := p.LoadPacked()
	p.Store(1, 2) // advance past the stale snapshot
	if p.CompareAndSwap(stale, 0, 3) {
		t.Fatalf("CompareAndSwap against a stale packed word: want failure")
	}
}
