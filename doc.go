// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rpq provides relaxed concurrent priority queues.
//
// A relaxed priority queue trades strict minimum ordering for
// scalability: DeleteMin is permitted to return any of the
// approximately R+1 smallest keys currently present rather than the
// single global minimum. Four engines are provided, each a distinct
// relaxation strategy:
//
//   - [DLSM]: a distributed log-structured-merge queue. Each worker
//     keeps a private sorted block list and occasionally "spies" on a
//     peer's list when its own is empty.
//   - [SLSM]: a shared log-structured-merge queue. A single globally
//     published array of blocks is updated by copy-on-write and a
//     version-tagged compare-and-swap.
//   - [KLSM]: a DLSM used as an insert buffer that flushes oversized
//     blocks into an SLSM.
//   - [CAPQ]: a contention-avoiding queue built from a CA-tree of
//     skiplists guarded by queue-delegation locks.
//
// # Quick Start
//
//	q := rpq.NewDLSM[uint64, string](rpq.DefaultRelaxation)
//	tid := q.InitThread()
//
//	q.Insert(tid, 42, "answer")
//	key, val, ok := q.DeleteMin(tid)
//	if ok {
//	    fmt.Println(key, val)
//	}
//
// # Thread registration
//
// Go exposes no goroutine-local storage, so every operation takes an
// explicit tlv.TID standing in for "the calling thread". Every
// goroutine that touches a queue must call InitThread once, before
// its first Insert/DeleteMin/FindMin, and reuse the returned token on
// every later call it makes:
//
//	go func() {
//	    tid := q.InitThread()
//	    for item := range work {
//	        q.Insert(tid, item.Key, item.Val)
//	    }
//	}()
//
// # Relaxation
//
// All four constructors accept a relaxation bound R; R <= 0 selects
// DefaultRelaxation. SLSM's DeleteMin samples among roughly the
// (R+1)/2 smallest published entries, so R=1 makes it strict. DLSM
// uses R only for the size at which a KLSM's DLSM hands a merged
// block to its SLSM. CAPQ ignores R: its relaxation r adapts per
// thread from 0 up to MaxRelax. Larger R permits more skew between
// the returned key and the true minimum in exchange for less
// cross-core contention.
//
// # Thread Safety
//
// Insert, DeleteMin, and FindMin are safe for concurrent use by any
// number of goroutines once each has called InitThread. No operation
// blocks indefinitely; internal contention is resolved by bounded
// spin-and-yield retries, never by waiting on another goroutine to
// make progress (with the sole exception of a delegated request
// waiting for its holder's next flush, bounded by that holder's own
// lock hold time).
//
// # Error Handling
//
// There is no error type. DeleteMin and FindMin report an empty
// queue by returning ok=false, matching the "nothing found" idiom of
// a map lookup rather than an I/O-style error value — an empty queue
// is an expected steady state, not a failure.
package rpq
