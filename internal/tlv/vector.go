// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tlv

import (
	"math/bits"
	"sync/atomic"
)

// maxBuckets bounds the bucket array at 48 doublings, matching the
// "up to 48 powers" sizing used elsewhere in this module for
// per-power pools; in practice only a handful of buckets are ever
// allocated (bucket b holds 2^b slots, so bucket 20 alone covers over
// a million threads).
const maxBuckets = 48

// Vector is a lock-free, never-shrinking, growable mapping from a
// dense thread id to a *T. It is the substrate for every per-thread
// structure in this module (item pools, block pools, DLSM locals,
// CA-tree put/delete-min buffers).
//
// Vector owns bucket arrays of sizes 1, 2, 4, … so that extending
// capacity is a single allocation and never requires migrating
// existing entries. References returned by Get are stable for the
// lifetime of the Vector.
type Vector[T any] struct {
	buckets [maxBuckets]atomic.Pointer[[]T]
}

// bucketOf maps index i (0-based) to its bucket number and the
// element's offset within that bucket. Bucket b holds indices
// [2^b - 1, 2^(b+1) - 2].
func bucketOf(i int) (bucket, offset int) {
	n := i + 1
	bucket = bits.Len(uint(n)) - 1
	offset = n - (1 << bucket)
	return
}

// Get returns a stable pointer to the slot for thread id i,
// allocating the owning bucket on first access. Safe for concurrent
// use; bucket allocation races are resolved by a single CAS, with
// losers discarding their speculative allocation.
func (v *Vector[T]) Get(i int) *T {
	bucket, offset := bucketOf(i)
	arr := v.buckets[bucket].Load()
	if arr == nil {
		arr = v.allocate(bucket)
	}
	return &(*arr)[offset]
}

// allocate installs bucket b's backing array via a single CAS from
// nil. A losing concurrent allocator's array is simply discarded.
func (v *Vector[T]) allocate(b int) *[]T {
	newArr := make([]T, 1<<uint(b))
	if v.buckets[b].CompareAndSwap(nil, &newArr) {
		return &newArr
	}
	for {
		if arr := v.buckets[b].Load(); arr != nil {
			return arr
		}
	}
}
