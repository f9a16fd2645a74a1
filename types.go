// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpq

import "code.hybscloud.com/rpq/internal/tlv"

// Key is the constraint on priority-queue keys: a totally ordered
// unsigned integer. Duplicate keys are permitted.
type Key interface {
	~uint32 | ~uint64
}

// MaxKey returns K's maximum value, the "infinity" sentinel used by
// lower-level primitives that must return a key by value with "no
// minimum present" represented in-band.
func MaxKey[K Key]() K {
	return K(^K(0))
}

// PriorityQueue is the common surface implemented by [DLSM], [SLSM],
// [KLSM], and [CAPQ]. All operations are safe for concurrent use by
// any goroutine that has called InitThread.
//
// Go exposes no goroutine-local storage, so unlike the reference
// design's reliance on the calling OS thread's identity, every
// operation here takes the tlv.TID InitThread returned: that token is
// this module's stand-in for "the current thread", and callers are
// expected to call InitThread once per goroutine and reuse the result
// on every subsequent call from that goroutine.
type PriorityQueue[K Key, V any] interface {
	// InitThread registers the calling goroutine, allocating a dense
	// permanent thread identity on first use. Must be called once per
	// goroutine before any other method, and the result reused for
	// every later call made by that goroutine.
	InitThread() tlv.TID

	// Insert adds a key/value pair.
	Insert(tid tlv.TID, key K, val V)

	// DeleteMin removes and returns a pair whose key is, in
	// expectation, among the R+1 smallest currently present. Returns
	// ok=false if the queue is observably empty.
	DeleteMin(tid tlv.TID) (key K, val V, ok bool)

	// FindMin is the non-destructive variant of DeleteMin.
	FindMin(tid tlv.TID) (key K, val V, ok bool)
}

// xorshift64Star is a fast, low-quality-but-sufficient PRNG used for
// victim selection (DLSM spy) and tie-breaking (SLSM pivot
// sampling). Seeded once from a thread's permanent id and never
// reseeded, per the "reseeding on thread reuse must be avoided"
// guidance: reuse of a thread id must reuse its seed's position in the
// stream, not restart it, so every per-thread struct that embeds this
// type seeds it exactly once, at first use.
type xorshift64Star struct {
	state uint64
}

func newXorshift64Star(seed uint64) xorshift64Star {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return xorshift64Star{state: seed}
}

// Next returns the next pseudo-random value in the stream.
func (x *xorshift64Star) Next() uint64 {
	s := x.state
	s ^= s >> 12
	s ^= s << 25
	s ^= s >> 27
	x.state = s
	return s * 0x2545F4914F6CDD1D
}

// Intn returns a pseudo-random value in [0, n).
func (x *xorshift64Star) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(x.Next() % uint64(n))
}
