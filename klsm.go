// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpq

import "code.hybscloud.com/rpq/internal/tlv"

// KLSM composes a DLSM insert buffer with an SLSM overflow target: a
// worker's inserts go through its DLSM local, which hands a block off
// to the SLSM once the local merge chain grows past the threshold set
// in §4.9. Per the delivered behavior, delete-min and find-min target
// the DLSM side only — a block handed off to the SLSM is not pulled
// back, which a relaxed queue's contract tolerates.
//
// The embedded DLSM and SLSM share one TID numbering: InitThread
// registers the calling goroutine with both in the same call, so the
// two registries hand out identical dense ids in lockstep. That
// invariant only holds as long as callers reach dlsm/slsm exclusively
// through KLSM's own methods, which is why both fields are
// unexported.
type KLSM[K Key, V any] struct {
	dlsm *DLSM[K, V]
	slsm *SLSM[K, V]
}

// NewKLSM returns a KLSM with the given relaxation bound, shared by
// both the DLSM insert buffer and the SLSM overflow target.
func NewKLSM[K Key, V any](relax int) *KLSM[K, V] {
	slsm := NewSLSM[K, V](relax)
	return &KLSM[K, V]{
		dlsm: newDLSM[K, V](relax, slsm),
		slsm: slsm,
	}
}

// InitThread registers the calling goroutine with both the DLSM and
// SLSM halves in lockstep.
func (k *KLSM[K, V]) InitThread() tlv.TID {
	dlsmTID := k.dlsm.InitThread()
	slsmTID := k.slsm.InitThread()
	if dlsmTID != slsmTID {
		panic("rpq: klsm thread registries diverged")
	}
	return dlsmTID
}

// Insert adds key/val through tid's DLSM local, which may hand the
// resulting merged block off to the SLSM per the size threshold.
func (k *KLSM[K, V]) Insert(tid tlv.TID, key K, val V) {
	k.dlsm.Insert(tid, key, val)
}

// DeleteMin targets tid's DLSM local only, per §4.13's delivered
// behavior: it observes whatever its own merges and peer spying turn
// up, but does not reach into the SLSM for blocks already handed off.
func (k *KLSM[K, V]) DeleteMin(tid tlv.TID) (key K, val V, ok bool) {
	return k.dlsm.DeleteMin(tid)
}

// FindMin is the non-destructive variant of DeleteMin.
func (k *KLSM[K, V]) FindMin(tid tlv.TID) (key K, val V, ok bool) {
	return k.dlsm.FindMin(tid)
}
