// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tlv

import (
	"math"

	"code.hybscloud.com/atomix"
)

// TID is a dense, permanent, process-wide thread identity.
type TID uint32

// Registry assigns thread identity. Allocation is wait-free and
// cannot fail short of the fatal overflow condition below.
type Registry struct {
	_      [64]byte
	nextID atomix.Uint32
}

// Register allocates and returns a fresh, permanent thread id.
// Panics if the thread-id counter would overflow its 32-bit range —
// per spec, thread identity overflow is a fatal condition, not a
// recoverable error.
func (r *Registry) Register() TID {
	id := r.nextID.AddAcqRel(1) - 1
	if id >= math.MaxUint32-1 {
		panic("rpq: thread id counter overflow")
	}
	return TID(id)
}

// MaxTID returns the current upper bound on allocated thread ids
// (the count of threads registered so far).
func (r *Registry) MaxTID() TID {
	return TID(r.nextID.LoadAcquire())
}
