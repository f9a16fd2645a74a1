// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vptr

import "code.hybscloud.com/atomix"

// Pointer publishes an index into a small, fixed pool of referents
// (e.g. SLSM's two swap arrays) together with a monotonically
// increasing version, packed into a single word so a CAS publishes
// identity and version atomically.
//
// The packing mirrors the lo/hi word used for the cycle/value pair in
// a single-CAS queue slot (code.hybscloud.com/atomix's Uint128
// packing idiom): here the "lo" bits are the referent's slot index
// (0 or 1 — the pool of block arrays behind a Pointer is always a
// two-slot swap buffer) and the rest of the word is the version. Go
// offers no safe way to alias a real pointer's low address bits the
// way a C++ implementation embeds the version in alignment padding
// bits (the runtime's pointer is opaque and may not be bit-twiddled),
// so this package publishes a small integer handle instead of an
// aliased pointer — the same "identity + version in one CAS" property
// the spec calls for, without unsafe pointer aliasing.
type Pointer struct {
	packed atomix.Uint64
}

const slotMask = 0x1

func pack(slot int, version uint64) uint64 {
	return version<<1 | uint64(slot&slotMask)
}

// Unpack splits a packed word into its slot index and version.
func Unpack(packed uint64) (slot int, version uint64) {
	return int(packed & slotMask), packed >> 1
}

// LoadPacked returns the current packed word, for callers that only
// need to compare against a previously observed value (ABA
// detection) without following the referent.
func (p *Pointer) LoadPacked() uint64 {
	return p.packed.LoadAcquire()
}

// Load returns the current slot index and version.
func (p *Pointer) Load() (slot int, version uint64) {
	return Unpack(p.LoadPacked())
}

// Store unconditionally publishes slot/version. Used once, at
// construction, to seed the initial referent.
func (p *Pointer) Store(slot int, version uint64) {
	p.packed.StoreRelease(pack(slot, version))
}

// CompareAndSwap publishes (slot, version) iff the pointer's current
// packed word still equals expectedPacked. This is the single
// linearization point of a block-array publication.
func (p *Pointer) CompareAndSwap(expectedPacked uint64, slot int, version uint64) bool {
	return p.packed.CompareAndSwapAcqRel(expectedPacked, pack(slot, version))
}
