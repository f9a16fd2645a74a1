// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package block

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/rpq/internal/tlv"
)

const (
	maxPowers     = 48
	slotsPerPower = 4
)

type slotState int32

const (
	stateFree slotState = iota
	stateLocal
	stateGlobal
)

type poolSlot[K Key] struct {
	state   atomix.Int32
	version atomix.Uint64
	blk     *Block[K]
}

// Pool is a per-thread pool of pre-sized blocks, four per power of
// two, up to 48 powers. Slot states free/local/global coordinate
// reuse against global visibility (invariant BP1: the most recent
// global version at a given power is never reclaimed).
type Pool[K Key] struct {
	owner tlv.TID
	slots [maxPowers][slotsPerPower]poolSlot[K]
}

// NewPool returns an empty block pool for owner.
func NewPool[K Key](owner tlv.TID) *Pool[K] {
	return &Pool[K]{owner: owner}
}

// GetBlock returns a block of the given power, transitioned to the
// local state: either a free slot, or the oldest global slot whose
// version is not the most recent global version at that power.
// Panics if no slot is reclaimable — with four slots per power and a
// bounded relaxation window, exhaustion indicates a programming error
// in the calling pattern (spec §4.5, §7).
func (p *Pool[K]) GetBlock(power uint8) *Block[K] {
	row := &p.slots[power]

	for i := range row {
		if row[i].state.LoadAcquire() == int32(stateFree) {
			return p.claim(row, i, power)
		}
	}

	var maxVer uint64
	for i := range row {
		if row[i].state.LoadAcquire() == int32(stateGlobal) {
			if v := row[i].version.LoadAcquire(); v > maxVer {
				maxVer = v
			}
		}
	}

	best := -1
	bestVer := ^uint64(0)
	for i := range row {
		if row[i].state.LoadAcquire() != int32(stateGlobal) {
			continue
		}
		v := row[i].version.LoadAcquire()
		if v != maxVer && v < bestVer {
			bestVer = v
			best = i
		}
	}
	if best < 0 {
		panic(fmt.Sprintf("rpq: block pool exhausted at power %d", power))
	}
	return p.claim(row, best, power)
}

func (p *Pool[K]) claim(row *[slotsPerPower]poolSlot[K], i int, power uint8) *Block[K] {
	if row[i].blk == nil {
		row[i].blk = New[K](power, p.owner)
	} else {
		row[i].blk.reset()
	}
	row[i].state.StoreRelease(int32(stateLocal))
	return row[i].blk
}

// Publish marks every block in blocks that this pool tracks as global,
// stamped with version, whether it was local or already global; blocks
// this pool does not hold are skipped.
func (p *Pool[K]) Publish(blocks []*Block[K], version uint64) {
	for _, blk := range blocks {
		if blk == nil {
			continue
		}
		row := &p.slots[blk.Power()]
		for i := range row {
			if row[i].blk == blk {
				row[i].version.StoreRelaxed(version)
				row[i].state.StoreRelease(int32(stateGlobal))
				break
			}
		}
	}
}

// FreeLocal demotes every currently-local block back to free.
func (p *Pool[K]) FreeLocal() {
	p.FreeLocalExcept(nil)
}

// FreeLocalExcept demotes every currently-local block back to free,
// except keep (if non-nil), which remains local.
func (p *Pool[K]) FreeLocalExcept(keep *Block[K]) {
	for pw := range p.slots {
		row := &p.slots[pw]
		for i := range row {
			if row[i].state.LoadAcquire() == int32(stateLocal) && row[i].blk != keep {
				row[i].state.StoreRelease(int32(stateFree))
			}
		}
	}
}
