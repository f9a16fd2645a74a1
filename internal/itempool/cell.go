// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package itempool

import "code.hybscloud.com/atomix"

// Ref is the type-erased view of a Cell that downstream packages
// (block, block array) hold onto without needing the cell's value
// type parameter. It is satisfied by *Cell[K, V] for any K, V.
type Ref interface {
	// Version returns the cell's current version, loaded with
	// acquire semantics.
	Version() uint64
	// Take atomically bumps the version to expected+1 iff it is
	// currently expected, claiming ownership of the cell's payload.
	// Exactly one Take can succeed per Initialize call.
	Take(expected uint64) bool
}

// Cell is a (key, value, version) triple. version is even when the
// cell is free for reuse and odd while its payload is live. Exactly
// one Take succeeds per Initialize.
//
// A Cell is created on first use by the owning thread's Pool and is
// never freed — once its version is even again the same memory is
// reused for a future Initialize.
type Cell[K any, V any] struct {
	key     K
	val     V
	version atomix.Uint64
	next    *Cell[K, V]
}

// Initialize stores key/val and bumps the version from even to the
// next odd value, publishing the cell as live. Must be called before
// the cell is referenced from any block.
func (c *Cell[K, V]) Initialize(key K, val V) uint64 {
	c.key = key
	c.val = val
	next := c.version.LoadRelaxed() + 1
	c.version.StoreRelease(next)
	return next
}

// Key returns the cell's current key. Only meaningful while the
// cell's version is odd (live).
func (c *Cell[K, V]) Key() K { return c.key }

// Val returns the cell's current value. Only meaningful while the
// cell's version is odd (live), or immediately after a successful
// Take of that same live generation.
func (c *Cell[K, V]) Val() V { return c.val }

// Version returns the cell's current version.
func (c *Cell[K, V]) Version() uint64 {
	return c.version.LoadAcquire()
}

// Take attempts to claim the cell's current generation.
func (c *Cell[K, V]) Take(expected uint64) bool {
	return c.version.CompareAndSwapAcqRel(expected, expected+1)
}
