// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package catree implements the contention-adapting tree (CA-tree)
// that backs CAPQ: a binary tree of route nodes over disjoint key
// ranges, each leaf a base node guarding a bulk-oriented sorted list
// behind a queue-delegation lock. Route nodes split a congested base
// node's range in two and join adjacent base nodes back together as
// contention falls, so the tree's shape tracks the arrival rate
// rather than being fixed up front.
package catree
