// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pivot computes and maintains the per-block [lower, upper)
// windows and global maximal-pivot key that bound SLSM's set of
// relaxed-minimum candidates.
package pivot
