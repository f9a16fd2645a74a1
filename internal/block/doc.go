// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package block provides the sorted fixed-capacity block, the
// per-thread block pool, and the capacity-descending block array
// that DLSM, SLSM, and KLSM are built from.
package block
