// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tlv provides dense per-thread identity and a lock-free
// slot vector indexed by that identity.
package tlv
