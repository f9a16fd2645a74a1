// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package itempool provides per-thread reusable, version-stamped
// value cells ("items").
package itempool
