// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package vptr provides a versioned pointer: a single atomic word
// that publishes both a referent's identity and its version, so a
// reader can detect ABA without ever following a stale pointer.
package vptr
