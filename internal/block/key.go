// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package block

// Key is the constraint on block keys, duplicated locally (rather
// than imported from the root package) to keep this package free of
// a dependency on rpq and therefore importable by every other
// internal package without risk of an import cycle.
type Key interface {
	~uint32 | ~uint64
}
