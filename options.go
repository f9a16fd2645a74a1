// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpq

// Build-time tunables. These are not invariants — the reference
// implementation picks values in the same order of magnitude and
// exposes them as constants rather than runtime configuration.
const (
	// DefaultRelaxation is the relaxation bound used by the
	// zero-value constructors (NewDLSM(0), etc. all accept an
	// explicit R; this is only a suggested starting point for
	// callers that don't have a workload-specific value yet).
	DefaultRelaxation = 32

	// capqSuccessDelta is added to a CAPQ thread's put-buffer or
	// relaxation counter (recordPut/recordRemove) on a clean
	// CA-tree acquisition.
	capqSuccessDelta = -1
	// capqFailureDelta is added to the same counters on a contended
	// (delegated) CA-tree acquisition.
	capqFailureDelta = 250
	// capqSplitThreshold: reaching this (upward) grows the thread's
	// put-buffer capacity or its relaxation r.
	capqSplitThreshold = 1000
	// capqJoinThreshold: reaching this (downward) shrinks the thread's
	// put-buffer capacity or its relaxation r.
	capqJoinThreshold = -1000

	// MaxRelax bounds CAPQ's adaptive delete-min relaxation r.
	MaxRelax = 256
	// MaxPutBuffer bounds CAPQ's adaptive per-thread put-buffer size.
	MaxPutBuffer = 256
)

// roundToPow2 rounds n up to the next power of 2. Used by CAPQ to
// grow its put-buffer capacity.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
