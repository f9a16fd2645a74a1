// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpq_test

import (
	"testing"

	"code.hybscloud.com/rpq"
)

// =============================================================================
// Interface Compliance Tests
// =============================================================================

func TestPriorityQueueInterface(t *testing.T) {
	var _ rpq.PriorityQueue[uint64, int] = rpq.NewDLSM[uint64, int](8)
	var _ rpq.PriorityQueue[uint64, int] = rpq.NewSLSM[uint64, int](8)
	var _ rpq.PriorityQueue[uint64, int] = rpq.NewKLSM[uint64, int](8)
	var _ rpq.PriorityQueue[uint64, int] = rpq.NewCAPQ[uint64, int](8)
}
