// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package qdlock provides the queue-delegation lock: a lock whose
// current holder executes requests deposited by contenders into a
// shared ring buffer, so contenders never wait on the lock itself.
package qdlock
