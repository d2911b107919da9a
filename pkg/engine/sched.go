// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"runtime"
	"time"
)

// Scheduler abstracts processor yielding and sleeping between hot-path
// retries so tests can substitute a deterministic fake.
type Scheduler interface {
	Yield()
	Sleep(d time.Duration)
}

type osScheduler struct{}

func (osScheduler) Yield()                { runtime.Gosched() }
func (osScheduler) Sleep(d time.Duration) { time.Sleep(d) }
