// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import "sync/atomic"

// Stats is the process-wide event counter set. Workers only increment;
// the coordinator reads one snapshot after all workers have joined.
// No ordering is implied between counters of different kinds.
type Stats struct {
	SyncStarts     atomic.Int64
	AsyncStarts    atomic.Int64
	AsyncFinishes  atomic.Int64
	EAgain         atomic.Int64 // queue momentarily full on submit
	EBusy          atomic.Int64 // device busy on submit
	E2Big          atomic.Int64 // request over the acceptance limit
	EDom           atomic.Int64 // parameter rejection on submit
	UnitAttentions atomic.Int64 // tolerated initial-attention completions
}

// Snapshot is a plain copy of the counters at one point in time.
type Snapshot struct {
	SyncStarts     int64
	AsyncStarts    int64
	AsyncFinishes  int64
	EAgain         int64
	EBusy          int64
	E2Big          int64
	EDom           int64
	UnitAttentions int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		SyncStarts:     s.SyncStarts.Load(),
		AsyncStarts:    s.AsyncStarts.Load(),
		AsyncFinishes:  s.AsyncFinishes.Load(),
		EAgain:         s.EAgain.Load(),
		EBusy:          s.EBusy.Load(),
		E2Big:          s.E2Big.Load(),
		EDom:           s.EDom.Load(),
		UnitAttentions: s.UnitAttentions.Load(),
	}
}
