// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

// Favor is the queue discipline policy: the balance between draining
// completions and submitting new requests.
type Favor int

const (
	FavorBalanced Favor = iota
	FavorCompletions
	FavorSubmissions
)

func (f Favor) String() string {
	switch f {
	case FavorCompletions:
		return "completions"
	case FavorSubmissions:
		return "submissions"
	default:
		return "balanced"
	}
}

// DrainCount decides how many completions to drain this iteration
// before more requests may be submitted. The drain fractions are
// heuristic tuning, but two rules are hard: an exhausted submission
// budget drains everything outstanding, and a worker at its depth cap
// drains at least one before it may submit again.
func DrainCount(outstanding, depth, remaining, waiting int, favor Favor) int {
	if outstanding == 0 {
		return 0
	}
	if remaining == 0 {
		return outstanding
	}
	var n int
	switch favor {
	case FavorCompletions:
		n = waiting
	case FavorSubmissions:
		n = waiting
		if n > 1 {
			n = 1
		}
	default:
		n = (waiting + 1) / 2
	}
	if outstanding >= depth && n < 1 {
		n = 1
	}
	if n > outstanding {
		n = outstanding
	}
	return n
}
