// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddrRangeBounds(t *testing.T) {
	r := newAddrRange(100, 199, 1)
	for i := 0; i < 1000; i++ {
		lba := r.Next()
		assert.GreaterOrEqual(t, lba, uint64(100))
		assert.LessOrEqual(t, lba, uint64(199))
	}
	assert.Equal(t, 1000, r.calls)
}

// A fixed address must not consume randomness at all.
func TestAddrRangeDegenerate(t *testing.T) {
	r := newAddrRange(100, 100, 1)
	for i := 0; i < 10; i++ {
		assert.Equal(t, uint64(100), r.Next())
	}
	assert.Zero(t, r.calls)
}

func TestAddrRangeDeterministic(t *testing.T) {
	a := newAddrRange(0, 1<<40, 42)
	b := newAddrRange(0, 1<<40, 42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestAddrRangeHugeSpan(t *testing.T) {
	r := newAddrRange(0, ^uint64(0), 7)
	for i := 0; i < 100; i++ {
		r.Next() // must not panic on spans beyond Int63n's reach
	}
	assert.Equal(t, 100, r.calls)
}
