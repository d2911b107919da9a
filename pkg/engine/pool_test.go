// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPoolAlignment(t *testing.T) {
	p := NewBufferPool(4096)
	b := p.Acquire(100)
	require.NotNil(t, b)
	assert.Zero(t, uintptr(unsafe.Pointer(&b.B[0]))%4096)
	assert.Len(t, b.B, 100)
}

func TestBufferPoolDefaultAlignment(t *testing.T) {
	p := NewBufferPool(0)
	assert.Greater(t, p.Alignment(), 0)
}

func TestBufferPoolReuse(t *testing.T) {
	p := NewBufferPool(512)
	b1 := p.Acquire(4096)
	p.Release(b1)
	b2 := p.Acquire(2048)
	assert.Same(t, b1, b2, "idle entry with enough capacity should be reused")
	assert.Len(t, b2.B, 2048)
	assert.Equal(t, 1, p.Allocated())
}

func TestBufferPoolGrowsForLargerRequest(t *testing.T) {
	p := NewBufferPool(512)
	b1 := p.Acquire(512)
	p.Release(b1)
	b2 := p.Acquire(4096)
	assert.NotSame(t, b1, b2)
	assert.Equal(t, 2, p.Allocated())
}

func TestBufferPoolAccounting(t *testing.T) {
	p := NewBufferPool(512)
	b1 := p.Acquire(512)
	b2 := p.Acquire(512)
	assert.Equal(t, 2, p.CheckedOut())
	assert.Equal(t, 0, p.Idle())

	p.Release(b1)
	assert.Equal(t, 1, p.CheckedOut())
	assert.Equal(t, 1, p.Idle())

	p.Release(b2)
	assert.Equal(t, 0, p.CheckedOut())
	assert.Equal(t, 2, p.Idle())
	assert.Equal(t, 2, p.Allocated())
}
