// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInflightAddRemove(t *testing.T) {
	tbl := newInflightTable(4)
	require.NoError(t, tbl.Add(inflightEntry{id: 7, lba: 42}))
	assert.Equal(t, 1, tbl.Len())

	e, ok := tbl.Remove(7)
	require.True(t, ok)
	assert.Equal(t, uint64(42), e.lba)
	assert.Equal(t, 0, tbl.Len())

	_, ok = tbl.Remove(7)
	assert.False(t, ok)
}

func TestInflightDuplicate(t *testing.T) {
	tbl := newInflightTable(4)
	require.NoError(t, tbl.Add(inflightEntry{id: 3}))
	assert.Error(t, tbl.Add(inflightEntry{id: 3}))
}

func TestInflightInvalidID(t *testing.T) {
	tbl := newInflightTable(4)
	assert.Error(t, tbl.Add(inflightEntry{id: 0}))
	assert.Error(t, tbl.Add(inflightEntry{id: -1}))
}

// Ids are process-wide, so a table can see ids that collide modulo its
// slot count. Colliding entries spill to the overflow map and must stay
// individually retrievable.
func TestInflightSlotCollision(t *testing.T) {
	tbl := newInflightTable(2) // 4 slots
	c := len(tbl.slots)
	require.NoError(t, tbl.Add(inflightEntry{id: 1, lba: 10}))
	require.NoError(t, tbl.Add(inflightEntry{id: 1 + c, lba: 20}))
	require.NoError(t, tbl.Add(inflightEntry{id: 1 + 2*c, lba: 30}))
	assert.Equal(t, 3, tbl.Len())

	assert.Error(t, tbl.Add(inflightEntry{id: 1 + c}), "overflow duplicate must be rejected")

	e, ok := tbl.Remove(1 + c)
	require.True(t, ok)
	assert.Equal(t, uint64(20), e.lba)
	e, ok = tbl.Remove(1)
	require.True(t, ok)
	assert.Equal(t, uint64(10), e.lba)
	e, ok = tbl.Remove(1 + 2*c)
	require.True(t, ok)
	assert.Equal(t, uint64(30), e.lba)
	assert.Equal(t, 0, tbl.Len())
}

func TestInflightDrain(t *testing.T) {
	tbl := newInflightTable(2)
	c := len(tbl.slots)
	require.NoError(t, tbl.Add(inflightEntry{id: 2}))
	require.NoError(t, tbl.Add(inflightEntry{id: 2 + c}))
	require.NoError(t, tbl.Add(inflightEntry{id: 5}))

	out := tbl.Drain()
	assert.Len(t, out, 3)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Drain())
}
