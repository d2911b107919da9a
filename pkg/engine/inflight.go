// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"time"
)

// inflightEntry records what one outstanding request owns.
type inflightEntry struct {
	id     int
	buf    *Buffer
	lba    uint64
	issued time.Time // zero unless timing was requested
}

// inflightTable maps pack ids to the buffer and address they own while
// outstanding. The hot path uses a fixed slot arena indexed by id
// modulo capacity; pack ids are process-wide, so colliding ids fall
// back to a small overflow map.
type inflightTable struct {
	slots    []inflightEntry // id == 0 marks a free slot
	overflow map[int]inflightEntry
	n        int
}

func newInflightTable(depth int) *inflightTable {
	c := 2 * depth
	if c < 4 {
		c = 4
	}
	return &inflightTable{
		slots:    make([]inflightEntry, c),
		overflow: make(map[int]inflightEntry),
	}
}

func (t *inflightTable) Len() int { return t.n }

// Add registers an outstanding request. Registering an id that is
// already present is a consistency violation.
func (t *inflightTable) Add(e inflightEntry) error {
	if e.id <= 0 {
		return fmt.Errorf("invalid pack id %d", e.id)
	}
	i := e.id % len(t.slots)
	switch {
	case t.slots[i].id == 0:
		t.slots[i] = e
	case t.slots[i].id == e.id:
		return fmt.Errorf("pack id %d already outstanding", e.id)
	default:
		if _, dup := t.overflow[e.id]; dup {
			return fmt.Errorf("pack id %d already outstanding", e.id)
		}
		t.overflow[e.id] = e
	}
	t.n++
	return nil
}

// Remove takes an outstanding request out of the table.
func (t *inflightTable) Remove(id int) (inflightEntry, bool) {
	i := id % len(t.slots)
	if t.slots[i].id == id {
		e := t.slots[i]
		t.slots[i] = inflightEntry{}
		t.n--
		return e, true
	}
	if e, ok := t.overflow[id]; ok {
		delete(t.overflow, id)
		t.n--
		return e, true
	}
	return inflightEntry{}, false
}

// Drain empties the table, returning every entry. Used by the abort
// unwind path to give buffers back to the pool.
func (t *inflightTable) Drain() []inflightEntry {
	out := make([]inflightEntry, 0, t.n)
	for i := range t.slots {
		if t.slots[i].id != 0 {
			out = append(out, t.slots[i])
			t.slots[i] = inflightEntry{}
		}
	}
	for id, e := range t.overflow {
		out = append(out, e)
		delete(t.overflow, id)
	}
	t.n = 0
	return out
}
