// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"os"
	"unsafe"
)

// Buffer is one transfer buffer owned by a BufferPool. B is the
// aligned view handed to the channel; the pool keeps the raw
// allocation so callers never deal with the alignment bookkeeping.
type Buffer struct {
	raw []byte
	mem []byte // aligned, full capacity
	B   []byte // aligned, sized for the current request
}

// BufferPool owns reusable aligned transfer buffers for one worker.
// It is thread-confined by construction and never blocks: an empty
// idle list allocates a new entry. The number of entries checked out
// is bounded in practice by the worker's outstanding depth cap.
type BufferPool struct {
	align      int
	idle       []*Buffer
	allocated  int
	checkedOut int
}

// NewBufferPool returns a pool aligning entries to align bytes.
// align <= 0 selects the system page size.
func NewBufferPool(align int) *BufferPool {
	if align <= 0 {
		align = os.Getpagesize()
	}
	return &BufferPool{align: align}
}

// Acquire returns an idle entry of at least size bytes, allocating a
// new entry if none fits. Must be paired with exactly one Release.
func (p *BufferPool) Acquire(size int) *Buffer {
	for i := len(p.idle) - 1; i >= 0; i-- {
		b := p.idle[i]
		if cap(b.mem) >= size {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			b.B = b.mem[:size]
			p.checkedOut++
			return b
		}
	}
	b := p.alloc(size)
	p.checkedOut++
	return b
}

// Release returns a buffer to the idle list for reuse.
func (p *BufferPool) Release(b *Buffer) {
	b.B = nil
	p.idle = append(p.idle, b)
	p.checkedOut--
}

func (p *BufferPool) alloc(size int) *Buffer {
	raw := make([]byte, size+p.align)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) % uintptr(p.align)); rem != 0 {
		off = p.align - rem
	}
	mem := raw[off:]
	p.allocated++
	return &Buffer{raw: raw, mem: mem, B: mem[:size]}
}

// Idle reports the number of entries currently in the idle list.
func (p *BufferPool) Idle() int { return len(p.idle) }

// Allocated reports the total number of entries ever allocated.
func (p *BufferPool) Allocated() int { return p.allocated }

// CheckedOut reports the number of entries currently checked out.
func (p *BufferPool) CheckedOut() int { return p.checkedOut }

// Alignment reports the pool's byte alignment.
func (p *BufferPool) Alignment() int { return p.align }
