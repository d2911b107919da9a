// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Consecutive transient submit rejections before the submission
	// path gives up and reports Busy to the worker loop.
	maxSubmitAttempts = 1000
	// Sanity ceiling for id-forced completion retrieval. A forced id
	// that never appears means the channel lost the request.
	forceRetryCeiling = 1000000
)

// packIDSeq assigns process-wide correlation ids. The sg wire carries
// pack ids as a 32-bit int, so the sequence stays int32 and wraps back
// to 1 past the ceiling. Id 0 is never issued (a slot arena uses it as
// the free marker) and negative ids never escape (-1 is the driver's
// "any id" sentinel on retrieval).
var packIDSeq atomic.Int32

func nextPackID() int {
	id := packIDSeq.Add(1)
	for id <= 0 {
		packIDSeq.CompareAndSwap(id, 0)
		id = packIDSeq.Add(1)
	}
	return int(id)
}

// consoleMu serializes diagnostic printing from multiple workers.
var consoleMu sync.Mutex

func diagf(format string, args ...interface{}) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	log.Printf(format, args...)
}

type workerState int

const (
	stateFilling workerState = iota
	stateDraining
	stateAwaitRetry // hold a TooLarge-rejected request, drain one, resubmit
	stateFinished
	stateAborted
)

type submitStatus int

const (
	submitOK submitStatus = iota
	submitBusy
	submitTooLarge
	submitFatal
)

// request is the unit of work. Its pack id survives a Busy or TooLarge
// rejection; it is destroyed only after its completion is processed.
type request struct {
	id     int
	op     Op
	lba    uint64
	blocks int
	buf    *Buffer
}

// latencyAgg accumulates per-command round-trip times for one worker.
type latencyAgg struct {
	count int64
	sum   time.Duration
	min   time.Duration
	max   time.Duration
}

func (a *latencyAgg) add(d time.Duration) {
	a.count++
	a.sum += d
	if a.min == 0 || d < a.min {
		a.min = d
	}
	if d > a.max {
		a.max = d
	}
}

func (a *latencyAgg) merge(o latencyAgg) {
	if o.count == 0 {
		return
	}
	a.count += o.count
	a.sum += o.sum
	if a.min == 0 || (o.min != 0 && o.min < a.min) {
		a.min = o.min
	}
	if o.max > a.max {
		a.max = o.max
	}
}

// worker runs a bounded, terminating run of cfg.Commands commands over
// one exclusively owned channel. No state is shared with other workers
// except the Stats counters and the console guard.
type worker struct {
	id    int
	ch    Channel
	cfg   *Config
	stats *Stats
	sched Scheduler

	pool  *BufferPool
	table *inflightTable
	addr  *addrRange
	order []int // submission order, tracked only in force-id mode

	remaining int
	xferBytes int // effective transfer size, shrinks on TooLarge
	pending   *request
	state     workerState
	err       error
	lat       latencyAgg
}

func newWorker(id int, ch Channel, cfg *Config, stats *Stats) *worker {
	w := &worker{
		id:        id,
		ch:        ch,
		cfg:       cfg,
		stats:     stats,
		sched:     cfg.Scheduler,
		pool:      NewBufferPool(cfg.Align),
		table:     newInflightTable(cfg.MaxOutstanding),
		addr:      newAddrRange(cfg.LBA, cfg.rangeHigh(), cfg.Seed+int64(id)),
		remaining: cfg.Commands,
		xferBytes: cfg.BlockSize * cfg.Blocks,
	}
	return w
}

func (w *worker) run() error {
	defer w.unwind()
	for {
		switch w.state {
		case stateFilling:
			w.fill()
		case stateDraining:
			w.drain()
		case stateAwaitRetry:
			w.awaitRetry()
		case stateFinished:
			return nil
		case stateAborted:
			return w.err
		}
	}
}

func (w *worker) fill() {
	if w.remaining == 0 {
		if w.table.Len() == 0 {
			w.state = stateFinished
			return
		}
		w.state = stateDraining
		return
	}
	if w.table.Len() >= w.cfg.MaxOutstanding {
		// Depth is a hard ceiling; drain before submitting again.
		w.state = stateDraining
		return
	}
	if w.pending == nil {
		w.pending = w.newRequest()
	}
	switch w.submit(w.pending) {
	case submitOK:
		w.pending = nil
		w.remaining--
		w.state = stateDraining
	case submitBusy:
		// Not yet submitted; keep the request (same pack id) and
		// drain to relieve the queue.
		w.state = stateDraining
	case submitTooLarge:
		w.state = stateAwaitRetry
	case submitFatal:
		w.state = stateAborted
	}
}

func (w *worker) drain() {
	waiting, err := w.ch.Waiting()
	if err != nil {
		w.fail(fmt.Errorf("outstanding count: %w", err))
		return
	}
	n := DrainCount(w.table.Len(), w.cfg.MaxOutstanding, w.remaining, waiting, w.cfg.Favor)
	for i := 0; i < n; i++ {
		if !w.completeOne() {
			return
		}
	}
	w.state = stateFilling
}

// awaitRetry recovers from a TooLarge rejection: shrink the effective
// transfer size to the channel's current limit, force-drain one
// completion, then resubmit the held request under its original id.
func (w *worker) awaitRetry() {
	limit, err := w.ch.MaxTransfer()
	if err != nil {
		w.fail(fmt.Errorf("acceptance limit: %w", err))
		return
	}
	if !w.shrinkTo(limit) {
		return
	}
	if w.table.Len() > 0 {
		if !w.completeOne() {
			return
		}
	}
	w.state = stateFilling
}

func (w *worker) shrinkTo(limit int) bool {
	blocks := limit / w.cfg.BlockSize
	if blocks < 1 {
		w.fail(fmt.Errorf("channel limit %d below one block of %d bytes", limit, w.cfg.BlockSize))
		return false
	}
	if blocks > w.cfg.Blocks {
		blocks = w.cfg.Blocks
	}
	w.xferBytes = blocks * w.cfg.BlockSize
	if r := w.pending; r != nil {
		r.blocks = blocks
		if r.buf != nil {
			r.buf.B = r.buf.B[:w.xferBytes]
		}
	}
	return true
}

func (w *worker) newRequest() *request {
	r := &request{id: nextPackID(), op: w.cfg.Op}
	if r.op != OpNone {
		r.lba = w.addr.Next()
		r.blocks = w.xferBytes / w.cfg.BlockSize
		r.buf = w.pool.Acquire(w.xferBytes)
	}
	return r
}

// submit is the submission path. Transient shortages are retried in
// place with a scheduler yield, counting every observed condition so a
// run's retry pressure stays observable afterward.
func (w *worker) submit(r *request) submitStatus {
	cmd := Command{
		PackID:  r.id,
		Op:      r.op,
		LBA:     r.lba,
		Blocks:  r.blocks,
		NoXfer:  w.cfg.NoXfer,
		Timeout: w.cfg.Timeout,
	}
	if r.buf != nil {
		cmd.Buf = r.buf.B
	}
	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		err := w.ch.Submit(&cmd)
		if err == nil {
			e := inflightEntry{id: r.id, buf: r.buf, lba: r.lba}
			if w.cfg.Timing {
				e.issued = time.Now()
			}
			if err := w.table.Add(e); err != nil {
				w.err = fmt.Errorf("worker %d: %w", w.id, err)
				return submitFatal
			}
			if w.cfg.ForceID {
				w.order = append(w.order, r.id)
			}
			w.stats.AsyncStarts.Add(1)
			return submitOK
		}
		switch {
		case errors.Is(err, ErrAgain):
			w.stats.EAgain.Add(1)
			w.sched.Yield()
		case errors.Is(err, ErrBusy):
			w.stats.EBusy.Add(1)
			w.sched.Yield()
		case errors.Is(err, ErrDomain):
			w.stats.EDom.Add(1)
			w.sched.Yield()
		case errors.Is(err, ErrTooLarge):
			w.stats.E2Big.Add(1)
			return submitTooLarge
		default:
			w.err = fmt.Errorf("worker %d: submit pack id %d %s lba %d: %w",
				w.id, r.id, r.op, r.lba, err)
			return submitFatal
		}
	}
	return submitBusy
}

// completeOne is the completion path: retrieve one finished request,
// correlate it against the in-flight table, classify it, and release
// its buffer. Returns false after moving the worker to stateAborted.
func (w *worker) completeOne() bool {
	expect := 0
	if w.cfg.ForceID && len(w.order) > 0 {
		expect = w.order[0]
	}
	attempts := 0
	for {
		c, err := w.ch.Complete(expect)
		if err != nil {
			if errors.Is(err, ErrNotReady) {
				attempts++
				if expect > 0 && attempts >= forceRetryCeiling {
					w.fail(fmt.Errorf("pack id %d never completed (%d attempts)", expect, attempts))
					return false
				}
				w.await()
				continue
			}
			w.fail(fmt.Errorf("completion: %w", err))
			return false
		}

		e, ok := w.table.Remove(c.PackID)
		if !ok {
			w.fail(fmt.Errorf("completion for unknown pack id %d", c.PackID))
			return false
		}
		if w.cfg.ForceID {
			w.dropOrder(c.PackID)
		}
		if e.buf != nil {
			w.pool.Release(e.buf)
		}

		switch c.Outcome {
		case OutcomeUnitAttention:
			// Benign initial-attention condition: tolerated, counted,
			// and the command did complete.
			w.stats.UnitAttentions.Add(1)
		case OutcomeError:
			w.fail(fmt.Errorf("pack id %d %s lba %d: %s", c.PackID, w.cfg.Op, e.lba, c.Detail))
			return false
		}
		if w.cfg.Timing && !e.issued.IsZero() {
			w.lat.add(time.Since(e.issued))
		}
		w.stats.AsyncFinishes.Add(1)
		return true
	}
}

// await suspends between completion retries per the configured wait
// mode: yield the processor, sleep a fixed interval, or poll the
// channel for readiness.
func (w *worker) await() {
	switch w.cfg.Wait {
	case WaitSleep:
		w.sched.Sleep(w.cfg.PollInterval)
	case WaitPoll:
		_ = w.ch.Wait(w.cfg.PollInterval)
	default:
		w.sched.Yield()
	}
}

func (w *worker) dropOrder(id int) {
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}

func (w *worker) fail(err error) {
	w.err = fmt.Errorf("worker %d: %w", w.id, err)
	w.state = stateAborted
	diagf("worker %d aborted: %v", w.id, err)
}

// unwind gives outstanding buffers back to the pool best-effort. The
// coordinator still joins and closes the channel regardless of outcome.
func (w *worker) unwind() {
	if w.pending != nil && w.pending.buf != nil {
		w.pool.Release(w.pending.buf)
		w.pending = nil
	}
	for _, e := range w.table.Drain() {
		if e.buf != nil {
			w.pool.Release(e.buf)
		}
	}
}
