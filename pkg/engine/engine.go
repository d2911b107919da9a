// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// WaitMode selects how the completion path suspends when nothing has
// finished yet.
type WaitMode int

const (
	WaitYield WaitMode = iota // retry immediately, yielding the processor
	WaitPoll                  // poll the channel for readiness
	WaitSleep                 // sleep a fixed interval
)

// Config is the engine's full configuration surface. The coordinator
// validates it before any worker is spawned; validation failures are
// fatal before any device handle is opened.
type Config struct {
	Device         string
	Workers        int
	Commands       int // per worker
	MaxOutstanding int // depth cap per worker
	Op             Op
	LBA            uint64
	LBAHigh        uint64 // 0 = fixed address at LBA
	BlockSize      int
	Blocks         int // blocks per command
	Wait           WaitMode
	PollInterval   time.Duration
	Favor          Favor
	ForceID        bool
	Timing         bool
	NoXfer         bool
	Timeout        time.Duration
	Seed           int64
	Align          int // buffer alignment; 0 = page size

	Scheduler Scheduler
}

func (c *Config) rangeHigh() uint64 {
	if c.LBAHigh == 0 {
		return c.LBA
	}
	return c.LBAHigh
}

func (c *Config) validate() error {
	if c.Device == "" {
		return errors.New("no device given")
	}
	if c.Workers < 1 || c.Workers > 1024 {
		return fmt.Errorf("worker count %d out of range [1,1024]", c.Workers)
	}
	if c.Commands < 0 {
		return fmt.Errorf("negative command count %d", c.Commands)
	}
	if c.MaxOutstanding < 1 || c.MaxOutstanding > 16384 {
		return fmt.Errorf("outstanding depth %d out of range [1,16384]", c.MaxOutstanding)
	}
	switch c.Op {
	case OpNone, OpRead, OpWrite:
	default:
		return fmt.Errorf("unknown operation %d", int(c.Op))
	}
	if c.Op != OpNone {
		if c.BlockSize < 512 {
			return fmt.Errorf("block size %d below 512", c.BlockSize)
		}
		if c.Blocks < 1 {
			return fmt.Errorf("blocks per command %d below 1", c.Blocks)
		}
	}
	if c.LBAHigh != 0 && c.LBAHigh < c.LBA {
		return fmt.Errorf("address range [%d,%d] is inverted", c.LBA, c.LBAHigh)
	}
	switch c.Wait {
	case WaitYield:
	case WaitPoll, WaitSleep:
		if c.PollInterval <= 0 {
			return errors.New("poll/sleep wait mode needs a positive interval")
		}
	default:
		return fmt.Errorf("unknown wait mode %d", int(c.Wait))
	}
	switch c.Favor {
	case FavorBalanced, FavorCompletions, FavorSubmissions:
	default:
		return fmt.Errorf("unknown favor policy %d", int(c.Favor))
	}
	return nil
}

// Engine coordinates one run: one channel and one OS thread per
// worker, started together and joined unconditionally before the
// statistics snapshot is read.
type Engine struct {
	cfg   Config
	stats Stats
}

// New validates the configuration and prepares a run.
func New(cfg Config) (*Engine, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = osScheduler{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Stats exposes the live counter set. Safe to read concurrently with a
// run; the values are only authoritative after Run returns.
func (e *Engine) Stats() *Stats {
	return &e.stats
}

// LatencySummary is the aggregated per-command round-trip accounting,
// present only when timing was requested.
type LatencySummary struct {
	Count int64
	Mean  time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Report is the end-of-run result. A run that aborts still produces a
// report with the partial counter snapshot.
type Report struct {
	Counters Snapshot
	Elapsed  time.Duration
	IOPS     float64
	Latency  *LatencySummary
}

// Run opens one channel per worker, runs every worker to completion on
// its own OS thread, joins them all, and returns the aggregated
// report. The returned error is non-nil if any worker aborted; the
// report is valid either way.
func (e *Engine) Run(open OpenFunc) (*Report, error) {
	chs := make([]Channel, e.cfg.Workers)
	for i := range chs {
		ch, err := open(e.cfg.Device)
		if err != nil {
			for j := 0; j < i; j++ {
				chs[j].Close()
			}
			return nil, fmt.Errorf("open %s: %w", e.cfg.Device, err)
		}
		chs[i] = ch
	}

	start := time.Now()
	errs := make([]error, e.cfg.Workers)
	lats := make([]latencyAgg, e.cfg.Workers)
	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// One OS thread per worker for the lifetime of its handle.
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			w := newWorker(i, chs[i], &e.cfg, &e.stats)
			errs[i] = w.run()
			lats[i] = w.lat
			chs[i].Close()
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	rep := &Report{
		Counters: e.stats.Snapshot(),
		Elapsed:  elapsed,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		rep.IOPS = float64(rep.Counters.AsyncFinishes) / secs
	}
	if e.cfg.Timing {
		var agg latencyAgg
		for _, l := range lats {
			agg.merge(l)
		}
		if agg.count > 0 {
			rep.Latency = &LatencySummary{
				Count: agg.count,
				Mean:  agg.sum / time.Duration(agg.count),
				Min:   agg.min,
				Max:   agg.max,
			}
		}
	}
	return rep, errors.Join(errs...)
}
