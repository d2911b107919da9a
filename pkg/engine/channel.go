// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine drives many outstanding pass-through commands per
// device handle concurrently across a configurable number of worker
// threads, with explicit backpressure, retry and buffer-pool
// management. The transport (one open device connection, called the
// channel) is consumed through the Channel interface; the sg
// implementation lives in pkg/sgasync.
package engine

import (
	"errors"
	"time"
)

// Op is the operation kind of one request.
type Op int

const (
	OpNone Op = iota // status check only (TEST UNIT READY)
	OpRead
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return "tur"
	}
}

// Transient channel conditions. Implementations wrap or return these
// so the engine can classify rejections without knowing errno values.
var (
	// ErrAgain: the channel queue is momentarily saturated; retry.
	ErrAgain = errors.New("channel queue momentarily full")
	// ErrBusy: the device is busy; retry.
	ErrBusy = errors.New("device busy")
	// ErrTooLarge: the request exceeds the channel's current
	// acceptance limit; shrink and retry the same request.
	ErrTooLarge = errors.New("request exceeds channel acceptance limit")
	// ErrDomain: the channel rejected the request's parameters; retry.
	ErrDomain = errors.New("request rejected by channel")
	// ErrNotReady: no completion is ready yet.
	ErrNotReady = errors.New("no completion ready")
)

// Command is one asynchronous request handed to the channel. Buf is
// borrowed from the worker's buffer pool and stays owned by the request
// until its completion is retrieved.
type Command struct {
	PackID  int
	Op      Op
	LBA     uint64
	Blocks  int
	Buf     []byte
	NoXfer  bool
	Timeout time.Duration
}

// Outcome classifies a retrieved completion.
type Outcome int

const (
	OutcomeClean Outcome = iota
	OutcomeRecovered
	OutcomeUnitAttention
	OutcomeError
)

// Completion is one finished request as reported by the channel.
type Completion struct {
	PackID   int
	Outcome  Outcome
	Detail   string        // diagnostic context for non-clean outcomes
	Duration time.Duration // device-reported command duration
}

// Channel is the transport capability for one open device connection.
// A Channel is owned by exactly one worker and is not safe for
// concurrent use.
type Channel interface {
	// Submit hands one request to the channel. Transient rejections
	// are reported as ErrAgain, ErrBusy, ErrTooLarge or ErrDomain.
	Submit(cmd *Command) error
	// Complete retrieves the next finished request. If expectID > 0
	// only a completion bearing that pack id is accepted. ErrNotReady
	// is returned when nothing has finished yet.
	Complete(expectID int) (Completion, error)
	// Waiting reports how many completions are ready to be retrieved.
	Waiting() (int, error)
	// MaxTransfer reports the channel's current per-request byte limit.
	MaxTransfer() (int, error)
	// Wait blocks until a completion is ready or the timeout elapses.
	Wait(timeout time.Duration) error
	Close() error
}

// OpenFunc opens one channel to the named device. The coordinator calls
// it once per worker.
type OpenFunc func(device string) (Channel, error)
