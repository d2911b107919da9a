// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	base := Config{
		Device:         "/dev/sg1",
		Workers:        1,
		Commands:       1,
		MaxOutstanding: 1,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no device", func(c *Config) { c.Device = "" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"too many workers", func(c *Config) { c.Workers = 1025 }},
		{"negative commands", func(c *Config) { c.Commands = -1 }},
		{"zero depth", func(c *Config) { c.MaxOutstanding = 0 }},
		{"excessive depth", func(c *Config) { c.MaxOutstanding = 16385 }},
		{"read without block size", func(c *Config) { c.Op = OpRead; c.Blocks = 1 }},
		{"read without blocks", func(c *Config) { c.Op = OpRead; c.BlockSize = 512 }},
		{"inverted range", func(c *Config) { c.LBA = 100; c.LBAHigh = 50 }},
		{"poll without interval", func(c *Config) { c.Wait = WaitPoll }},
		{"sleep without interval", func(c *Config) { c.Wait = WaitSleep }},
		{"unknown favor", func(c *Config) { c.Favor = Favor(99) }},
		{"unknown op", func(c *Config) { c.Op = Op(99) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}

	t.Run("valid", func(t *testing.T) {
		e, err := New(base)
		require.NoError(t, err)
		assert.NotNil(t, e.Stats())
	})
}

func TestNewAppliesDefaults(t *testing.T) {
	e, err := New(Config{Device: "/dev/sg1", Workers: 1, Commands: 1, MaxOutstanding: 1})
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, e.cfg.Timeout)
	assert.NotZero(t, e.cfg.Seed)
	assert.NotNil(t, e.cfg.Scheduler)
}

func TestRunZeroCommands(t *testing.T) {
	e, err := New(Config{
		Device:         "fakedev",
		Workers:        2,
		Commands:       0,
		MaxOutstanding: 4,
		Scheduler:      &fakeScheduler{},
	})
	require.NoError(t, err)

	rep, err := e.Run(func(string) (Channel, error) { return newFakeChannel(), nil })
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, Snapshot{}, rep.Counters)
}

func TestRunMultiWorker(t *testing.T) {
	var opened []*fakeChannel
	open := func(string) (Channel, error) {
		fc := newFakeChannel()
		opened = append(opened, fc)
		return fc, nil
	}

	e, err := New(Config{
		Device:         "fakedev",
		Workers:        4,
		Commands:       100,
		MaxOutstanding: 8,
		Favor:          FavorCompletions,
		Scheduler:      &fakeScheduler{},
	})
	require.NoError(t, err)

	rep, err := e.Run(open)
	require.NoError(t, err)
	require.Len(t, opened, 4)

	assert.Equal(t, int64(400), rep.Counters.AsyncStarts)
	assert.Equal(t, int64(400), rep.Counters.AsyncFinishes)
	for _, fc := range opened {
		assert.True(t, fc.closed)
		assert.Equal(t, 100, fc.accepted)
	}
}

func TestRunOpenFailureClosesEarlierChannels(t *testing.T) {
	var opened []*fakeChannel
	open := func(string) (Channel, error) {
		if len(opened) == 2 {
			return nil, errors.New("device gone")
		}
		fc := newFakeChannel()
		opened = append(opened, fc)
		return fc, nil
	}

	e, err := New(Config{
		Device:         "fakedev",
		Workers:        3,
		Commands:       1,
		MaxOutstanding: 1,
		Scheduler:      &fakeScheduler{},
	})
	require.NoError(t, err)

	rep, err := e.Run(open)
	require.Error(t, err)
	assert.Nil(t, rep)
	require.Len(t, opened, 2)
	for _, fc := range opened {
		assert.True(t, fc.closed)
	}
}

func TestRunAbortYieldsPartialReport(t *testing.T) {
	open := func(string) (Channel, error) {
		fc := newFakeChannel()
		fc.outcomes = map[int]Outcome{3: OutcomeError}
		return fc, nil
	}

	e, err := New(Config{
		Device:         "fakedev",
		Workers:        1,
		Commands:       10,
		MaxOutstanding: 1,
		Scheduler:      &fakeScheduler{},
	})
	require.NoError(t, err)

	rep, err := e.Run(open)
	require.Error(t, err)
	require.NotNil(t, rep, "an aborted run still reports its partial counters")
	assert.Equal(t, int64(2), rep.Counters.AsyncFinishes)
	assert.Equal(t, int64(3), rep.Counters.AsyncStarts)
}

func TestRunReportsLatency(t *testing.T) {
	e, err := New(Config{
		Device:         "fakedev",
		Workers:        2,
		Commands:       10,
		MaxOutstanding: 2,
		Timing:         true,
		Scheduler:      &fakeScheduler{},
	})
	require.NoError(t, err)

	rep, err := e.Run(func(string) (Channel, error) { return newFakeChannel(), nil })
	require.NoError(t, err)
	require.NotNil(t, rep.Latency)
	assert.Equal(t, int64(20), rep.Latency.Count)
	assert.GreaterOrEqual(t, rep.Latency.Max, rep.Latency.Min)
}

func TestStatsSnapshot(t *testing.T) {
	var s Stats
	s.SyncStarts.Add(1)
	s.AsyncStarts.Add(5)
	s.AsyncFinishes.Add(5)
	s.EAgain.Add(2)

	snap := s.Snapshot()
	assert.Equal(t, int64(1), snap.SyncStarts)
	assert.Equal(t, int64(5), snap.AsyncStarts)
	assert.Equal(t, int64(5), snap.AsyncFinishes)
	assert.Equal(t, int64(2), snap.EAgain)
	assert.Zero(t, snap.EBusy)
}
