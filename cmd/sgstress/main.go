// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/open-storage-tools/go-sg-tools/pkg/drive"
	"github.com/open-storage-tools/go-sg-tools/pkg/engine"
	"github.com/open-storage-tools/go-sg-tools/pkg/sgasync"
)

const (
	programName = "sgstress"
	programDesc = "Asynchronous sg pass-through command stress driver"
)

var cli struct {
	Device    string        `arg:"" help:"sg device node (e.g. /dev/sg1)"`
	Threads   int           `short:"t" default:"1" help:"Number of worker threads"`
	Num       int           `short:"n" default:"1" help:"Commands issued per worker"`
	MaxQ      int           `short:"q" default:"16" help:"Maximum outstanding commands per worker"`
	Op        string        `short:"o" default:"tur" enum:"tur,read,write" help:"Operation issued by every command"`
	Lba       uint64        `help:"Fixed (or low) logical block address"`
	LbaHigh   uint64        `help:"High LBA of the random address range (0 = fixed address)"`
	WholeDisk bool          `help:"Spread the address range over the whole device"`
	Bs        int           `default:"512" help:"Logical block size in bytes"`
	Blocks    int           `default:"1" help:"Blocks transferred per command"`
	Wait      string        `default:"yield" enum:"yield,poll,sleep" help:"Completion wait mode"`
	Interval  time.Duration `default:"2ms" help:"Interval for the poll and sleep wait modes"`
	Favor     string        `default:"balanced" enum:"balanced,completions,submissions" help:"Queue discipline policy"`
	ForceID   bool          `name:"force-id" help:"Retrieve completions by pack id in submission order"`
	Time      bool          `help:"Record per-command round-trip times"`
	NoXfer    bool          `name:"no-xfer" help:"Issue commands without data transfer (SG_FLAG_NO_DXFER)"`
	Timeout   time.Duration `default:"60s" help:"Per-command timeout"`
	Seed      int64         `help:"Random seed (0 = time-based)"`
	Stats     bool          `short:"s" help:"Print the counter report"`
	Metrics   bool          `help:"Emit the counter report as OpenMetrics text"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	err := run()
	ctx.FatalIfErrorf(err)
}

func parseOp(s string) engine.Op {
	switch s {
	case "read":
		return engine.OpRead
	case "write":
		return engine.OpWrite
	}
	return engine.OpNone
}

func parseWait(s string) engine.WaitMode {
	switch s {
	case "poll":
		return engine.WaitPoll
	case "sleep":
		return engine.WaitSleep
	}
	return engine.WaitYield
}

func parseFavor(s string) engine.Favor {
	switch s {
	case "completions":
		return engine.FavorCompletions
	case "submissions":
		return engine.FavorSubmissions
	}
	return engine.FavorBalanced
}

func run() error {
	cfg := engine.Config{
		Device:         cli.Device,
		Workers:        cli.Threads,
		Commands:       cli.Num,
		MaxOutstanding: cli.MaxQ,
		Op:             parseOp(cli.Op),
		LBA:            cli.Lba,
		LBAHigh:        cli.LbaHigh,
		BlockSize:      cli.Bs,
		Blocks:         cli.Blocks,
		Wait:           parseWait(cli.Wait),
		PollInterval:   cli.Interval,
		Favor:          parseFavor(cli.Favor),
		ForceID:        cli.ForceID,
		Timing:         cli.Time,
		NoXfer:         cli.NoXfer,
		Timeout:        cli.Timeout,
		Seed:           cli.Seed,
	}

	syncStarts := 0
	if cli.WholeDisk {
		if cli.LbaHigh != 0 {
			return errors.New("--whole-disk conflicts with --lba-high")
		}
		if cfg.Op == engine.OpNone {
			return errors.New("--whole-disk needs a read or write workload")
		}
		d, err := drive.Open(cli.Device)
		if err != nil {
			return fmt.Errorf("open %s: %w", cli.Device, err)
		}
		lastLBA, blockSize, err := d.Capacity()
		d.Close()
		if err != nil {
			return fmt.Errorf("read capacity: %w", err)
		}
		syncStarts++
		cfg.BlockSize = int(blockSize)
		if lastLBA < uint64(cfg.Blocks) {
			return fmt.Errorf("device too small: last LBA %d", lastLBA)
		}
		cfg.LBA = 0
		cfg.LBAHigh = lastLBA - uint64(cfg.Blocks) + 1
	}

	e, err := engine.New(cfg)
	if err != nil {
		return err
	}
	e.Stats().SyncStarts.Add(int64(syncStarts))

	stop := startProgress(e.Stats())
	rep, runErr := e.Run(sgasync.Opener(cfg.BlockSize * cfg.Blocks))
	stop()

	// A run that aborts early still reports the partial snapshot; a run
	// that never opened its device has nothing to report.
	if rep == nil {
		return runErr
	}
	if cli.Metrics {
		if err := outputMetrics(rep); err != nil {
			return err
		}
	} else if cli.Stats || runErr != nil {
		printReport(rep)
	}
	return runErr
}

// startProgress prints a live counter line while the run is in flight,
// but only when stderr is a terminal.
func startProgress(stats *engine.Stats) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		t := time.NewTicker(500 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				fmt.Fprintf(os.Stderr, "\r\033[K")
				return
			case <-t.C:
				s := stats.Snapshot()
				fmt.Fprintf(os.Stderr, "\rstarts=%d finishes=%d outstanding=%d",
					s.AsyncStarts, s.AsyncFinishes, s.AsyncStarts-s.AsyncFinishes)
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
