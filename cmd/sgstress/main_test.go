// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"path/filepath"
	"testing"
)

// A bad device path must surface as an error, not a panic, even though
// the failed run has no counter report to print.
func TestRunOpenFailure(t *testing.T) {
	cli.Device = filepath.Join(t.TempDir(), "no-such-sg-node")
	cli.Threads = 1
	cli.Num = 1
	cli.MaxQ = 1
	cli.Op = "tur"
	cli.Wait = "yield"
	cli.Favor = "balanced"
	cli.Stats = true

	if err := run(); err == nil {
		t.Fatal("run succeeded against a nonexistent device")
	}

	cli.Stats = false
	cli.Metrics = true
	if err := run(); err == nil {
		t.Fatal("run succeeded against a nonexistent device")
	}
}
