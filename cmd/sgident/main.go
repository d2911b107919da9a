// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"

	"github.com/open-storage-tools/go-sg-tools/pkg/drive"
	"github.com/open-storage-tools/go-sg-tools/pkg/sgio"
)

const (
	programName = "sgident"
	programDesc = "Identify one pass-through device and dump its raw INQUIRY data"
)

var cli struct {
	Device string `arg:"" help:"Device node (e.g. /dev/sg1 or /dev/sda)"`
	Raw    bool   `short:"r" help:"Dump the raw decoded structures"`
}

func main() {
	kong.Parse(&cli,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError())
	spew.Config.Indent = "  "

	d, err := drive.Open(cli.Device)
	if err != nil {
		log.Fatalf("drive.Open: %v", err)
	}
	defer d.Close()

	id, err := d.Identify()
	if err != nil {
		log.Fatalf("drive.Identify: %v", err)
	}
	log.Printf("Drive identity: %s", id)

	if v, err := d.SGVersion(); err != nil {
		log.Printf("Not an sg node (asynchronous interface unavailable): %v", err)
	} else {
		log.Printf("sg driver version: %d.%d.%d", v/10000, (v/100)%100, v%100)
		if r, err := sgio.ReservedSize(d.Fd()); err == nil {
			log.Printf("Reserved transfer buffer: %d bytes", r)
		}
	}

	lastLBA, blockSize, err := d.Capacity()
	if err != nil {
		log.Printf("drive.Capacity: %v", err)
	} else {
		bytes := (lastLBA + 1) * uint64(blockSize)
		log.Printf("Capacity: %d blocks of %d bytes (%.1f GB)",
			lastLBA+1, blockSize, float64(bytes)/1e9)
	}

	if err := d.TestUnitReady(); err != nil {
		log.Printf("TEST UNIT READY: %v", err)
	} else {
		log.Printf("TEST UNIT READY: ok")
	}

	if cli.Raw {
		inq, err := sgio.SCSIInquiry(d.Fd())
		if err != nil {
			log.Fatalf("sgio.SCSIInquiry: %v", err)
		}
		fmt.Printf("===> RAW INQUIRY\n")
		spew.Dump(inq)
		spew.Dump(id)
	}
}
