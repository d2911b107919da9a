// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/open-storage-tools/go-sg-tools/pkg/drive"
)

var (
	outputFmt = flag.String("output", "table", "Output format; one of [table, json, openmetrics]")
	noHeader  = flag.Bool("no-header", false, "Suppress the header in table format output")
)

type DeviceState struct {
	Device    string
	Identity  *drive.Identity
	LastLBA   uint64
	BlockSize uint32
	SGDriver  int // sg driver version, 0 when the node has no sg interface
}

type Devices []DeviceState

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		fmt.Println()
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Lists pass-through capable block devices with identity and capacity.")
		fmt.Println()
	}
	flag.Parse()

	devs, err := drive.Enumerate()
	if err != nil {
		log.Printf("Failed to enumerate block devices: %v", err)
		return
	}

	var state Devices

	for _, devpath := range devs {
		d, err := drive.Open(devpath)
		if err != nil {
			log.Printf("drive.Open(%s): %v", devpath, err)
			continue
		}
		identity, err := d.Identify()
		if err != nil {
			log.Printf("drive.Identify(%s): %v", devpath, err)
			d.Close()
			continue
		}
		s := DeviceState{Device: devpath, Identity: identity}
		if last, bs, err := d.Capacity(); err == nil {
			s.LastLBA = last
			s.BlockSize = bs
		}
		if v, err := d.SGVersion(); err == nil {
			s.SGDriver = v
		}
		d.Close()
		state = append(state, s)
	}

	switch *outputFmt {
	case "json":
		outputJSON(state)
	case "openmetrics":
		outputMetrics(state)
	case "table":
		outputTable(state)
	default:
		fmt.Printf("Unsupported output format %q\n", *outputFmt)
		flag.Usage()
		os.Exit(2)
	}
}

func outputJSON(state Devices) {
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal JSON: %v", err)
	}
	os.Stdout.Write(b)
}

func sizeString(s DeviceState) string {
	if s.BlockSize == 0 {
		return "-"
	}
	bytes := (s.LastLBA + 1) * uint64(s.BlockSize)
	return fmt.Sprintf("%.1fGB", float64(bytes)/1e9)
}

func sgString(s DeviceState) string {
	if s.SGDriver == 0 {
		return "-"
	}
	return fmt.Sprintf("%d.%d.%d", s.SGDriver/10000, (s.SGDriver/100)%100, s.SGDriver%100)
}

func outputTable(state Devices) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	if !*noHeader {
		fmt.Fprintf(w, "DEVICE\tMODEL\tSERIAL\tFIRMWARE\tPROTOCOL\tSIZE\tSG\n")
	}
	for _, s := range state {
		serial := s.Identity.SerialNumber
		if strings.TrimSpace(serial) == "" {
			serial = "-"
		}
		fmt.Fprint(w,
			s.Device, "\t",
			s.Identity.Model, "\t",
			serial, "\t",
			s.Identity.Firmware, "\t",
			s.Identity.Protocol, "\t",
			sizeString(s), "\t",
			sgString(s), "\t",
			"\n")
	}
	w.Flush()
}
