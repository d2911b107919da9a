// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drive

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/open-storage-tools/go-sg-tools/pkg/sgio"
)

var (
	ErrNotSupported       = errors.New("operation is not supported")
	ErrDeviceNotSupported = errors.New("device is not supported")
)

type Identity struct {
	Protocol     string
	SerialNumber string
	Model        string
	Firmware     string
}

func (i *Identity) String() string {
	return fmt.Sprintf("Protocol=%s, Model=%s, Serial=%s, Firmware=%s",
		i.Protocol, i.Model, i.SerialNumber, i.Firmware)
}

// Drive is one open pass-through device node, used for synchronous
// identity and capacity queries.
type Drive struct {
	f *os.File
}

// Open opens a block or sg device node and verifies it answers INQUIRY.
func Open(device string) (*Drive, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	d := &Drive{f: f}
	if _, err := sgio.SCSIInquiry(f.Fd()); err != nil {
		f.Close()
		return nil, ErrDeviceNotSupported
	}
	return d, nil
}

func (d *Drive) Fd() uintptr {
	return d.f.Fd()
}

func (d *Drive) Close() error {
	return d.f.Close()
}

// SGVersion returns the sg driver version, or an error for nodes that
// only speak the SG_IO ioctl (e.g. /dev/sd*).
func (d *Drive) SGVersion() (int, error) {
	v, err := sgio.Version(d.f.Fd())
	runtime.KeepAlive(d.f)
	return v, err
}

func (d *Drive) Identify() (*Identity, error) {
	id, err := sgio.SCSIInquiry(d.f.Fd())
	runtime.KeepAlive(d.f)
	if err != nil {
		return nil, err
	}

	protocol := "SCSI"
	model := ""
	if strings.TrimSpace(string(id.VendorIdent[:])) == "ATA" {
		// SCSI ATA Translation (SAT)
		protocol = "SATA"
		model = strings.TrimSpace(string(id.ProductIdent[:]))
	} else {
		model = fmt.Sprintf("%s %s",
			strings.TrimSpace(string(id.VendorIdent[:])),
			strings.TrimSpace(string(id.ProductIdent[:])))
	}

	serial, err := sgio.SCSIInquirySerial(d.f.Fd())
	runtime.KeepAlive(d.f)
	if err != nil {
		// VPD page 0x80 is optional
		serial = ""
	}

	return &Identity{
		Protocol:     protocol,
		Model:        model,
		Firmware:     strings.TrimSpace(string(id.ProductRev[:])),
		SerialNumber: serial,
	}, nil
}

// Capacity returns the last addressable LBA and the logical block size.
func (d *Drive) Capacity() (uint64, uint32, error) {
	last, bs, err := sgio.SCSIReadCapacity(d.f.Fd())
	runtime.KeepAlive(d.f)
	return last, bs, err
}

// TestUnitReady issues a synchronous TEST UNIT READY.
func (d *Drive) TestUnitReady() error {
	err := sgio.SCSITestUnitReady(d.f.Fd())
	runtime.KeepAlive(d.f)
	return err
}
