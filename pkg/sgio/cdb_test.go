// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sgio

import (
	"bytes"
	"testing"
)

func TestTestUnitReady(t *testing.T) {
	cdb := TestUnitReady()
	if !bytes.Equal(cdb[:], make([]byte, 6)) {
		t.Errorf("TEST UNIT READY CDB not all-zero: % x", cdb)
	}
}

func TestInquiry(t *testing.T) {
	cdb := Inquiry(252)
	want := CDB6{SCSI_INQUIRY, 0, 0, 0x00, 0xfc, 0}
	if cdb != want {
		t.Errorf("Inquiry(252) = % x, want % x", cdb, want)
	}
}

func TestRead16(t *testing.T) {
	cdb := Read16(0x0102030405060708, 0x11223344)
	want := CDB16{
		SCSI_READ_16, 0,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x11, 0x22, 0x33, 0x44,
		0, 0,
	}
	if cdb != want {
		t.Errorf("Read16 = % x, want % x", cdb, want)
	}
}

func TestWrite16(t *testing.T) {
	cdb := Write16(1234, 1)
	if cdb[0] != SCSI_WRITE_16 {
		t.Errorf("opcode = %#02x, want %#02x", cdb[0], SCSI_WRITE_16)
	}
	if cdb[9] != 0xd2 || cdb[8] != 0x04 {
		t.Errorf("lba bytes = % x", cdb[2:10])
	}
	if cdb[13] != 1 {
		t.Errorf("block count bytes = % x", cdb[10:14])
	}
}

func TestReadCapacity16(t *testing.T) {
	cdb := ReadCapacity16(32)
	if cdb[0] != SCSI_SERVICE_ACTION_IN_16 || cdb[1] != SAI_READ_CAPACITY_16 {
		t.Errorf("opcode/service action = %#02x/%#02x", cdb[0], cdb[1])
	}
	if cdb[13] != 32 {
		t.Errorf("allocation length bytes = % x", cdb[10:14])
	}
}
