// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sgio

import "encoding/binary"

const (
	SCSI_TEST_UNIT_READY  = 0x00
	SCSI_INQUIRY          = 0x12
	SCSI_READ_CAPACITY_10 = 0x25
	SCSI_READ_16          = 0x88
	SCSI_WRITE_16         = 0x8a
	SCSI_SERVICE_ACTION_IN_16 = 0x9e

	// READ CAPACITY(16) service action
	SAI_READ_CAPACITY_16 = 0x10
)

// TestUnitReady builds a TEST UNIT READY CDB (no data transfer).
func TestUnitReady() CDB6 {
	return CDB6{SCSI_TEST_UNIT_READY}
}

// Inquiry builds a standard INQUIRY CDB for an allocation length.
func Inquiry(allocLen uint16) CDB6 {
	cdb := CDB6{SCSI_INQUIRY}
	binary.BigEndian.PutUint16(cdb[3:], allocLen)
	return cdb
}

// ReadCapacity10 builds a READ CAPACITY(10) CDB.
func ReadCapacity10() CDB10 {
	return CDB10{SCSI_READ_CAPACITY_10}
}

// ReadCapacity16 builds a READ CAPACITY(16) CDB for an allocation length.
func ReadCapacity16(allocLen uint32) CDB16 {
	cdb := CDB16{SCSI_SERVICE_ACTION_IN_16, SAI_READ_CAPACITY_16}
	binary.BigEndian.PutUint32(cdb[10:], allocLen)
	return cdb
}

// Read16 builds a READ(16) CDB for blocks starting at lba.
func Read16(lba uint64, blocks uint32) CDB16 {
	cdb := CDB16{SCSI_READ_16}
	binary.BigEndian.PutUint64(cdb[2:], lba)
	binary.BigEndian.PutUint32(cdb[10:], blocks)
	return cdb
}

// Write16 builds a WRITE(16) CDB for blocks starting at lba.
func Write16(lba uint64, blocks uint32) CDB16 {
	cdb := CDB16{SCSI_WRITE_16}
	binary.BigEndian.PutUint64(cdb[2:], lba)
	binary.BigEndian.PutUint32(cdb[10:], blocks)
	return cdb
}
