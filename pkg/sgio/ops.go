// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sgio

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// SCSI INQUIRY response (standard data, first 36 bytes).
type InquiryResponse struct {
	Peripheral   byte // peripheral qualifier, device type
	Version      byte
	VendorIdent  [8]byte
	ProductIdent [16]byte
	ProductRev   [4]byte
}

func (inq InquiryResponse) String() string {
	return fmt.Sprintf("Type=0x%x, Vendor=%s, Product=%s, Revision=%s",
		inq.Peripheral&0x1f,
		strings.TrimSpace(string(inq.VendorIdent[:])),
		strings.TrimSpace(string(inq.ProductIdent[:])),
		strings.TrimSpace(string(inq.ProductRev[:])))
}

// ParseInquiry decodes standard INQUIRY data. The buffer must hold at
// least the 36-byte standard response.
func ParseInquiry(buf []byte) (InquiryResponse, error) {
	var resp InquiryResponse
	if len(buf) < 36 {
		return resp, fmt.Errorf("short INQUIRY response: %d bytes", len(buf))
	}
	resp.Peripheral = buf[0]
	resp.Version = buf[2]
	copy(resp.VendorIdent[:], buf[8:16])
	copy(resp.ProductIdent[:], buf[16:32])
	copy(resp.ProductRev[:], buf[32:36])
	return resp, nil
}

// SCSIInquiry returns parsed standard INQUIRY data.
func SCSIInquiry(fd uintptr) (InquiryResponse, error) {
	respBuf := make([]byte, 36)
	cdb := Inquiry(uint16(len(respBuf)))
	if err := SendCDB(fd, cdb[:], DirFromDevice, respBuf); err != nil {
		return InquiryResponse{}, err
	}
	return ParseInquiry(respBuf)
}

// SCSIInquirySerial returns the unit serial number from VPD page 0x80.
func SCSIInquirySerial(fd uintptr) (string, error) {
	respBuf := make([]byte, 252)
	cdb := Inquiry(uint16(len(respBuf)))
	cdb[1] = 0x01 // EVPD
	cdb[2] = 0x80 // unit serial number page
	if err := SendCDB(fd, cdb[:], DirFromDevice, respBuf); err != nil {
		return "", err
	}
	n := int(respBuf[3])
	if 4+n > len(respBuf) {
		n = len(respBuf) - 4
	}
	return strings.TrimSpace(string(respBuf[4 : 4+n])), nil
}

// SCSITestUnitReady issues TEST UNIT READY and returns the result.
func SCSITestUnitReady(fd uintptr) error {
	cdb := TestUnitReady()
	return SendCDB(fd, cdb[:], DirNone, nil)
}

// SCSIReadCapacity returns the last LBA and logical block size. Devices
// larger than 2TiB report 0xffffffff through READ CAPACITY(10) and are
// re-queried with READ CAPACITY(16).
func SCSIReadCapacity(fd uintptr) (lastLBA uint64, blockSize uint32, err error) {
	respBuf := make([]byte, 8)
	cdb := ReadCapacity10()
	if err := SendCDB(fd, cdb[:], DirFromDevice, respBuf); err != nil {
		return 0, 0, err
	}
	last32 := binary.BigEndian.Uint32(respBuf[0:])
	blockSize = binary.BigEndian.Uint32(respBuf[4:])
	if last32 != 0xffffffff {
		return uint64(last32), blockSize, nil
	}

	resp16 := make([]byte, 32)
	cdb16 := ReadCapacity16(uint32(len(resp16)))
	if err := SendCDB(fd, cdb16[:], DirFromDevice, resp16); err != nil {
		return 0, 0, err
	}
	lastLBA = binary.BigEndian.Uint64(resp16[0:])
	blockSize = binary.BigEndian.Uint32(resp16[8:])
	return lastLBA, blockSize, nil
}
