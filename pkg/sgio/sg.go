// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// SCSI generic (sg) pass-through plumbing shared by the synchronous
// helpers and the asynchronous channel.

package sgio

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/dswarbrick/smart/ioctl"
)

type Direction int32

const (
	DirNone       Direction = -1
	DirToDevice   Direction = -2
	DirFromDevice Direction = -3

	SG_IO              = 0x2285
	SG_GET_VERSION_NUM = 0x2282
	SG_SET_FORCE_PACK_ID = 0x227b
	SG_GET_NUM_WAITING   = 0x227d
	SG_SET_RESERVED_SIZE = 0x2275
	SG_GET_RESERVED_SIZE = 0x2272

	SG_INFO_OK_MASK = 0x1
	SG_INFO_OK      = 0x0

	SG_FLAG_NO_DXFER = 0x10000

	DRIVER_SENSE = 0x8

	// Timeout in milliseconds
	DEFAULT_TIMEOUT = 60000

	SENSE_BUF_LEN = 32
)

var ErrIllegalRequest = errors.New("illegal SCSI request")

// SCSI CDB types
type (
	CDB6  [6]byte
	CDB10 [10]byte
	CDB16 [16]byte
)

// Hdr is the v3 sg_io_hdr passed to the SG_IO ioctl and, for the
// asynchronous interface, written to and read from the sg file
// descriptor directly. Field order and sizes must match <scsi/sg.h>;
// the Go compiler inserts the same alignment padding the kernel
// expects on 64-bit targets.
type Hdr struct {
	InterfaceID    int32
	DxferDirection Direction
	CmdLen         uint8
	MxSbLen        uint8
	IovecCount     uint16
	DxferLen       uint32
	Dxferp         uintptr
	Cmdp           uintptr
	Sbp            uintptr
	Timeout        uint32 // milliseconds
	Flags          uint32
	PackID         int32
	UsrPtr         uintptr
	Status         uint8
	MaskedStatus   uint8
	MsgStatus      uint8
	SbLenWr        uint8
	HostStatus     uint16
	DriverStatus   uint16
	Resid          int32
	Duration       uint32 // milliseconds
	Info           uint32
}

// Ok reports whether the completed header carries a clean result.
func (h *Hdr) Ok() bool {
	return h.Info&SG_INFO_OK_MASK == SG_INFO_OK
}

// Bytes exposes the header as a byte slice for write(2)/read(2) on the
// sg file descriptor. The slice aliases the header; keep the header
// alive for the duration of the call.
func (h *Hdr) Bytes() []byte {
	return (*[unsafe.Sizeof(Hdr{})]byte)(unsafe.Pointer(h))[:]
}

// NewHdr populates an sg_io_hdr for one command. The cdb, data and
// sense slices must stay alive until the command completes.
func NewHdr(cdb []byte, dir Direction, data []byte, sense []byte, timeoutMs uint32) Hdr {
	h := Hdr{
		InterfaceID:    'S',
		DxferDirection: dir,
		CmdLen:         uint8(len(cdb)),
		MxSbLen:        uint8(len(sense)),
		Cmdp:           uintptr(unsafe.Pointer(&cdb[0])),
		Sbp:            uintptr(unsafe.Pointer(&sense[0])),
		Timeout:        timeoutMs,
		PackID:         -1,
	}
	if len(data) > 0 {
		h.DxferLen = uint32(len(data))
		h.Dxferp = uintptr(unsafe.Pointer(&data[0]))
	}
	return h
}

// SendCDB executes one command synchronously through the SG_IO ioctl
// and returns an error for any non-clean result.
func SendCDB(fd uintptr, cdb []byte, dir Direction, buf []byte) error {
	senseBuf := make([]byte, SENSE_BUF_LEN)
	hdr := NewHdr(cdb, dir, buf, senseBuf, DEFAULT_TIMEOUT)

	if err := ioctl.Ioctl(fd, SG_IO, uintptr(unsafe.Pointer(&hdr))); err != nil {
		return err
	}
	return CheckResult(&hdr, senseBuf)
}

// CheckResult classifies a completed header. Clean completions return
// nil; sense-carrying completions return ErrIllegalRequest or a
// descriptive error.
func CheckResult(hdr *Hdr, sense []byte) error {
	if hdr.Ok() {
		return nil
	}
	if hdr.DriverStatus&DRIVER_SENSE != 0 && hdr.SbLenWr > 0 {
		s := ParseSense(sense)
		if s.Key == KeyIllegalRequest {
			return ErrIllegalRequest
		}
		return fmt.Errorf("SCSI sense: key=%#02x asc=%#02x ascq=%#02x", s.Key, s.ASC, s.ASCQ)
	}
	return fmt.Errorf("SCSI status: %#02x, host status: %#02x, driver status: %#02x",
		hdr.Status, hdr.HostStatus, hdr.DriverStatus)
}

// ReservedSize returns the sg driver's reserved transfer buffer size
// for this descriptor, the per-command acceptance limit.
func ReservedSize(fd uintptr) (int, error) {
	var n int32
	if err := ioctl.Ioctl(fd, SG_GET_RESERVED_SIZE, uintptr(unsafe.Pointer(&n))); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Version returns the sg driver version number (e.g. 30536 for 3.5.36),
// or an error if the descriptor is not an sg device.
func Version(fd uintptr) (int, error) {
	var version int32
	if err := ioctl.Ioctl(fd, SG_GET_VERSION_NUM, uintptr(unsafe.Pointer(&version))); err != nil {
		return 0, err
	}
	if version < 30000 {
		return int(version), errors.New("sg driver too old (need 3.x or newer)")
	}
	return int(version), nil
}
