// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sgio

// SCSI sense keys (SPC-5 table 48).
const (
	KeyNoSense        = 0x0
	KeyRecoveredError = 0x1
	KeyNotReady       = 0x2
	KeyMediumError    = 0x3
	KeyHardwareError  = 0x4
	KeyIllegalRequest = 0x5
	KeyUnitAttention  = 0x6
	KeyDataProtect    = 0x7
	KeyAbortedCommand = 0xb
)

// SenseInfo is the decoded summary of a sense buffer.
type SenseInfo struct {
	Valid bool
	Key   uint8
	ASC   uint8
	ASCQ  uint8
}

// Benign reports whether the sense describes a completion that still
// transferred its data: no sense at all or a recovered error.
func (s SenseInfo) Benign() bool {
	return !s.Valid || s.Key == KeyNoSense || s.Key == KeyRecoveredError
}

// ParseSense decodes both fixed (0x70/0x71) and descriptor (0x72/0x73)
// format sense buffers. Unknown or truncated buffers decode as invalid.
func ParseSense(b []byte) SenseInfo {
	if len(b) < 3 {
		return SenseInfo{}
	}
	switch b[0] & 0x7f {
	case 0x70, 0x71:
		s := SenseInfo{Valid: true, Key: b[2] & 0x0f}
		if len(b) > 13 {
			s.ASC = b[12]
			s.ASCQ = b[13]
		}
		return s
	case 0x72, 0x73:
		s := SenseInfo{Valid: true, Key: b[1] & 0x0f, ASC: b[2]}
		if len(b) > 3 {
			s.ASCQ = b[3]
		}
		return s
	}
	return SenseInfo{}
}
