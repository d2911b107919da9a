// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sgio

import "testing"

func TestParseSenseFixed(t *testing.T) {
	// Fixed format, UNIT ATTENTION, power on occurred (29h/00h)
	buf := make([]byte, 18)
	buf[0] = 0x70
	buf[2] = KeyUnitAttention
	buf[12] = 0x29
	buf[13] = 0x00

	s := ParseSense(buf)
	if !s.Valid {
		t.Fatal("fixed sense decoded as invalid")
	}
	if s.Key != KeyUnitAttention || s.ASC != 0x29 || s.ASCQ != 0x00 {
		t.Errorf("decoded key=%#02x asc=%#02x ascq=%#02x", s.Key, s.ASC, s.ASCQ)
	}
	if s.Benign() {
		t.Error("unit attention classified as benign")
	}
}

func TestParseSenseDescriptor(t *testing.T) {
	buf := []byte{0x72, KeyRecoveredError, 0x17, 0x01}
	s := ParseSense(buf)
	if !s.Valid {
		t.Fatal("descriptor sense decoded as invalid")
	}
	if s.Key != KeyRecoveredError || s.ASC != 0x17 || s.ASCQ != 0x01 {
		t.Errorf("decoded key=%#02x asc=%#02x ascq=%#02x", s.Key, s.ASC, s.ASCQ)
	}
	if !s.Benign() {
		t.Error("recovered error not classified as benign")
	}
}

func TestParseSenseTruncated(t *testing.T) {
	for _, buf := range [][]byte{nil, {0x70}, {0x70, 0x00}} {
		if s := ParseSense(buf); s.Valid {
			t.Errorf("truncated buffer % x decoded as valid", buf)
		}
	}
	// Descriptor format missing the ASCQ byte still decodes.
	s := ParseSense([]byte{0x72, KeyMediumError, 0x11})
	if !s.Valid || s.Key != KeyMediumError || s.ASC != 0x11 || s.ASCQ != 0 {
		t.Errorf("short descriptor sense: %+v", s)
	}
}

func TestParseSenseUnknownFormat(t *testing.T) {
	if s := ParseSense([]byte{0x5a, 0x01, 0x02, 0x03}); s.Valid {
		t.Error("unknown response code decoded as valid")
	}
}

func TestBenignNoSense(t *testing.T) {
	if !(SenseInfo{}).Benign() {
		t.Error("absent sense not classified as benign")
	}
}
