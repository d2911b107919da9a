// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drive

import (
	"os"
	"path/filepath"
)

// Enumerate lists device nodes for block devices that are backed by a
// real device (partitions and virtual devices are skipped).
func Enumerate() ([]string, error) {
	sysblk, err := os.ReadDir("/sys/class/block")
	if err != nil {
		return nil, err
	}
	var devs []string
	for _, fi := range sysblk {
		devname := fi.Name()
		if _, err := os.Stat(filepath.Join("/sys/class/block", devname, "device")); os.IsNotExist(err) {
			continue
		}
		devpath := filepath.Join("/dev", devname)
		if _, err := os.Stat(devpath); os.IsNotExist(err) {
			continue
		}
		devs = append(devs, devpath)
	}
	return devs, nil
}
