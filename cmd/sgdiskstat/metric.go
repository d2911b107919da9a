// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

type metricCollector struct {
	m []prometheus.Metric
}

func (mc *metricCollector) Collect(c chan<- prometheus.Metric) {
	for _, m := range mc.m {
		c <- m
	}
}

func (mc *metricCollector) Describe(c chan<- *prometheus.Desc) {
}

func outputMetrics(state Devices) {
	var (
		mDriveInfo = prometheus.NewDesc(
			"sg_drive_info",
			"Info metric regarding the detected drives",
			[]string{"device", "model", "serial", "firmware", "protocol"}, nil,
		)
		mCapacityBytes = prometheus.NewDesc(
			"sg_drive_capacity_bytes",
			"Device capacity in bytes as reported by READ CAPACITY",
			[]string{"device"}, nil,
		)
		mBlockSize = prometheus.NewDesc(
			"sg_drive_block_size_bytes",
			"Logical block size in bytes",
			[]string{"device"}, nil,
		)
		mSGSupported = prometheus.NewDesc(
			"sg_drive_async_supported",
			"Boolean describing whether the node exposes the sg asynchronous interface",
			[]string{"device"}, nil,
		)
	)
	mc := &metricCollector{}
	for _, s := range state {
		mc.m = append(mc.m,
			prometheus.MustNewConstMetric(mDriveInfo, prometheus.GaugeValue, 1,
				s.Device, s.Identity.Model, s.Identity.SerialNumber, s.Identity.Firmware, s.Identity.Protocol))

		if s.BlockSize != 0 {
			bytes := float64(s.LastLBA+1) * float64(s.BlockSize)
			mc.m = append(mc.m,
				prometheus.MustNewConstMetric(mCapacityBytes, prometheus.GaugeValue, bytes, s.Device),
				prometheus.MustNewConstMetric(mBlockSize, prometheus.GaugeValue, float64(s.BlockSize), s.Device))
		}

		sup := float64(0)
		if s.SGDriver != 0 {
			sup = 1
		}
		mc.m = append(mc.m, prometheus.MustNewConstMetric(mSGSupported, prometheus.GaugeValue, sup, s.Device))
	}

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(mc)

	mfs, err := reg.Gather()
	if err != nil {
		log.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			log.Fatalf("Failed to serialize metrics: %v", err)
		}
	}
}
