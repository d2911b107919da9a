// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/open-storage-tools/go-sg-tools/pkg/engine"
)

func printReport(rep *engine.Report) {
	c := rep.Counters
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "synchronous starts\t%d\n", c.SyncStarts)
	fmt.Fprintf(w, "asynchronous starts\t%d\n", c.AsyncStarts)
	fmt.Fprintf(w, "asynchronous finishes\t%d\n", c.AsyncFinishes)
	fmt.Fprintf(w, "EAGAIN retries\t%d\n", c.EAgain)
	fmt.Fprintf(w, "EBUSY retries\t%d\n", c.EBusy)
	fmt.Fprintf(w, "E2BIG rejections\t%d\n", c.E2Big)
	fmt.Fprintf(w, "EDOM rejections\t%d\n", c.EDom)
	fmt.Fprintf(w, "unit attentions\t%d\n", c.UnitAttentions)
	fmt.Fprintf(w, "elapsed\t%v\n", rep.Elapsed)
	fmt.Fprintf(w, "throughput\t%.1f commands/s\n", rep.IOPS)
	if l := rep.Latency; l != nil {
		fmt.Fprintf(w, "round trip (min/mean/max)\t%v / %v / %v over %d commands\n",
			l.Min, l.Mean, l.Max, l.Count)
	}
	w.Flush()
}

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

func outputMetrics(rep *engine.Report) error {
	var (
		mEvents = prometheus.NewDesc(
			"sg_stress_events_total",
			"Counted engine events for the completed run",
			[]string{"event"}, nil,
		)
		mElapsed = prometheus.NewDesc(
			"sg_stress_elapsed_seconds",
			"Wall time of the completed run",
			nil, nil,
		)
		mRate = prometheus.NewDesc(
			"sg_stress_commands_per_second",
			"Completed commands divided by wall time",
			nil, nil,
		)
	)

	c := rep.Counters
	events := []struct {
		name  string
		value int64
	}{
		{"sync_start", c.SyncStarts},
		{"async_start", c.AsyncStarts},
		{"async_finish", c.AsyncFinishes},
		{"eagain", c.EAgain},
		{"ebusy", c.EBusy},
		{"e2big", c.E2Big},
		{"edom", c.EDom},
		{"unit_attention", c.UnitAttentions},
	}

	mc := &metricCollector{}
	for _, ev := range events {
		mc.m = append(mc.m,
			prometheus.MustNewConstMetric(mEvents, prometheus.CounterValue, float64(ev.value), ev.name))
	}
	mc.m = append(mc.m,
		prometheus.MustNewConstMetric(mElapsed, prometheus.GaugeValue, rep.Elapsed.Seconds()),
		prometheus.MustNewConstMetric(mRate, prometheus.GaugeValue, rep.IOPS))

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(mc)

	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return fmt.Errorf("failed to serialize metrics: %w", err)
		}
	}
	return nil
}
