// go-fingerprint
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-fingerprint.
//
// go-fingerprint is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-fingerprint is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-fingerprint; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package metrics exports sensor activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fingerprint"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Collector implements fingerprint.Observer and counts scan outcomes.
type Collector struct {
	Commands        *prometheus.CounterVec   // labels: command, status
	CommandErrors   *prometheus.CounterVec   // labels: command, kind
	CommandDuration *prometheus.HistogramVec // labels: command
	TransferBytes   *prometheus.CounterVec   // labels: direction
	TransferErrors  *prometheus.CounterVec   // labels: direction
	Scans           *prometheus.CounterVec   // labels: result
	TemplateCount   prometheus.Gauge
}

// NewCollector registers the sensor metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Acknowledged commands by confirmation code.",
		}, []string{"command", "status"}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Commands that got no usable acknowledgement.",
		}, []string{"command", "kind"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from sending a command to its acknowledgement.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"command"}),
		TransferBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_bytes_total",
			Help:      "Template bytes moved by direction.",
		}, []string{"direction"}),
		TransferErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_errors_total",
			Help:      "Failed template transfers by direction.",
		}, []string{"direction"}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Finger scans by result.",
		}, []string{"result"}),
		TemplateCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "templates_stored",
			Help:      "Templates in the sensor library at last count.",
		}),
	}
	reg.MustRegister(c.Commands, c.CommandErrors, c.CommandDuration,
		c.TransferBytes, c.TransferErrors, c.Scans, c.TemplateCount)
	return c
}

// CommandCompleted implements fingerprint.Observer.
func (c *Collector) CommandCompleted(command string, status fingerprint.Status, err error, elapsed time.Duration) {
	if err != nil {
		c.CommandErrors.WithLabelValues(command, errorKind(err)).Inc()
		return
	}
	c.Commands.WithLabelValues(command, status.String()).Inc()
	c.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// TransferCompleted implements fingerprint.Observer.
func (c *Collector) TransferCompleted(direction fingerprint.TransferDirection, size int, err error) {
	if err != nil {
		c.TransferErrors.WithLabelValues(string(direction)).Inc()
		return
	}
	c.TransferBytes.WithLabelValues(string(direction)).Add(float64(size))
}

// ScanIdentified counts a finger found in the library.
func (c *Collector) ScanIdentified() {
	c.Scans.WithLabelValues("identified").Inc()
}

// ScanUnknown counts a finger not found in the library.
func (c *Collector) ScanUnknown() {
	c.Scans.WithLabelValues("unknown").Inc()
}

// SetTemplateCount records the library size.
func (c *Collector) SetTemplateCount(n uint16) {
	c.TemplateCount.Set(float64(n))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, fingerprint.ErrTimeout):
		return "timeout"
	case errors.Is(err, fingerprint.ErrFormat):
		return "format"
	case errors.Is(err, fingerprint.ErrTransportWrite), errors.Is(err, fingerprint.ErrTransportRead),
		errors.Is(err, fingerprint.ErrTransportClosed):
		return "transport"
	default:
		return "other"
	}
}

var _ fingerprint.Observer = (*Collector)(nil)
