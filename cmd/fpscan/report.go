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

package main

import (
	"context"
	"fmt"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"github.com/ZaparooProject/go-fingerprint/internal/cli"
	"github.com/ZaparooProject/go-fingerprint/metrics"
	"github.com/ZaparooProject/go-fingerprint/polling"
	"github.com/rs/zerolog"
)

// eventSink receives scan events; publish.Publisher satisfies it.
type eventSink interface {
	Identified(m polling.Match) error
	Unknown() error
	Removed() error
}

// reporter turns scanner callbacks into console output, events and metrics.
type reporter struct {
	out    *cli.Output
	sink   eventSink
	stats  *metrics.Collector
	logger zerolog.Logger
}

func newReporter(out *cli.Output, logger zerolog.Logger, sink eventSink, stats *metrics.Collector) *reporter {
	return &reporter{out: out, logger: logger, sink: sink, stats: stats}
}

func (r *reporter) identified(m polling.Match) error {
	r.out.Printf("Found ID #%d with confidence of %d", m.FingerID, m.Confidence)
	if r.stats != nil {
		r.stats.ScanIdentified()
	}
	if r.sink != nil {
		return r.sink.Identified(m)
	}
	return nil
}

func (r *reporter) unknown() error {
	r.out.Printf("Finger not found")
	if r.stats != nil {
		r.stats.ScanUnknown()
	}
	if r.sink != nil {
		return r.sink.Unknown()
	}
	return nil
}

func (r *reporter) removed() {
	r.out.Verbose("finger removed")
	if r.sink == nil {
		return
	}
	if err := r.sink.Removed(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to publish removal")
	}
}

func (r *reporter) failed(err error) {
	r.logger.Warn().Err(err).Msg("scan failed")
}

func (r *reporter) attach(s *polling.Scanner) {
	s.OnFingerIdentified = r.identified
	s.OnFingerUnknown = r.unknown
	s.OnFingerRemoved = r.removed
	s.OnError = r.failed
}

// run prints the template count and scans until ctx is done or the scan
// loop fails.
func (r *reporter) run(ctx context.Context, device *fingerprint.Device, cfg *polling.Config) error {
	status, err := device.GetTemplateCountContext(ctx)
	if err != nil {
		return fmt.Errorf("read template count: %w", err)
	}
	if err := status.Err("GetTemplateCount"); err != nil {
		return err
	}
	count := device.TemplateCount()
	r.out.Info("sensor contains %d templates", count)
	if r.stats != nil {
		r.stats.SetTemplateCount(count)
	}

	scanner, err := polling.NewScanner(device, cfg)
	if err != nil {
		return err
	}
	r.attach(scanner)

	if err := scanner.Start(ctx); err != nil {
		return err
	}
	r.out.Printf("Waiting for finger...")

	select {
	case <-ctx.Done():
	case <-scanner.Done():
	}
	if err := scanner.Stop(); err != nil {
		return err
	}
	return ctx.Err()
}
