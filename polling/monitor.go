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

package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"golang.org/x/time/rate"
)

// Metrics are running counters of a Monitor.
type Metrics struct {
	PollCycles      int64
	PollErrors      int64
	FingersDetected int64
	Identified      int64
	Unknown         int64
	Resyncs         int64
	LastPollLatency time.Duration
}

// fingerHook runs when a new finger is imaged. It reports whether it took
// over the finger, in which case identification is skipped.
type fingerHook func(ctx context.Context) bool

// Monitor captures images in a loop and identifies each newly placed finger
// once. Callbacks run on the monitor goroutine.
type Monitor struct {
	device  *fingerprint.Device
	config  *Config
	limiter *rate.Limiter
	onNew   fingerHook

	OnFingerIdentified func(Match) error
	OnFingerUnknown    func() error
	OnFingerRemoved    func()
	OnError            func(error)

	stateMu  sync.Mutex
	state    FingerState
	idle     atomic.Bool
	interval atomic.Int64

	pollCycles      atomic.Int64
	pollErrors      atomic.Int64
	fingersDetected atomic.Int64
	identified      atomic.Int64
	unknown         atomic.Int64
	resyncs         atomic.Int64
	lastPollLatency atomic.Int64
}

// NewMonitor creates a monitor. A nil config uses DefaultConfig.
func NewMonitor(device *fingerprint.Device, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	config = config.withDefaults()

	m := &Monitor{
		device:  device,
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.PollInterval), 1),
	}
	m.interval.Store(int64(config.PollInterval))
	return m
}

// Start runs the scan loop until ctx is done and returns ctx's error.
func (m *Monitor) Start(ctx context.Context) error {
	m.stateMu.Lock()
	m.state.LastSeen = time.Now()
	m.stateMu.Unlock()

	for {
		if err := m.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("poll rate limiter: %w", err)
		}

		if m.config.Touch != nil && !m.State().Present() {
			if err := m.config.Touch.Wait(ctx); err != nil {
				return err
			}
		}

		if err := m.poll(ctx); err != nil {
			return err
		}
		m.adjustPollInterval()
	}
}

// State returns a copy of the finger state.
func (m *Monitor) State() FingerState {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

// Metrics returns the current counters.
func (m *Monitor) Metrics() Metrics {
	return Metrics{
		PollCycles:      m.pollCycles.Load(),
		PollErrors:      m.pollErrors.Load(),
		FingersDetected: m.fingersDetected.Load(),
		Identified:      m.identified.Load(),
		Unknown:         m.unknown.Load(),
		Resyncs:         m.resyncs.Load(),
		LastPollLatency: time.Duration(m.lastPollLatency.Load()),
	}
}

// CurrentPollInterval returns the interval in effect.
func (m *Monitor) CurrentPollInterval() time.Duration {
	return time.Duration(m.interval.Load())
}

// Device returns the underlying device.
func (m *Monitor) Device() *fingerprint.Device {
	return m.device
}

// poll performs one capture. Only context errors end the loop.
func (m *Monitor) poll(ctx context.Context) error {
	start := time.Now()
	status, err := m.device.CaptureImageContext(ctx)
	m.pollCycles.Add(1)
	m.lastPollLatency.Store(int64(time.Since(start)))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, fingerprint.ErrTransportClosed) {
			return fmt.Errorf("device closed: %w", err)
		}
		m.exchangeFailed(ctx, err)
		return nil
	}

	switch status {
	case fingerprint.StatusOK:
		m.fingerImaged(ctx, start)
	case fingerprint.StatusNoFinger:
		m.fingerAbsent()
	default:
		m.reportError(status.Err("CaptureImage"))
	}
	return nil
}

func (m *Monitor) fingerImaged(ctx context.Context, now time.Time) {
	m.stateMu.Lock()
	if m.state.DetectionState == StateAwaitingRelease {
		m.state.Seen(now)
		m.stateMu.Unlock()
		return
	}
	fresh := m.state.DetectionState == StateIdle
	m.state.TransitionToPresent(now)
	m.stateMu.Unlock()

	if fresh {
		m.fingersDetected.Add(1)
	}

	if m.onNew != nil && m.onNew(ctx) {
		m.setAwaitingRelease(nil)
		return
	}

	m.identify(ctx)
}

func (m *Monitor) identify(ctx context.Context) {
	status, err := m.device.ExtractFeaturesContext(ctx, fingerprint.Buffer1)
	if err != nil {
		m.exchangeFailed(ctx, err)
		return
	}
	if !status.IsOK() {
		// smudged image, try again on the next capture
		return
	}

	status, err = m.device.FastSearchContext(ctx)
	if err != nil {
		m.exchangeFailed(ctx, err)
		return
	}

	switch status {
	case fingerprint.StatusOK:
		match := Match{
			FingerID:   m.device.FingerID(),
			Confidence: m.device.Confidence(),
			At:         time.Now(),
		}
		m.identified.Add(1)
		m.setAwaitingRelease(&match)
		if m.OnFingerIdentified != nil {
			m.callback(m.OnFingerIdentified(match))
		}
	case fingerprint.StatusNotFound:
		m.unknown.Add(1)
		m.setAwaitingRelease(nil)
		if m.OnFingerUnknown != nil {
			m.callback(m.OnFingerUnknown())
		}
	default:
		m.reportError(status.Err("FastSearch"))
	}
}

func (m *Monitor) setAwaitingRelease(match *Match) {
	m.stateMu.Lock()
	m.state.TransitionToAwaitingRelease(match)
	m.stateMu.Unlock()
}

func (m *Monitor) fingerAbsent() {
	m.stateMu.Lock()
	present := m.state.Present()
	m.state.TransitionToIdle()
	m.stateMu.Unlock()

	if present && m.OnFingerRemoved != nil {
		m.OnFingerRemoved()
	}
}

func (m *Monitor) callback(err error) {
	if err != nil {
		m.reportError(fmt.Errorf("callback: %w", err))
	}
}

// exchangeFailed reports err. When no valid acknowledgement was read, a late
// reply may still be on its way; it is given ResyncDelay to arrive and then
// drained so the next command does not read it as its own.
func (m *Monitor) exchangeFailed(ctx context.Context, err error) {
	m.reportError(err)
	if !errors.Is(err, fingerprint.ErrPacketReceive) {
		return
	}

	timer := time.NewTimer(m.config.ResyncDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}
	if _, err := m.device.Drain(); err == nil {
		m.resyncs.Add(1)
	}
}

func (m *Monitor) reportError(err error) {
	m.pollErrors.Add(1)
	if m.OnError != nil {
		m.OnError(err)
	}
}

// adjustPollInterval drops to IdleInterval once no finger was seen for
// IdleAfter and returns to PollInterval as soon as one is.
func (m *Monitor) adjustPollInterval() {
	m.stateMu.Lock()
	idle := !m.state.Present() && time.Since(m.state.LastSeen) > m.config.IdleAfter
	m.stateMu.Unlock()

	if m.idle.Swap(idle) == idle {
		return
	}
	interval := m.config.PollInterval
	if idle {
		interval = m.config.IdleInterval
	}
	m.interval.Store(int64(interval))
	m.limiter.SetLimit(rate.Every(interval))
}
