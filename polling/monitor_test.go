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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	testutil "github.com/ZaparooProject/go-fingerprint/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSensorDevice returns a device wired to a virtual sensor.
func newSensorDevice(t *testing.T) (*fingerprint.Device, *testutil.VirtualSensor, *fingerprint.MockTransport) {
	t.Helper()

	sensor := testutil.NewVirtualSensor()
	mock := fingerprint.NewMockTransport()
	mock.SetHandler(sensor.Handle)

	device, err := fingerprint.New(mock, fingerprint.WithTimeout(200*time.Millisecond))
	require.NoError(t, err)
	return device, sensor, mock
}

func fastConfig() *Config {
	return &Config{
		PollInterval:  time.Millisecond,
		IdleInterval:  time.Millisecond,
		IdleAfter:     time.Hour,
		EnrollTimeout: 5 * time.Second,
		ResyncDelay:   time.Millisecond,
	}
}

// runMonitor starts m and returns a function that stops it and returns
// Start's error.
func runMonitor(t *testing.T, m *Monitor) func() error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Start(ctx) }()

	var once sync.Once
	var err error
	stop := func() error {
		once.Do(func() {
			cancel()
			err = <-errCh
		})
		return err
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func TestNewMonitor(t *testing.T) {
	t.Parallel()
	device, _, _ := newSensorDevice(t)

	t.Run("DefaultConfig", func(t *testing.T) {
		t.Parallel()
		m := NewMonitor(device, nil)
		assert.Equal(t, DefaultConfig().PollInterval, m.config.PollInterval)
		assert.Equal(t, DefaultConfig().PollInterval, m.CurrentPollInterval())
		assert.Same(t, device, m.Device())
		assert.Equal(t, StateIdle, m.State().DetectionState)
	})

	t.Run("FillsZeroFields", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{PollInterval: 50 * time.Millisecond}
		m := NewMonitor(device, cfg)
		assert.Equal(t, 50*time.Millisecond, m.config.PollInterval)
		assert.Equal(t, 50*time.Millisecond, m.config.IdleInterval)
		assert.Equal(t, DefaultConfig().IdleAfter, m.config.IdleAfter)
		assert.Zero(t, cfg.IdleAfter, "caller's config must not be modified")
	})
}

func TestMonitor_IdentifiesOncePerPlacement(t *testing.T) {
	t.Parallel()

	device, sensor, mock := newSensorDevice(t)
	template := testutil.MakeTemplate(7, testutil.TemplateSize)
	sensor.Enroll(42, template)

	matches := make(chan Match, 8)
	var removed atomic.Int32

	m := NewMonitor(device, fastConfig())
	m.OnFingerIdentified = func(match Match) error {
		matches <- match
		return nil
	}
	m.OnFingerRemoved = func() { removed.Add(1) }
	stop := runMonitor(t, m)

	sensor.PlaceFinger(template)

	select {
	case match := <-matches:
		assert.Equal(t, uint16(42), match.FingerID)
		assert.Equal(t, sensor.Confidence, match.Confidence)
	case <-time.After(2 * time.Second):
		t.Fatal("finger was not identified")
	}

	// the finger stays on the glass for many more captures
	seen := mock.GetCallCount(testutil.CmdGenImg)
	require.Eventually(t, func() bool {
		return mock.GetCallCount(testutil.CmdGenImg) > seen+5
	}, 2*time.Second, time.Millisecond)
	assert.Empty(t, matches)
	assert.Equal(t, StateAwaitingRelease, m.State().DetectionState)
	assert.True(t, m.State().Present())
	require.NotNil(t, m.State().LastMatch)

	sensor.RemoveFinger()
	require.Eventually(t, func() bool { return removed.Load() == 1 }, 2*time.Second, time.Millisecond)

	sensor.PlaceFinger(template)
	select {
	case match := <-matches:
		assert.Equal(t, uint16(42), match.FingerID)
	case <-time.After(2 * time.Second):
		t.Fatal("second placement was not identified")
	}

	require.ErrorIs(t, stop(), context.Canceled)

	metrics := m.Metrics()
	assert.Equal(t, int64(2), metrics.FingersDetected)
	assert.Equal(t, int64(2), metrics.Identified)
	assert.Zero(t, metrics.Unknown)
	assert.Positive(t, metrics.PollCycles)
}

func TestMonitor_UnknownFinger(t *testing.T) {
	t.Parallel()

	device, sensor, _ := newSensorDevice(t)
	sensor.Enroll(1, testutil.MakeTemplate(1, testutil.TemplateSize))

	unknown := make(chan struct{}, 4)
	m := NewMonitor(device, fastConfig())
	m.OnFingerUnknown = func() error {
		unknown <- struct{}{}
		return nil
	}
	m.OnFingerIdentified = func(Match) error {
		t.Error("unexpected identification")
		return nil
	}
	runMonitor(t, m)

	sensor.PlaceFinger(testutil.MakeTemplate(2, testutil.TemplateSize))

	select {
	case <-unknown:
	case <-time.After(2 * time.Second):
		t.Fatal("unknown finger was not reported")
	}
	require.Eventually(t, func() bool { return m.Metrics().Unknown == 1 }, time.Second, time.Millisecond)
	assert.Nil(t, m.State().LastMatch)
}

func TestMonitor_ReportsErrorsAndKeepsPolling(t *testing.T) {
	t.Parallel()

	device, sensor, mock := newSensorDevice(t)

	var errCount atomic.Int32
	m := NewMonitor(device, fastConfig())
	m.OnError = func(error) { errCount.Add(1) }

	sensor.InjectFault(testutil.FaultCorruptChecksum)
	runMonitor(t, m)

	require.Eventually(t, func() bool { return errCount.Load() >= 1 }, 2*time.Second, time.Millisecond)

	before := mock.GetCallCount(testutil.CmdGenImg)
	require.Eventually(t, func() bool {
		return mock.GetCallCount(testutil.CmdGenImg) > before+3
	}, 2*time.Second, time.Millisecond)
	assert.Positive(t, m.Metrics().PollErrors)
}

func TestMonitor_CallbackErrorReported(t *testing.T) {
	t.Parallel()

	device, sensor, _ := newSensorDevice(t)
	template := testutil.MakeTemplate(3, testutil.TemplateSize)
	sensor.Enroll(3, template)

	boom := errors.New("door controller offline")
	reported := make(chan error, 4)
	m := NewMonitor(device, fastConfig())
	m.OnFingerIdentified = func(Match) error { return boom }
	m.OnError = func(err error) { reported <- err }
	runMonitor(t, m)

	sensor.PlaceFinger(template)
	select {
	case err := <-reported:
		require.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("callback error was not reported")
	}
}

func TestMonitor_AdaptiveInterval(t *testing.T) {
	t.Parallel()

	device, sensor, _ := newSensorDevice(t)
	m := NewMonitor(device, &Config{
		PollInterval: time.Millisecond,
		IdleInterval: 5 * time.Millisecond,
		IdleAfter:    20 * time.Millisecond,
	})
	runMonitor(t, m)

	require.Eventually(t, func() bool {
		return m.CurrentPollInterval() == 5*time.Millisecond
	}, 2*time.Second, time.Millisecond)

	sensor.PlaceFinger(testutil.MakeTemplate(9, testutil.TemplateSize))
	require.Eventually(t, func() bool {
		return m.CurrentPollInterval() == time.Millisecond
	}, 2*time.Second, time.Millisecond)
}

type gateToucher struct {
	gate  chan struct{}
	waits atomic.Int32
}

func (g *gateToucher) Wait(ctx context.Context) error {
	g.waits.Add(1)
	select {
	case <-g.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestMonitor_TouchGate(t *testing.T) {
	t.Parallel()

	device, _, mock := newSensorDevice(t)
	toucher := &gateToucher{gate: make(chan struct{})}

	cfg := fastConfig()
	cfg.Touch = toucher
	m := NewMonitor(device, cfg)
	stop := runMonitor(t, m)

	require.Eventually(t, func() bool { return toucher.waits.Load() == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, mock.GetCallCount(testutil.CmdGenImg))

	toucher.gate <- struct{}{}
	require.Eventually(t, func() bool {
		return mock.GetCallCount(testutil.CmdGenImg) == 1
	}, time.Second, time.Millisecond)

	require.ErrorIs(t, stop(), context.Canceled)
}

func TestMonitor_StopsWhenDeviceClosed(t *testing.T) {
	t.Parallel()

	device, _, _ := newSensorDevice(t)
	m := NewMonitor(device, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errCh := make(chan error, 1)
	go func() { errCh <- m.Start(ctx) }()

	require.NoError(t, device.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, fingerprint.ErrTransportClosed)
		assert.NotErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor kept running on a closed device")
	}
}

func TestMonitor_ResyncsAfterLateReply(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor()
	mock := fingerprint.NewMockTransport()
	device, err := fingerprint.New(mock, fingerprint.WithTimeout(30*time.Millisecond))
	require.NoError(t, err)

	template := testutil.MakeTemplate(5, testutil.TemplateSize)
	sensor.Enroll(5, template)
	sensor.PlaceFinger(template)

	// hold back the first GenImg reply and deliver it ahead of the next one
	var held []byte
	genImg := 0
	mock.SetHandler(func(packet []byte) []byte {
		reply := sensor.Handle(packet)
		if packet[9] == testutil.CmdGenImg {
			genImg++
			if genImg == 1 {
				held = reply
				return nil
			}
		}
		if held != nil {
			reply = append(held, reply...)
			held = nil
		}
		return reply
	})

	var matches []Match
	var mu sync.Mutex
	m := NewMonitor(device, fastConfig())
	m.OnFingerIdentified = func(match Match) error {
		mu.Lock()
		defer mu.Unlock()
		matches = append(matches, match)
		return nil
	}
	stop := runMonitor(t, m)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(matches) == 1
	}, 2*time.Second, time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)

	mu.Lock()
	assert.Equal(t, uint16(5), matches[0].FingerID)
	mu.Unlock()
	metrics := m.Metrics()
	assert.Positive(t, metrics.Resyncs)
	assert.LessOrEqual(t, metrics.PollErrors, int64(2))
}

func TestFingerState(t *testing.T) {
	t.Parallel()

	var fs FingerState
	assert.False(t, fs.Present())
	assert.Equal(t, "idle", fs.DetectionState.String())

	now := time.Now()
	fs.TransitionToPresent(now)
	assert.True(t, fs.Present())
	assert.Equal(t, now, fs.PresentSince)
	assert.Equal(t, "finger present", fs.DetectionState.String())

	later := now.Add(time.Second)
	fs.TransitionToPresent(later)
	assert.Equal(t, now, fs.PresentSince, "re-imaging keeps the placement time")
	assert.Equal(t, later, fs.LastSeen)

	match := &Match{FingerID: 5}
	fs.TransitionToAwaitingRelease(match)
	assert.Equal(t, "awaiting release", fs.DetectionState.String())
	assert.Same(t, match, fs.LastMatch)

	fs.Seen(later.Add(time.Second))
	assert.Equal(t, later.Add(time.Second), fs.LastSeen)

	fs.TransitionToIdle()
	assert.False(t, fs.Present())
	assert.Nil(t, fs.LastMatch)
	assert.True(t, fs.PresentSince.IsZero())
	assert.Equal(t, "unknown", DetectionState(9).String())
}
