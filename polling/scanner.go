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
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
)

// Operation runs against the device while a finger is on the glass.
type Operation func(ctx context.Context, device *fingerprint.Device) error

type pendingOp struct {
	ctx    context.Context
	op     Operation
	result chan error
}

// Scanner runs a Monitor in the background and lets callers hand the next
// placed finger to an Operation instead of identifying it.
type Scanner struct {
	device  *fingerprint.Device
	config  *Config
	monitor *Monitor
	pending atomic.Pointer[pendingOp]
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	OnFingerIdentified func(Match) error
	OnFingerUnknown    func() error
	OnFingerRemoved    func()
	OnError            func(error)

	stopMu  sync.Mutex
	running atomic.Bool
}

// NewScanner creates a scanner. A nil config uses DefaultConfig.
func NewScanner(device *fingerprint.Device, config *Config) (*Scanner, error) {
	if device == nil {
		return nil, errors.New("device cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Scanner{device: device, config: config.withDefaults()}, nil
}

// Start launches the scan loop and returns immediately.
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m := NewMonitor(s.device, s.config)
	m.OnFingerIdentified = s.OnFingerIdentified
	m.OnFingerUnknown = s.OnFingerUnknown
	m.OnFingerRemoved = s.OnFingerRemoved
	m.OnError = s.OnError
	m.onNew = s.runPending

	s.stopMu.Lock()
	s.cancel = cancel
	s.done = done
	s.monitor = m
	s.err = nil
	s.stopMu.Unlock()

	go func() {
		defer close(done)
		err := m.Start(scanCtx)

		s.stopMu.Lock()
		if !errors.Is(err, context.Canceled) {
			s.err = err
		}
		s.stopMu.Unlock()

		s.running.Store(false)
		s.failPending(ErrScannerStopped)
	}()

	return nil
}

// Stop cancels the scan loop and waits for it to exit. It returns the error
// that ended the loop, if any other than cancellation.
func (s *Scanner) Stop() error {
	s.stopMu.Lock()
	cancel, done := s.cancel, s.done
	s.stopMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.err
}

// Done is closed when the scan loop exits. It is nil before Start.
func (s *Scanner) Done() <-chan struct{} {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.done
}

// IsRunning reports whether the scan loop is active.
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// HasPendingOperation reports whether RunOnNextFinger is waiting.
func (s *Scanner) HasPendingOperation() bool {
	return s.pending.Load() != nil
}

// Metrics returns the monitor counters.
func (s *Scanner) Metrics() Metrics {
	s.stopMu.Lock()
	m := s.monitor
	s.stopMu.Unlock()
	if m == nil {
		return Metrics{}
	}
	return m.Metrics()
}

// RunOnNextFinger blocks until a new finger is placed, runs op with it and
// returns op's error. Only one operation may wait at a time.
func (s *Scanner) RunOnNextFinger(ctx context.Context, timeout time.Duration, op Operation) error {
	if !s.running.Load() {
		return ErrScannerNotRunning
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &pendingOp{ctx: opCtx, op: op, result: make(chan error, 1)}
	if !s.pending.CompareAndSwap(nil, req) {
		return ErrOperationPending
	}
	defer s.pending.CompareAndSwap(req, nil)

	// the loop clears running before it releases pending operations
	if !s.running.Load() && s.pending.CompareAndSwap(req, nil) {
		return ErrScannerNotRunning
	}

	select {
	case err := <-req.result:
		return err
	case <-opCtx.Done():
		// the operation may have been claimed already; prefer its result
		if s.pending.CompareAndSwap(req, nil) {
			return opCtx.Err()
		}
		return <-req.result
	}
}

// EnrollNext enrolls the next placed finger at location.
func (s *Scanner) EnrollNext(ctx context.Context, location uint16) error {
	return s.RunOnNextFinger(ctx, s.config.EnrollTimeout, func(ctx context.Context, d *fingerprint.Device) error {
		return Enroll(ctx, d, location, s.config.PollInterval)
	})
}

// runPending is the monitor's new-finger hook.
func (s *Scanner) runPending(ctx context.Context) bool {
	req := s.pending.Load()
	if req == nil || !s.pending.CompareAndSwap(req, nil) {
		return false
	}

	opCtx, cancel := mergeDone(req.ctx, ctx)
	defer cancel()

	req.result <- req.op(opCtx, s.device)
	return true
}

func (s *Scanner) failPending(err error) {
	if req := s.pending.Swap(nil); req != nil {
		req.result <- err
	}
}

// mergeDone returns a context carrying a's values that is cancelled when
// either a or b is done.
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
