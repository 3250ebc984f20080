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

// Package touch watches the finger-detect line of touch-enabled sensors
// (R301T, R503 and similar) so callers can sleep until a finger arrives
// instead of polling GenImg.
package touch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrPinNotFound is returned by Open when the GPIO name is unknown
var ErrPinNotFound = errors.New("gpio pin not found")

// edgeSlice bounds each WaitForEdge call so context cancellation is noticed.
const edgeSlice = 50 * time.Millisecond

// Sensor reports finger presence from a GPIO input.
type Sensor struct {
	pin       gpio.PinIn
	activeLow bool
	debounce  time.Duration
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithActiveLow treats a low level as "finger present". The R503 drives its
// WAKEUP line low on touch; the R301T drives TOUCH high.
func WithActiveLow() Option {
	return func(s *Sensor) {
		s.activeLow = true
	}
}

// WithDebounce requires the touched level to hold for d before Wait returns.
func WithDebounce(d time.Duration) Option {
	return func(s *Sensor) {
		s.debounce = d
	}
}

// Open initialises the host drivers and opens the named pin, e.g. "GPIO17".
func Open(name string, opts ...Option) (*Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return New(pin, opts...)
}

// New configures pin as an edge-triggered input.
func New(pin gpio.PinIn, opts ...Option) (*Sensor, error) {
	s := &Sensor{pin: pin}
	for _, opt := range opts {
		opt(s)
	}

	pull := gpio.PullDown
	if s.activeLow {
		pull = gpio.PullUp
	}
	if err := pin.In(pull, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", pin, err)
	}
	return s, nil
}

// Touched reports whether a finger is on the sensor right now.
func (s *Sensor) Touched() bool {
	return (s.pin.Read() == gpio.High) != s.activeLow
}

// Wait blocks until a finger is present or ctx is done.
func (s *Sensor) Wait(ctx context.Context) error {
	return s.waitFor(ctx, true)
}

// WaitRelease blocks until the finger is lifted or ctx is done.
func (s *Sensor) WaitRelease(ctx context.Context) error {
	return s.waitFor(ctx, false)
}

func (s *Sensor) waitFor(ctx context.Context, touched bool) error {
	for {
		if s.Touched() == touched && s.held(ctx, touched) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.pin.WaitForEdge(edgeSlice)
	}
}

// held reports whether the level stays at touched for the debounce period.
func (s *Sensor) held(ctx context.Context, touched bool) bool {
	if s.debounce <= 0 {
		return true
	}
	deadline := time.Now().Add(s.debounce)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return s.Touched() == touched
		}
		if ctx.Err() != nil {
			return false
		}
		if s.pin.WaitForEdge(min(remaining, edgeSlice)) && s.Touched() != touched {
			return false
		}
	}
}

// Halt stops edge detection on the pin.
func (s *Sensor) Halt() error {
	return s.pin.Halt()
}

// String returns the pin name.
func (s *Sensor) String() string {
	return s.pin.String()
}
