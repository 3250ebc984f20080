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

// Package polling runs a continuous finger scan loop on top of a
// fingerprint.Device and reports identifications through callbacks.
package polling

import (
	"context"
	"errors"
	"time"
)

// Toucher blocks until a finger touches the sensor. *touch.Sensor satisfies it.
type Toucher interface {
	Wait(ctx context.Context) error
}

// Config holds polling options.
type Config struct {
	// Touch, when set, gates every capture on the sensor's touch line
	Touch Toucher
	// PollInterval is the GenImg rate while fingers are being presented
	PollInterval time.Duration
	// IdleInterval is the slower rate used after IdleAfter without a finger
	IdleInterval time.Duration
	// IdleAfter is how long without a finger before slowing down
	IdleAfter time.Duration
	// EnrollTimeout bounds one EnrollNext call after a finger is seen
	EnrollTimeout time.Duration
	// ResyncDelay is how long to let a late reply arrive before draining the
	// link after a failed exchange
	ResyncDelay time.Duration
}

// DefaultConfig returns polling defaults.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  100 * time.Millisecond,
		IdleInterval:  500 * time.Millisecond,
		IdleAfter:     5 * time.Second,
		EnrollTimeout: 30 * time.Second,
		ResyncDelay:   50 * time.Millisecond,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	d := DefaultConfig()
	if out.PollInterval <= 0 {
		out.PollInterval = d.PollInterval
	}
	if out.IdleInterval < out.PollInterval {
		out.IdleInterval = out.PollInterval
	}
	if out.IdleAfter <= 0 {
		out.IdleAfter = d.IdleAfter
	}
	if out.EnrollTimeout <= 0 {
		out.EnrollTimeout = d.EnrollTimeout
	}
	if out.ResyncDelay <= 0 {
		out.ResyncDelay = d.ResyncDelay
	}
	return &out
}

// Polling errors
var (
	ErrOperationPending  = errors.New("finger operation already pending")
	ErrScannerNotRunning = errors.New("scanner is not running")
	ErrScannerStopped    = errors.New("scanner was stopped")
	ErrAlreadyRunning    = errors.New("scanner is already running")
)
