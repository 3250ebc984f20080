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

package fingerprint

import (
	"fmt"
	"time"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithAddress sets the sensor address used in every packet
func WithAddress(address uint32) Option {
	return func(d *Device) error {
		d.config.Address = address
		return nil
	}
}

// WithPassword sets the password sent by VerifyPassword
func WithPassword(password uint32) Option {
	return func(d *Device) error {
		d.config.Password = password
		return nil
	}
}

// WithTimeout sets the acknowledgement timeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		d.config.Timeout = timeout
		return nil
	}
}

// WithTransferTimeout sets the budget for the data phase of template uploads
func WithTransferTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: transfer timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		d.config.TransferTimeout = timeout
		return nil
	}
}

// WithPollInterval sets how long to sleep while no byte is available
func WithPollInterval(interval time.Duration) Option {
	return func(d *Device) error {
		if interval <= 0 {
			return fmt.Errorf("%w: poll interval must be positive, got %v", ErrInvalidParameter, interval)
		}
		d.config.PollInterval = interval
		return nil
	}
}

// WithClock replaces the time source
func WithClock(clock Clock) Option {
	return func(d *Device) error {
		if clock == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidParameter)
		}
		d.clock = clock
		return nil
	}
}

// WithCapacity sets the number of library locations on the sensor
func WithCapacity(capacity uint16) Option {
	return func(d *Device) error {
		if capacity == 0 {
			return fmt.Errorf("%w: capacity must be positive", ErrInvalidParameter)
		}
		d.config.Capacity = capacity
		return nil
	}
}

// WithSearchPageCount sets the number of locations FastSearch covers
func WithSearchPageCount(count uint16) Option {
	return func(d *Device) error {
		if count == 0 {
			return fmt.Errorf("%w: search page count must be positive", ErrInvalidParameter)
		}
		d.config.SearchPageCount = count
		return nil
	}
}

// WithPacketSize sets the data packet size used for template downloads.
// It must match the sensor setting: 32, 64, 128 or 256.
func WithPacketSize(size int) Option {
	return func(d *Device) error {
		switch size {
		case 32, 64, 128, 256:
			d.config.PacketSize = size
			return nil
		default:
			return fmt.Errorf("%w: packet size %d", ErrInvalidParameter, size)
		}
	}
}

// WithObserver installs a hook that sees every command and transfer
func WithObserver(observer Observer) Option {
	return func(d *Device) error {
		if observer == nil {
			observer = nopObserver{}
		}
		d.observer = observer
		return nil
	}
}

// WithRetryConfig sets the retry configuration used by RetryOperation
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		d.config.RetryConfig = config
		return nil
	}
}

// WithMaxRetries sets the maximum number of attempts used by RetryOperation
func WithMaxRetries(maxAttempts int) Option {
	return func(d *Device) error {
		if d.config.RetryConfig == nil {
			d.config.RetryConfig = DefaultRetryConfig()
		}
		d.config.RetryConfig.MaxAttempts = maxAttempts
		return nil
	}
}
