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
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for RetryOperation
type RetryConfig struct {
	// MaxAttempts is the total number of attempts; values below 1 mean one
	MaxAttempts int
	// InitialBackoff is the wait before the first retry
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between attempts
	MaxBackoff time.Duration
	// BackoffMultiplier grows the wait after each attempt
	BackoffMultiplier float64
	// Jitter adds up to this fraction of the backoff at random
	Jitter float64
	// RetryTimeout bounds the whole retry loop, 0 means no bound
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      5 * time.Second,
	}
}

// RetryWithConfig runs fn until it succeeds, returns an error that is not
// retryable, or the attempts run out. onRetry, if given, runs before every
// attempt after the first.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn func() error) error {
	return retryWithHook(ctx, config, fn, nil)
}

func retryWithHook(ctx context.Context, config *RetryConfig, fn func() error, onRetry func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	attempts := max(config.MaxAttempts, 1)
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, jittered(backoff, config.Jitter)); err != nil {
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, lastErr)
			}
			backoff = nextBackoff(backoff, config)

			if onRetry != nil {
				if err := onRetry(); err != nil {
					return fmt.Errorf("retry preparation failed: %w", err)
				}
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		debugf("attempt %d/%d failed: %v", attempt+1, attempts, lastErr)
	}

	return fmt.Errorf("%w: %d attempts: %w", ErrCommunicationFailed, attempts, lastErr)
}

func nextBackoff(current time.Duration, config *RetryConfig) time.Duration {
	multiplier := config.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	next := time.Duration(float64(current) * multiplier)
	if config.MaxBackoff > 0 && next > config.MaxBackoff {
		next = config.MaxBackoff
	}
	return next
}

func jittered(d time.Duration, jitter float64) time.Duration {
	if d <= 0 || jitter <= 0 {
		return max(d, 0)
	}
	return d + time.Duration(rand.Float64()*jitter*float64(d))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryOperation runs fn with the device retry configuration. Before each
// retry the link is drained so that late bytes from the failed exchange do
// not desynchronise the next one.
//
//	err := device.RetryOperation(ctx, func(ctx context.Context) error {
//	    status, err := device.CaptureImageContext(ctx)
//	    ...
//	})
func (d *Device) RetryOperation(ctx context.Context, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	config := d.config.RetryConfig
	d.mu.Unlock()

	return retryWithHook(ctx, config, func() error {
		return fn(ctx)
	}, func() error {
		n, err := d.Drain()
		if n > 0 {
			debugf("drained %d stale bytes before retry", n)
		}
		return err
	})
}
