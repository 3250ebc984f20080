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

// Package transport holds helpers shared by the transport implementations.
package transport

import (
	"context"
	"fmt"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
)

// Attempt is one try of a retried operation. It reports the result, whether
// the failure is worth another try, and a permanent error that stops retrying.
type Attempt[T any] func() (result T, again bool, err error)

// RetryConfig configures WithRetry.
type RetryConfig struct {
	// OnRetry runs before every retry; an error aborts
	OnRetry func(attempt int) error
	// Op and Port label the error returned when retries run out
	Op         string
	Port       string
	MaxRetries int
	RetryDelay time.Duration
}

// WithRetry runs op until it succeeds, fails permanently, ctx is done or
// MaxRetries extra attempts have been made.
func WithRetry[T any](ctx context.Context, config RetryConfig, op Attempt[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, again, err := op()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return zero, err
			}
		}

		if config.RetryDelay > 0 {
			timer := time.NewTimer(config.RetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("%s aborted: %w", config.Op, ctx.Err())
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s aborted: %w", config.Op, err)
		}
	}

	return zero, fingerprint.NewTransportError(config.Op, config.Port,
		fingerprint.ErrCommunicationFailed, fingerprint.ErrorTypeTransient)
}
