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
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	debugEnabled atomic.Bool
	loggerMu     sync.RWMutex
	logger       = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Str("component", "fingerprint").Logger()
)

// SetDebugEnabled turns protocol debug logging on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetLogger replaces the logger debug output is written to
func SetLogger(l zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func currentLogger() *zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	l := logger
	return &l
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	currentLogger().Debug().Msgf(format, args...)
}
