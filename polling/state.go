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

import "time"

// DetectionState is the finger presence state machine.
type DetectionState int

const (
	// StateIdle means no finger is on the glass
	StateIdle DetectionState = iota
	// StateFingerPresent means an image was captured and is being handled
	StateFingerPresent
	// StateAwaitingRelease means the finger was handled and must be lifted
	// before it is handled again
	StateAwaitingRelease
)

// String returns the state name
func (s DetectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFingerPresent:
		return "finger present"
	case StateAwaitingRelease:
		return "awaiting release"
	default:
		return "unknown"
	}
}

// Match is a successful identification.
type Match struct {
	At         time.Time
	FingerID   uint16
	Confidence uint16
}

// FingerState tracks the finger on the sensor.
type FingerState struct {
	LastSeen       time.Time
	PresentSince   time.Time
	LastMatch      *Match
	DetectionState DetectionState
}

// Present reports whether a finger is on the glass.
func (fs FingerState) Present() bool {
	return fs.DetectionState != StateIdle
}

// TransitionToPresent records a newly placed finger.
func (fs *FingerState) TransitionToPresent(now time.Time) {
	if fs.DetectionState == StateIdle {
		fs.PresentSince = now
		fs.LastMatch = nil
	}
	fs.DetectionState = StateFingerPresent
	fs.LastSeen = now
}

// TransitionToAwaitingRelease marks the current finger as handled.
func (fs *FingerState) TransitionToAwaitingRelease(match *Match) {
	fs.DetectionState = StateAwaitingRelease
	fs.LastMatch = match
}

// Seen refreshes LastSeen while the finger stays on the glass.
func (fs *FingerState) Seen(now time.Time) {
	fs.LastSeen = now
}

// TransitionToIdle clears the state after the finger was lifted.
func (fs *FingerState) TransitionToIdle() {
	fs.DetectionState = StateIdle
	fs.PresentSince = time.Time{}
	fs.LastMatch = nil
}
