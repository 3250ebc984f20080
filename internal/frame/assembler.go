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

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrAssemblerDone is returned when bytes are fed to an assembler that has
// already produced a frame or failed and has not been reset.
var ErrAssemblerDone = errors.New("assembler finished, reset before reuse")

// State is the position of the assembler inside a packet.
type State int

// Assembler states, in wire order
const (
	StateWaitStartHigh State = iota // discarding noise until 0xEF
	StateWaitStartLow               // expecting 0x01
	StateAddress                    // 4 address bytes
	StateType                       // packet type
	StateLengthHigh                 // length MSB
	StateLengthLow                  // length LSB
	StatePayload                    // length-2 payload bytes
	StateChecksumHigh               // checksum MSB
	StateChecksumLow                // checksum LSB
	StateComplete                   // frame available
	StateFailed                     // terminal format error
)

var stateNames = [...]string{
	StateWaitStartHigh: "wait-start-high",
	StateWaitStartLow:  "wait-start-low",
	StateAddress:       "address",
	StateType:          "type",
	StateLengthHigh:    "length-high",
	StateLengthLow:     "length-low",
	StatePayload:       "payload",
	StateChecksumHigh:  "checksum-high",
	StateChecksumLow:   "checksum-low",
	StateComplete:      "complete",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is the outcome of feeding one byte.
type Result int

const (
	// Pending means more bytes are needed.
	Pending Result = iota
	// Complete means a validated frame is available from Frame.
	Complete
)

// Assembler builds a frame from a byte stream, one byte at a time. It keeps
// the raw bytes of the frame in progress and hands them to Decode once the
// last checksum byte arrives, so there is a single validation path.
//
// An Assembler is not safe for concurrent use.
type Assembler struct {
	buf       []byte
	frame     Frame
	state     State
	remaining int
}

// NewAssembler returns an assembler waiting for a start code.
func NewAssembler() *Assembler {
	return &Assembler{buf: make([]byte, 0, HeaderLength+ChecksumLength+32)}
}

// State returns the current state.
func (a *Assembler) State() State {
	return a.state
}

// Buffered returns the number of bytes accepted into the current frame.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Frame returns the last completed frame. It is only meaningful after Feed
// returned Complete.
func (a *Assembler) Frame() Frame {
	return a.frame
}

// Reset drops any partial frame and waits for a new start code.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
	a.frame = Frame{}
	a.state = StateWaitStartHigh
	a.remaining = 0
}

// Feed consumes one byte.
//
// Bytes other than the start code MSB are discarded while waiting for a
// packet, which lets the assembler resynchronise after line noise. Once the
// MSB has been seen a wrong LSB is a terminal ErrBadStartCode; the caller
// decides whether to Reset and keep reading.
func (a *Assembler) Feed(b byte) (Result, error) {
	switch a.state {
	case StateWaitStartHigh:
		if b != StartCodeHigh {
			return Pending, nil
		}
		a.buf = append(a.buf[:0], b)
		a.state = StateWaitStartLow
	case StateWaitStartLow:
		if b != StartCodeLow {
			return a.fail(fmt.Errorf("%w: got 0x%02X%02X", ErrBadStartCode, StartCodeHigh, b))
		}
		a.buf = append(a.buf, b)
		a.state, a.remaining = StateAddress, 4
	case StateAddress:
		a.buf = append(a.buf, b)
		if a.remaining--; a.remaining == 0 {
			a.state = StateType
		}
	case StateType:
		a.buf = append(a.buf, b)
		a.state = StateLengthHigh
	case StateLengthHigh:
		a.buf = append(a.buf, b)
		a.state = StateLengthLow
	case StateLengthLow:
		a.buf = append(a.buf, b)
		return a.startPayload()
	case StatePayload:
		a.buf = append(a.buf, b)
		if a.remaining--; a.remaining == 0 {
			a.state = StateChecksumHigh
		}
	case StateChecksumHigh:
		a.buf = append(a.buf, b)
		a.state = StateChecksumLow
	case StateChecksumLow:
		a.buf = append(a.buf, b)
		return a.complete()
	default:
		return Pending, ErrAssemblerDone
	}
	return Pending, nil
}

func (a *Assembler) startPayload() (Result, error) {
	length := binary.BigEndian.Uint16(a.buf[7:9])
	if length < ChecksumLength {
		return a.fail(fmt.Errorf("%w: length field %d", ErrBadLength, length))
	}

	payloadLen := int(length) - ChecksumLength
	if payloadLen > MaxPayload {
		return a.fail(fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrBadLength, payloadLen, MaxPayload))
	}

	if payloadLen == 0 {
		a.state = StateChecksumHigh
		return Pending, nil
	}
	a.state, a.remaining = StatePayload, payloadLen
	return Pending, nil
}

func (a *Assembler) complete() (Result, error) {
	f, err := Decode(a.buf)
	if err != nil {
		return a.fail(err)
	}
	a.frame = f
	a.state = StateComplete
	return Complete, nil
}

func (a *Assembler) fail(err error) (Result, error) {
	a.state = StateFailed
	return Pending, err
}
