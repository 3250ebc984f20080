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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-fingerprint/internal/frame"
)

// Transport errors
var (
	ErrTimeout             = errors.New("timeout waiting for packet")
	ErrTransportRead       = errors.New("transport read failed")
	ErrTransportWrite      = errors.New("transport write failed")
	ErrTransportClosed     = errors.New("transport closed")
	ErrCommunicationFailed = errors.New("communication failed")
	ErrDeviceNotFound      = errors.New("device not found")
)

// Packet format errors. All of them match ErrFormat with errors.Is.
var (
	ErrFormat               = frame.ErrFormat
	ErrBadStartCode         = frame.ErrBadStartCode
	ErrBadLength            = frame.ErrBadLength
	ErrChecksumMismatch     = frame.ErrChecksumMismatch
	ErrUnexpectedPacketType = fmt.Errorf("%w: unexpected packet type", frame.ErrFormat)
	ErrShortResponse        = fmt.Errorf("%w: response too short", frame.ErrFormat)
)

// Protocol and caller errors
var (
	// ErrPacketReceive wraps every timeout or format error seen while waiting
	// for a reply.
	ErrPacketReceive    = errors.New("packet receive error")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDataTooLarge     = errors.New("data too large")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on a later attempt
	ErrorTypeTransient
	// ErrorTypeTimeout errors are transient errors caused by a timeout
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError carries the operation and port a transport failure
// happened on.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error; transient and timeout errors
// are marked retryable.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Err:       err,
		Op:        op,
		Port:      port,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a retryable error for a malformed packet.
// cause should be one of the ErrFormat family; nil means ErrFormat.
func NewFrameCorruptedError(op, port string, cause error) *TransportError {
	if cause == nil {
		cause = ErrFormat
	}
	return NewTransportError(op, port, cause, ErrorTypeTransient)
}

// NewDataTooLargeError creates a permanent error for oversized payloads
func NewDataTooLargeError(op, port string, cause error) *TransportError {
	err := ErrDataTooLarge
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrDataTooLarge, cause)
	}
	return NewTransportError(op, port, err, ErrorTypePermanent)
}

// IsRetryable reports whether repeating the operation could succeed
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrFormat),
		errors.Is(err, ErrPacketReceive):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of an error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrFormat),
		errors.Is(err, ErrPacketReceive):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
