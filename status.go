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

import "fmt"

// Status is the confirmation code carried in the first byte of every
// acknowledgement packet.
type Status byte

// Confirmation codes reported by the sensor firmware
const (
	StatusOK                 Status = 0x00
	StatusPacketReceiveErr   Status = 0x01
	StatusNoFinger           Status = 0x02
	StatusImageFail          Status = 0x03
	StatusImageMessy         Status = 0x06
	StatusFeatureFail        Status = 0x07
	StatusNoMatch            Status = 0x08
	StatusNotFound           Status = 0x09
	StatusEnrollMismatch     Status = 0x0A
	StatusBadLocation        Status = 0x0B
	StatusDBReadFail         Status = 0x0C
	StatusUploadFeatureFail  Status = 0x0D
	StatusPacketResponseFail Status = 0x0E
	StatusUploadFail         Status = 0x0F
	StatusDeleteFail         Status = 0x10
	StatusDBClearFail        Status = 0x11
	StatusPassFail           Status = 0x13
	StatusInvalidImage       Status = 0x15
	StatusFlashError         Status = 0x18
	StatusInvalidRegister    Status = 0x1A
	StatusAddressCode        Status = 0x20
	StatusPasswordRequired   Status = 0x21
)

var statusNames = map[Status]string{
	StatusOK:                 "ok",
	StatusPacketReceiveErr:   "packet receive error",
	StatusNoFinger:           "no finger",
	StatusImageFail:          "image capture failed",
	StatusImageMessy:         "image too messy",
	StatusFeatureFail:        "feature extraction failed",
	StatusNoMatch:            "templates do not match",
	StatusNotFound:           "no matching template",
	StatusEnrollMismatch:     "enroll mismatch",
	StatusBadLocation:        "bad location",
	StatusDBReadFail:         "template read failed",
	StatusUploadFeatureFail:  "feature upload failed",
	StatusPacketResponseFail: "cannot receive data packets",
	StatusUploadFail:         "image upload failed",
	StatusDeleteFail:         "delete failed",
	StatusDBClearFail:        "database clear failed",
	StatusPassFail:           "wrong password",
	StatusInvalidImage:       "invalid image",
	StatusFlashError:         "flash write error",
	StatusInvalidRegister:    "invalid register",
	StatusAddressCode:        "wrong address",
	StatusPasswordRequired:   "password required",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown status 0x%02X", byte(s))
}

// IsOK reports whether the sensor accepted the command
func (s Status) IsOK() bool {
	return s == StatusOK
}

// Err returns nil for StatusOK and a *StatusError otherwise. Operations
// return a Status value; Err is for callers that prefer error handling.
func (s Status) Err(op string) error {
	if s == StatusOK {
		return nil
	}
	return &StatusError{Op: op, Status: s}
}

// StatusError is a well formed acknowledgement carrying a failure code.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: sensor returned 0x%02X (%s)", e.Op, byte(e.Status), e.Status)
}
