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

import "time"

// Observer receives the outcome of every exchange with the sensor. Calls are
// made with the device lock held and must not call back into the Device.
type Observer interface {
	// CommandCompleted is called after each command/acknowledgement exchange.
	// status is only meaningful when err is nil.
	CommandCompleted(command string, status Status, err error, elapsed time.Duration)

	// TransferCompleted is called after the data phase of a template upload
	// or download.
	TransferCompleted(direction TransferDirection, size int, err error)
}

// TransferDirection names the direction of a template transfer
type TransferDirection string

const (
	// TransferUpload moves a template from the sensor to the host
	TransferUpload TransferDirection = "upload"
	// TransferDownload moves a template from the host to the sensor
	TransferDownload TransferDirection = "download"
)

type nopObserver struct{}

func (nopObserver) CommandCompleted(string, Status, error, time.Duration) {}

func (nopObserver) TransferCompleted(TransferDirection, int, error) {}
