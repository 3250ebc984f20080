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

/*
Package fingerprint drives R30x-family optical fingerprint sensors (R301T,
R305, R307, ZFM-20 and compatibles) over a serial link.

The sensor does all image processing and matching itself. The host sends
command packets and reads acknowledgement packets that carry a one byte
confirmation code and, for some commands, result fields such as a matched
location or a confidence score. Templates can be moved between host and
sensor as a run of data packets.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-fingerprint"
	    "github.com/ZaparooProject/go-fingerprint/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := fingerprint.New(transport, fingerprint.WithTimeout(2*time.Second))
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if ok, err := device.VerifyPassword(); err != nil || !ok {
	    log.Fatal("sensor not found")
	}

	if status, err := device.CaptureImage(); err == nil && status.IsOK() {
	    device.ExtractFeatures(fingerprint.Buffer1)
	    if status, _ := device.FastSearch(); status.IsOK() {
	        fmt.Printf("Found ID #%d with confidence of %d\n", device.FingerID(), device.Confidence())
	    }
	}

Error Handling:

Operations return the sensor's confirmation code as a Status value. Routine
outcomes such as StatusNoFinger or StatusNotFound are not errors. Errors are
reserved for faults on the link and for invalid arguments:

	status, err := device.StoreModel(1200)
	if errors.Is(err, fingerprint.ErrInvalidParameter) {
	    // nothing was sent
	}
	if errors.Is(err, fingerprint.ErrPacketReceive) {
	    // timeout or malformed packet; errors.Is(err, fingerprint.ErrTimeout)
	    // and errors.Is(err, fingerprint.ErrFormat) tell them apart
	}

Thread Safety:

A Device serialises its callers: each operation holds the device lock for
the whole exchange. The protocol has no request identifiers, so only one
command is ever outstanding on the link.
*/
package fingerprint
