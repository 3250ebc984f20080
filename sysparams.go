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
	"encoding/binary"
	"fmt"
)

const sysParamsLength = 16

// SystemParameters is the basic configuration reported by the sensor.
type SystemParameters struct {
	// StatusRegister holds the busy, pass, password and image buffer flags
	StatusRegister uint16 `yaml:"status_register"`
	SystemID       uint16 `yaml:"system_id"`
	Capacity       uint16 `yaml:"capacity"`
	SecurityLevel  uint16 `yaml:"security_level"`
	Address        uint32 `yaml:"address"`
	// PacketSize is the data packet length in bytes
	PacketSize int `yaml:"packet_size"`
	// BaudRate is the configured serial speed in bits per second
	BaudRate int `yaml:"baud_rate"`
}

func parseSystemParameters(fields []byte) (*SystemParameters, error) {
	if len(fields) < sysParamsLength {
		return nil, fmt.Errorf("%w: system parameters need %d bytes, got %d",
			ErrShortResponse, sysParamsLength, len(fields))
	}

	code := binary.BigEndian.Uint16(fields[12:14])
	if code > 3 {
		return nil, fmt.Errorf("%w: packet size code %d", ErrFormat, code)
	}

	return &SystemParameters{
		StatusRegister: binary.BigEndian.Uint16(fields[0:2]),
		SystemID:       binary.BigEndian.Uint16(fields[2:4]),
		Capacity:       binary.BigEndian.Uint16(fields[4:6]),
		SecurityLevel:  binary.BigEndian.Uint16(fields[6:8]),
		Address:        binary.BigEndian.Uint32(fields[8:12]),
		PacketSize:     32 << code,
		BaudRate:       int(binary.BigEndian.Uint16(fields[14:16])) * 9600,
	}, nil
}

// ReadSystemParameters reads the sensor configuration. The result is also
// kept and returned by SystemParameters.
func (d *Device) ReadSystemParameters() (*SystemParameters, Status, error) {
	return d.ReadSystemParametersContext(context.Background())
}

// ReadSystemParametersContext is ReadSystemParameters with a context checked
// before sending.
func (d *Device) ReadSystemParametersContext(ctx context.Context) (*SystemParameters, Status, error) {
	if err := d.lock(ctx); err != nil {
		return nil, 0, err
	}
	defer d.mu.Unlock()

	status, fields, err := d.execute(ctx, cmdReadSysPara, nil, d.config.Timeout)
	if err != nil {
		return nil, 0, err
	}
	if status != StatusOK {
		return nil, status, nil
	}

	params, err := parseSystemParameters(fields)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrPacketReceive, CommandName(cmdReadSysPara), err)
	}
	d.params = params
	d.config.PacketSize = params.PacketSize
	if params.Capacity > 0 {
		d.config.Capacity = params.Capacity
	}
	p := *params
	return &p, status, nil
}
