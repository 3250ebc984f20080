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

// ErrFormat is the parent of every malformed packet error.
var ErrFormat = errors.New("bad packet")

// Format errors
var (
	ErrBadStartCode     = fmt.Errorf("%w: invalid start code", ErrFormat)
	ErrBadLength        = fmt.Errorf("%w: invalid length", ErrFormat)
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", ErrFormat)
)

// ErrPayloadTooLarge is returned when a payload does not fit in one packet.
var ErrPayloadTooLarge = errors.New("payload too large")

// Frame is one decoded packet. Payload never includes the checksum.
type Frame struct {
	Payload []byte
	Address uint32
	Type    PacketType
}

// Encode builds the wire representation of a packet:
//
//	[0xEF 0x01][ADDR(4)][TYPE][LEN_H LEN_L][PAYLOAD...][SUM_H SUM_L]
//
// LEN is the payload length plus two and SUM is Checksum over LEN, TYPE and
// PAYLOAD.
func Encode(address uint32, packetType PacketType, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes, maximum is %d", ErrPayloadTooLarge, len(payload), MaxPayload)
	}

	length := WireLength(len(payload))
	buf := make([]byte, HeaderLength+len(payload)+ChecksumLength)

	binary.BigEndian.PutUint16(buf[0:2], StartCode)
	binary.BigEndian.PutUint32(buf[2:6], address)
	buf[6] = byte(packetType)
	binary.BigEndian.PutUint16(buf[7:9], length)
	copy(buf[HeaderLength:], payload)
	binary.BigEndian.PutUint16(buf[len(buf)-ChecksumLength:], Checksum(length, packetType, payload))

	return buf, nil
}

// Decode parses one complete packet. The buffer must hold exactly one frame.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < Overhead {
		return Frame{}, fmt.Errorf("%w: got %d bytes, minimum is %d", ErrBadLength, len(buf), Overhead)
	}

	if code := binary.BigEndian.Uint16(buf[0:2]); code != StartCode {
		return Frame{}, fmt.Errorf("%w: got 0x%04X", ErrBadStartCode, code)
	}

	length := binary.BigEndian.Uint16(buf[7:9])
	if length < ChecksumLength {
		return Frame{}, fmt.Errorf("%w: length field %d", ErrBadLength, length)
	}
	if HeaderLength+int(length) != len(buf) {
		return Frame{}, fmt.Errorf("%w: length field %d does not match %d buffered bytes",
			ErrBadLength, length, len(buf))
	}

	packetType := PacketType(buf[6])
	payload := buf[HeaderLength : len(buf)-ChecksumLength]

	got := binary.BigEndian.Uint16(buf[len(buf)-ChecksumLength:])
	if want := Checksum(length, packetType, payload); got != want {
		return Frame{}, fmt.Errorf("%w: got 0x%04X, expected 0x%04X", ErrChecksumMismatch, got, want)
	}

	out := make([]byte, len(payload))
	copy(out, payload)

	return Frame{
		Address: binary.BigEndian.Uint32(buf[2:6]),
		Type:    packetType,
		Payload: out,
	}, nil
}
