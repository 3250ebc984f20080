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

package testing

import (
	"encoding/binary"

	"github.com/ZaparooProject/go-fingerprint/internal/frame"
)

// Instruction codes for reference
const (
	CmdGenImg        = 0x01
	CmdImg2Tz        = 0x02
	CmdMatch         = 0x03
	CmdSearch        = 0x04
	CmdRegModel      = 0x05
	CmdStore         = 0x06
	CmdLoad          = 0x07
	CmdUpChar        = 0x08
	CmdDownChar      = 0x09
	CmdDeleteChar    = 0x0C
	CmdEmpty         = 0x0D
	CmdReadSysPara   = 0x0F
	CmdSetPwd        = 0x12
	CmdVfyPwd        = 0x13
	CmdHiSpeedSearch = 0x1B
	CmdTemplateNum   = 0x1D
)

// Confirmation codes used by the builders and the virtual sensor
const (
	StatusOK               = 0x00
	StatusPacketReceiveErr = 0x01
	StatusNoFinger         = 0x02
	StatusImageFail        = 0x03
	StatusImageMessy       = 0x06
	StatusFeatureFail      = 0x07
	StatusNoMatch          = 0x08
	StatusNotFound         = 0x09
	StatusEnrollMismatch   = 0x0A
	StatusBadLocation      = 0x0B
	StatusDBReadFail       = 0x0C
	StatusUploadFeature    = 0x0D
	StatusPassFail         = 0x13
	StatusInvalidImage     = 0x15
	StatusFlashError       = 0x18
	StatusInvalidRegister  = 0x1A
)

// BuildPacket encodes a packet for the broadcast address and panics on an
// oversized payload.
func BuildPacket(packetType frame.PacketType, payload []byte) []byte {
	return BuildPacketFor(frame.BroadcastAddress, packetType, payload)
}

// BuildPacketFor encodes a packet for the given address
func BuildPacketFor(address uint32, packetType frame.PacketType, payload []byte) []byte {
	buf, err := frame.Encode(address, packetType, payload)
	if err != nil {
		panic(err)
	}
	return buf
}

// BuildAck creates an acknowledgement packet carrying status and fields
func BuildAck(status byte, fields ...byte) []byte {
	return BuildPacket(frame.PacketAck, append([]byte{status}, fields...))
}

// BuildSearchResponse creates a Search/HiSpeedSearch acknowledgement
func BuildSearchResponse(status byte, id, confidence uint16) []byte {
	fields := binary.BigEndian.AppendUint16(nil, id)
	fields = binary.BigEndian.AppendUint16(fields, confidence)
	return BuildAck(status, fields...)
}

// BuildMatchResponse creates a Match acknowledgement
func BuildMatchResponse(status byte, confidence uint16) []byte {
	return BuildAck(status, binary.BigEndian.AppendUint16(nil, confidence)...)
}

// BuildTemplateCountResponse creates a successful TemplateNum acknowledgement
func BuildTemplateCountResponse(count uint16) []byte {
	return BuildAck(StatusOK, binary.BigEndian.AppendUint16(nil, count)...)
}

// BuildSystemParametersResponse creates a successful ReadSysPara
// acknowledgement. packetCode is 0..3 for 32..256 byte packets and baud is
// the multiple of 9600.
func BuildSystemParametersResponse(capacity, securityLevel, packetCode, baud uint16, address uint32) []byte {
	fields := make([]byte, 0, 16)
	fields = binary.BigEndian.AppendUint16(fields, 0x0000)
	fields = binary.BigEndian.AppendUint16(fields, 0x0009)
	fields = binary.BigEndian.AppendUint16(fields, capacity)
	fields = binary.BigEndian.AppendUint16(fields, securityLevel)
	fields = binary.BigEndian.AppendUint32(fields, address)
	fields = binary.BigEndian.AppendUint16(fields, packetCode)
	fields = binary.BigEndian.AppendUint16(fields, baud)
	return BuildAck(StatusOK, fields...)
}

// BuildDataPackets splits data into data packets of size bytes, the last
// one marked end-of-data, and returns them back to back.
func BuildDataPackets(data []byte, size int) []byte {
	return BuildDataPacketsFor(frame.BroadcastAddress, data, size)
}

// BuildDataPacketsFor is BuildDataPackets for the given address
func BuildDataPacketsFor(address uint32, data []byte, size int) []byte {
	var out []byte
	for offset := 0; offset < len(data); offset += size {
		end := min(offset+size, len(data))
		packetType := frame.PacketData
		if end == len(data) {
			packetType = frame.PacketEndOfData
		}
		out = append(out, BuildPacketFor(address, packetType, data[offset:end])...)
	}
	return out
}

// CorruptChecksum returns a copy of packet with the last checksum byte flipped
func CorruptChecksum(packet []byte) []byte {
	out := append([]byte(nil), packet...)
	out[len(out)-1] ^= 0xFF
	return out
}

// MakeTemplate returns n deterministic bytes derived from seed
func MakeTemplate(seed byte, n int) []byte {
	t := make([]byte, n)
	for i := range t {
		t[i] = seed ^ byte(i*31+7)
	}
	return t
}

// TemplateSize is the size of a character file on R30x sensors
const TemplateSize = 512
