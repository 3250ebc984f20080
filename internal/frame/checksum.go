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

// Checksum returns the 16-bit additive checksum of a packet. The sum covers
// the two length bytes, the packet type and every payload byte. The start code
// and the module address are not part of it.
func Checksum(length uint16, packetType PacketType, payload []byte) uint16 {
	sum := uint16(length>>8) + uint16(length&0xFF) + uint16(packetType)
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}

// WireLength returns the value carried in the length field for a payload of
// n bytes. It counts the trailing checksum.
func WireLength(n int) uint16 {
	return uint16(n + ChecksumLength)
}
