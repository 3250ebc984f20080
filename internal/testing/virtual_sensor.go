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
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/ZaparooProject/go-fingerprint/internal/frame"
)

// Fault alters the next reply of a VirtualSensor
type Fault int

const (
	// FaultNone replies normally
	FaultNone Fault = iota
	// FaultSilent drops the reply
	FaultSilent
	// FaultCorruptChecksum flips a checksum bit in the reply
	FaultCorruptChecksum
	// FaultWrongType sends the reply as a data packet
	FaultWrongType
	// FaultLeadingNoise puts noise bytes before the reply
	FaultLeadingNoise
)

// VirtualSensor simulates the firmware of an R30x sensor for tests. It
// consumes raw packets written by the host and returns the raw bytes the
// sensor would send back.
type VirtualSensor struct {
	library    map[uint16][]byte
	buffers    [3][]byte
	image      []byte
	finger     []byte
	download   []byte
	commands   []byte
	Password   uint32
	Address    uint32
	PacketSize int
	Capacity   uint16
	Confidence uint16
	dlBuffer   byte
	fault      Fault
	mu         sync.Mutex
}

// NewVirtualSensor creates a sensor with an empty library of 1000 locations,
// 128 byte data packets and password 0.
func NewVirtualSensor() *VirtualSensor {
	return &VirtualSensor{
		library:    make(map[uint16][]byte),
		Address:    frame.BroadcastAddress,
		PacketSize: 128,
		Capacity:   1000,
		Confidence: 120,
	}
}

// PlaceFinger puts a finger whose features are template on the glass
func (v *VirtualSensor) PlaceFinger(template []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finger = append([]byte(nil), template...)
}

// RemoveFinger lifts the finger off the glass
func (v *VirtualSensor) RemoveFinger() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finger = nil
}

// Enroll stores a template directly in the library
func (v *VirtualSensor) Enroll(location uint16, template []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.library[location] = append([]byte(nil), template...)
}

// Stored returns the template at location
func (v *VirtualSensor) Stored(location uint16) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.library[location]
	return append([]byte(nil), t...), ok
}

// Buffer returns the contents of character buffer 1 or 2
func (v *VirtualSensor) Buffer(n byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.buffers[n]...)
}

// Commands returns the instruction codes received so far
func (v *VirtualSensor) Commands() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.commands...)
}

// InjectFault applies f to the next reply only
func (v *VirtualSensor) InjectFault(f Fault) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fault = f
}

// Handle processes one packet written by the host.
func (v *VirtualSensor) Handle(packet []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	f, err := frame.Decode(packet)
	if err != nil {
		return v.reply(StatusPacketReceiveErr)
	}
	if f.Address != v.Address {
		return nil
	}

	switch f.Type {
	case frame.PacketData, frame.PacketEndOfData:
		if v.dlBuffer == 0 {
			return nil
		}
		v.download = append(v.download, f.Payload...)
		if f.Type == frame.PacketEndOfData {
			v.buffers[v.dlBuffer] = v.download
			v.download, v.dlBuffer = nil, 0
		}
		return nil
	case frame.PacketCommand:
	default:
		return nil
	}

	if len(f.Payload) == 0 {
		return v.reply(StatusPacketReceiveErr)
	}
	cmd, args := f.Payload[0], f.Payload[1:]
	v.commands = append(v.commands, cmd)
	return v.dispatch(cmd, args)
}

//nolint:gocyclo // one case per instruction
func (v *VirtualSensor) dispatch(cmd byte, args []byte) []byte {
	switch cmd {
	case CmdVfyPwd:
		if len(args) != 4 {
			return v.reply(StatusPacketReceiveErr)
		}
		if binary.BigEndian.Uint32(args) != v.Password {
			return v.reply(StatusPassFail)
		}
		return v.reply(StatusOK)
	case CmdSetPwd:
		if len(args) != 4 {
			return v.reply(StatusPacketReceiveErr)
		}
		v.Password = binary.BigEndian.Uint32(args)
		return v.reply(StatusOK)
	case CmdGenImg:
		if v.finger == nil {
			return v.reply(StatusNoFinger)
		}
		v.image = append([]byte(nil), v.finger...)
		return v.reply(StatusOK)
	case CmdImg2Tz:
		if len(args) != 1 || !validBuffer(args[0]) {
			return v.reply(StatusInvalidRegister)
		}
		if v.image == nil {
			return v.reply(StatusInvalidImage)
		}
		v.buffers[args[0]] = append([]byte(nil), v.image...)
		return v.reply(StatusOK)
	case CmdRegModel:
		if v.buffers[1] == nil || !bytes.Equal(v.buffers[1], v.buffers[2]) {
			return v.reply(StatusEnrollMismatch)
		}
		v.buffers[2] = append([]byte(nil), v.buffers[1]...)
		return v.reply(StatusOK)
	case CmdStore:
		return v.store(args)
	case CmdLoad:
		return v.load(args)
	case CmdUpChar:
		if len(args) != 1 || !validBuffer(args[0]) {
			return v.reply(StatusInvalidRegister)
		}
		if v.buffers[args[0]] == nil {
			return v.reply(StatusUploadFeature)
		}
		out := v.reply(StatusOK)
		return append(out, BuildDataPacketsFor(v.Address, v.buffers[args[0]], v.PacketSize)...)
	case CmdDownChar:
		if len(args) != 1 || !validBuffer(args[0]) {
			return v.reply(StatusInvalidRegister)
		}
		v.dlBuffer, v.download = args[0], nil
		return v.reply(StatusOK)
	case CmdDeleteChar:
		return v.delete(args)
	case CmdEmpty:
		v.library = make(map[uint16][]byte)
		return v.reply(StatusOK)
	case CmdReadSysPara:
		return v.sysPara()
	case CmdSearch, CmdHiSpeedSearch:
		return v.search(args)
	case CmdMatch:
		if v.buffers[1] != nil && bytes.Equal(v.buffers[1], v.buffers[2]) {
			return v.reply(StatusOK, be16(v.Confidence)...)
		}
		return v.reply(StatusNoMatch, 0x00, 0x00)
	case CmdTemplateNum:
		return v.reply(StatusOK, be16(uint16(len(v.library)))...)
	default:
		return v.reply(StatusPacketReceiveErr)
	}
}

func (v *VirtualSensor) store(args []byte) []byte {
	if len(args) != 3 || !validBuffer(args[0]) {
		return v.reply(StatusInvalidRegister)
	}
	loc := binary.BigEndian.Uint16(args[1:3])
	if loc >= v.Capacity {
		return v.reply(StatusBadLocation)
	}
	if v.buffers[args[0]] == nil {
		return v.reply(StatusFlashError)
	}
	v.library[loc] = append([]byte(nil), v.buffers[args[0]]...)
	return v.reply(StatusOK)
}

func (v *VirtualSensor) load(args []byte) []byte {
	if len(args) != 3 || !validBuffer(args[0]) {
		return v.reply(StatusInvalidRegister)
	}
	loc := binary.BigEndian.Uint16(args[1:3])
	if loc >= v.Capacity {
		return v.reply(StatusBadLocation)
	}
	t, ok := v.library[loc]
	if !ok {
		return v.reply(StatusDBReadFail)
	}
	v.buffers[args[0]] = append([]byte(nil), t...)
	return v.reply(StatusOK)
}

func (v *VirtualSensor) delete(args []byte) []byte {
	if len(args) != 4 {
		return v.reply(StatusPacketReceiveErr)
	}
	start := binary.BigEndian.Uint16(args[0:2])
	count := binary.BigEndian.Uint16(args[2:4])
	if int(start)+int(count) > int(v.Capacity) {
		return v.reply(StatusBadLocation)
	}
	for loc := int(start); loc < int(start)+int(count); loc++ {
		delete(v.library, uint16(loc))
	}
	return v.reply(StatusOK)
}

func (v *VirtualSensor) search(args []byte) []byte {
	if len(args) != 5 || !validBuffer(args[0]) {
		return v.reply(StatusInvalidRegister)
	}
	features := v.buffers[args[0]]
	start := binary.BigEndian.Uint16(args[1:3])
	count := binary.BigEndian.Uint16(args[3:5])

	locations := make([]int, 0, len(v.library))
	for loc := range v.library {
		locations = append(locations, int(loc))
	}
	sort.Ints(locations)

	for _, loc := range locations {
		if loc < int(start) || loc >= int(start)+int(count) {
			continue
		}
		if features != nil && bytes.Equal(v.library[uint16(loc)], features) {
			return v.reply(StatusOK, append(be16(uint16(loc)), be16(v.Confidence)...)...)
		}
	}
	return v.reply(StatusNotFound, 0x00, 0x00, 0x00, 0x00)
}

func (v *VirtualSensor) sysPara() []byte {
	code := uint16(0)
	for size := 32; size < v.PacketSize; size <<= 1 {
		code++
	}
	fields := make([]byte, 0, 16)
	fields = binary.BigEndian.AppendUint16(fields, 0x0000)
	fields = binary.BigEndian.AppendUint16(fields, 0x0009)
	fields = binary.BigEndian.AppendUint16(fields, v.Capacity)
	fields = binary.BigEndian.AppendUint16(fields, 3)
	fields = binary.BigEndian.AppendUint32(fields, v.Address)
	fields = binary.BigEndian.AppendUint16(fields, code)
	fields = binary.BigEndian.AppendUint16(fields, 6)
	return v.reply(StatusOK, fields...)
}

// reply encodes an acknowledgement and applies any pending fault.
func (v *VirtualSensor) reply(status byte, fields ...byte) []byte {
	payload := append([]byte{status}, fields...)
	fault := v.fault
	v.fault = FaultNone

	switch fault {
	case FaultSilent:
		return nil
	case FaultCorruptChecksum:
		return CorruptChecksum(BuildPacketFor(v.Address, frame.PacketAck, payload))
	case FaultWrongType:
		return BuildPacketFor(v.Address, frame.PacketData, payload)
	case FaultLeadingNoise:
		return append([]byte{0x00, 0x55, 0xEE}, BuildPacketFor(v.Address, frame.PacketAck, payload)...)
	default:
		return BuildPacketFor(v.Address, frame.PacketAck, payload)
	}
}

func validBuffer(b byte) bool {
	return b == 1 || b == 2
}

func be16(n uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, n)
}
