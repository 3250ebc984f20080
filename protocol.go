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
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-fingerprint/internal/frame"
)

// sendFrame encodes and writes one packet with the configured address.
func (d *Device) sendFrame(packetType frame.PacketType, payload []byte) error {
	buf, err := frame.Encode(d.config.Address, packetType, payload)
	if errors.Is(err, frame.ErrPayloadTooLarge) {
		return NewDataTooLargeError("encode "+packetType.String(), d.port(), err)
	}
	if err != nil {
		return fmt.Errorf("encode %s packet: %w", packetType, err)
	}

	debugf("TX %s: % X", packetType, buf)
	n, err := d.transport.Write(buf)
	if err != nil {
		return NewTransportError("write", d.port(), fmt.Errorf("%w: %w", ErrTransportWrite, err), ErrorTypeTransient)
	}
	if n != len(buf) {
		return NewTransportError("write", d.port(),
			fmt.Errorf("%w: wrote %d of %d bytes", ErrTransportWrite, n, len(buf)), ErrorTypeTransient)
	}
	return nil
}

// receiveFrame reads exactly one packet from the transport. While no byte is
// available it sleeps one poll interval; it gives up once timeout has passed
// since the call began. Bytes after the packet are left on the transport.
func (d *Device) receiveFrame(timeout time.Duration) (frame.Frame, error) {
	d.asm.Reset()
	start := d.clock.Now()

	for {
		if d.transport.Available() {
			b, err := d.transport.ReadByte()
			if err != nil {
				return frame.Frame{}, NewTransportError("read", d.port(),
					fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
			}

			res, err := d.asm.Feed(b)
			if err != nil {
				debugf("RX rejected after %d bytes in %s: %v", d.asm.Buffered(), d.asm.State(), err)
				return frame.Frame{}, NewFrameCorruptedError("receive", d.port(), err)
			}
			if res == frame.Complete {
				f := d.asm.Frame()
				debugf("RX %s: % X", f.Type, f.Payload)
				return f, nil
			}
		} else {
			d.clock.Sleep(d.config.PollInterval)
		}

		if d.clock.Now().Sub(start) >= timeout {
			debugf("RX timeout after %v in %s with %d bytes", timeout, d.asm.State(), d.asm.Buffered())
			return frame.Frame{}, NewTimeoutError("receive", d.port())
		}
	}
}

// execute sends one command packet and waits for its acknowledgement. It
// returns the confirmation code and the bytes that follow it. A context that
// is already done stops the call before anything is written; afterwards the
// exchange only ends with a packet or a timeout. The caller holds d.mu.
func (d *Device) execute(ctx context.Context, cmd byte, args []byte, timeout time.Duration) (Status, []byte, error) {
	name := CommandName(cmd)
	if err := ctx.Err(); err != nil {
		return 0, nil, fmt.Errorf("%s: context done before sending: %w", name, err)
	}

	start := d.clock.Now()
	status, fields, err := d.exchange(name, cmd, args, timeout)
	d.observer.CommandCompleted(name, status, err, d.clock.Now().Sub(start))
	if err == nil && status != StatusOK {
		debugf("%s returned status 0x%02X (%s)", name, byte(status), status)
	}
	return status, fields, err
}

func (d *Device) exchange(name string, cmd byte, args []byte, timeout time.Duration) (Status, []byte, error) {
	payload := make([]byte, 0, 1+len(args))
	payload = append(payload, cmd)
	payload = append(payload, args...)

	if err := d.sendFrame(frame.PacketCommand, payload); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", name, err)
	}

	ack, err := d.receiveFrame(timeout)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s: %w", ErrPacketReceive, name, err)
	}
	if ack.Type != frame.PacketAck {
		return 0, nil, fmt.Errorf("%w: %s: %w: got %s",
			ErrPacketReceive, name, ErrUnexpectedPacketType, describeType(ack.Type))
	}
	if len(ack.Payload) == 0 {
		return 0, nil, fmt.Errorf("%w: %s: %w: empty acknowledgement", ErrPacketReceive, name, ErrShortResponse)
	}

	return Status(ack.Payload[0]), ack.Payload[1:], nil
}

// describeType names t for error messages, with the raw value for types the
// module never uses.
func describeType(t frame.PacketType) string {
	if t.IsValid() {
		return t.String()
	}
	return fmt.Sprintf("unknown type 0x%02X", byte(t))
}

// requireFields checks that an OK acknowledgement carries at least n result
// bytes.
func requireFields(cmd byte, status Status, fields []byte, n int) error {
	if status != StatusOK || len(fields) >= n {
		return nil
	}
	return fmt.Errorf("%w: %s: %w: got %d result bytes, need %d",
		ErrPacketReceive, CommandName(cmd), ErrShortResponse, len(fields), n)
}

// Drain discards every byte currently buffered on the transport and returns
// how many were dropped.
func (d *Device) Drain() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for d.transport.Available() {
		if _, err := d.transport.ReadByte(); err != nil {
			return n, NewTransportError("drain", d.port(),
				fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
		}
		n++
	}
	d.asm.Reset()
	return n, nil
}
