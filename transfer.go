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
	"fmt"

	"github.com/ZaparooProject/go-fingerprint/internal/frame"
)

// UploadModel transfers the template held in buffer from the sensor to the
// host. The sensor acknowledges the command and then sends the template as
// data packets terminated by an end-of-data packet. A non-OK
// acknowledgement returns the status and no data.
func (d *Device) UploadModel(buffer byte) ([]byte, Status, error) {
	return d.UploadModelContext(context.Background(), buffer)
}

// UploadModelContext is UploadModel with a context checked before sending.
func (d *Device) UploadModelContext(ctx context.Context, buffer byte) ([]byte, Status, error) {
	if err := checkBuffer(buffer); err != nil {
		return nil, 0, err
	}
	if err := d.lock(ctx); err != nil {
		return nil, 0, err
	}
	defer d.mu.Unlock()

	status, _, err := d.execute(ctx, cmdUpChar, []byte{buffer}, d.config.Timeout)
	if err != nil || status != StatusOK {
		return nil, status, err
	}

	template, err := d.receiveData()
	d.observer.TransferCompleted(TransferUpload, len(template), err)
	if err != nil {
		return nil, 0, err
	}
	return template, status, nil
}

// receiveData collects data packets until end-of-data within the transfer
// timeout.
func (d *Device) receiveData() ([]byte, error) {
	start := d.clock.Now()
	var template []byte

	for packets := 1; ; packets++ {
		remaining := d.config.TransferTimeout - d.clock.Now().Sub(start)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: upload: %w", ErrPacketReceive, NewTimeoutError("upload", d.port()))
		}

		f, err := d.receiveFrame(remaining)
		if err != nil {
			return nil, fmt.Errorf("%w: upload packet %d: %w", ErrPacketReceive, packets, err)
		}

		switch f.Type {
		case frame.PacketData:
			template = append(template, f.Payload...)
		case frame.PacketEndOfData:
			template = append(template, f.Payload...)
			debugf("upload complete: %d bytes in %d packets", len(template), packets)
			return template, nil
		default:
			return nil, fmt.Errorf("%w: upload packet %d: %w: got %s",
				ErrPacketReceive, packets, ErrUnexpectedPacketType, describeType(f.Type))
		}
	}
}

// DownloadModel transfers a template from the host into buffer on the
// sensor. After an OK acknowledgement the template is sent in data packets
// of the configured packet size, the last one marked end-of-data. The
// sensor does not acknowledge the data itself.
func (d *Device) DownloadModel(buffer byte, template []byte) (Status, error) {
	return d.DownloadModelContext(context.Background(), buffer, template)
}

// DownloadModelContext is DownloadModel with a context checked before sending.
func (d *Device) DownloadModelContext(ctx context.Context, buffer byte, template []byte) (Status, error) {
	if err := checkBuffer(buffer); err != nil {
		return 0, err
	}
	if len(template) == 0 {
		return 0, fmt.Errorf("%w: empty template", ErrInvalidParameter)
	}
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	status, _, err := d.execute(ctx, cmdDownChar, []byte{buffer}, d.config.Timeout)
	if err != nil || status != StatusOK {
		return status, err
	}

	err = d.sendData(template)
	d.observer.TransferCompleted(TransferDownload, len(template), err)
	if err != nil {
		return 0, err
	}
	return status, nil
}

func (d *Device) sendData(template []byte) error {
	size := d.config.PacketSize
	for offset := 0; offset < len(template); offset += size {
		end := min(offset+size, len(template))

		packetType := frame.PacketData
		if end == len(template) {
			packetType = frame.PacketEndOfData
		}
		if err := d.sendFrame(packetType, template[offset:end]); err != nil {
			return fmt.Errorf("download at offset %d: %w", offset, err)
		}
	}
	debugf("download complete: %d bytes", len(template))
	return nil
}
