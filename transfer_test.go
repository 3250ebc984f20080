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
	"testing"
	"time"

	"github.com/ZaparooProject/go-fingerprint/internal/frame"
	testutil "github.com/ZaparooProject/go-fingerprint/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadModel_Reassembly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		size       int
		packetSize int
	}{
		{name: "512 bytes in 128 byte packets", size: 512, packetSize: 128},
		{name: "512 bytes in 256 byte packets", size: 512, packetSize: 256},
		{name: "uneven tail", size: 300, packetSize: 64},
		{name: "single end packet", size: 20, packetSize: 32},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			observer := &recordingObserver{}
			device, mock := newTestDevice(t, WithObserver(observer))
			template := testutil.MakeTemplate(0x5A, tt.size)
			reply := append(testutil.BuildAck(0x00), testutil.BuildDataPackets(template, tt.packetSize)...)
			mock.SetResponse(testutil.CmdUpChar, reply)

			got, status, err := device.UploadModel(Buffer1)
			require.NoError(t, err)
			assert.Equal(t, StatusOK, status)
			assert.Equal(t, template, got)
			assert.Zero(t, mock.Pending())
			assert.Equal(t, []int{tt.size}, observer.transfers)

			f := decodeWrite(t, mock.Writes()[0])
			assert.Equal(t, []byte{0x08, 0x01}, f.Payload)
		})
	}
}

func TestUploadModel_StatusFailure(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(testutil.CmdUpChar, testutil.BuildAck(0x0D))

	got, status, err := device.UploadModel(Buffer2)
	require.NoError(t, err)
	assert.Equal(t, StatusUploadFeatureFail, status)
	assert.Nil(t, got)
}

func TestUploadModel_UnexpectedPacket(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	reply := testutil.BuildAck(0x00)
	reply = append(reply, testutil.BuildPacket(frame.PacketData, []byte{1, 2, 3})...)
	reply = append(reply, testutil.BuildAck(0x00)...)
	mock.SetResponse(testutil.CmdUpChar, reply)

	got, _, err := device.UploadModel(Buffer1)
	require.ErrorIs(t, err, ErrUnexpectedPacketType)
	assert.ErrorIs(t, err, ErrPacketReceive)
	assert.Nil(t, got)
}

func TestUploadModel_CorruptDataPacket(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	reply := testutil.BuildAck(0x00)
	reply = append(reply, testutil.CorruptChecksum(testutil.BuildPacket(frame.PacketEndOfData, []byte{1, 2, 3}))...)
	mock.SetResponse(testutil.CmdUpChar, reply)

	_, _, err := device.UploadModel(Buffer1)
	require.ErrorIs(t, err, ErrChecksumMismatch)
	assert.ErrorIs(t, err, ErrPacketReceive)
}

func TestUploadModel_TransferTimeout(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock()
	observer := &recordingObserver{}
	device, mock := newTestDevice(t,
		WithClock(clock),
		WithTransferTimeout(50*time.Millisecond),
		WithObserver(observer),
	)
	reply := testutil.BuildAck(0x00)
	reply = append(reply, testutil.BuildPacket(frame.PacketData, make([]byte, 128))...)
	mock.SetResponse(testutil.CmdUpChar, reply)

	start := clock.Now()
	_, _, err := device.UploadModel(Buffer1)
	require.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrPacketReceive)
	assert.LessOrEqual(t, clock.Now().Sub(start), 51*time.Millisecond)
	assert.Equal(t, []int{0}, observer.transfers)
}

func TestDownloadModel_Chunking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		wantSizes  []int
		size       int
		packetSize int
	}{
		{name: "exact multiple", size: 512, packetSize: 128, wantSizes: []int{128, 128, 128, 128}},
		{name: "uneven tail", size: 300, packetSize: 128, wantSizes: []int{128, 128, 44}},
		{name: "smaller than a packet", size: 10, packetSize: 32, wantSizes: []int{10}},
		{name: "256 byte packets", size: 512, packetSize: 256, wantSizes: []int{256, 256}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := newTestDevice(t, WithPacketSize(tt.packetSize))
			mock.SetResponse(testutil.CmdDownChar, testutil.BuildAck(0x00))
			template := testutil.MakeTemplate(0x11, tt.size)

			status, err := device.DownloadModel(Buffer2, template)
			require.NoError(t, err)
			assert.Equal(t, StatusOK, status)

			writes := mock.Writes()
			require.Len(t, writes, 1+len(tt.wantSizes))
			cmd := decodeWrite(t, writes[0])
			assert.Equal(t, []byte{0x09, 0x02}, cmd.Payload)

			var sent []byte
			for i, raw := range writes[1:] {
				f := decodeWrite(t, raw)
				assert.Len(t, f.Payload, tt.wantSizes[i])
				if i == len(tt.wantSizes)-1 {
					assert.Equal(t, frame.PacketEndOfData, f.Type)
				} else {
					assert.Equal(t, frame.PacketData, f.Type)
				}
				sent = append(sent, f.Payload...)
			}
			assert.Equal(t, template, sent)
		})
	}
}

func TestDownloadModel_StatusFailureSendsNoData(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(testutil.CmdDownChar, testutil.BuildAck(0x0E))

	status, err := device.DownloadModel(Buffer1, testutil.MakeTemplate(1, 512))
	require.NoError(t, err)
	assert.Equal(t, StatusPacketResponseFail, status)
	assert.Len(t, mock.Writes(), 1)
}
