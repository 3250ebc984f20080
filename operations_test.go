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

	testutil "github.com/ZaparooProject/go-fingerprint/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOperations_StatusMapping runs every operation against canned
// acknowledgements and checks the returned status and the packet sent.
//
//nolint:funlen // table
func TestOperations_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		call     func(d *Device) (Status, error)
		name     string
		wantArgs []byte
		reply    []byte
		cmd      byte
		want     Status
	}{
		{
			name:  "capture ok",
			cmd:   testutil.CmdGenImg,
			reply: testutil.BuildAck(0x00),
			call:  func(d *Device) (Status, error) { return d.CaptureImage() },
			want:  StatusOK,
		},
		{
			name:  "capture no finger",
			cmd:   testutil.CmdGenImg,
			reply: testutil.BuildAck(0x02),
			call:  func(d *Device) (Status, error) { return d.CaptureImage() },
			want:  StatusNoFinger,
		},
		{
			name:  "capture image fail",
			cmd:   testutil.CmdGenImg,
			reply: testutil.BuildAck(0x03),
			call:  func(d *Device) (Status, error) { return d.CaptureImage() },
			want:  StatusImageFail,
		},
		{
			name:  "capture receive error",
			cmd:   testutil.CmdGenImg,
			reply: testutil.BuildAck(0x01),
			call:  func(d *Device) (Status, error) { return d.CaptureImage() },
			want:  StatusPacketReceiveErr,
		},
		{
			name:     "extract messy",
			cmd:      testutil.CmdImg2Tz,
			reply:    testutil.BuildAck(0x06),
			call:     func(d *Device) (Status, error) { return d.ExtractFeatures(2) },
			wantArgs: []byte{0x02},
			want:     StatusImageMessy,
		},
		{
			name:     "extract feature fail",
			cmd:      testutil.CmdImg2Tz,
			reply:    testutil.BuildAck(0x07),
			call:     func(d *Device) (Status, error) { return d.ExtractFeatures(1) },
			wantArgs: []byte{0x01},
			want:     StatusFeatureFail,
		},
		{
			name:     "extract invalid image",
			cmd:      testutil.CmdImg2Tz,
			reply:    testutil.BuildAck(0x15),
			call:     func(d *Device) (Status, error) { return d.ExtractFeatures(1) },
			wantArgs: []byte{0x01},
			want:     StatusInvalidImage,
		},
		{
			name:  "create model mismatch",
			cmd:   testutil.CmdRegModel,
			reply: testutil.BuildAck(0x0A),
			call:  func(d *Device) (Status, error) { return d.CreateModel() },
			want:  StatusEnrollMismatch,
		},
		{
			name:     "store ok",
			cmd:      testutil.CmdStore,
			reply:    testutil.BuildAck(0x00),
			call:     func(d *Device) (Status, error) { return d.StoreModel(0x0123) },
			wantArgs: []byte{0x01, 0x01, 0x23},
			want:     StatusOK,
		},
		{
			name:     "store flash error",
			cmd:      testutil.CmdStore,
			reply:    testutil.BuildAck(0x18),
			call:     func(d *Device) (Status, error) { return d.StoreModel(5) },
			wantArgs: []byte{0x01, 0x00, 0x05},
			want:     StatusFlashError,
		},
		{
			name:     "store from buffer 2 bad location",
			cmd:      testutil.CmdStore,
			reply:    testutil.BuildAck(0x0B),
			call:     func(d *Device) (Status, error) { return d.StoreModelFrom(2, 900) },
			wantArgs: []byte{0x02, 0x03, 0x84},
			want:     StatusBadLocation,
		},
		{
			name:     "load bad location",
			cmd:      testutil.CmdLoad,
			reply:    testutil.BuildAck(0x0B),
			call:     func(d *Device) (Status, error) { return d.LoadModel(0x0102, 2) },
			wantArgs: []byte{0x02, 0x01, 0x02},
			want:     StatusBadLocation,
		},
		{
			name:     "delete ok",
			cmd:      testutil.CmdDeleteChar,
			reply:    testutil.BuildAck(0x00),
			call:     func(d *Device) (Status, error) { return d.DeleteModel(0x0010) },
			wantArgs: []byte{0x00, 0x10, 0x00, 0x01},
			want:     StatusOK,
		},
		{
			name:     "delete range flash error",
			cmd:      testutil.CmdDeleteChar,
			reply:    testutil.BuildAck(0x18),
			call:     func(d *Device) (Status, error) { return d.DeleteModels(10, 20) },
			wantArgs: []byte{0x00, 0x0A, 0x00, 0x14},
			want:     StatusFlashError,
		},
		{
			name:  "empty flash error",
			cmd:   testutil.CmdEmpty,
			reply: testutil.BuildAck(0x18),
			call:  func(d *Device) (Status, error) { return d.EmptyDatabase() },
			want:  StatusFlashError,
		},
		{
			name:     "fast search not found",
			cmd:      testutil.CmdHiSpeedSearch,
			reply:    testutil.BuildSearchResponse(0x09, 0, 0),
			call:     func(d *Device) (Status, error) { return d.FastSearch() },
			wantArgs: []byte{0x01, 0x00, 0x00, 0x00, 0xA3},
			want:     StatusNotFound,
		},
		{
			name:     "search not found",
			cmd:      testutil.CmdSearch,
			reply:    testutil.BuildSearchResponse(0x09, 0, 0),
			call:     func(d *Device) (Status, error) { return d.Search(2, 100, 50) },
			wantArgs: []byte{0x02, 0x00, 0x64, 0x00, 0x32},
			want:     StatusNotFound,
		},
		{
			name:  "match no match",
			cmd:   testutil.CmdMatch,
			reply: testutil.BuildMatchResponse(0x08, 0),
			call:  func(d *Device) (Status, error) { return d.Match() },
			want:  StatusNoMatch,
		},
		{
			name:     "set password",
			cmd:      testutil.CmdSetPwd,
			reply:    testutil.BuildAck(0x00),
			call:     func(d *Device) (Status, error) { return d.SetPassword(0x01020304) },
			wantArgs: []byte{0x01, 0x02, 0x03, 0x04},
			want:     StatusOK,
		},
		{
			name:  "template count",
			cmd:   testutil.CmdTemplateNum,
			reply: testutil.BuildTemplateCountResponse(3),
			call:  func(d *Device) (Status, error) { return d.GetTemplateCount() },
			want:  StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := newTestDevice(t)
			mock.SetResponse(tt.cmd, tt.reply)

			status, err := tt.call(device)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)

			writes := mock.Writes()
			require.Len(t, writes, 1)
			f := decodeWrite(t, writes[0])
			require.NotEmpty(t, f.Payload)
			assert.Equal(t, tt.cmd, f.Payload[0])
			if tt.wantArgs != nil {
				assert.Equal(t, tt.wantArgs, f.Payload[1:])
			}
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status byte
		want   bool
	}{
		{name: "accepted", status: 0x00, want: true},
		{name: "wrong password", status: 0x13, want: false},
		{name: "receive error", status: 0x01, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := newTestDevice(t, WithPassword(0xAABBCCDD))
			mock.SetResponse(testutil.CmdVfyPwd, testutil.BuildAck(tt.status))

			ok, err := device.VerifyPassword()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)

			f := decodeWrite(t, mock.Writes()[0])
			assert.Equal(t, []byte{0x13, 0xAA, 0xBB, 0xCC, 0xDD}, f.Payload)
		})
	}
}

func TestSetPassword_UpdatesConfigOnlyOnSuccess(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t, WithPassword(1))
	mock.SetResponse(testutil.CmdSetPwd, testutil.BuildAck(0x01))

	status, err := device.SetPassword(2)
	require.NoError(t, err)
	assert.Equal(t, StatusPacketReceiveErr, status)
	assert.Equal(t, uint32(1), device.Config().Password)

	mock.SetResponse(testutil.CmdSetPwd, testutil.BuildAck(0x00))
	status, err = device.SetPassword(2)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, uint32(2), device.Config().Password)
}

func TestFastSearch_SessionState(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(testutil.CmdHiSpeedSearch, testutil.BuildAck(0x00, 0x01, 0x02, 0x00, 0xC8))

	status, err := device.FastSearch()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, uint16(0x0102), device.FingerID())
	assert.Equal(t, uint16(200), device.Confidence())

	// a miss leaves the last match in place
	mock.SetResponse(testutil.CmdHiSpeedSearch, testutil.BuildSearchResponse(0x09, 0, 0))
	status, err = device.FastSearch()
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
	assert.Equal(t, uint16(0x0102), device.FingerID())
	assert.Equal(t, uint16(200), device.Confidence())
}

func TestFastSearch_PageCountOption(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t, WithSearchPageCount(1000))
	mock.SetResponse(testutil.CmdHiSpeedSearch, testutil.BuildSearchResponse(0x09, 0, 0))

	_, err := device.FastSearch()
	require.NoError(t, err)
	f := decodeWrite(t, mock.Writes()[0])
	assert.Equal(t, []byte{0x1B, 0x01, 0x00, 0x00, 0x03, 0xE8}, f.Payload)
}

func TestMatch_Confidence(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(testutil.CmdMatch, testutil.BuildMatchResponse(0x00, 321))

	status, err := device.Match()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, uint16(321), device.Confidence())
}

func TestGetTemplateCount_SessionState(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(testutil.CmdTemplateNum, testutil.BuildTemplateCountResponse(0x0203))

	_, err := device.GetTemplateCount()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), device.TemplateCount())
}

func TestShortResultFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		call  func(d *Device) error
		name  string
		reply []byte
		cmd   byte
	}{
		{
			name:  "fast search",
			cmd:   testutil.CmdHiSpeedSearch,
			reply: testutil.BuildAck(0x00, 0x00, 0x01),
			call:  func(d *Device) error { _, err := d.FastSearch(); return err },
		},
		{
			name:  "match",
			cmd:   testutil.CmdMatch,
			reply: testutil.BuildAck(0x00, 0x01),
			call:  func(d *Device) error { _, err := d.Match(); return err },
		},
		{
			name:  "template count",
			cmd:   testutil.CmdTemplateNum,
			reply: testutil.BuildAck(0x00),
			call:  func(d *Device) error { _, err := d.GetTemplateCount(); return err },
		},
		{
			name:  "system parameters",
			cmd:   testutil.CmdReadSysPara,
			reply: testutil.BuildAck(0x00, 0x00, 0x00, 0x00),
			call:  func(d *Device) error { _, _, err := d.ReadSystemParameters(); return err },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := newTestDevice(t)
			mock.SetResponse(tt.cmd, tt.reply)

			err := tt.call(device)
			require.ErrorIs(t, err, ErrShortResponse)
			assert.ErrorIs(t, err, ErrPacketReceive)
			assert.Zero(t, device.FingerID())
			assert.Zero(t, device.TemplateCount())
		})
	}
}

func TestCallerMisuse_NothingSent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		call func(d *Device) error
		name string
	}{
		{name: "extract slot 0", call: func(d *Device) error { _, err := d.ExtractFeatures(0); return err }},
		{name: "extract slot 3", call: func(d *Device) error { _, err := d.ExtractFeatures(3); return err }},
		{name: "store past capacity", call: func(d *Device) error { _, err := d.StoreModel(1000); return err }},
		{name: "store from bad buffer", call: func(d *Device) error { _, err := d.StoreModelFrom(9, 1); return err }},
		{name: "load past capacity", call: func(d *Device) error { _, err := d.LoadModel(1000, 1); return err }},
		{name: "load bad buffer", call: func(d *Device) error { _, err := d.LoadModel(1, 0); return err }},
		{name: "delete zero count", call: func(d *Device) error { _, err := d.DeleteModels(1, 0); return err }},
		{name: "delete past capacity", call: func(d *Device) error { _, err := d.DeleteModels(999, 2); return err }},
		{name: "delete location past capacity", call: func(d *Device) error { _, err := d.DeleteModel(1000); return err }},
		{name: "search past capacity", call: func(d *Device) error { _, err := d.Search(1, 990, 20); return err }},
		{name: "search bad slot", call: func(d *Device) error { _, err := d.Search(0, 0, 1); return err }},
		{name: "upload bad buffer", call: func(d *Device) error { _, _, err := d.UploadModel(3); return err }},
		{name: "download empty", call: func(d *Device) error { _, err := d.DownloadModel(1, nil); return err }},
		{name: "download bad buffer", call: func(d *Device) error { _, err := d.DownloadModel(0, []byte{1}); return err }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := newTestDevice(t)
			err := tt.call(device)
			require.ErrorIs(t, err, ErrInvalidParameter)
			assert.False(t, IsRetryable(err))
			assert.Empty(t, mock.Writes())
		})
	}
}

func TestCapacityOption(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t, WithCapacity(200))
	mock.SetResponse(testutil.CmdStore, testutil.BuildAck(0x00))

	_, err := device.StoreModel(200)
	require.ErrorIs(t, err, ErrInvalidParameter)

	status, err := device.StoreModel(199)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
}

func TestReadSystemParameters(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(testutil.CmdReadSysPara,
		testutil.BuildSystemParametersResponse(1000, 3, 2, 6, 0xFFFFFFFF))

	params, status, err := device.ReadSystemParameters()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	require.NotNil(t, params)
	assert.Equal(t, uint16(1000), params.Capacity)
	assert.Equal(t, uint16(3), params.SecurityLevel)
	assert.Equal(t, uint16(0x0009), params.SystemID)
	assert.Equal(t, uint32(0xFFFFFFFF), params.Address)
	assert.Equal(t, 128, params.PacketSize)
	assert.Equal(t, 57600, params.BaudRate)
	assert.Equal(t, params, device.SystemParameters())
}

func TestReadSystemParameters_AdoptsSensorSettings(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(testutil.CmdReadSysPara,
		testutil.BuildSystemParametersResponse(200, 3, 0, 6, 0xFFFFFFFF))
	mock.SetResponse(testutil.CmdDownChar, testutil.BuildAck(testutil.StatusOK))

	_, status, err := device.ReadSystemParameters()
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, 32, device.Config().PacketSize)
	assert.Equal(t, uint16(200), device.Config().Capacity)

	status, err = device.DownloadModel(Buffer1, testutil.MakeTemplate(1, 100))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	// ReadSysPara, DownChar, then 32+32+32+4 bytes of data
	assert.Len(t, mock.Writes(), 6)

	_, err = device.StoreModel(200)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestReadSystemParameters_Failure(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(testutil.CmdReadSysPara, testutil.BuildAck(0x01))

	params, status, err := device.ReadSystemParameters()
	require.NoError(t, err)
	assert.Nil(t, params)
	assert.Equal(t, StatusPacketReceiveErr, status)
	assert.Nil(t, device.SystemParameters())
}
