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

package cli

import (
	"fmt"
	"strings"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"github.com/ZaparooProject/go-fingerprint/detection"
	_ "github.com/ZaparooProject/go-fingerprint/detection/uart" // registers the serial detector
	"github.com/ZaparooProject/go-fingerprint/transport/uart"
)

// ParseDetectMode maps a configured detection mode name to a detection.Mode.
func ParseDetectMode(name string) (detection.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "passive":
		return detection.Passive, nil
	case "", "safe":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return detection.Safe, fmt.Errorf("%w: detection mode %q", fingerprint.ErrInvalidParameter, name)
	}
}

// DeviceOptions converts cfg into device options. Zero values keep the
// device defaults.
func DeviceOptions(cfg DeviceConfig, extra ...fingerprint.Option) []fingerprint.Option {
	opts := []fingerprint.Option{
		fingerprint.WithPassword(cfg.Password),
	}
	if cfg.Address != 0 {
		opts = append(opts, fingerprint.WithAddress(cfg.Address))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, fingerprint.WithTimeout(cfg.Timeout))
	}
	if cfg.PacketSize > 0 {
		opts = append(opts, fingerprint.WithPacketSize(cfg.PacketSize))
	}
	return append(opts, extra...)
}

func transportOptions(cfg DeviceConfig) []uart.Option {
	var opts []uart.Option
	if cfg.Baud > 0 {
		opts = append(opts, uart.WithBaudRate(cfg.Baud))
	}
	if cfg.SettleDelay > 0 {
		opts = append(opts, uart.WithSettleDelay(cfg.SettleDelay))
	}
	return opts
}

// ConnectOptions builds the options Connect passes to fingerprint.ConnectDevice.
func ConnectOptions(cfg DeviceConfig, extra ...fingerprint.Option) ([]fingerprint.ConnectOption, error) {
	mode, err := ParseDetectMode(cfg.DetectMode)
	if err != nil {
		return nil, err
	}

	detectOpts := detection.DefaultOptions()
	detectOpts.Mode = mode
	detectOpts.Password = cfg.Password

	tOpts := transportOptions(cfg)
	open := func(path string) (fingerprint.Transport, error) {
		t, err := uart.New(path, tOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return t, nil
	}
	return []fingerprint.ConnectOption{
		fingerprint.WithTransportFactory(open),
		fingerprint.WithTransportFromDeviceFactory(func(info detection.DeviceInfo) (fingerprint.Transport, error) {
			return open(info.Path)
		}),
		fingerprint.WithDetectionOptions(&detectOpts),
		fingerprint.WithDeviceOptions(DeviceOptions(cfg, extra...)...),
	}, nil
}

// Connect opens the sensor at cfg.Path, or the first detected one when the
// path is empty, and verifies the password.
func Connect(cfg DeviceConfig, extra ...fingerprint.Option) (*fingerprint.Device, error) {
	opts, err := ConnectOptions(cfg, extra...)
	if err != nil {
		return nil, err
	}
	return fingerprint.ConnectDevice(cfg.Path, opts...)
}
