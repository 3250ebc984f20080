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

// Package uart detects fingerprint sensors on serial ports. Importing it
// registers the detector with the detection package.
package uart

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"github.com/ZaparooProject/go-fingerprint/detection"
	uarttransport "github.com/ZaparooProject/go-fingerprint/transport/uart"
	"go.bug.st/serial/enumerator"
)

// KnownBridges maps VID:PID of USB-serial bridges commonly sold with R30x
// sensors to a display name.
var KnownBridges = map[string]string{
	"1A86:7523": "CH340",
	"1A86:55D4": "CH9102",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"0403:6015": "FT231X",
	"067B:2303": "PL2303",
}

// probeSettle is shorter than the transport default; detection only runs
// against sensors that are already powered.
const probeSettle = 200 * time.Millisecond

type detector struct {
	list   func() ([]*enumerator.PortDetails, error)
	access func(path string) error
	probe  func(ctx context.Context, path string, password uint32) error
}

// New creates a serial port detector.
func New() detection.Detector {
	return &detector{
		list:   enumerator.GetDetailedPortsList,
		access: checkAccess,
		probe:  probeSensor,
	}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns "uart".
func (*detector) Transport() string {
	return string(fingerprint.TransportUART)
}

// Detect lists serial ports and keeps the ones that may host a sensor. USB
// ports qualify by bridge VID:PID; on-board UARTs only qualify in Full mode
// where the sensor itself answers.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, p := range ports {
		if err := ctx.Err(); err != nil {
			return devices, err
		}

		info, ok := d.candidate(p, opts)
		if !ok {
			continue
		}

		if opts.Mode >= detection.Safe {
			if err := d.access(p.Name); err != nil {
				continue
			}
		}
		if opts.Mode == detection.Full {
			if err := d.probe(ctx, p.Name, opts.Password); err != nil {
				continue
			}
			info.Metadata["verified"] = "true"
		}

		devices = append(devices, info)
	}
	return devices, nil
}

func (*detector) candidate(p *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	if p == nil || p.Name == "" || detection.IsPathIgnored(p.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	info := detection.DeviceInfo{
		Transport: string(fingerprint.TransportUART),
		Path:      p.Name,
		Name:      filepath.Base(p.Name),
		Metadata:  make(map[string]string),
	}

	if !p.IsUSB {
		if opts.Mode != detection.Full || !isOnboardUART(p.Name) {
			return detection.DeviceInfo{}, false
		}
		info.Metadata["bridge"] = "onboard"
		return info, true
	}

	vidpid := detection.NormalizeVIDPID(p.VID + ":" + p.PID)
	if vidpid == "" || detection.IsBlocked(vidpid, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}
	bridge, known := KnownBridges[vidpid]
	if !known {
		return detection.DeviceInfo{}, false
	}

	info.Name = bridge
	info.Metadata["vidpid"] = vidpid
	info.Metadata["bridge"] = bridge
	if p.SerialNumber != "" {
		info.Metadata["serial_number"] = p.SerialNumber
	}
	if p.Product != "" {
		info.Metadata["product"] = p.Product
	}
	return info, true
}

func isOnboardUART(path string) bool {
	base := filepath.Base(path)
	for _, prefix := range []string{"ttyS", "ttyAMA", "serial", "ttyTHS"} {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}

func probeSensor(ctx context.Context, path string, password uint32) error {
	tr, err := uarttransport.NewContext(ctx, path,
		uarttransport.WithSettleDelay(probeSettle),
		uarttransport.WithOpenRetries(0))
	if err != nil {
		return err
	}

	device, err := fingerprint.New(tr, fingerprint.WithPassword(password))
	if err != nil {
		_ = tr.Close()
		return err
	}
	defer func() { _ = device.Close() }()

	ok, err := device.VerifyPasswordContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fingerprint.StatusPassFail.Err("VerifyPassword")
	}
	return nil
}
