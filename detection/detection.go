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

// Package detection finds fingerprint sensors attached to the host.
//
// Detectors for individual transports register themselves on import:
//
//	import _ "github.com/ZaparooProject/go-fingerprint/detection/uart"
//
// and DetectAll then runs every registered detector.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound is returned when no detector found a sensor
	ErrNoDevicesFound = errors.New("no fingerprint sensors found")

	// ErrDetectionTimeout is returned when detection exceeded Options.Timeout
	ErrDetectionTimeout = errors.New("detection timeout")

	// ErrUnsupportedPlatform is returned by detectors that cannot run on this OS
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
)

// Mode controls how intrusive detection is allowed to be.
type Mode int

const (
	// Passive only inspects port metadata and never opens a port
	Passive Mode = iota
	// Safe opens nothing but checks that the port is accessible
	Safe
	// Full opens each candidate port and asks the sensor for a handshake
	Full
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Options configure a detection run.
type Options struct {
	// Metadata filters results to devices whose metadata contains every pair
	Metadata map[string]string
	// Blocklist holds VID:PID pairs that are never probed
	Blocklist []string
	// IgnorePaths holds device paths that are skipped entirely
	IgnorePaths []string
	// Timeout bounds the whole detection run
	Timeout time.Duration
	// Mode selects how intrusive detection may be
	Mode Mode
	// Password is used for the Full mode handshake
	Password uint32
}

// DefaultOptions returns options for a safe detection run.
func DefaultOptions() Options {
	return Options{
		Timeout:   5 * time.Second,
		Mode:      Safe,
		Blocklist: DefaultBlocklist(),
	}
}

// DeviceInfo describes one detected sensor.
type DeviceInfo struct {
	Metadata  map[string]string
	Transport string
	Path      string
	Name      string
}

// String returns a human readable description
func (d DeviceInfo) String() string {
	if d.Name != "" && d.Name != d.Path {
		return fmt.Sprintf("%s (%s via %s)", d.Name, d.Path, d.Transport)
	}
	return fmt.Sprintf("%s via %s", d.Path, d.Transport)
}

// Detector finds sensors reachable over one transport.
type Detector interface {
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	Transport() string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Detector)
)

// RegisterDetector adds a detector, replacing any registered for the same transport.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// UnregisterDetector removes the detector for a transport.
func UnregisterDetector(transport string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, transport)
}

// Detectors returns the registered detectors sorted by transport name.
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Detector, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Transport() < out[j].Transport()
	})
	return out
}

// DetectAll runs every registered detector.
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector under ctx. Detector errors
// are only reported when nothing was found.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	detectors := Detectors()
	if len(detectors) == 0 {
		return nil, ErrNoDevicesFound
	}

	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, d := range detectors {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return devices, ErrDetectionTimeout
			}
			return devices, err
		}

		found, err := d.Detect(ctx, opts)
		if err != nil {
			if !errors.Is(err, ErrUnsupportedPlatform) {
				errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
			}
			continue
		}
		devices = append(devices, filter(found, opts)...)
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrNoDevicesFound, errors.Join(errs...))
		}
		return nil, ErrNoDevicesFound
	}
	return devices, nil
}

func filter(found []DeviceInfo, opts *Options) []DeviceInfo {
	out := found[:0:0]
	for _, dev := range found {
		if IsPathIgnored(dev.Path, opts.IgnorePaths) {
			continue
		}
		if !matchesMetadata(dev.Metadata, opts.Metadata) {
			continue
		}
		out = append(out, dev)
	}
	return out
}

func matchesMetadata(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
