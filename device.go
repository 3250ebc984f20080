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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-fingerprint/detection"
	"github.com/ZaparooProject/go-fingerprint/internal/frame"
)

// Default protocol settings
const (
	DefaultTimeout         = 1 * time.Second
	DefaultTransferTimeout = 20 * time.Second
	DefaultPollInterval    = 1 * time.Millisecond
	DefaultCapacity        = 1000
	DefaultSearchPageCount = 0x00A3
	DefaultPacketSize      = 128
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// RetryConfig is used by RetryOperation; the protocol itself never retries
	RetryConfig *RetryConfig
	// Timeout bounds the wait for each acknowledgement
	Timeout time.Duration
	// TransferTimeout bounds the data phase of a template upload
	TransferTimeout time.Duration
	// PollInterval is the sleep between checks for incoming bytes
	PollInterval time.Duration
	// PacketSize is the data packet size configured on the sensor
	PacketSize int
	// Address is the sensor address written into every packet
	Address uint32
	// Password is sent by VerifyPassword
	Password uint32
	// Capacity is the number of library locations
	Capacity uint16
	// SearchPageCount is the number of locations FastSearch covers
	SearchPageCount uint16
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig:     DefaultRetryConfig(),
		Timeout:         DefaultTimeout,
		TransferTimeout: DefaultTransferTimeout,
		PollInterval:    DefaultPollInterval,
		PacketSize:      DefaultPacketSize,
		Address:         frame.BroadcastAddress,
		Password:        0,
		Capacity:        DefaultCapacity,
		SearchPageCount: DefaultSearchPageCount,
	}
}

// Device represents one fingerprint sensor.
//
// Thread Safety: every operation holds the device lock for the whole
// command/acknowledgement exchange, so concurrent callers are serialised and
// never interleave packets on the link.
type Device struct {
	transport Transport
	config    *DeviceConfig
	clock     Clock
	observer  Observer
	asm       *frame.Assembler
	params    *SystemParameters

	mu            sync.Mutex
	fingerID      uint16
	confidence    uint16
	templateCount uint16
}

// New creates a device on the given transport. No bytes are exchanged.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		clock:     SystemClock,
		observer:  nopObserver{},
		asm:       frame.NewAssembler(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Config returns a copy of the current configuration
func (d *Device) Config() DeviceConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.config
}

// FingerID returns the location matched by the last successful search
func (d *Device) FingerID() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fingerID
}

// Confidence returns the score of the last successful search or match
func (d *Device) Confidence() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.confidence
}

// TemplateCount returns the count reported by the last GetTemplateCount
func (d *Device) TemplateCount() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.templateCount
}

// SystemParameters returns the parameters read by the last
// ReadSystemParameters call, or nil.
func (d *Device) SystemParameters() *SystemParameters {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.params == nil {
		return nil
	}
	p := *d.params
	return &p
}

// Close closes the device connection
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

func (d *Device) port() string {
	return string(d.transport.Type())
}

// TransportFactory is a function type for creating transports
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory is a function type for creating transports from detected devices
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// ConnectOption represents a functional option for ConnectDevice
type ConnectOption func(*connectConfig) error

type connectConfig struct {
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	detectOptions          *detection.Options
	deviceOptions          []Option
	autoDetect             bool
	skipVerify             bool
}

// WithAutoDetection enables automatic device detection instead of using a specific path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDetectionOptions sets the options used for auto-detection
func WithDetectionOptions(opts *detection.Options) ConnectOption {
	return func(c *connectConfig) error {
		c.detectOptions = opts
		return nil
	}
}

// WithDeviceOptions adds device-level options
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

// WithoutPasswordCheck connects without sending VerifyPassword
func WithoutPasswordCheck() ConnectOption {
	return func(c *connectConfig) error {
		c.skipVerify = true
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithTransportFromDeviceFactory sets the transport from device factory function
func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

// ConnectDevice opens a transport for path (or the first detected sensor),
// creates the device and verifies the configured password.
//
// Example usage:
//
//	device, err := fingerprint.ConnectDevice("/dev/ttyUSB0",
//	    fingerprint.WithTransportFactory(func(path string) (fingerprint.Transport, error) {
//	        return uart.New(path)
//	    }))
func ConnectDevice(path string, opts ...ConnectOption) (*Device, error) {
	config := &connectConfig{}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}

	var (
		transport Transport
		err       error
	)
	if config.autoDetect || path == "" {
		transport, err = createAutoDetectedTransport(config)
	} else {
		transport, err = createManualTransport(path, config.transportFactory)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	device, err := New(transport, config.deviceOptions...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	if !config.skipVerify {
		ok, err := device.VerifyPassword()
		if err != nil {
			_ = transport.Close()
			return nil, fmt.Errorf("failed to verify password: %w", err)
		}
		if !ok {
			_ = transport.Close()
			return nil, fmt.Errorf("failed to verify password: %w", StatusPassFail.Err("VerifyPassword"))
		}
	}

	return device, nil
}

func createManualTransport(path string, factory TransportFactory) (Transport, error) {
	if factory == nil {
		return nil, errors.New("transport factory not provided")
	}

	transport, err := factory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}

	return transport, nil
}

func createAutoDetectedTransport(config *connectConfig) (Transport, error) {
	if config.transportDeviceFactory == nil {
		return nil, errors.New("transport device factory not provided")
	}

	opts := config.detectOptions
	if opts == nil {
		defaults := detection.DefaultOptions()
		opts = &defaults
	}

	devices, err := detection.DetectAll(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrDeviceNotFound
	}

	debugf("auto-detected sensor at %s (%s)", devices[0].Path, devices[0].Transport)
	return config.transportDeviceFactory(devices[0])
}
