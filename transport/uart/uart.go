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

// Package uart provides a serial port transport for fingerprint sensors.
package uart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"github.com/ZaparooProject/go-fingerprint/internal/transport"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the factory baud rate of R30x sensors
	DefaultBaudRate = 57600
	// DefaultSettleDelay is how long the sensor needs after power-up or
	// port open before it answers commands
	DefaultSettleDelay = time.Second
	// DefaultOpenRetries is how often a busy port is re-opened
	DefaultOpenRetries = 3

	readChunk       = 64
	readPollTimeout = 50 * time.Millisecond
	openRetryDelay  = 200 * time.Millisecond
)

type portOpener func(name string, mode *serial.Mode) (serial.Port, error)

// Transport implements fingerprint.Transport over a serial port. A background
// goroutine moves received bytes into a buffer so Available never blocks.
type Transport struct {
	port     serial.Port
	readErr  error
	done     chan struct{}
	stopped  chan struct{}
	opener   portOpener
	portName string
	buf      []byte
	settle   time.Duration
	baud     int
	retries  int
	mu       sync.Mutex
	closed   bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithBaudRate sets the link speed. Sensors accept multiples of 9600 up to 115200.
func WithBaudRate(baud int) Option {
	return func(t *Transport) {
		t.baud = baud
	}
}

// WithSettleDelay sets the wait after opening the port.
func WithSettleDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.settle = d
	}
}

// WithOpenRetries sets how often opening a busy port is retried.
func WithOpenRetries(n int) Option {
	return func(t *Transport) {
		t.retries = n
	}
}

func withOpener(open portOpener) Option {
	return func(t *Transport) {
		t.opener = open
	}
}

// New opens portName at 57600 8N1 unless options say otherwise.
func New(portName string, opts ...Option) (*Transport, error) {
	return NewContext(context.Background(), portName, opts...)
}

// NewContext is New with cancellation of the open retries and settle delay.
func NewContext(ctx context.Context, portName string, opts ...Option) (*Transport, error) {
	t := &Transport{
		portName: portName,
		baud:     DefaultBaudRate,
		settle:   DefaultSettleDelay,
		retries:  DefaultOpenRetries,
		opener:   serial.Open,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.baud <= 0 || t.baud%9600 != 0 {
		return nil, fmt.Errorf("%w: baud rate %d is not a multiple of 9600",
			fingerprint.ErrInvalidParameter, t.baud)
	}

	mode := &serial.Mode{
		BaudRate: t.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := transport.WithRetry(ctx, transport.RetryConfig{
		Op:         "open",
		Port:       portName,
		MaxRetries: t.retries,
		RetryDelay: openRetryDelay,
	}, func() (serial.Port, bool, error) {
		p, openErr := t.opener(portName, mode)
		if openErr == nil {
			return p, false, nil
		}
		if isBusy(openErr) {
			return nil, true, nil
		}
		return nil, false, fingerprint.NewTransportError("open", portName, openErr, fingerprint.ErrorTypePermanent)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	_ = port.ResetInputBuffer()

	t.port = port
	t.done = make(chan struct{})
	t.stopped = make(chan struct{})
	go t.readLoop()

	if t.settle > 0 {
		timer := time.NewTimer(t.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = t.Close()
			return nil, fmt.Errorf("waiting for %s to settle: %w", portName, ctx.Err())
		case <-timer.C:
		}
	}

	return t, nil
}

func isBusy(err error) bool {
	var portErr serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortBusy
	}
	var portErrPtr *serial.PortError
	if errors.As(err, &portErrPtr) {
		return portErrPtr.Code() == serial.PortBusy
	}
	return false
}

func (t *Transport) readLoop() {
	defer close(t.stopped)

	chunk := make([]byte, readChunk)
	for {
		n, err := t.port.Read(chunk)
		if n > 0 {
			t.mu.Lock()
			t.buf = append(t.buf, chunk[:n]...)
			t.mu.Unlock()
		}

		select {
		case <-t.done:
			return
		default:
		}

		if err != nil {
			t.mu.Lock()
			t.readErr = err
			t.mu.Unlock()
			return
		}
	}
}

// Write sends data to the sensor.
func (t *Transport) Write(data []byte) (int, error) {
	t.mu.Lock()
	closed := t.closed || t.port == nil
	t.mu.Unlock()
	if closed {
		return 0, fingerprint.NewTransportError("write", t.portName,
			fingerprint.ErrTransportClosed, fingerprint.ErrorTypePermanent)
	}

	n, err := t.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("%w: %w", fingerprint.ErrTransportWrite, err)
	}
	return n, nil
}

// Available reports whether a received byte is buffered.
func (t *Transport) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf) > 0
}

// ReadByte returns the oldest buffered byte.
func (t *Transport) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buf) == 0 {
		switch {
		case t.closed:
			return 0, fingerprint.NewTransportError("read", t.portName,
				fingerprint.ErrTransportClosed, fingerprint.ErrorTypePermanent)
		case t.readErr != nil:
			return 0, fingerprint.NewTransportError("read", t.portName,
				fmt.Errorf("%w: %w", fingerprint.ErrTransportRead, t.readErr), fingerprint.ErrorTypePermanent)
		default:
			return 0, fingerprint.NewTransportError("read", t.portName,
				fingerprint.ErrTransportRead, fingerprint.ErrorTypeTransient)
		}
	}

	b := t.buf[0]
	t.buf = t.buf[1:]
	if len(t.buf) == 0 {
		t.buf = nil
	}
	return b, nil
}

// Close stops the reader goroutine and closes the port. It is safe to call twice.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed || t.port == nil {
		t.closed = true
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.done)
	err := t.port.Close()
	<-t.stopped

	t.mu.Lock()
	t.buf = nil
	t.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to close %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected reports whether the port is open and the reader is healthy.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil && !t.closed && t.readErr == nil
}

// Type returns fingerprint.TransportUART.
func (*Transport) Type() fingerprint.TransportType {
	return fingerprint.TransportUART
}

// PortName returns the device path the transport was opened on.
func (t *Transport) PortName() string {
	return t.portName
}

// BaudRate returns the configured link speed.
func (t *Transport) BaudRate() int {
	return t.baud
}

var _ fingerprint.Transport = (*Transport)(nil)
