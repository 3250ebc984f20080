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
	"sync"
	"time"

	"github.com/ZaparooProject/go-fingerprint/internal/frame"
)

type pendingReply struct {
	readyAt time.Time
	data    []byte
}

// MockTransport is an in-memory transport for tests. Replies are queued when
// the host writes a command packet, either from canned responses keyed by
// instruction code or from a handler that sees every written packet.
type MockTransport struct {
	responses map[byte][]byte
	errors    map[byte]error
	callCount map[byte]int
	handler   func(packet []byte) []byte
	rx        []pendingReply
	writes    [][]byte
	delay     time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewMockTransport creates an empty mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		errors:    make(map[byte]error),
		callCount: make(map[byte]int),
	}
}

// SetResponse queues reply (raw bytes, usually one or more packets) each
// time the command cmd is written.
func (m *MockTransport) SetResponse(cmd byte, reply []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = append([]byte(nil), reply...)
}

// SetError makes Write fail with err when cmd is written
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[cmd] = err
}

// SetHandler routes every written packet through fn and queues its result.
// Canned responses are ignored while a handler is set.
func (m *MockTransport) SetHandler(fn func(packet []byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

// SetDelay holds each reply back for d after the write that caused it
func (m *MockTransport) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// QueueBytes makes data available to read immediately
func (m *MockTransport) QueueBytes(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = append(m.rx, pendingReply{data: append([]byte(nil), data...)})
}

// GetCallCount returns how many times cmd was written
func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[cmd]
}

// Writes returns a copy of every successful write
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Pending returns the number of queued bytes not read yet
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rx {
		n += len(r.data)
	}
	return n
}

// Write records data and queues the reply for it
func (m *MockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrTransportClosed
	}

	packet := append([]byte(nil), data...)
	cmd, isCommand := commandOf(packet)
	if isCommand {
		if err, ok := m.errors[cmd]; ok {
			return 0, err
		}
		m.callCount[cmd]++
	}
	m.writes = append(m.writes, packet)

	var reply []byte
	switch {
	case m.handler != nil:
		reply = m.handler(packet)
	case isCommand:
		reply = m.responses[cmd]
	}
	if len(reply) > 0 {
		m.rx = append(m.rx, pendingReply{
			data:    append([]byte(nil), reply...),
			readyAt: time.Now().Add(m.delay),
		})
	}
	return len(data), nil
}

func commandOf(packet []byte) (byte, bool) {
	f, err := frame.Decode(packet)
	if err != nil || f.Type != frame.PacketCommand || len(f.Payload) == 0 {
		return 0, false
	}
	return f.Payload[0], true
}

// Available reports whether a queued byte is ready
func (m *MockTransport) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready()
}

func (m *MockTransport) ready() bool {
	for len(m.rx) > 0 && len(m.rx[0].data) == 0 {
		m.rx = m.rx[1:]
	}
	return !m.closed && len(m.rx) > 0 && !time.Now().Before(m.rx[0].readyAt)
}

// ReadByte returns the next queued byte
func (m *MockTransport) ReadByte() (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrTransportClosed
	}
	if !m.ready() {
		return 0, ErrTransportRead
	}
	b := m.rx[0].data[0]
	m.rx[0].data = m.rx[0].data[1:]
	return b, nil
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected returns true until Close is called
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}
