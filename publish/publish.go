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

// Package publish sends scan events to an MQTT broker.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ZaparooProject/go-fingerprint/polling"
)

// Event types
const (
	EventIdentified = "identified"
	EventUnknown    = "unknown"
	EventRemoved    = "removed"
	EventEnrolled   = "enrolled"
)

// Status payloads on the retained status topic
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("mqtt client not connected")

// Event is the JSON document published for every scan.
type Event struct {
	Time       time.Time `json:"time"`
	FingerID   *uint16   `json:"finger_id,omitempty"`
	Confidence *uint16   `json:"confidence,omitempty"`
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Sensor     string    `json:"sensor"`
}

// Config holds broker settings.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Sensor      string
	Timeout     time.Duration
	QoS         byte
}

// DefaultConfig returns settings for a local broker.
func DefaultConfig() Config {
	return Config{
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "fingerprint",
		Timeout:     5 * time.Second,
		QoS:         1,
	}
}

// Publisher publishes events for one sensor.
type Publisher struct {
	client mqtt.Client
	now    func() time.Time
	cfg    Config
}

// Connect dials the broker and announces the sensor as online. The status
// topic falls back to offline through the broker's last will.
func Connect(cfg Config) (*Publisher, error) {
	cfg = withDefaults(cfg)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetWill(statusTopic(cfg), StatusOffline, cfg.QoS, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to %s: timed out after %v", cfg.Broker, cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	p := New(client, cfg)
	if err := p.announce(StatusOnline); err != nil {
		client.Disconnect(250)
		return nil, err
	}
	return p, nil
}

// New wraps an already configured client.
func New(client mqtt.Client, cfg Config) *Publisher {
	return &Publisher{client: client, cfg: withDefaults(cfg), now: time.Now}
}

func withDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.Broker == "" {
		cfg.Broker = d.Broker
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = d.TopicPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "fingerprint-" + uuid.NewString()[:8]
	}
	if cfg.Sensor == "" {
		cfg.Sensor = cfg.ClientID
	}
	return cfg
}

func statusTopic(cfg Config) string {
	return strings.TrimSuffix(cfg.TopicPrefix, "/") + "/" + cfg.Sensor + "/status"
}

// EventTopic returns the topic events are published on.
func (p *Publisher) EventTopic() string {
	return strings.TrimSuffix(p.cfg.TopicPrefix, "/") + "/" + p.cfg.Sensor + "/events"
}

// StatusTopic returns the retained online/offline topic.
func (p *Publisher) StatusTopic() string {
	return statusTopic(p.cfg)
}

// Identified publishes a match.
func (p *Publisher) Identified(m polling.Match) error {
	id, confidence := m.FingerID, m.Confidence
	return p.Publish(Event{Type: EventIdentified, FingerID: &id, Confidence: &confidence, Time: m.At})
}

// Unknown publishes a finger that is not in the library.
func (p *Publisher) Unknown() error {
	return p.Publish(Event{Type: EventUnknown})
}

// Removed publishes a lifted finger.
func (p *Publisher) Removed() error {
	return p.Publish(Event{Type: EventRemoved})
}

// Enrolled publishes a new template stored at location.
func (p *Publisher) Enrolled(location uint16) error {
	return p.Publish(Event{Type: EventEnrolled, FingerID: &location})
}

// Publish fills in ID, sensor and time and sends ev.
func (p *Publisher) Publish(ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = p.now()
	}
	ev.Sensor = p.cfg.Sensor

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return p.send(p.EventTopic(), payload, false)
}

func (p *Publisher) announce(status string) error {
	return p.send(p.StatusTopic(), []byte(status), true)
}

func (p *Publisher) send(topic string, payload []byte, retain bool) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	token := p.client.Publish(topic, p.cfg.QoS, retain, payload)
	if !token.WaitTimeout(p.cfg.Timeout) {
		return fmt.Errorf("publish to %s: timed out after %v", topic, p.cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close marks the sensor offline and disconnects.
func (p *Publisher) Close() error {
	err := p.announce(StatusOffline)
	p.client.Disconnect(250)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}
