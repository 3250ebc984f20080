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

// Package cli holds configuration, logging and connection code shared by
// the command line tools.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FPRINT_DEVICE_PATH.
const EnvPrefix = "FPRINT"

// Config is the full tool configuration.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Touch   TouchConfig   `mapstructure:"touch"`
	Polling PollingConfig `mapstructure:"polling"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DeviceConfig selects and configures the sensor.
type DeviceConfig struct {
	// Path of the serial port; empty means auto-detect
	Path        string        `mapstructure:"path"`
	DetectMode  string        `mapstructure:"detectMode"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SettleDelay time.Duration `mapstructure:"settleDelay"`
	Baud        int           `mapstructure:"baud"`
	Password    uint32        `mapstructure:"password"`
	Address     uint32        `mapstructure:"address"`
	PacketSize  int           `mapstructure:"packetSize"`
}

// TouchConfig configures the optional finger-detect GPIO.
type TouchConfig struct {
	Pin       string        `mapstructure:"pin"`
	Debounce  time.Duration `mapstructure:"debounce"`
	ActiveLow bool          `mapstructure:"activeLow"`
}

// PollingConfig configures the scan loop.
type PollingConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	IdleInterval time.Duration `mapstructure:"idleInterval"`
	IdleAfter    time.Duration `mapstructure:"idleAfter"`
}

// MQTTConfig configures event publishing.
type MQTTConfig struct {
	Broker      string        `mapstructure:"broker"`
	ClientID    string        `mapstructure:"clientID"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	TopicPrefix string        `mapstructure:"topicPrefix"`
	Sensor      string        `mapstructure:"sensor"`
	Timeout     time.Duration `mapstructure:"timeout"`
	QoS         byte          `mapstructure:"qos"`
	Enable      bool          `mapstructure:"enable"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the listener
	Addr string `mapstructure:"addr"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	File   FileConfig `mapstructure:"file"`
}

// FileConfig configures the rotated log file.
type FileConfig struct {
	// Filename of the log file; empty logs to stderr only
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from path, or from fingerprint.yaml in the working
// directory or /etc/fingerprint when path is empty, then applies FPRINT_
// environment overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fingerprint")
		v.SetConfigName("fingerprint")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.path", "")
	v.SetDefault("device.detectMode", "safe")
	v.SetDefault("device.timeout", "1s")
	v.SetDefault("device.settleDelay", "1s")
	v.SetDefault("device.baud", 57600)
	v.SetDefault("device.password", 0)
	v.SetDefault("device.address", 0xFFFFFFFF)
	v.SetDefault("device.packetSize", 128)

	v.SetDefault("touch.pin", "")
	v.SetDefault("touch.debounce", "20ms")
	v.SetDefault("touch.activeLow", false)

	v.SetDefault("polling.interval", "100ms")
	v.SetDefault("polling.idleInterval", "500ms")
	v.SetDefault("polling.idleAfter", "5s")

	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientID", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topicPrefix", "fingerprint")
	v.SetDefault("mqtt.sensor", "")
	v.SetDefault("mqtt.timeout", "5s")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", false)
}
