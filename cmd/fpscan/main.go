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

// Command fpscan watches a fingerprint sensor and reports every finger it
// identifies, optionally publishing events over MQTT and exposing Prometheus
// metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"github.com/ZaparooProject/go-fingerprint/internal/cli"
	"github.com/ZaparooProject/go-fingerprint/metrics"
	"github.com/ZaparooProject/go-fingerprint/polling"
	"github.com/ZaparooProject/go-fingerprint/publish"
	"github.com/ZaparooProject/go-fingerprint/touch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type flags struct {
	configPath  *string
	devicePath  *string
	touchPin    *string
	metricsAddr *string
	debug       *bool
	mqtt        *bool
}

func parseFlags() *flags {
	f := &flags{
		configPath: flag.String("config", "", "Configuration file (default: ./fingerprint.yaml or /etc/fingerprint)"),
		devicePath: flag.String("device", "",
			"Serial device path (e.g., /dev/ttyUSB0 or COM3). Leave empty for auto-detection."),
		touchPin:    flag.String("touch-pin", "", "GPIO pin wired to the sensor's touch output (e.g., GPIO17)"),
		metricsAddr: flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9100)"),
		debug:       flag.Bool("debug", false, "Enable protocol debug output"),
		mqtt:        flag.Bool("mqtt", false, "Publish events to the configured MQTT broker"),
	}
	flag.Parse()
	return f
}

// apply overlays command line flags onto cfg.
func (f *flags) apply(cfg *cli.Config) {
	if *f.devicePath != "" {
		cfg.Device.Path = *f.devicePath
	}
	if *f.touchPin != "" {
		cfg.Touch.Pin = *f.touchPin
	}
	if *f.metricsAddr != "" {
		cfg.Metrics.Addr = *f.metricsAddr
	}
	if *f.mqtt {
		cfg.MQTT.Enable = true
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
}

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func run() int {
	f := parseFlags()
	out := cli.NewOutput(os.Stdout, os.Stderr, *f.debug)

	cfg, err := cli.Load(*f.configPath)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	f.apply(cfg)

	logger, logCloser, err := cli.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	defer func() { _ = logCloser.Close() }()
	fingerprint.SetLogger(logger)
	fingerprint.SetDebugEnabled(*f.debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scan(ctx, cfg, out, logger); err != nil && !errors.Is(err, context.Canceled) {
		out.Error("%v", err)
		return 1
	}
	return 0
}

func scan(ctx context.Context, cfg *cli.Config, out *cli.Output, logger zerolog.Logger) error {
	var (
		extra     []fingerprint.Option
		collector *metrics.Collector
	)
	if cfg.Metrics.Addr != "" {
		reg := metrics.NewRegistry()
		collector = metrics.NewCollector(reg)
		extra = append(extra, fingerprint.WithObserver(collector))

		srv := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer shutdown(srv)
	}

	if cfg.Device.Path == "" {
		out.Info("auto-detecting sensor...")
	} else {
		out.Info("opening %s", cfg.Device.Path)
	}
	device, err := cli.Connect(cfg.Device, extra...)
	if err != nil {
		return err
	}
	defer func() { _ = device.Close() }()
	out.OK("found fingerprint sensor")

	var sink eventSink
	if cfg.MQTT.Enable {
		pub, err := publish.Connect(publishConfig(cfg.MQTT))
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		logger.Info().Str("broker", cfg.MQTT.Broker).Str("topic", pub.EventTopic()).Msg("publishing events")
		sink = pub
	}

	pollCfg := &polling.Config{
		PollInterval: cfg.Polling.Interval,
		IdleInterval: cfg.Polling.IdleInterval,
		IdleAfter:    cfg.Polling.IdleAfter,
	}
	if cfg.Touch.Pin != "" {
		sensor, err := touch.Open(cfg.Touch.Pin, touchOptions(cfg.Touch)...)
		if err != nil {
			return err
		}
		pollCfg.Touch = sensor
		logger.Info().Str("pin", cfg.Touch.Pin).Msg("waiting on touch line between scans")
	}

	r := newReporter(out, logger, sink, collector)
	return r.run(ctx, device, pollCfg)
}

func touchOptions(cfg cli.TouchConfig) []touch.Option {
	var opts []touch.Option
	if cfg.ActiveLow {
		opts = append(opts, touch.WithActiveLow())
	}
	if cfg.Debounce > 0 {
		opts = append(opts, touch.WithDebounce(cfg.Debounce))
	}
	return opts
}

func publishConfig(cfg cli.MQTTConfig) publish.Config {
	return publish.Config{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		Username:    cfg.Username,
		Password:    cfg.Password,
		TopicPrefix: cfg.TopicPrefix,
		Sensor:      cfg.Sensor,
		Timeout:     cfg.Timeout,
		QoS:         cfg.QoS,
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics listener failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
