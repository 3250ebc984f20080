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

// Command fptool manages the template library of a fingerprint sensor.
//
// Usage:
//
//	fptool [-config file] [-device path] [-debug] <command> [flags]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"github.com/ZaparooProject/go-fingerprint/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: fptool [-config file] [-device path] [-debug] <command> [flags]")
	_, _ = fmt.Fprintln(w, "\ncommands:")
	for _, c := range commands {
		_, _ = fmt.Fprintf(w, "  %-8s %s\n", c.name, c.usage)
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fptool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	configPath := fs.String("config", "", "Configuration file (default: ./fingerprint.yaml or /etc/fingerprint)")
	devicePath := fs.String("device", "",
		"Serial device path (e.g., /dev/ttyUSB0 or COM3). Leave empty for auto-detection.")
	debug := fs.Bool("debug", false, "Enable protocol debug output")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	out := cli.NewOutput(stdout, stderr, *debug)
	if fs.NArg() == 0 {
		usage(stderr)
		return 2
	}
	cmd, ok := findCommand(fs.Arg(0))
	if !ok {
		out.Error("unknown command %q", fs.Arg(0))
		usage(stderr)
		return 2
	}

	cfg, err := cli.Load(*configPath)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	if *devicePath != "" {
		cfg.Device.Path = *devicePath
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	logger, logCloser, err := cli.NewLogger(cfg.Logging, stderr)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	defer func() { _ = logCloser.Close() }()
	fingerprint.SetLogger(logger)
	fingerprint.SetDebugEnabled(*debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	device, err := cli.Connect(cfg.Device)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	defer func() { _ = device.Close() }()

	e := &env{device: device, out: out, w: stdout, interval: cfg.Polling.Interval}
	return execute(ctx, cmd, e, fs.Args()[1:], stderr)
}

// execute runs cmd and maps its error to an exit code.
func execute(ctx context.Context, cmd command, e *env, args []string, stderr io.Writer) int {
	err := cmd.run(ctx, e, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		e.out.Error("%v", err)
		_, _ = fmt.Fprintf(stderr, "usage: fptool %s %s\n", cmd.name, cmd.usage)
		return 2
	default:
		e.out.Error("%s: %v", cmd.name, err)
		return 1
	}
}
