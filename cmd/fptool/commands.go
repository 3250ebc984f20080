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

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
	"github.com/ZaparooProject/go-fingerprint/internal/cli"
	"github.com/ZaparooProject/go-fingerprint/polling"
	"gopkg.in/yaml.v3"
)

// errUsage marks a bad command line; the caller prints usage.
var errUsage = errors.New("usage")

// env is what every subcommand runs against.
type env struct {
	device   *fingerprint.Device
	out      *cli.Output
	w        io.Writer
	interval time.Duration
}

type command struct {
	run   func(ctx context.Context, e *env, args []string) error
	name  string
	usage string
}

var commands = []command{
	{name: "info", usage: "print the sensor's system parameters", run: runInfo},
	{name: "count", usage: "print the number of stored templates", run: runCount},
	{name: "search", usage: "identify the next finger placed on the sensor", run: runSearch},
	{name: "enroll", usage: "-id N: enroll a finger at location N", run: runEnroll},
	{name: "delete", usage: "-id N [-count C]: delete templates starting at N", run: runDelete},
	{name: "empty", usage: "-yes: delete every stored template", run: runEmpty},
	{name: "dump", usage: "[-from A] [-to B]: print stored templates as YAML", run: runDump},
	{name: "restore", usage: "-id N -hex H: store a template at location N", run: runRestore},
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	return nil
}

func location(n int) (uint16, error) {
	if n < 0 || n > 0xFFFF {
		return 0, fmt.Errorf("%w: location %d out of range", errUsage, n)
	}
	return uint16(n), nil
}

// check turns a failed call or non-OK status into an error naming op.
func check(op string, status fingerprint.Status, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return status.Err(op)
}

func runInfo(ctx context.Context, e *env, args []string) error {
	if err := parse(newFlagSet("info"), args); err != nil {
		return err
	}
	params, status, err := e.device.ReadSystemParametersContext(ctx)
	if err := check("ReadSystemParameters", status, err); err != nil {
		return err
	}
	enc := yaml.NewEncoder(e.w)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(params); err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	return nil
}

func runCount(ctx context.Context, e *env, args []string) error {
	if err := parse(newFlagSet("count"), args); err != nil {
		return err
	}
	status, err := e.device.GetTemplateCountContext(ctx)
	if err := check("GetTemplateCount", status, err); err != nil {
		return err
	}
	e.out.Printf("%d", e.device.TemplateCount())
	return nil
}

func runSearch(ctx context.Context, e *env, args []string) error {
	if err := parse(newFlagSet("search"), args); err != nil {
		return err
	}

	e.out.Printf("Waiting for finger...")
	if err := polling.WaitForImage(ctx, e.device, e.interval); err != nil {
		return err
	}
	status, err := e.device.ExtractFeaturesContext(ctx, fingerprint.Buffer1)
	if err := check("ExtractFeatures", status, err); err != nil {
		return err
	}

	status, err = e.device.FastSearchContext(ctx)
	if err != nil {
		return fmt.Errorf("FastSearch: %w", err)
	}
	if status == fingerprint.StatusNotFound {
		e.out.Printf("Finger not found")
		return nil
	}
	if err := status.Err("FastSearch"); err != nil {
		return err
	}
	e.out.Printf("Found ID #%d with confidence of %d", e.device.FingerID(), e.device.Confidence())
	return nil
}

func runEnroll(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("enroll")
	id := fs.Int("id", -1, "library location")
	if err := parse(fs, args); err != nil {
		return err
	}
	loc, err := location(*id)
	if err != nil {
		return err
	}

	for i, slot := range []byte{fingerprint.Buffer1, fingerprint.Buffer2} {
		if i == 0 {
			e.out.Printf("Place finger on sensor...")
		} else {
			e.out.Printf("Remove finger")
			if err := polling.WaitForRelease(ctx, e.device, e.interval); err != nil {
				return err
			}
			e.out.Printf("Place same finger again...")
		}
		if err := polling.WaitForImage(ctx, e.device, e.interval); err != nil {
			return err
		}
		status, err := e.device.ExtractFeaturesContext(ctx, slot)
		if err := check("ExtractFeatures", status, err); err != nil {
			return err
		}
		e.out.Verbose("image %d templated", i+1)
	}

	status, err := e.device.CreateModelContext(ctx)
	if err := check("CreateModel", status, err); err != nil {
		return err
	}
	status, err = e.device.StoreModelContext(ctx, loc)
	if err := check("StoreModel", status, err); err != nil {
		return err
	}
	e.out.OK("stored model #%d", loc)
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("delete")
	id := fs.Int("id", -1, "first library location")
	count := fs.Int("count", 1, "number of locations")
	if err := parse(fs, args); err != nil {
		return err
	}
	loc, err := location(*id)
	if err != nil {
		return err
	}
	n, err := location(*count)
	if err != nil || n == 0 {
		return fmt.Errorf("%w: count must be positive", errUsage)
	}

	status, err := e.device.DeleteModelsContext(ctx, loc, n)
	if err := check("DeleteModel", status, err); err != nil {
		return err
	}
	e.out.OK("deleted %d template(s) from #%d", n, loc)
	return nil
}

func runEmpty(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("empty")
	yes := fs.Bool("yes", false, "confirm")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("%w: empty deletes every template, pass -yes to confirm", errUsage)
	}
	status, err := e.device.EmptyDatabaseContext(ctx)
	if err := check("EmptyDatabase", status, err); err != nil {
		return err
	}
	e.out.OK("library emptied")
	return nil
}

type dumpEntry struct {
	Template string `yaml:"template"`
	Location uint16 `yaml:"location"`
}

type dumpFile struct {
	Templates []dumpEntry `yaml:"templates"`
}

func runDump(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("dump")
	from := fs.Int("from", 0, "first location")
	to := fs.Int("to", -1, "last location (default: end of library)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *to < 0 {
		*to = int(e.device.Config().Capacity) - 1
	}
	first, err := location(*from)
	if err != nil {
		return err
	}
	last, err := location(*to)
	if err != nil {
		return err
	}
	if last < first {
		return fmt.Errorf("%w: -to %d before -from %d", errUsage, last, first)
	}

	var dump dumpFile
	for loc := int(first); loc <= int(last); loc++ {
		status, err := e.device.LoadModelContext(ctx, uint16(loc), fingerprint.Buffer1)
		if err != nil {
			return fmt.Errorf("LoadModel #%d: %w", loc, err)
		}
		if status == fingerprint.StatusDBReadFail {
			continue
		}
		if err := status.Err("LoadModel"); err != nil {
			return err
		}

		data, status, err := e.device.UploadModelContext(ctx, fingerprint.Buffer1)
		if err := check("UploadModel", status, err); err != nil {
			return err
		}
		dump.Templates = append(dump.Templates, dumpEntry{Location: uint16(loc), Template: hex.EncodeToString(data)})
	}

	enc := yaml.NewEncoder(e.w)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("encode templates: %w", err)
	}
	return nil
}

func runRestore(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("restore")
	id := fs.Int("id", -1, "library location")
	hexData := fs.String("hex", "", "template bytes as hex")
	if err := parse(fs, args); err != nil {
		return err
	}
	loc, err := location(*id)
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(*hexData)
	if err != nil || len(data) == 0 {
		return fmt.Errorf("%w: -hex must be a non-empty hex string", errUsage)
	}

	status, err := e.device.DownloadModelContext(ctx, fingerprint.Buffer1, data)
	if err := check("DownloadModel", status, err); err != nil {
		return err
	}
	status, err = e.device.StoreModelFromContext(ctx, fingerprint.Buffer1, loc)
	if err := check("StoreModel", status, err); err != nil {
		return err
	}
	e.out.OK("restored %d bytes to #%d", len(data), loc)
	return nil
}
