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

package cli

import (
	"fmt"
	"io"
)

// Output prints user-facing messages with a severity prefix.
type Output struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

// NewOutput writes informational messages to out and problems to errOut.
func NewOutput(out, errOut io.Writer, verbose bool) *Output {
	return &Output{out: out, errOut: errOut, verbose: verbose}
}

// Printf writes a message with no prefix
func (o *Output) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, format+"\n", args...)
}

// Error reports a failure
func (o *Output) Error(format string, args ...any) {
	_, _ = fmt.Fprintf(o.errOut, "ERROR: "+format+"\n", args...)
}

// Warning reports something unexpected that is not fatal
func (o *Output) Warning(format string, args ...any) {
	_, _ = fmt.Fprintf(o.errOut, "WARNING: "+format+"\n", args...)
}

func (o *Output) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, "INFO: "+format+"\n", args...)
}

func (o *Output) OK(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, "OK: "+format+"\n", args...)
}

// Verbose prints only when verbose output is on
func (o *Output) Verbose(format string, args ...any) {
	if o.verbose {
		_, _ = fmt.Fprintf(o.out, format+"\n", args...)
	}
}
