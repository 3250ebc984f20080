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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB bridges that must never be probed because
// they are known to belong to other hardware on the same host.
// Entries are VID:PID in hexadecimal, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno, resets on open
		"2341:0001", // Arduino Uno (older firmware)
		"1366:0105", // SEGGER J-Link CDC
	}
}

// IsBlocked reports whether vidpid appears in blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = NormalizeVIDPID(vidpid)
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if NormalizeVIDPID(blocked) == vidpid {
			return true
		}
	}
	return false
}

// NormalizeVIDPID upper-cases a VID:PID pair and pads both halves to four
// digits. It returns "" when s is not a VID:PID pair.
func NormalizeVIDPID(s string) string {
	vid, pid, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || !isHex(vid) || !isHex(pid) || len(vid) > 4 || len(pid) > 4 {
		return ""
	}
	return pad4(strings.ToUpper(vid)) + ":" + pad4(strings.ToUpper(pid))
}

func pad4(s string) string {
	return strings.Repeat("0", 4-len(s)) + s
}

// ParseVIDPID extracts VID:PID from the descriptor formats seen in port
// listings: "VID:1A86 PID:7523", "vendor=1a86 product=7523",
// "USB VID:PID=1A86:7523" and plain "1a86:7523".
func ParseVIDPID(descriptor string) string {
	upper := strings.ToUpper(descriptor)

	if idx := strings.Index(upper, "VID:PID="); idx >= 0 {
		fields := strings.Fields(upper[idx+len("VID:PID="):])
		if len(fields) > 0 {
			return NormalizeVIDPID(fields[0])
		}
	}

	vid := valueAfter(upper, "VID:", "VID=", "VENDOR=")
	pid := valueAfter(upper, "PID:", "PID=", "PRODUCT=")
	if vid != "" && pid != "" {
		return NormalizeVIDPID(vid + ":" + pid)
	}

	return NormalizeVIDPID(upper)
}

func valueAfter(s string, keys ...string) string {
	for _, key := range keys {
		if idx := strings.Index(s, key); idx >= 0 {
			return leadingHex(s[idx+len(key):])
		}
	}
	return ""
}

func leadingHex(s string) string {
	end := 0
	for end < len(s) && isHexDigit(rune(s[end])) {
		end++
	}
	return s[:end]
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths after
// cleaning both and ignoring case.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && normalizedPath(p) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
