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

// Instruction codes
const (
	cmdGenImg        = 0x01
	cmdImg2Tz        = 0x02
	cmdMatch         = 0x03
	cmdSearch        = 0x04
	cmdRegModel      = 0x05
	cmdStore         = 0x06
	cmdLoad          = 0x07
	cmdUpChar        = 0x08
	cmdDownChar      = 0x09
	cmdDeleteChar    = 0x0C
	cmdEmpty         = 0x0D
	cmdReadSysPara   = 0x0F
	cmdSetPwd        = 0x12
	cmdVfyPwd        = 0x13
	cmdHiSpeedSearch = 0x1B
	cmdTemplateNum   = 0x1D
)

// Character buffers on the sensor. Features are extracted into one of them
// and models are built from both.
const (
	Buffer1 byte = 0x01
	Buffer2 byte = 0x02
)

var commandNames = map[byte]string{
	cmdGenImg:        "GenImg",
	cmdImg2Tz:        "Img2Tz",
	cmdMatch:         "Match",
	cmdSearch:        "Search",
	cmdRegModel:      "RegModel",
	cmdStore:         "Store",
	cmdLoad:          "LoadChar",
	cmdUpChar:        "UpChar",
	cmdDownChar:      "DownChar",
	cmdDeleteChar:    "DeleteChar",
	cmdEmpty:         "Empty",
	cmdReadSysPara:   "ReadSysPara",
	cmdSetPwd:        "SetPwd",
	cmdVfyPwd:        "VfyPwd",
	cmdHiSpeedSearch: "HiSpeedSearch",
	cmdTemplateNum:   "TemplateNum",
}

// CommandName returns a readable name for an instruction code
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return "Unknown"
}
