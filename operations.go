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
	"context"
	"encoding/binary"
	"fmt"
)

func (d *Device) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context done before sending: %w", err)
	}
	d.mu.Lock()
	return nil
}

func checkBuffer(buffer byte) error {
	if buffer != Buffer1 && buffer != Buffer2 {
		return fmt.Errorf("%w: buffer must be 1 or 2, got %d", ErrInvalidParameter, buffer)
	}
	return nil
}

func (d *Device) checkLocation(location uint16) error {
	if location >= d.config.Capacity {
		return fmt.Errorf("%w: location %d outside library of %d", ErrInvalidParameter, location, d.config.Capacity)
	}
	return nil
}

func (d *Device) checkRange(start, count uint16) error {
	if count == 0 {
		return fmt.Errorf("%w: count must be positive", ErrInvalidParameter)
	}
	if int(start)+int(count) > int(d.config.Capacity) {
		return fmt.Errorf("%w: range %d+%d outside library of %d",
			ErrInvalidParameter, start, count, d.config.Capacity)
	}
	return nil
}

func be16(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

// simple runs a command whose only result is the confirmation code.
func (d *Device) simple(ctx context.Context, cmd byte, args []byte) (Status, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	status, _, err := d.execute(ctx, cmd, args, d.config.Timeout)
	return status, err
}

// VerifyPassword sends the configured password and reports whether the
// sensor accepted it.
func (d *Device) VerifyPassword() (bool, error) {
	return d.VerifyPasswordContext(context.Background())
}

// VerifyPasswordContext is VerifyPassword with a context checked before sending.
func (d *Device) VerifyPasswordContext(ctx context.Context) (bool, error) {
	if err := d.lock(ctx); err != nil {
		return false, err
	}
	defer d.mu.Unlock()

	args := binary.BigEndian.AppendUint32(nil, d.config.Password)
	status, _, err := d.execute(ctx, cmdVfyPwd, args, d.config.Timeout)
	if err != nil {
		return false, err
	}
	return status == StatusOK, nil
}

// SetPassword changes the sensor password. On success the new password is
// used by later VerifyPassword calls.
func (d *Device) SetPassword(password uint32) (Status, error) {
	return d.SetPasswordContext(context.Background(), password)
}

// SetPasswordContext is SetPassword with a context checked before sending.
func (d *Device) SetPasswordContext(ctx context.Context, password uint32) (Status, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	args := binary.BigEndian.AppendUint32(nil, password)
	status, _, err := d.execute(ctx, cmdSetPwd, args, d.config.Timeout)
	if err == nil && status == StatusOK {
		d.config.Password = password
	}
	return status, err
}

// CaptureImage asks the sensor to take an image of the finger on the glass.
// StatusNoFinger is the routine result while nobody touches the sensor.
func (d *Device) CaptureImage() (Status, error) {
	return d.CaptureImageContext(context.Background())
}

// CaptureImageContext is CaptureImage with a context checked before sending.
func (d *Device) CaptureImageContext(ctx context.Context) (Status, error) {
	return d.simple(ctx, cmdGenImg, nil)
}

// ExtractFeatures converts the captured image into a feature set in buffer
// slot 1 or 2.
func (d *Device) ExtractFeatures(slot byte) (Status, error) {
	return d.ExtractFeaturesContext(context.Background(), slot)
}

// ExtractFeaturesContext is ExtractFeatures with a context checked before sending.
func (d *Device) ExtractFeaturesContext(ctx context.Context, slot byte) (Status, error) {
	if err := checkBuffer(slot); err != nil {
		return 0, err
	}
	return d.simple(ctx, cmdImg2Tz, []byte{slot})
}

// CreateModel combines the feature sets in both buffers into one model.
func (d *Device) CreateModel() (Status, error) {
	return d.CreateModelContext(context.Background())
}

// CreateModelContext is CreateModel with a context checked before sending.
func (d *Device) CreateModelContext(ctx context.Context) (Status, error) {
	return d.simple(ctx, cmdRegModel, nil)
}

// StoreModel writes the model in buffer 1 to a library location.
func (d *Device) StoreModel(location uint16) (Status, error) {
	return d.StoreModelFromContext(context.Background(), Buffer1, location)
}

// StoreModelContext is StoreModel with a context checked before sending.
func (d *Device) StoreModelContext(ctx context.Context, location uint16) (Status, error) {
	return d.StoreModelFromContext(ctx, Buffer1, location)
}

// StoreModelFrom writes the model in the given buffer to a library location.
func (d *Device) StoreModelFrom(buffer byte, location uint16) (Status, error) {
	return d.StoreModelFromContext(context.Background(), buffer, location)
}

// StoreModelFromContext is StoreModelFrom with a context checked before sending.
func (d *Device) StoreModelFromContext(ctx context.Context, buffer byte, location uint16) (Status, error) {
	if err := checkBuffer(buffer); err != nil {
		return 0, err
	}
	if err := d.checkLocation(location); err != nil {
		return 0, err
	}
	return d.simple(ctx, cmdStore, append([]byte{buffer}, be16(location)...))
}

// LoadModel reads the template at a library location into a buffer.
func (d *Device) LoadModel(location uint16, buffer byte) (Status, error) {
	return d.LoadModelContext(context.Background(), location, buffer)
}

// LoadModelContext is LoadModel with a context checked before sending.
func (d *Device) LoadModelContext(ctx context.Context, location uint16, buffer byte) (Status, error) {
	if err := checkBuffer(buffer); err != nil {
		return 0, err
	}
	if err := d.checkLocation(location); err != nil {
		return 0, err
	}
	return d.simple(ctx, cmdLoad, append([]byte{buffer}, be16(location)...))
}

// DeleteModel erases the template at one library location.
func (d *Device) DeleteModel(location uint16) (Status, error) {
	return d.DeleteModelsContext(context.Background(), location, 1)
}

// DeleteModelContext is DeleteModel with a context checked before sending.
func (d *Device) DeleteModelContext(ctx context.Context, location uint16) (Status, error) {
	return d.DeleteModelsContext(ctx, location, 1)
}

// DeleteModels erases count consecutive templates starting at location.
func (d *Device) DeleteModels(location, count uint16) (Status, error) {
	return d.DeleteModelsContext(context.Background(), location, count)
}

// DeleteModelsContext is DeleteModels with a context checked before sending.
func (d *Device) DeleteModelsContext(ctx context.Context, location, count uint16) (Status, error) {
	if err := d.checkRange(location, count); err != nil {
		return 0, err
	}
	return d.simple(ctx, cmdDeleteChar, append(be16(location), be16(count)...))
}

// EmptyDatabase erases every stored template.
func (d *Device) EmptyDatabase() (Status, error) {
	return d.EmptyDatabaseContext(context.Background())
}

// EmptyDatabaseContext is EmptyDatabase with a context checked before sending.
func (d *Device) EmptyDatabaseContext(ctx context.Context) (Status, error) {
	return d.simple(ctx, cmdEmpty, nil)
}

// FastSearch looks up the feature set in buffer 1 in the first
// SearchPageCount library locations. On StatusOK the matched location and
// score are available from FingerID and Confidence.
func (d *Device) FastSearch() (Status, error) {
	return d.FastSearchContext(context.Background())
}

// FastSearchContext is FastSearch with a context checked before sending.
func (d *Device) FastSearchContext(ctx context.Context) (Status, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	return d.search(ctx, cmdHiSpeedSearch, Buffer1, 0, d.config.SearchPageCount)
}

// Search looks up the feature set in slot within count locations starting
// at start, using the regular search instruction.
func (d *Device) Search(slot byte, start, count uint16) (Status, error) {
	return d.SearchContext(context.Background(), slot, start, count)
}

// SearchContext is Search with a context checked before sending.
func (d *Device) SearchContext(ctx context.Context, slot byte, start, count uint16) (Status, error) {
	if err := checkBuffer(slot); err != nil {
		return 0, err
	}
	if err := d.checkRange(start, count); err != nil {
		return 0, err
	}
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	return d.search(ctx, cmdSearch, slot, start, count)
}

func (d *Device) search(ctx context.Context, cmd, slot byte, start, count uint16) (Status, error) {
	args := append([]byte{slot}, be16(start)...)
	args = append(args, be16(count)...)

	status, fields, err := d.execute(ctx, cmd, args, d.config.Timeout)
	if err != nil {
		return 0, err
	}
	if err := requireFields(cmd, status, fields, 4); err != nil {
		return 0, err
	}
	if status == StatusOK {
		d.fingerID = binary.BigEndian.Uint16(fields[0:2])
		d.confidence = binary.BigEndian.Uint16(fields[2:4])
	}
	return status, nil
}

// Match compares the feature sets in both buffers. On StatusOK the score is
// available from Confidence.
func (d *Device) Match() (Status, error) {
	return d.MatchContext(context.Background())
}

// MatchContext is Match with a context checked before sending.
func (d *Device) MatchContext(ctx context.Context) (Status, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	status, fields, err := d.execute(ctx, cmdMatch, nil, d.config.Timeout)
	if err != nil {
		return 0, err
	}
	if err := requireFields(cmdMatch, status, fields, 2); err != nil {
		return 0, err
	}
	if status == StatusOK {
		d.confidence = binary.BigEndian.Uint16(fields[0:2])
	}
	return status, nil
}

// GetTemplateCount asks how many templates are stored. On StatusOK the
// value is available from TemplateCount.
func (d *Device) GetTemplateCount() (Status, error) {
	return d.GetTemplateCountContext(context.Background())
}

// GetTemplateCountContext is GetTemplateCount with a context checked before sending.
func (d *Device) GetTemplateCountContext(ctx context.Context) (Status, error) {
	if err := d.lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	status, fields, err := d.execute(ctx, cmdTemplateNum, nil, d.config.Timeout)
	if err != nil {
		return 0, err
	}
	if err := requireFields(cmdTemplateNum, status, fields, 2); err != nil {
		return 0, err
	}
	if status == StatusOK {
		d.templateCount = binary.BigEndian.Uint16(fields[0:2])
	}
	return status, nil
}
