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

package polling

import (
	"context"
	"fmt"
	"time"

	fingerprint "github.com/ZaparooProject/go-fingerprint"
)

// Enroll takes two images of the same finger, lifting it in between, merges
// them into a model and stores it at location. interval is the GenImg rate.
func Enroll(ctx context.Context, d *fingerprint.Device, location uint16, interval time.Duration) error {
	for i, slot := range []byte{fingerprint.Buffer1, fingerprint.Buffer2} {
		if i > 0 {
			if err := WaitForRelease(ctx, d, interval); err != nil {
				return err
			}
		}
		if err := WaitForImage(ctx, d, interval); err != nil {
			return err
		}
		status, err := d.ExtractFeaturesContext(ctx, slot)
		if err != nil {
			return fmt.Errorf("extract features into buffer %d: %w", slot, err)
		}
		if err := status.Err("ExtractFeatures"); err != nil {
			return err
		}
	}

	status, err := d.CreateModelContext(ctx)
	if err != nil {
		return fmt.Errorf("create model: %w", err)
	}
	if err := status.Err("CreateModel"); err != nil {
		return err
	}

	status, err = d.StoreModelContext(ctx, location)
	if err != nil {
		return fmt.Errorf("store model at %d: %w", location, err)
	}
	return status.Err("StoreModel")
}

// WaitForImage captures until an image is taken. A status other than
// "no finger" is returned as a *fingerprint.StatusError.
func WaitForImage(ctx context.Context, d *fingerprint.Device, interval time.Duration) error {
	return waitCapture(ctx, d, interval, fingerprint.StatusOK)
}

// WaitForRelease captures until the sensor reports no finger.
func WaitForRelease(ctx context.Context, d *fingerprint.Device, interval time.Duration) error {
	return waitCapture(ctx, d, interval, fingerprint.StatusNoFinger)
}

func waitCapture(ctx context.Context, d *fingerprint.Device, interval time.Duration, want fingerprint.Status) error {
	for {
		status, err := d.CaptureImageContext(ctx)
		if err != nil {
			return fmt.Errorf("capture image: %w", err)
		}
		if status == want {
			return nil
		}
		if status != fingerprint.StatusOK && status != fingerprint.StatusNoFinger {
			return status.Err("CaptureImage")
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
