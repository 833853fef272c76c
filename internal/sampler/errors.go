// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

// Package sampler runs the attribution loop: it paces snapshots of RAPL,
// host, and thread-inventory state, feeds them to the attribution engine,
// and appends the result to a trace sink until the target process exits or
// the service is asked to shut down.
package sampler

import "errors"

// ErrTargetGone is returned by Run when the target PID disappears before
// any sample was emitted; main wiring maps this to exit code 3.
var ErrTargetGone = errors.New("sampler: target process not found before first sample")

// ErrUnsupportedHardware is returned by Init when no RAPL package domain is
// present anywhere on the host; main wiring maps this to exit code 2.
var ErrUnsupportedHardware = errors.New("sampler: unsupported hardware, no RAPL package domain found")
