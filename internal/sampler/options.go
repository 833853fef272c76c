// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

// Config holds the sampler's tunable parameters, set from CLI flags or a
// config file.
type Config struct {
	ProcfsPath string
	SysfsPath  string

	PID  int
	Name string

	IntervalS   time.Duration
	RaplPeriodS time.Duration
	Gamma       float64
	Delta       float64

	OutputPath   string
	BaselinePath string
}

// OptionFn configures a Sampler.
type OptionFn func(*Sampler)

// WithLogger sets the sampler's logger.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(s *Sampler) { s.logger = logger.With("service", "sampler") }
}

// WithClock overrides the clock used to pace attribution samples; tests
// inject a fake clock.
func WithClock(c clock.WithTicker) OptionFn {
	return func(s *Sampler) { s.clock = c }
}
