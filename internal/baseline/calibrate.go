// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package baseline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joulewatch/joulewatch/internal/attribution"
	"github.com/joulewatch/joulewatch/internal/rapl"
	"k8s.io/utils/clock"
)

// Calibrator samples RAPL power over a quiet window and averages it to
// produce an idle-power baseline, invoked by --basepower as a separate
// one-shot run rather than as part of the sampling loop.
type Calibrator struct {
	reader *rapl.Reader
	clock  clock.Clock
	logger *slog.Logger
}

// CalibratorOptionFn configures a Calibrator.
type CalibratorOptionFn func(*Calibrator)

// WithCalibratorClock overrides the clock used for the quiet window; tests
// inject a fake clock.
func WithCalibratorClock(c clock.Clock) CalibratorOptionFn {
	return func(cal *Calibrator) { cal.clock = c }
}

// WithCalibratorLogger sets the calibrator's logger.
func WithCalibratorLogger(logger *slog.Logger) CalibratorOptionFn {
	return func(cal *Calibrator) { cal.logger = logger.With("service", "calibrator") }
}

// NewCalibrator creates a Calibrator reading from an already-initialized
// RAPL reader.
func NewCalibrator(reader *rapl.Reader, opts ...CalibratorOptionFn) *Calibrator {
	cal := &Calibrator{
		reader: reader,
		clock:  clock.RealClock{},
		logger: slog.Default().With("service", "calibrator"),
	}
	for _, opt := range opts {
		opt(cal)
	}
	return cal
}

// Run samples RAPL energy at the start and end of period and averages the
// resulting power over the window, per socket and domain. A socket whose
// DRAM domain is unsupported gets a zero DRAM baseline.
func (cal *Calibrator) Run(ctx context.Context, period time.Duration) (attribution.Baseline, error) {
	sockets := cal.reader.Sockets()
	if len(sockets) == 0 {
		return attribution.Baseline{}, fmt.Errorf("no sockets discovered by rapl reader")
	}

	startPkg, startDram, err := cal.readAll(sockets)
	if err != nil {
		return attribution.Baseline{}, err
	}
	startTime := cal.clock.Now()

	timer := cal.clock.NewTimer(period)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return attribution.Baseline{}, ctx.Err()
	case <-timer.C():
	}

	endPkg, endDram, err := cal.readAll(sockets)
	if err != nil {
		return attribution.Baseline{}, err
	}
	elapsed := cal.clock.Now().Sub(startTime).Seconds()
	if elapsed <= 0 {
		return attribution.Baseline{}, fmt.Errorf("calibration window elapsed non-positive duration: %.9fs", elapsed)
	}

	b := attribution.Baseline{
		CPUWattsPerSocket:  make(map[int]float64, len(sockets)),
		DramWattsPerSocket: make(map[int]float64, len(sockets)),
	}
	for _, s := range sockets {
		b.CPUWattsPerSocket[s] = (endPkg[s] - startPkg[s]) / elapsed
		b.DramWattsPerSocket[s] = (endDram[s] - startDram[s]) / elapsed
	}

	cal.logger.Info("calibration complete", "sockets", sockets, "elapsed_s", elapsed)
	return b, nil
}

func (cal *Calibrator) readAll(sockets []int) (pkg, dram map[int]float64, err error) {
	pkg = make(map[int]float64, len(sockets))
	dram = make(map[int]float64, len(sockets))
	for _, s := range sockets {
		p, err := cal.reader.ReadDomain(s, rapl.Package)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read package domain for socket %d: %w", s, err)
		}
		pkg[s] = p.Joules()

		d, err := cal.reader.ReadDomain(s, rapl.DRAM)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read dram domain for socket %d: %w", s, err)
		}
		dram[s] = d.Joules()
	}
	return pkg, dram, nil
}
