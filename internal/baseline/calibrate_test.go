// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package baseline

import (
	"context"
	"testing"
	"time"

	"github.com/joulewatch/joulewatch/internal/rapl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCalibrator_AveragesPowerOverWindow relies on the fake zones'
// fixed-increment-per-read behavior: exactly two reads happen (start and
// end of the window), so the accumulated delta is deterministic regardless
// of how long the window actually takes to elapse in wall-clock time.
func TestCalibrator_AveragesPowerOverWindow(t *testing.T) {
	reader := rapl.NewReaderForTest(map[int]rapl.FakeSocketSpec{
		0: {
			PackageMaxMicrojoules: 1_000_000_000,
			PackageIncrement:      20_000_000, // 20J per read -> 20J delta over the window
			DramSupported:         true,
			DramMaxMicrojoules:    1_000_000_000,
			DramIncrement:         10_000_000, // 10J per read
		},
	})

	cal := NewCalibrator(reader)

	base, err := cal.Run(context.Background(), 200*time.Millisecond)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, base.CPUWattsPerSocket[0], 40.0, "~20J over ~200ms window")
	assert.InDelta(t, 50.0, base.DramWattsPerSocket[0], 20.0)
}

func TestCalibrator_NoSocketsIsError(t *testing.T) {
	reader := rapl.NewReaderForTest(map[int]rapl.FakeSocketSpec{})
	cal := NewCalibrator(reader)

	_, err := cal.Run(context.Background(), time.Second)
	assert.Error(t, err)
}

func TestCalibrator_ContextCanceledDuringWindow(t *testing.T) {
	reader := rapl.NewReaderForTest(map[int]rapl.FakeSocketSpec{
		0: {PackageMaxMicrojoules: 1000, PackageIncrement: 10, DramSupported: true, DramMaxMicrojoules: 1000, DramIncrement: 5},
	})
	cal := NewCalibrator(reader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cal.Run(ctx, time.Hour)
	assert.Error(t, err)
}
