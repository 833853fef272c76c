// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScale_BoundaryValues(t *testing.T) {
	assert.Equal(t, 0.0, scale(0, 0.3))
	assert.InDelta(t, 1.0, scale(1, 0.3), 1e-12)
}

func TestScale_LinearWhenGammaIsOne(t *testing.T) {
	for _, f := range []float64{0, 0.1, 0.3, 0.5, 0.9, 1.0} {
		assert.InDelta(t, f, scale(f, 1.0), 1e-9)
	}
}

func TestScale_MonotonicallyIncreasing(t *testing.T) {
	prev := -1.0
	for f := 0.0; f <= 1.0; f += 0.05 {
		got := scale(f, 0.3)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestScale_SublinearForSmallFractions(t *testing.T) {
	got := scale(0.3, 0.3)
	assert.InDelta(t, 0.697, got, 0.01)
	assert.Greater(t, got, 0.3, "power-law correction attributes more than the raw fraction for small f")
}

func TestScale_ClampsOutOfRangeInput(t *testing.T) {
	assert.Equal(t, 0.0, scale(-0.5, 0.3))
	assert.InDelta(t, 1.0, scale(1.5, 0.3), 1e-12)
}
