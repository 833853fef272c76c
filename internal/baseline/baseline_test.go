// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package baseline

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joulewatch/joulewatch/internal/attribution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	r := strings.NewReader(`{"cpu": [55.0, 52.5], "dram": [5.0, 4.8]}`)

	b, err := Decode(r)
	require.NoError(t, err)
	assert.Equal(t, 55.0, b.CPUWattsPerSocket[0])
	assert.Equal(t, 52.5, b.CPUWattsPerSocket[1])
	assert.Equal(t, 5.0, b.DramWattsPerSocket[0])
	assert.Equal(t, 4.8, b.DramWattsPerSocket[1])
}

func TestLoad_MissingFileReturnsZeroBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	b, err := Load(path, slog.Default())
	require.NoError(t, err)
	assert.Empty(t, b.CPUWattsPerSocket)
	assert.Empty(t, b.DramWattsPerSocket)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")

	saved := attribution.Baseline{
		CPUWattsPerSocket:  map[int]float64{0: 55.0, 1: 52.0},
		DramWattsPerSocket: map[int]float64{0: 5.0, 1: 4.5},
	}
	require.NoError(t, Save(path, saved, []int{0, 1}))

	loaded, err := Load(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 55.0, loaded.CPUWattsPerSocket[0])
	assert.Equal(t, 52.0, loaded.CPUWattsPerSocket[1])
	assert.Equal(t, 5.0, loaded.DramWattsPerSocket[0])
	assert.Equal(t, 4.5, loaded.DramWattsPerSocket[1])
}
