// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

// Package baseline loads and produces the idle-power baseline file consumed
// by the attribution engine and written by the one-shot calibration
// routine.
package baseline

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joulewatch/joulewatch/internal/attribution"
)

// file is the on-disk JSON shape: per-domain arrays indexed by socket.
type file struct {
	CPU  []float64 `json:"cpu"`
	DRAM []float64 `json:"dram"`
}

// Load reads a baseline file and converts it to an attribution.Baseline
// keyed by socket index. A missing file is not an error: the caller gets a
// zero baseline and a warning is logged, per the component contract.
func Load(path string, logger *slog.Logger) (attribution.Baseline, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			warnMissing(logger, path)
			return attribution.Baseline{
				CPUWattsPerSocket:  map[int]float64{},
				DramWattsPerSocket: map[int]float64{},
			}, nil
		}
		return attribution.Baseline{}, fmt.Errorf("failed to open baseline file %s: %w", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses the baseline JSON shape from r.
func Decode(r io.Reader) (attribution.Baseline, error) {
	var raw file
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return attribution.Baseline{}, fmt.Errorf("failed to decode baseline file: %w", err)
	}

	b := attribution.Baseline{
		CPUWattsPerSocket:  make(map[int]float64, len(raw.CPU)),
		DramWattsPerSocket: make(map[int]float64, len(raw.DRAM)),
	}
	for i, w := range raw.CPU {
		b.CPUWattsPerSocket[i] = w
	}
	for i, w := range raw.DRAM {
		b.DramWattsPerSocket[i] = w
	}
	return b, nil
}

// Save writes baseline b to path as the JSON shape Load expects.
func Save(path string, b attribution.Baseline, sockets []int) error {
	raw := file{
		CPU:  make([]float64, len(sockets)),
		DRAM: make([]float64, len(sockets)),
	}
	for i, s := range sockets {
		raw.CPU[i] = b.CPUWattsPerSocket[s]
		raw.DRAM[i] = b.DramWattsPerSocket[s]
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create baseline file %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("failed to write baseline file %s: %w", path, err)
	}
	return nil
}

// warnMissing logs the degrade-gracefully warning for a missing baseline
// file. Load calls it when the file does not exist and it falls back to a
// zero baseline.
func warnMissing(logger *slog.Logger, path string) {
	logger.Warn("baseline file missing, using zero idle power", "path", path)
}
