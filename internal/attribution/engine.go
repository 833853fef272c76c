// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package attribution

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrClockAnomaly is returned when an interval's duration is not strictly
// positive. The caller must skip the sample and log a warning rather than
// emit a row.
var ErrClockAnomaly = errors.New("attribution: non-positive interval duration")

// Engine implements the per-socket CPU/DRAM energy attribution formulas:
// raw RAPL deltas, baseline subtraction, CPU/DRAM activity fractions, the
// power-law share correction, and final energy attribution.
type Engine struct {
	logger *slog.Logger
}

// OptionFn configures an Engine.
type OptionFn func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(e *Engine) { e.logger = logger.With("service", "attribution") }
}

// NewEngine creates an Engine.
func NewEngine(opts ...OptionFn) *Engine {
	e := &Engine{logger: slog.Default().With("service", "attribution")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute attributes energy for one interval. On ErrClockAnomaly the
// caller must skip this sample entirely; no other error is returned (every
// other edge case degrades gracefully per socket, as documented below).
func (e *Engine) Compute(in Input) (Result, error) {
	deltaT := in.Timestamp.Sub(in.PrevTimestamp).Seconds()
	if deltaT <= 0 {
		return Result{}, fmt.Errorf("%w: delta_t=%.9fs", ErrClockAnomaly, deltaT)
	}

	sockets := make([]SocketResult, 0, len(in.Sockets))
	for _, s := range in.Sockets {
		sockets = append(sockets, e.computeSocket(in, s, deltaT))
	}

	return Result{
		Timestamp: in.Timestamp,
		IntervalS: deltaT,
		Sockets:   sockets,
	}, nil
}

func (e *Engine) computeSocket(in Input, socket int, deltaT float64) SocketResult {
	// Step 1: raw RAPL deltas and baseline subtraction.
	hostCPUEnergyJ := in.PackageJoules[socket] - in.PrevPackageJoules[socket]
	baseCPUEnergyJ := in.Baseline.CPUWattsPerSocket[socket] * deltaT
	activeCPUEnergyJ := math.Max(0, hostCPUEnergyJ-baseCPUEnergyJ)

	dramSupported := in.DramSupported[socket]
	hostDramEnergyJ := math.NaN()
	activeDramEnergyJ := 0.0
	if dramSupported {
		hostDramEnergyJ = in.DramJoules[socket] - in.PrevDramJoules[socket]
		baseDramEnergyJ := in.Baseline.DramWattsPerSocket[socket] * deltaT
		activeDramEnergyJ = math.Max(0, hostDramEnergyJ-baseDramEnergyJ)
	}

	// Step 2: CPU activity fraction. A raw fraction above 1 (possible when
	// the host and thread snapshots straddle a scheduler race) is the
	// ShareOverflow condition: clamp01 still caps it at 1, but the overflow
	// flag lets the trace record that the 1.0 was a clamp, not a measured
	// full share.
	cHost := in.HostCPUTimePerSocket[socket] - in.PrevHostCPUTimePerSocket[socket]
	cTarget := in.ThreadCPUTimeDeltaPerSocket[socket]
	fCPURaw := cTarget / math.Max(cHost, epsilon)
	cpuOverflow := fCPURaw > 1
	fCPU := clamp01(fCPURaw)

	// Step 3: DRAM activity fraction. No thread currently on this socket
	// means the target contributes nothing here this interval, regardless
	// of memory residency reported elsewhere.
	nThreads := in.ThreadCountPerSocket[socket]
	fDRAM := 0.0
	dramOverflow := false
	if dramSupported && nThreads > 0 {
		mTarget := in.TargetMemPerNodeMB[socket]
		mHost := in.HostMemPerNodeMB[socket]
		fDRAMRaw := mTarget / math.Max(mHost, epsilon)
		dramOverflow = fDRAMRaw > 1
		fDRAM = clamp01(fDRAMRaw)
	}

	// Step 4: non-linear scaling.
	shareCPU := scale(fCPU, in.Gamma)
	shareDRAM := math.NaN()
	if dramSupported {
		shareDRAM = scale(fDRAM, in.Delta)
	}

	// Step 5: energy attribution.
	targetCPUEnergyJ := shareCPU * activeCPUEnergyJ
	targetDramEnergyJ := math.NaN()
	if dramSupported {
		targetDramEnergyJ = shareDRAM * activeDramEnergyJ
	}

	return SocketResult{
		Socket:            socket,
		HostCPUEnergyJ:    hostCPUEnergyJ,
		HostDramEnergyJ:   hostDramEnergyJ,
		TargetCPUEnergyJ:  targetCPUEnergyJ,
		TargetDramEnergyJ: targetDramEnergyJ,
		CPUShare:          shareCPU,
		DramShare:         shareDRAM,
		CPUShareOverflow:  cpuOverflow,
		DramShareOverflow: dramOverflow,
		NThreadsOnSocket:  nThreads,
	}
}
