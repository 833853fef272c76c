// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package attribution

import "time"

// epsilon guards against division by zero when host activity on a socket
// is zero; it also gives the clamp-to-1 edge case (target activity observed
// with no corresponding host activity, only possible via clock skew) a
// well-defined, very large raw fraction that clamp01 then caps at 1.
const epsilon = 1e-9

// Baseline holds idle power, in watts, per socket and domain, produced by a
// prior calibration run.
type Baseline struct {
	CPUWattsPerSocket  map[int]float64
	DramWattsPerSocket map[int]float64
}

// Input is everything the engine needs to attribute energy for one
// interval ending at Timestamp.
type Input struct {
	Timestamp     time.Time
	PrevTimestamp time.Time

	// Sockets is the set of sockets to compute a result for, in order.
	Sockets []int

	// PackageJoules/DramJoules are the RAPL accumulators' cumulative
	// readings at Timestamp and PrevTimestamp, in joules.
	PackageJoules     map[int]float64
	PrevPackageJoules map[int]float64
	DramJoules        map[int]float64
	PrevDramJoules    map[int]float64

	// DramSupported is false for a socket whose DRAM domain is absent;
	// its DRAM fields are reported as NaN rather than zero.
	DramSupported map[int]bool

	// HostCPUTimePerSocket is cumulative non-idle CPU time per socket, in
	// seconds, at Timestamp and PrevTimestamp.
	HostCPUTimePerSocket     map[int]float64
	PrevHostCPUTimePerSocket map[int]float64

	// HostMemPerNodeMB is current resident memory per NUMA node, in MB,
	// at Timestamp.
	HostMemPerNodeMB map[int]float64

	// ThreadCPUTimeDeltaPerSocket is the sum of per-thread CPU time deltas
	// for threads currently assigned to each socket (threads introduced in
	// this sample contribute zero, per the inventory's first-observation
	// rule).
	ThreadCPUTimeDeltaPerSocket map[int]float64

	// ThreadCountPerSocket is the number of target threads currently
	// assigned to each socket.
	ThreadCountPerSocket map[int]int

	// TargetMemPerNodeMB is the target process's own resident memory per
	// NUMA node, in MB, read once (not summed across threads).
	TargetMemPerNodeMB map[int]float64

	Baseline Baseline
	Gamma    float64
	Delta    float64
}

// SocketResult is one socket's row of attributed energy for an interval.
type SocketResult struct {
	Socket int

	HostCPUEnergyJ   float64
	HostDramEnergyJ  float64 // NaN if DRAM unsupported on this socket
	TargetCPUEnergyJ float64
	TargetDramEnergyJ float64 // NaN if DRAM unsupported on this socket

	CPUShare  float64
	DramShare float64 // NaN if DRAM unsupported on this socket

	// CPUShareOverflow/DramShareOverflow record whether the raw fraction
	// (before clamp01) exceeded 1 this interval: the ShareOverflow error
	// kind, surfaced so the trace sink can flag the row instead of silently
	// reporting a clamped share indistinguishable from a genuine 100% share.
	CPUShareOverflow  bool
	DramShareOverflow bool

	NThreadsOnSocket int
}

// Result is one interval's full attribution, one row per socket.
type Result struct {
	Timestamp time.Time
	IntervalS float64
	Sockets   []SocketResult
}
