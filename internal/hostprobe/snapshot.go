// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package hostprobe

import (
	"fmt"
	"log/slog"
)

// Snapshot is a single point-in-time read of host-wide CPU and NUMA
// activity, keyed by socket.
type Snapshot struct {
	CPUTimePerSocket map[int]float64 // seconds, cumulative since boot
	MemPerNodeMB     map[int]float64 // MB, current resident
}

// Probe combines a Topology, CPUTimeReader and NUMAReader into the System
// Probe contract: snapshot() -> HostSnapshot.
type Probe struct {
	logger    *slog.Logger
	topology  *Topology
	cpuTime   *CPUTimeReader
	numa      *NUMAReader
}

// OptionFn configures a Probe.
type OptionFn func(*Probe)

// WithLogger sets the probe's logger.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(p *Probe) { p.logger = logger.With("service", "hostprobe") }
}

// NewProbe discovers topology and opens the CPU-time and NUMA readers
// rooted at procfsPath/sysfsPath (normally "/proc" and "/sys").
func NewProbe(procfsPath, sysfsPath string, opts ...OptionFn) (*Probe, error) {
	topology, err := DiscoverTopology(sysfsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to discover cpu topology: %w", err)
	}

	cpuTime, err := NewCPUTimeReader(procfsPath, topology)
	if err != nil {
		return nil, fmt.Errorf("failed to open cpu time reader: %w", err)
	}

	numa, err := NewNUMAReader(sysfsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open numa reader: %w", err)
	}

	p := &Probe{
		logger:   slog.Default().With("service", "hostprobe"),
		topology: topology,
		cpuTime:  cpuTime,
		numa:     numa,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Topology returns the discovered CPU topology.
func (p *Probe) Topology() *Topology {
	return p.topology
}

// Snapshot reads current host-wide CPU time and NUMA memory.
func (p *Probe) Snapshot() (Snapshot, error) {
	cpuTime, err := p.cpuTime.CPUTimePerSocket()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read cpu time: %w", err)
	}

	mem, err := p.numa.MemPerNodeMB()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read numa memory: %w", err)
	}

	return Snapshot{CPUTimePerSocket: cpuTime, MemPerNodeMB: mem}, nil
}
