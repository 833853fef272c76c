// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package hostprobe

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// CPUTimeReader reads per-CPU activity from /proc/stat and aggregates it to
// per-socket non-idle CPU time, in seconds, using a previously discovered
// Topology.
type CPUTimeReader struct {
	fs       procfs.FS
	topology *Topology
}

// NewCPUTimeReader opens /proc/stat under procfsPath (normally "/proc").
func NewCPUTimeReader(procfsPath string, topology *Topology) (*CPUTimeReader, error) {
	fs, err := procfs.NewFS(procfsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", procfsPath, err)
	}
	return &CPUTimeReader{fs: fs, topology: topology}, nil
}

// CPUTimePerSocket returns the current cumulative non-idle CPU time for
// every socket in the topology, in seconds (active = total - idle - iowait).
func (r *CPUTimeReader) CPUTimePerSocket() (map[int]float64, error) {
	stat, err := r.fs.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to read /proc/stat: %w", err)
	}

	result := make(map[int]float64, len(r.topology.sockets))
	for _, s := range r.topology.sockets {
		result[s] = 0
	}

	for cpu, cstat := range stat.CPU {
		socket, ok := r.topology.SocketOf(int(cpu))
		if !ok {
			continue // offline or unmapped CPU: excluded from any socket's total
		}
		active := cstat.User + cstat.Nice + cstat.System +
			cstat.IRQ + cstat.SoftIRQ + cstat.Steal + cstat.Guest + cstat.GuestNice
		result[socket] += active
	}

	return result, nil
}
