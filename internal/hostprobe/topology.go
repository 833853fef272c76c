// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostprobe reads host-wide CPU and NUMA activity: per-socket CPU
// time and per-node memory totals, against which a target process's own
// activity is compared.
package hostprobe

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var cpuDirPattern = regexp.MustCompile(`^cpu(\d+)$`)

// Topology maps each logical CPU to the socket (physical package) it
// belongs to, discovered once at startup from sysfs.
type Topology struct {
	cpuToSocket map[int]int
	sockets     []int
}

// DiscoverTopology reads /sys/devices/system/cpu/cpu*/topology/physical_package_id
// under sysfsPath (normally "/sys") and builds the CPU-to-socket map.
func DiscoverTopology(sysfsPath string) (*Topology, error) {
	cpuRoot := filepath.Join(sysfsPath, "devices", "system", "cpu")
	entries, err := os.ReadDir(cpuRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu topology root %s: %w", cpuRoot, err)
	}

	cpuToSocket := make(map[int]int)
	socketSet := make(map[int]bool)

	for _, e := range entries {
		m := cpuDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		cpu, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		idPath := filepath.Join(cpuRoot, e.Name(), "topology", "physical_package_id")
		raw, err := os.ReadFile(idPath)
		if err != nil {
			// offline CPUs often lack a topology directory; skip rather than fail
			continue
		}

		socket, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("malformed physical_package_id in %s: %w", idPath, err)
		}

		cpuToSocket[cpu] = socket
		socketSet[socket] = true
	}

	if len(cpuToSocket) == 0 {
		return nil, fmt.Errorf("no CPUs discovered under %s", cpuRoot)
	}

	sockets := make([]int, 0, len(socketSet))
	for s := range socketSet {
		sockets = append(sockets, s)
	}
	sort.Ints(sockets)

	return &Topology{cpuToSocket: cpuToSocket, sockets: sockets}, nil
}

// Sockets returns the sorted list of discovered socket indices.
func (t *Topology) Sockets() []int {
	return append([]int(nil), t.sockets...)
}

// SocketOf returns the socket a logical CPU belongs to, and whether the CPU
// was found in the discovered topology.
func (t *Topology) SocketOf(cpu int) (int, bool) {
	s, ok := t.cpuToSocket[cpu]
	return s, ok
}

// CPUsOnSocket returns every logical CPU belonging to socket s.
func (t *Topology) CPUsOnSocket(s int) []int {
	var cpus []int
	for cpu, socket := range t.cpuToSocket {
		if socket == s {
			cpus = append(cpus, cpu)
		}
	}
	sort.Ints(cpus)
	return cpus
}
