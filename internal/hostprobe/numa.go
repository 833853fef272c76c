// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package hostprobe

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var nodeDirPattern = regexp.MustCompile(`^node(\d+)$`)
var memUsedPattern = regexp.MustCompile(`^Node\s+\d+\s+MemUsed:\s+(\d+)\s*kB$`)

// NUMAReader reads per-node resident memory totals from sysfs. The
// supported topology associates exactly one NUMA node with each socket, so
// node index and socket index are the same number.
type NUMAReader struct {
	sysfsPath string
	nodes     []int
}

// NewNUMAReader discovers NUMA nodes under /sys/devices/system/node.
func NewNUMAReader(sysfsPath string) (*NUMAReader, error) {
	nodeRoot := filepath.Join(sysfsPath, "devices", "system", "node")
	entries, err := os.ReadDir(nodeRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read numa node root %s: %w", nodeRoot, err)
	}

	var nodes []int
	for _, e := range entries {
		m := nodeDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		nodes = append(nodes, n)
	}

	if len(nodes) == 0 {
		return nil, fmt.Errorf("no NUMA nodes found under %s", nodeRoot)
	}

	return &NUMAReader{sysfsPath: sysfsPath, nodes: nodes}, nil
}

// Nodes returns the discovered NUMA node (== socket) indices.
func (r *NUMAReader) Nodes() []int {
	return append([]int(nil), r.nodes...)
}

// MemPerNodeMB returns the current resident memory, in MB, for every
// discovered NUMA node.
func (r *NUMAReader) MemPerNodeMB() (map[int]float64, error) {
	result := make(map[int]float64, len(r.nodes))
	for _, n := range r.nodes {
		mb, err := r.readNodeMemUsedMB(n)
		if err != nil {
			return nil, err
		}
		result[n] = mb
	}
	return result, nil
}

func (r *NUMAReader) readNodeMemUsedMB(node int) (float64, error) {
	path := filepath.Join(r.sysfsPath, "devices", "system", "node", fmt.Sprintf("node%d", node), "meminfo")
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := memUsedPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		kb, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("malformed MemUsed line in %s: %w", path, err)
		}
		return kb / 1024.0, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	return 0, fmt.Errorf("no MemUsed line found in %s", path)
}
