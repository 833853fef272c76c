// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package threadinv

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joulewatch/joulewatch/internal/hostprobe"
)

// topology is the minimal surface Inventory needs from hostprobe.Topology.
type topology interface {
	SocketOf(cpu int) (int, bool)
}

var _ topology = (*hostprobe.Topology)(nil)

// Inventory enumerates the threads of a target process and retains a
// cumulative CPU time baseline per TID across samples, evicting a TID once
// it is no longer observable under the process's task directory.
type Inventory struct {
	logger     *slog.Logger
	procfsPath string
	topology   topology

	prevCPUTime map[int]float64
}

// OptionFn configures an Inventory.
type OptionFn func(*Inventory)

// WithLogger sets the inventory's logger.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(inv *Inventory) { inv.logger = logger.With("service", "thread-inventory") }
}

// NewInventory creates an Inventory rooted at procfsPath (normally "/proc"),
// mapping threads' last-scheduled CPUs to sockets via topo.
func NewInventory(procfsPath string, topo topology, opts ...OptionFn) *Inventory {
	inv := &Inventory{
		logger:      slog.Default().With("service", "thread-inventory"),
		procfsPath:  procfsPath,
		topology:    topo,
		prevCPUTime: make(map[int]float64),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Sample enumerates the currently observable threads of pid and returns one
// ThreadRecord per thread whose stat file could be read. A TID present in
// the task directory whose read fails mid-scan (a race with thread exit) is
// dropped from this sample only; its CPU-time baseline is retained so a
// later reappearance does not double-count. A TID that has genuinely
// disappeared from the task directory is evicted from the baseline.
func (inv *Inventory) Sample(pid int) ([]ThreadRecord, error) {
	taskDir := filepath.Join(inv.procfsPath, strconv.Itoa(pid), "task")
	entries, err := os.ReadDir(taskDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads of pid %d: %w", pid, err)
	}

	seen := make(map[int]bool, len(entries))
	var records []ThreadRecord
	var scanErrs error

	for _, e := range entries {
		tid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		seen[tid] = true

		rec, err := inv.readThread(pid, tid)
		if err != nil {
			if os.IsNotExist(err) {
				inv.logger.Debug("thread exited mid-scan", "pid", pid, "tid", tid)
				continue
			}
			scanErrs = errors.Join(scanErrs, fmt.Errorf("tid %d: %w", tid, err))
			continue
		}

		records = append(records, rec)
	}

	for tid := range inv.prevCPUTime {
		if !seen[tid] {
			delete(inv.prevCPUTime, tid)
		}
	}

	return records, scanErrs
}

func (inv *Inventory) readThread(pid, tid int) (ThreadRecord, error) {
	statPath := filepath.Join(inv.procfsPath, strconv.Itoa(pid), "task", strconv.Itoa(tid), "stat")
	stat, err := readThreadStat(statPath)
	if err != nil {
		return ThreadRecord{}, err
	}

	cpuTimeS := stat.cpuTimeSeconds()
	prev, seenBefore := inv.prevCPUTime[tid]
	delta := 0.0
	if seenBefore {
		delta = cpuTimeS - prev
		if delta < 0 {
			delta = 0 // counter anomaly: treat as no progress rather than negative
		}
	}
	inv.prevCPUTime[tid] = cpuTimeS

	socket := UnknownSocket
	if s, ok := inv.topology.SocketOf(stat.processor); ok {
		socket = s
	}

	numaPath := filepath.Join(inv.procfsPath, strconv.Itoa(pid), "task", strconv.Itoa(tid), "numa_maps")
	mem, err := parseNumaMaps(numaPath)
	if err != nil {
		inv.logger.Debug("failed to read thread numa_maps", "pid", pid, "tid", tid, "error", err)
		mem = map[int]uint64{}
	}

	return ThreadRecord{
		TID:           tid,
		Socket:        socket,
		CPUTimeS:      cpuTimeS,
		CPUTimeDeltaS: delta,
		MemPerNodeBytes: mem,
	}, nil
}

// ProcessMemPerNodeBytes reads the target process's address-space-wide
// resident memory per NUMA node, used once per sample for DRAM share
// computation rather than summed across threads.
func (inv *Inventory) ProcessMemPerNodeBytes(pid int) (map[int]uint64, error) {
	path := filepath.Join(inv.procfsPath, strconv.Itoa(pid), "numa_maps")
	mem, err := parseNumaMaps(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read process numa_maps for pid %d: %w", pid, err)
	}
	return mem, nil
}
