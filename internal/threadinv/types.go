// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

// Package threadinv enumerates the threads of a target process and reads
// their per-thread CPU time, last-scheduled socket, and NUMA memory
// residency.
package threadinv

// UnknownSocket marks a thread whose last-scheduled CPU could not be
// mapped to a socket (e.g. the CPU went offline between reads).
const UnknownSocket = -1

// ThreadRecord describes one live thread of the target process as observed
// at a single sample boundary.
type ThreadRecord struct {
	TID int

	// Socket is the socket the thread last executed on, or UnknownSocket.
	Socket int

	// CPUTimeS is the thread's cumulative CPU time in seconds.
	CPUTimeS float64

	// CPUTimeDeltaS is the CPU time consumed since the thread's previous
	// observation. Zero for a thread observed for the first time.
	CPUTimeDeltaS float64

	// MemPerNodeBytes is this thread's resident memory per NUMA node, in
	// bytes. Threads of the same process share an address space, so this
	// is the same value for every thread of a process; the sampler does not
	// sum it across threads but reads the process-level residency once via
	// Inventory.ProcessMemPerNodeBytes.
	MemPerNodeBytes map[int]uint64
}
