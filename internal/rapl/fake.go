// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import "sync"

// fakeZone is a test double implementing the zone interface, with a
// controllable increment and wraparound ceiling so tests can exercise the
// accumulator's wrap-correction path deterministically.
//
// NOTE: not intended for production use.
type fakeZone struct {
	mu        sync.Mutex
	energy    uint64
	maxEnergy uint64
	increment uint64
	failNext  bool
}

// NewFakeZone creates a fake zone starting at 0 with the given wraparound
// ceiling. Each call to Energy() advances the counter by increment,
// wrapping around maxEnergy.
func NewFakeZone(maxEnergy, increment uint64) *fakeZone {
	return &fakeZone{maxEnergy: maxEnergy, increment: increment}
}

func (z *fakeZone) Energy() (uint64, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.failNext {
		z.failNext = false
		return 0, errTransientRead
	}

	z.energy = (z.energy + z.increment) % z.maxEnergy
	return z.energy, nil
}

func (z *fakeZone) MaxMicrojoules() uint64 {
	return z.maxEnergy
}

// FailNextRead makes the next call to Energy() return an error, simulating
// a transient sysfs read failure.
func (z *fakeZone) FailNextRead() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.failNext = true
}

// Set forces the counter to an exact value, useful for constructing a
// wraparound scenario in a single step.
func (z *fakeZone) Set(v uint64) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.energy = v
}

// FakeSocketSpec describes one socket's fake RAPL zones for NewReaderForTest.
type FakeSocketSpec struct {
	PackageMaxMicrojoules uint64
	PackageIncrement      uint64

	// DramSupported false builds an UNSUPPORTED dram accumulator for this
	// socket, matching a host with no DRAM domain.
	DramSupported      bool
	DramMaxMicrojoules uint64
	DramIncrement      uint64
}

// NewReaderForTest builds a Reader with fake zones instead of a real
// powercap sysfs, for tests and the calibrator's own package tests that
// need a Reader without real hardware.
func NewReaderForTest(specs map[int]FakeSocketSpec) *Reader {
	r := NewReader("")
	sockets := make([]int, 0, len(specs))
	for s, spec := range specs {
		sockets = append(sockets, s)
		r.accs[key{socket: s, domain: Package}] = newAccumulator(NewFakeZone(spec.PackageMaxMicrojoules, spec.PackageIncrement))
		if spec.DramSupported {
			r.accs[key{socket: s, domain: DRAM}] = newAccumulator(NewFakeZone(spec.DramMaxMicrojoules, spec.DramIncrement))
		} else {
			r.accs[key{socket: s, domain: DRAM}] = newUnsupportedAccumulator()
		}
	}
	sortInts(sockets)
	r.sockets = sockets
	return r
}
