// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

// Domain identifies a RAPL energy domain tracked per socket.
type Domain string

const (
	Package Domain = "package"
	DRAM    Domain = "dram"
)

// zone is the minimal read surface the accumulator needs from a powercap
// energy zone. sysfsZone (reader.go) is the production implementation;
// tests substitute a fake.
type zone interface {
	Energy() (uint64, error)
	MaxMicrojoules() uint64
}

// accumulator tracks a single (socket, domain) RAPL counter, applying
// wraparound correction: the accumulated value is the monotonic sum of all
// true deltas observed since the accumulator was created, even when the
// underlying hardware counter has wrapped one or more times.
//
// This is a single-zone specialization of the aggregation-with-wraparound
// logic used for multi-socket zone grouping elsewhere; here each socket's
// package/dram reading is kept distinct rather than summed, since per-socket
// output columns need one value per socket.
type accumulator struct {
	z           zone
	last        uint64
	accumulated Energy
	haveReading bool
	unsupported bool
}

func newAccumulator(z zone) *accumulator {
	return &accumulator{z: z}
}

func newUnsupportedAccumulator() *accumulator {
	return &accumulator{unsupported: true}
}

// read applies wrap correction and returns the cumulative energy reading.
// An UNSUPPORTED domain always reads as zero.
func (a *accumulator) read() (Energy, error) {
	if a.unsupported {
		return 0, nil
	}

	current, err := a.z.Energy()
	if err != nil {
		// TransientReadError: keep serving the last-known accumulated value;
		// the next successful read absorbs the missed interval via an even
		// larger wrap-corrected delta.
		return a.accumulated, err
	}

	if !a.haveReading {
		a.last = current
		a.haveReading = true
		return a.accumulated, nil
	}

	var delta uint64
	if current >= a.last {
		delta = current - a.last
	} else {
		maxRange := a.z.MaxMicrojoules()
		delta = (maxRange - a.last) + current
	}

	a.accumulated += Energy(delta)
	a.last = current
	return a.accumulated, nil
}
