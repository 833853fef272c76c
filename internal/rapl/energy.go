// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import "fmt"

// Energy represents cumulative energy usage as a uint64 microjoule count.
// Use Joules/MilliJoules/MicroJoules to read the value in the desired unit.
type Energy uint64

const (
	MicroJoule Energy = 1
	MilliJoule        = 1000 * MicroJoule
	Joule             = 1000 * MilliJoule
)

func (e Energy) MicroJoules() uint64 { return uint64(e) }
func (e Energy) MilliJoules() float64 {
	return float64(e) / float64(MilliJoule)
}
func (e Energy) Joules() float64 { return float64(e) / float64(Joule) }

func (e Energy) String() string {
	return fmt.Sprintf("%.6fJ", e.Joules())
}

// Power represents power usage as a float64 microwatt value.
type Power float64

const (
	MicroWatt Power = 1.0
	MilliWatt       = 1000 * MicroWatt
	Watt            = 1000 * MilliWatt
)

func (p Power) MicroWatts() float64 { return float64(p) }
func (p Power) MilliWatts() float64 { return float64(p / MilliWatt) }
func (p Power) Watts() float64      { return float64(p / Watt) }

func (p Power) String() string {
	return fmt.Sprintf("%.6fW", p.Watts())
}
