// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace writes attribution results to a CSV trace file: one header
// row followed by one row per sample, flushed to disk after every write.
package trace

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joulewatch/joulewatch/internal/attribution"
)

// Row is one sample's output record, built from an attribution.Result.
type Row struct {
	Timestamp time.Time
	IntervalS float64
	Sockets   []attribution.SocketResult
}

// NewRow converts an attribution.Result into a trace Row.
func NewRow(res attribution.Result) Row {
	return Row{
		Timestamp: res.Timestamp,
		IntervalS: res.IntervalS,
		Sockets:   res.Sockets,
	}
}

// Header returns the CSV header for a trace whose rows carry exactly these
// socket indices, in order.
func Header(sockets []int) []string {
	header := []string{"timestamp_iso8601", "interval_s"}
	for _, s := range sockets {
		header = append(header,
			fmt.Sprintf("host_cpu_j_s%d", s),
			fmt.Sprintf("host_dram_j_s%d", s),
			fmt.Sprintf("target_cpu_j_s%d", s),
			fmt.Sprintf("target_dram_j_s%d", s),
			fmt.Sprintf("cpu_share_s%d", s),
			fmt.Sprintf("dram_share_s%d", s),
			fmt.Sprintf("n_threads_s%d", s),
		)
	}
	return append(header, "share_overflow")
}

// Fields renders the row as CSV field values, in the same column order as
// Header. Sockets must appear in the same order the header was built with.
func (r Row) Fields() []string {
	fields := make([]string, 0, 3+7*len(r.Sockets))
	fields = append(fields, r.Timestamp.UTC().Format(time.RFC3339Nano), formatFloat(r.IntervalS))

	for _, s := range r.Sockets {
		fields = append(fields,
			formatFloat(s.HostCPUEnergyJ),
			formatFloat(s.HostDramEnergyJ),
			formatFloat(s.TargetCPUEnergyJ),
			formatFloat(s.TargetDramEnergyJ),
			formatFloat(s.CPUShare),
			formatFloat(s.DramShare),
			strconv.Itoa(s.NThreadsOnSocket),
		)
	}
	return append(fields, shareOverflowComment(r.Sockets))
}

// shareOverflowComment renders the ShareOverflow error kind (spec'd as
// "clamped; trace row marked in a comment column"): a semicolon-separated
// list of socket/domain pairs whose raw activity fraction exceeded 1 before
// clamp01 forced it to 1, or the empty string when no clamp occurred.
func shareOverflowComment(sockets []attribution.SocketResult) string {
	var notes []string
	for _, s := range sockets {
		if s.CPUShareOverflow {
			notes = append(notes, fmt.Sprintf("s%d:cpu", s.Socket))
		}
		if s.DramShareOverflow {
			notes = append(notes, fmt.Sprintf("s%d:dram", s.Socket))
		}
	}
	return strings.Join(notes, ";")
}

// formatFloat renders a value with at least 6 significant digits, or the
// literal "NaN" for an unsupported reading.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 9, 64)
}
