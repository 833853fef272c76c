// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"math"
	"testing"
	"time"

	"github.com/joulewatch/joulewatch/internal/attribution"
	"github.com/stretchr/testify/assert"
)

func TestHeader_OneColumnGroupPerSocket(t *testing.T) {
	h := Header([]int{0, 1})
	assert.Equal(t, []string{
		"timestamp_iso8601", "interval_s",
		"host_cpu_j_s0", "host_dram_j_s0", "target_cpu_j_s0", "target_dram_j_s0", "cpu_share_s0", "dram_share_s0", "n_threads_s0",
		"host_cpu_j_s1", "host_dram_j_s1", "target_cpu_j_s1", "target_dram_j_s1", "cpu_share_s1", "dram_share_s1", "n_threads_s1",
		"share_overflow",
	}, h)
}

func TestRow_FieldsMatchHeaderWidth(t *testing.T) {
	res := attribution.Result{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IntervalS: 1.0,
		Sockets: []attribution.SocketResult{
			{Socket: 0, HostCPUEnergyJ: 10, HostDramEnergyJ: 2, TargetCPUEnergyJ: 1, TargetDramEnergyJ: 0.5, CPUShare: 0.3, DramShare: 0.1, NThreadsOnSocket: 4},
		},
	}

	row := NewRow(res)
	fields := row.Fields()
	assert.Len(t, fields, len(Header([]int{0})))
	assert.Equal(t, "4", fields[len(fields)-2], "n_threads_s0 is the last per-socket field")
	assert.Equal(t, "", fields[len(fields)-1], "no overflow: share_overflow column is empty")
}

func TestRow_ShareOverflowCommentListsOverflowingSocketsAndDomains(t *testing.T) {
	res := attribution.Result{
		Timestamp: time.Now(),
		IntervalS: 1.0,
		Sockets: []attribution.SocketResult{
			{Socket: 0, CPUShareOverflow: true},
			{Socket: 1, DramShareOverflow: true},
		},
	}

	fields := NewRow(res).Fields()
	assert.Equal(t, "s0:cpu;s1:dram", fields[len(fields)-1])
}

func TestRow_ShareOverflowCommentEmptyWhenNoClamp(t *testing.T) {
	res := attribution.Result{
		Timestamp: time.Now(),
		IntervalS: 1.0,
		Sockets:   []attribution.SocketResult{{Socket: 0}},
	}

	fields := NewRow(res).Fields()
	assert.Equal(t, "", fields[len(fields)-1])
}

func TestRow_MissingDRAMDomainRendersLiteralNaN(t *testing.T) {
	res := attribution.Result{
		Timestamp: time.Now(),
		IntervalS: 1.0,
		Sockets: []attribution.SocketResult{
			{Socket: 0, HostDramEnergyJ: math.NaN(), TargetDramEnergyJ: math.NaN(), DramShare: math.NaN()},
		},
	}

	fields := NewRow(res).Fields()
	// per-socket block starts at index 2: host_cpu, host_dram, target_cpu,
	// target_dram, cpu_share, dram_share, n_threads.
	assert.Equal(t, "NaN", fields[3]) // host_dram_j_s0
	assert.Equal(t, "NaN", fields[5]) // target_dram_j_s0
	assert.Equal(t, "NaN", fields[7]) // dram_share_s0
}
