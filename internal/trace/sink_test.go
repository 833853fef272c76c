// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joulewatch/joulewatch/internal/attribution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_WritesHeaderThenRowsAndFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")

	sink, err := Open(path, []int{0, 1})
	require.NoError(t, err)

	row := NewRow(attribution.Result{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IntervalS: 1.0,
		Sockets: []attribution.SocketResult{
			{Socket: 0, NThreadsOnSocket: 2},
			{Socket: 1, NThreadsOnSocket: 0},
		},
	})
	require.NoError(t, sink.Write(row))

	// Contents are visible on disk immediately, without closing the sink,
	// because Write flushes after every row.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp_iso8601,interval_s,host_cpu_j_s0"))
	assert.Contains(t, lines[0], "n_threads_s1")

	require.NoError(t, sink.Close())
}
