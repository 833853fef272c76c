// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package threadinv

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTopology struct {
	socketOf map[int]int
}

func (f *fakeTopology) SocketOf(cpu int) (int, bool) {
	s, ok := f.socketOf[cpu]
	return s, ok
}

func writeThreadStat(t *testing.T, dir string, tid, utime, stime, processor int) {
	t.Helper()
	taskDir := filepath.Join(dir, "task", strconv.Itoa(tid))
	require.NoError(t, os.MkdirAll(taskDir, 0o755))

	fields := make([]string, 37)
	for i := range fields {
		fields[i] = "0"
	}
	fields[0] = "R"
	fields[11] = strconv.Itoa(utime)
	fields[12] = strconv.Itoa(stime)
	fields[36] = strconv.Itoa(processor)

	line := strconv.Itoa(tid) + " (worker) "
	for i, f := range fields {
		if i > 0 {
			line += " "
		}
		line += f
	}
	require.NoError(t, os.WriteFile(filepath.Join(taskDir, "stat"), []byte(line+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(taskDir, "numa_maps"), []byte("7f0000000000 default N0=10 N1=0\n"), 0o644))
}

func TestInventory_Sample_FirstObservationHasZeroDelta(t *testing.T) {
	procRoot := t.TempDir()
	pidDir := filepath.Join(procRoot, "100")
	writeThreadStat(t, pidDir, 100, 500, 0, 0)

	topo := &fakeTopology{socketOf: map[int]int{0: 0}}
	inv := NewInventory(procRoot, topo)

	records, err := inv.Sample(100)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].Socket)
	assert.InDelta(t, 5.0, records[0].CPUTimeS, 0.001)
	assert.Equal(t, 0.0, records[0].CPUTimeDeltaS)
}

func TestInventory_Sample_ComputesDeltaOnSecondObservation(t *testing.T) {
	procRoot := t.TempDir()
	pidDir := filepath.Join(procRoot, "100")
	writeThreadStat(t, pidDir, 100, 500, 0, 0)

	topo := &fakeTopology{socketOf: map[int]int{0: 0}}
	inv := NewInventory(procRoot, topo)

	_, err := inv.Sample(100)
	require.NoError(t, err)

	writeThreadStat(t, pidDir, 100, 800, 0, 0)
	records, err := inv.Sample(100)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 3.0, records[0].CPUTimeDeltaS, 0.001)
}

func TestInventory_Sample_EvictsDisappearedTID(t *testing.T) {
	procRoot := t.TempDir()
	pidDir := filepath.Join(procRoot, "100")
	writeThreadStat(t, pidDir, 100, 500, 0, 0)
	writeThreadStat(t, pidDir, 101, 100, 0, 0)

	topo := &fakeTopology{socketOf: map[int]int{0: 0}}
	inv := NewInventory(procRoot, topo)

	_, err := inv.Sample(100)
	require.NoError(t, err)
	assert.Len(t, inv.prevCPUTime, 2)

	require.NoError(t, os.RemoveAll(filepath.Join(pidDir, "task", "101")))
	_, err = inv.Sample(100)
	require.NoError(t, err)
	assert.Len(t, inv.prevCPUTime, 1)
	_, ok := inv.prevCPUTime[101]
	assert.False(t, ok)
}

func TestInventory_Sample_UnknownSocketWhenCPUUnmapped(t *testing.T) {
	procRoot := t.TempDir()
	pidDir := filepath.Join(procRoot, "100")
	writeThreadStat(t, pidDir, 100, 500, 0, 99)

	topo := &fakeTopology{socketOf: map[int]int{}}
	inv := NewInventory(procRoot, topo)

	records, err := inv.Sample(100)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, UnknownSocket, records[0].Socket)
}
