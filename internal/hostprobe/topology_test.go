// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package hostprobe

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fakeCPURoot(t *testing.T, cpuToSocket map[int]int) string {
	t.Helper()
	root := t.TempDir()
	for cpu, socket := range cpuToSocket {
		path := filepath.Join(root, "devices", "system", "cpu", fmt.Sprintf("cpu%d", cpu), "topology", "physical_package_id")
		writeFile(t, path, strconv.Itoa(socket)+"\n")
	}
	return root
}

func TestDiscoverTopology(t *testing.T) {
	root := fakeCPURoot(t, map[int]int{0: 0, 1: 0, 2: 1, 3: 1})

	topo, err := DiscoverTopology(root)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, topo.Sockets())

	s, ok := topo.SocketOf(2)
	assert.True(t, ok)
	assert.Equal(t, 1, s)

	_, ok = topo.SocketOf(99)
	assert.False(t, ok)

	assert.ElementsMatch(t, []int{0, 1}, topo.CPUsOnSocket(0))
	assert.ElementsMatch(t, []int{2, 3}, topo.CPUsOnSocket(1))
}

func TestDiscoverTopology_NoCPUs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "devices", "system", "cpu"), 0o755))

	_, err := DiscoverTopology(root)
	assert.Error(t, err)
}
