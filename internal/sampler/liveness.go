// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// alive reports whether pid still has a /proc entry.
func alive(procfsPath string, pid int) bool {
	_, err := os.Stat(filepath.Join(procfsPath, strconv.Itoa(pid)))
	return err == nil
}

// resolvePID returns the target PID: pid if explicitly given (pid > 0), or
// the first process under procfsPath whose comm matches name otherwise.
func resolvePID(procfsPath string, pid int, name string) (int, error) {
	if pid > 0 {
		return pid, nil
	}
	if name == "" {
		return 0, fmt.Errorf("neither --pid nor --name was given")
	}

	entries, err := os.ReadDir(procfsPath)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", procfsPath, err)
	}

	for _, e := range entries {
		candidate, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}

		comm, err := os.ReadFile(filepath.Join(procfsPath, e.Name(), "comm"))
		if err != nil {
			continue // process exited between readdir and read, or permission denied
		}
		if strings.TrimSpace(string(comm)) == name {
			return candidate, nil
		}
	}

	return 0, fmt.Errorf("no process named %q found under %s", name, procfsPath)
}
