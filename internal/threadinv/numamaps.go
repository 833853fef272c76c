// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package threadinv

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// parseNumaMaps sums the per-node resident page counts reported by a
// numa_maps file (one line per VMA, fields like "N0=12 N1=34" give the
// number of pages resident on each node) and converts the totals to bytes.
//
// Threads of the same process share an address space, so
// /proc/<pid>/task/<tid>/numa_maps and /proc/<pid>/numa_maps report
// identical totals for any thread of the same process; callers dedupe at
// the process level rather than summing across threads.
func parseNumaMaps(path string) (map[int]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pageSize := uint64(unix.Getpagesize())
	pagesPerNode := make(map[int]uint64)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		for _, tok := range strings.Fields(scanner.Text()) {
			node, pages, ok := parseNodeToken(tok)
			if !ok {
				continue
			}
			pagesPerNode[node] += pages
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	bytesPerNode := make(map[int]uint64, len(pagesPerNode))
	for node, pages := range pagesPerNode {
		bytesPerNode[node] = pages * pageSize
	}
	return bytesPerNode, nil
}

// parseNodeToken recognizes a "N<node>=<pages>" token, e.g. "N0=128".
func parseNodeToken(tok string) (node int, pages uint64, ok bool) {
	if len(tok) < 3 || tok[0] != 'N' {
		return 0, 0, false
	}
	eq := strings.IndexByte(tok, '=')
	if eq < 0 {
		return 0, 0, false
	}

	n, err := strconv.Atoi(tok[1:eq])
	if err != nil {
		return 0, 0, false
	}
	p, err := strconv.ParseUint(tok[eq+1:], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return n, p, true
}
