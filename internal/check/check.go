// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

// Package check implements the --check diagnostic: a one-shot report of
// discovered socket topology and RAPL domain support, used to validate
// permissions and hardware support before starting a real run.
package check

import (
	"fmt"
	"io"
	"sort"

	"github.com/joulewatch/joulewatch/internal/hostprobe"
	"github.com/joulewatch/joulewatch/internal/rapl"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Run discovers host topology and RAPL domains and prints a report to out.
// It returns an error when topology discovery or RAPL initialization fails.
// The returned errors do not wrap the sampler's sentinel errors, so they do
// not distinguish permission problems from unsupported hardware;
// cmd/joulewatch maps any of them to exit code 1.
func Run(procfsPath, sysfsPath string, out io.Writer) error {
	topo, err := hostprobe.DiscoverTopology(sysfsPath)
	if err != nil {
		return fmt.Errorf("failed to discover cpu topology: %w", err)
	}

	reader := rapl.NewReader(sysfsPath)
	if err := reader.Init(); err != nil {
		return fmt.Errorf("failed to initialize rapl reader: %w", err)
	}

	sockets := reader.Sockets()
	sort.Ints(sockets)

	rows := make([][]string, 0, len(sockets))
	for _, s := range sockets {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s),
			fmt.Sprintf("%d", len(topo.CPUsOnSocket(s))),
			supportLabel(reader.DomainSupported(s, rapl.Package)),
			supportLabel(reader.DomainSupported(s, rapl.DRAM)),
		})
	}

	table := tablewriter.NewWriter(out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	table.Header([]string{"Socket", "CPUs", "Package", "DRAM"})
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to build check report: %w", err)
	}
	return table.Render()
}

func supportLabel(supported bool) string {
	if supported {
		return "ok"
	}
	return "unsupported"
}
