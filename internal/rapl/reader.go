// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

// Package rapl reads Intel RAPL energy counters from the Linux powercap
// sysfs interface and exposes a wrap-corrected, monotonic joule reading per
// socket and domain (package, dram).
package rapl

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/procfs/sysfs"
	"golang.org/x/sync/singleflight"
)

// sysfsZone adapts sysfs.RaplZone to the internal zone interface.
type sysfsZone struct {
	z sysfs.RaplZone
}

func (s sysfsZone) Energy() (uint64, error) { return s.z.GetEnergyMicrojoules() }
func (s sysfsZone) MaxMicrojoules() uint64  { return s.z.MaxMicrojoules }

// key identifies a single accumulator by socket and domain.
type key struct {
	socket int
	domain Domain
}

// Reader exposes read_domain(socket, domain) -> joules. It owns one
// wrap-correction accumulator per (socket, domain) pair; a separately
// constructed Poller (see poller.go) keeps them current between attribution
// samples.
type Reader struct {
	logger *slog.Logger

	mu      sync.Mutex
	accs    map[key]*accumulator
	sockets []int // sorted socket indices discovered at Init

	fsPath string

	// reads collapses concurrent ReadDomain calls for the same (socket,
	// domain) into a single read-and-update: the sampling loop and the
	// high-rate poller (see poller.go) both call ReadDomain, and when a
	// poller drain lands on the same instant as an attribution sample, both
	// callers want the same cumulative value, not two separate syscalls.
	reads singleflight.Group
}

// OptionFn configures a Reader.
type OptionFn func(*Reader)

// WithLogger sets the reader's logger.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(r *Reader) { r.logger = logger.With("service", "rapl") }
}

// NewReader creates a Reader over the powercap hierarchy rooted at sysfsPath
// (normally "/sys").
func NewReader(sysfsPath string, opts ...OptionFn) *Reader {
	r := &Reader{
		logger: slog.Default().With("service", "rapl"),
		accs:   make(map[key]*accumulator),
		fsPath: sysfsPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init discovers the powercap RAPL zones and builds one accumulator per
// (socket, domain). A host with no PACKAGE domain at all is treated as
// unsupported hardware and fails startup.
func (r *Reader) Init() error {
	fs, err := sysfs.NewFS(r.fsPath)
	if err != nil {
		return fmt.Errorf("failed to open powercap sysfs at %s: %w", r.fsPath, err)
	}

	zones, err := sysfs.GetRaplZones(fs)
	if err != nil {
		return fmt.Errorf("failed to read rapl zones: %w", err)
	}

	sockets := map[int]bool{}
	haveDomain := map[key]bool{}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, z := range zones {
		d, ok := domainFor(z.Name)
		if !ok {
			continue // non-standard zone (core, uncore, psys): not in scope
		}

		k := key{socket: z.Index, domain: d}
		if haveDomain[k] {
			continue // duplicate path for the same (socket, domain): keep the first
		}
		haveDomain[k] = true
		sockets[z.Index] = true
		r.accs[k] = newAccumulator(sysfsZone{z})
	}

	if len(sockets) == 0 {
		return fmt.Errorf("no RAPL zones found under %s", r.fsPath)
	}
	if !r.hasAnyPackageDomain() {
		return fmt.Errorf("no RAPL PACKAGE domain found: unsupported hardware")
	}

	r.sockets = make([]int, 0, len(sockets))
	for s := range sockets {
		r.sockets = append(r.sockets, s)
	}
	sortInts(r.sockets)

	// Any socket missing a DRAM domain is UNSUPPORTED for that domain only.
	// A socket missing its PACKAGE domain (possible only when some other
	// socket has one, as checked above) likewise gets an UNSUPPORTED
	// PACKAGE placeholder and a warning.
	for _, s := range r.sockets {
		if _, ok := r.accs[key{socket: s, domain: DRAM}]; !ok {
			r.accs[key{socket: s, domain: DRAM}] = newUnsupportedAccumulator()
			r.logger.Warn("DRAM domain unsupported for socket", "socket", s)
		}
		if _, ok := r.accs[key{socket: s, domain: Package}]; !ok {
			r.accs[key{socket: s, domain: Package}] = newUnsupportedAccumulator()
			r.logger.Warn("PACKAGE domain unsupported for socket", "socket", s)
		}
	}

	r.logger.Info("RAPL reader initialized", "sockets", r.sockets)
	return nil
}

// hasAnyPackageDomain reports whether at least one socket exposed a PACKAGE
// zone. Called only while r.mu is held, during Init.
func (r *Reader) hasAnyPackageDomain() bool {
	for k := range r.accs {
		if k.domain == Package {
			return true
		}
	}
	return false
}

func domainFor(name string) (Domain, bool) {
	switch strings.ToLower(name) {
	case "package", "pkg":
		return Package, true
	case "dram":
		return DRAM, true
	default:
		return "", false
	}
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Sockets returns the sorted list of socket indices discovered at Init.
func (r *Reader) Sockets() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.sockets...)
}

// DomainSupported reports whether (socket, domain) is backed by a real
// powercap zone, as opposed to an UNSUPPORTED placeholder.
func (r *Reader) DomainSupported(socket int, domain Domain) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accs[key{socket: socket, domain: domain}]
	return ok && !acc.unsupported
}

// ReadDomain returns the wrap-corrected cumulative energy for (socket,
// domain) since the reader was initialized. An UNSUPPORTED domain returns
// zero, never an error that would propagate into a share calculation.
//
// Concurrent callers for the same (socket, domain) - the sampling loop and
// the high-rate poller, see poller.go - share a single in-flight read via
// singleflight, so a drain that coincides with an attribution sample does
// one sysfs read instead of two, and both observe the same result.
func (r *Reader) ReadDomain(socket int, domain Domain) (Energy, error) {
	sfKey := strconv.Itoa(socket) + ":" + string(domain)

	v, err, _ := r.reads.Do(sfKey, func() (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		acc, ok := r.accs[key{socket: socket, domain: domain}]
		if !ok {
			return Energy(0), fmt.Errorf("unknown socket/domain: %d/%s", socket, domain)
		}

		energy, readErr := acc.read()
		if readErr != nil {
			r.logger.Warn("transient RAPL read error", "socket", socket, "domain", domain, "error", readErr)
			return energy, nil // serve the last-known value; next success absorbs the gap
		}
		return energy, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(Energy), nil
}

// Close releases resources held by the reader. The powercap sysfs backend
// holds no file descriptors open between reads, so this is a no-op kept for
// symmetry with other Close()-able components.
func (r *Reader) Close() error {
	return nil
}
