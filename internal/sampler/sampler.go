// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joulewatch/joulewatch/internal/attribution"
	"github.com/joulewatch/joulewatch/internal/baseline"
	"github.com/joulewatch/joulewatch/internal/hostprobe"
	"github.com/joulewatch/joulewatch/internal/rapl"
	"github.com/joulewatch/joulewatch/internal/threadinv"
	"github.com/joulewatch/joulewatch/internal/trace"
	"k8s.io/utils/clock"
)

// bytesPerMB converts numa_maps resident-byte totals into the MB units the
// attribution engine's DRAM share compares against host meminfo.
const bytesPerMB = 1024 * 1024

// Sampler implements the sampling loop: INIT discovers topology and opens
// descriptors, Init's final step takes the CALIBRATED snapshot, Run then
// repeatedly samples every Config.IntervalS until the target disappears or
// the context is canceled.
type Sampler struct {
	cfg    Config
	logger *slog.Logger
	clock  clock.WithTicker

	reader    *rapl.Reader
	probe     *hostprobe.Probe
	inventory *threadinv.Inventory
	engine    *attribution.Engine
	baseVal   attribution.Baseline
	sink      *trace.Sink

	targetPID int

	prevTimestamp     time.Time
	prevPackageJoules map[int]float64
	prevDramJoules    map[int]float64
	prevHostCPUTime   map[int]float64
	dramSupported     map[int]bool

	emittedFirstSample bool
}

// New creates a Sampler from cfg. Heavy lifting (opening RAPL descriptors,
// discovering topology) happens in Init, not here.
func New(cfg Config, opts ...OptionFn) *Sampler {
	s := &Sampler{
		cfg:    cfg,
		logger: slog.Default().With("service", "sampler"),
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the sampler as a service.
func (s *Sampler) Name() string { return "sampler" }

// Init discovers CPU/NUMA topology, opens the RAPL reader, loads the
// baseline, enumerates the target once, and opens the trace sink. It
// returns ErrUnsupportedHardware if no RAPL package domain is found
// anywhere, and an error if the target PID cannot be resolved or is
// already gone.
func (s *Sampler) Init() error {
	pid, err := resolvePID(s.cfg.ProcfsPath, s.cfg.PID, s.cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to resolve target process: %w", err)
	}
	if !alive(s.cfg.ProcfsPath, pid) {
		return fmt.Errorf("%w: pid %d", ErrTargetGone, pid)
	}
	s.targetPID = pid

	probe, err := hostprobe.NewProbe(s.cfg.ProcfsPath, s.cfg.SysfsPath, hostprobe.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("failed to discover host topology: %w", err)
	}
	s.probe = probe

	reader := rapl.NewReader(s.cfg.SysfsPath, rapl.WithLogger(s.logger))
	if err := reader.Init(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedHardware, err)
	}
	s.reader = reader

	s.dramSupported = make(map[int]bool, len(reader.Sockets()))
	for _, sock := range reader.Sockets() {
		s.dramSupported[sock] = reader.DomainSupported(sock, rapl.DRAM)
	}

	s.inventory = threadinv.NewInventory(s.cfg.ProcfsPath, probe.Topology(), threadinv.WithLogger(s.logger))
	s.engine = attribution.NewEngine(attribution.WithLogger(s.logger))

	baseVal, err := baseline.Load(s.cfg.BaselinePath, s.logger)
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}
	s.baseVal = baseVal

	sink, err := trace.Open(s.cfg.OutputPath, reader.Sockets(), trace.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("failed to open trace sink: %w", err)
	}
	s.sink = sink

	if err := s.takeSnapshot(); err != nil {
		sink.Close()
		return fmt.Errorf("failed to take initial snapshot: %w", err)
	}

	s.logger.Info("sampler initialized", "pid", s.targetPID, "sockets", reader.Sockets())
	return nil
}

// Poller returns the RAPL poller to be run as a sibling service at the
// configured high-rate period, decoupled from the attribution interval.
func (s *Sampler) Poller() *rapl.Poller {
	return rapl.NewPoller(s.reader, s.cfg.RaplPeriodS, rapl.WithPollerLogger(s.logger))
}

// takeSnapshot reads RAPL, host, and thread state once and stores it as the
// "previous" endpoint for the next interval's attribution.
func (s *Sampler) takeSnapshot() error {
	pkg, dram, err := s.readRapl()
	if err != nil {
		return err
	}

	hostSnap, err := s.probe.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read host snapshot: %w", err)
	}

	if _, err := s.inventory.Sample(s.targetPID); err != nil {
		s.logger.Warn("thread inventory scan had errors", "error", err)
	}

	s.prevTimestamp = s.clock.Now()
	s.prevPackageJoules = pkg
	s.prevDramJoules = dram
	s.prevHostCPUTime = hostSnap.CPUTimePerSocket
	return nil
}

func (s *Sampler) readRapl() (pkg, dram map[int]float64, err error) {
	sockets := s.reader.Sockets()
	pkg = make(map[int]float64, len(sockets))
	dram = make(map[int]float64, len(sockets))
	for _, sock := range sockets {
		p, err := s.reader.ReadDomain(sock, rapl.Package)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read package energy for socket %d: %w", sock, err)
		}
		pkg[sock] = p.Joules()

		d, err := s.reader.ReadDomain(sock, rapl.DRAM)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read dram energy for socket %d: %w", sock, err)
		}
		dram[sock] = d.Joules()
	}
	return pkg, dram, nil
}

// Run paces attribution samples at Config.IntervalS until the target
// process disappears or ctx is canceled. ErrTargetGone is returned only
// when the target disappeared before a single row was written; once the
// trace has at least one row, disappearance is an orderly exit (nil).
func (s *Sampler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.IntervalS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if !alive(s.cfg.ProcfsPath, s.targetPID) {
				s.logger.Info("target process no longer present, flushing and exiting", "pid", s.targetPID)
				if !s.emittedFirstSample {
					return ErrTargetGone
				}
				return nil
			}

			if err := s.sampleOnce(); err != nil {
				s.logger.Warn("sample skipped", "error", err)
			}
		}
	}
}

func (s *Sampler) sampleOnce() error {
	pkg, dram, err := s.readRapl()
	if err != nil {
		return fmt.Errorf("failed to read rapl energy: %w", err)
	}

	hostSnap, err := s.probe.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read host snapshot: %w", err)
	}

	records, err := s.inventory.Sample(s.targetPID)
	if err != nil {
		s.logger.Warn("thread inventory scan had errors", "error", err)
	}

	threadCPUDelta := map[int]float64{}
	threadCount := map[int]int{}
	for _, rec := range records {
		if rec.Socket == threadinv.UnknownSocket {
			continue // dropped from the numerator: no socket to attribute to
		}
		threadCPUDelta[rec.Socket] += rec.CPUTimeDeltaS
		threadCount[rec.Socket]++
	}

	targetMemMB := map[int]float64{}
	if procMem, err := s.inventory.ProcessMemPerNodeBytes(s.targetPID); err != nil {
		s.logger.Debug("failed to read process numa residency", "error", err)
	} else {
		for node, b := range procMem {
			targetMemMB[node] = float64(b) / bytesPerMB
		}
	}

	now := s.clock.Now()
	in := attribution.Input{
		Timestamp:                   now,
		PrevTimestamp:               s.prevTimestamp,
		Sockets:                     s.reader.Sockets(),
		PackageJoules:               pkg,
		PrevPackageJoules:           s.prevPackageJoules,
		DramJoules:                  dram,
		PrevDramJoules:              s.prevDramJoules,
		DramSupported:               s.dramSupported,
		HostCPUTimePerSocket:        hostSnap.CPUTimePerSocket,
		PrevHostCPUTimePerSocket:    s.prevHostCPUTime,
		HostMemPerNodeMB:            hostSnap.MemPerNodeMB,
		ThreadCPUTimeDeltaPerSocket: threadCPUDelta,
		ThreadCountPerSocket:        threadCount,
		TargetMemPerNodeMB:          targetMemMB,
		Baseline:                    s.baseVal,
		Gamma:                       s.cfg.Gamma,
		Delta:                       s.cfg.Delta,
	}

	result, err := s.engine.Compute(in)
	if err != nil {
		return fmt.Errorf("attribution failed: %w", err)
	}

	if err := s.sink.Write(trace.NewRow(result)); err != nil {
		return fmt.Errorf("failed to write trace row: %w", err)
	}
	s.emittedFirstSample = true

	s.prevTimestamp = now
	s.prevPackageJoules = pkg
	s.prevDramJoules = dram
	s.prevHostCPUTime = hostSnap.CPUTimePerSocket
	return nil
}

// Shutdown flushes and closes the trace sink.
func (s *Sampler) Shutdown() error {
	if s.sink == nil {
		return nil
	}
	return s.sink.Close()
}
