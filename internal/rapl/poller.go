// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"context"
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

// Poller drains the Reader's accumulators at a higher rate than the main
// sampling loop, so a counter that wraps faster than the sampling interval
// is still caught (a small rapl_period_s relative to the RAPL hardware's
// wraparound period is the whole point of decoupling the two loops).
type Poller struct {
	reader *Reader
	period time.Duration
	clock  clock.WithTicker
	logger *slog.Logger
}

// PollerOptionFn configures a Poller.
type PollerOptionFn func(*Poller)

// WithPollerClock overrides the clock used to pace polling; tests inject a
// fake clock to avoid real sleeps.
func WithPollerClock(c clock.WithTicker) PollerOptionFn {
	return func(p *Poller) { p.clock = c }
}

// WithPollerLogger sets the poller's logger.
func WithPollerLogger(logger *slog.Logger) PollerOptionFn {
	return func(p *Poller) { p.logger = logger.With("service", "rapl-poller") }
}

// Name identifies the poller as a service.Runner.
func (p *Poller) Name() string { return "rapl-poller" }

// NewPoller creates a Poller that drains reader every period.
func NewPoller(reader *Reader, period time.Duration, opts ...PollerOptionFn) *Poller {
	p := &Poller{
		reader: reader,
		period: period,
		clock:  clock.RealClock{},
		logger: slog.Default().With("service", "rapl-poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drains every socket/domain accumulator once per period until ctx is
// canceled. It never returns an error on a transient read failure: that is
// already absorbed by the accumulator's wrap-correction bookkeeping.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			p.drain()
		}
	}
}

func (p *Poller) drain() {
	for _, socket := range p.reader.Sockets() {
		for _, domain := range []Domain{Package, DRAM} {
			if _, err := p.reader.ReadDomain(socket, domain); err != nil {
				p.logger.Warn("poller drain failed", "socket", socket, "domain", domain, "error", err)
			}
		}
	}
}
