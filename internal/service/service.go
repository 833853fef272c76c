// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

// Package service wires joulewatch's long-running pieces, the sampler, the
// RAPL poller, and the interrupt handler, into one lifecycle: Init runs
// once before anything starts sampling, Run drives them concurrently until
// the target exits or a signal arrives, and Shutdown is given a chance to
// flush whatever each service is holding (most importantly, the trace
// sink) no matter which of the three stops first.
package service

import "context"

// Service is the minimal interface every component in the run group
// implements: a name, used only for logging which service did what.
type Service interface {
	Name() string
}

// Initializer is implemented by a service that has one-time setup to run
// before Run starts: the sampler's topology discovery, RAPL zone
// enumeration, and initial calibrated snapshot all happen here.
type Initializer interface {
	Service
	Init() error
}

// Runner is implemented by a service with a blocking main loop: the
// sampler's attribution loop, the RAPL poller, and the signal handler are
// all Runners. Run must respect ctx cancellation.
type Runner interface {
	Service
	Run(ctx context.Context) error
}

// Shutdowner is implemented by a service that holds something to release
// when the run group stops, regardless of which service stopped it: the
// sampler's Shutdown flushes and closes the trace file.
type Shutdowner interface {
	Service
	Shutdown() error
}
