// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/oklog/run"
)

// Run drives every service's Runner concurrently in an oklog/run group:
// the sampler's attribution loop, the RAPL poller, and the signal handler
// race each other, and whichever returns first (the target exiting, the
// poller erroring, Ctrl+C) cancels ctx for the rest and runs every
// Shutdowner in turn. This is what turns "sampler returned nil" or
// "signal handler caught SIGINT" into an orderly, trace-flushing exit
// instead of an abrupt process kill.
func Run(outer context.Context, logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	logger.Info("starting service run group", "services", len(services))
	ctx, cancel := context.WithCancel(outer)
	defer cancel()
	var g run.Group

	for _, s := range services {
		runner, ok := s.(Runner)
		if !ok {
			logger.Warn("skipping non-runner service", "service", s.Name())
			continue
		}

		svc := s
		r := runner
		g.Add(
			func() error {
				logger.Info("service running", "service", svc.Name())
				return r.Run(ctx)
			},
			func(err error) {
				cancel()
				if err != nil {
					logger.Warn("service stopped", "service", svc.Name(), "reason", err)
				}

				shutdowner, ok := svc.(Shutdowner)
				if !ok {
					logger.Debug("skipping service shutdown", "service", svc.Name(),
						"reason", "service does not implement Shutdowner interface")
					return
				}

				logger.Info("flushing and shutting down service", "service", svc.Name())
				if shutdownErr := shutdowner.Shutdown(); shutdownErr != nil {
					logger.Warn("service shutdown failed", "service", svc.Name(), "error", shutdownErr)
				}
			},
		)
	}

	return g.Run()
}
