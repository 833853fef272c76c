// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

// SignalHandler is a Runner whose only job is to turn an OS signal into a
// run-group exit: its Run returning nil is what gives the sampler and
// poller a chance to shut down in response to an operator-initiated stop,
// rather than being killed mid-write.
type SignalHandler struct {
	signals []os.Signal
}

// NewSignalHandler watches for the given signals (os.Interrupt in
// cmd/joulewatch/main.go).
func NewSignalHandler(signals ...os.Signal) *SignalHandler {
	return &SignalHandler{
		signals: signals,
	}
}

func (sh *SignalHandler) Name() string {
	return "signal-handler"
}

// Run blocks until a watched signal arrives or ctx is canceled by a
// sibling service stopping first. It performs no work of its own beyond
// the channel receive, so the actual trace flush happens in the sampler's
// Shutdown, driven by Run's interrupt callback.
func (sh *SignalHandler) Run(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, sh.signals...)
	fmt.Println("Press Ctrl+C to stop sampling; the trace written so far will be flushed before exit.")

	select {
	case <-c:
		return nil

	case <-ctx.Done():
		return ctx.Err()
	}
}
