// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joulewatch/joulewatch/internal/baseline"
	"github.com/joulewatch/joulewatch/internal/check"
	"github.com/joulewatch/joulewatch/internal/config"
	"github.com/joulewatch/joulewatch/internal/logger"
	"github.com/joulewatch/joulewatch/internal/rapl"
	"github.com/joulewatch/joulewatch/internal/sampler"
	"github.com/joulewatch/joulewatch/internal/service"
	"github.com/joulewatch/joulewatch/internal/version"
)

// Exit codes, per the external interface contract.
const (
	exitOK                  = 0
	exitConfigOrPermission  = 1
	exitUnsupportedHardware = 2
	exitTargetGone          = 3
)

const (
	procfsPath = "/proc"
	sysfsPath  = "/sys"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := parseArgsAndConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigOrPermission
	}

	v := version.Info()
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr,
		slog.String("component", v.Component),
		slog.String("version", v.Version),
	)
	logVersionInfo(log, v)

	switch {
	case cfg.Sampler.Check:
		return runCheck(log)
	case cfg.Sampler.BasePower:
		return runBasePower(log, cfg)
	default:
		return runSample(log, cfg)
	}
}

func logVersionInfo(log *slog.Logger, v version.VersionInfo) {
	log.Info("joulewatch version information",
		"version", v.Version,
		"gitBranch", v.GitBranch,
		"gitCommit", v.GitCommit,
		"buildTime", v.BuildTime,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}

func runCheck(log *slog.Logger) int {
	if err := check.Run(procfsPath, sysfsPath, os.Stdout); err != nil {
		log.Error("check failed", "error", err)
		return exitConfigOrPermission
	}
	return exitOK
}

func runBasePower(log *slog.Logger, cfg *config.Config) int {
	reader := rapl.NewReader(sysfsPath, rapl.WithLogger(log))
	if err := reader.Init(); err != nil {
		log.Error("failed to initialize rapl reader", "error", err)
		return exitUnsupportedHardware
	}
	defer reader.Close()

	cal := baseline.NewCalibrator(reader, baseline.WithCalibratorLogger(log))
	period := time.Duration(cfg.Sampler.BasePeriodS * float64(time.Second))

	log.Info("calibrating idle power baseline", "period", period)
	base, err := cal.Run(context.Background(), period)
	if err != nil {
		log.Error("calibration failed", "error", err)
		return exitConfigOrPermission
	}

	if err := baseline.Save(cfg.Sampler.BaseFile, base, reader.Sockets()); err != nil {
		log.Error("failed to save baseline file", "error", err)
		return exitConfigOrPermission
	}

	log.Info("baseline written", "path", cfg.Sampler.BaseFile)
	return exitOK
}

func runSample(log *slog.Logger, cfg *config.Config) int {
	samp := sampler.New(sampler.Config{
		ProcfsPath:   procfsPath,
		SysfsPath:    sysfsPath,
		PID:          cfg.Sampler.PID,
		Name:         cfg.Sampler.Name,
		IntervalS:    time.Duration(cfg.Sampler.IntervalS * float64(time.Second)),
		RaplPeriodS:  time.Duration(cfg.Sampler.RaplPeriodS * float64(time.Second)),
		Gamma:        cfg.Sampler.Gamma,
		Delta:        cfg.Sampler.Delta,
		OutputPath:   cfg.Sampler.Output,
		BaselinePath: cfg.Sampler.BaseFile,
	}, sampler.WithLogger(log))

	if err := service.Init(log, []service.Service{samp}); err != nil {
		log.Error("failed to initialize sampler", "error", err)
		return exitCodeFor(err)
	}

	services := []service.Service{
		samp,
		samp.Poller(),
		service.NewSignalHandler(os.Interrupt),
	}

	if err := service.Run(context.Background(), log, services); err != nil {
		log.Error("sampler terminated with an error", "error", err)
		return exitCodeFor(err)
	}

	log.Info("graceful shutdown completed")
	return exitOK
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, sampler.ErrUnsupportedHardware):
		return exitUnsupportedHardware
	case errors.Is(err, sampler.ErrTargetGone):
		return exitTargetGone
	default:
		return exitConfigOrPermission
	}
}

func parseArgsAndConfig() (*config.Config, error) {
	app := kingpin.New("joulewatch", "Per-process, per-thread NUMA-aware RAPL energy attribution.")

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app)
	if _, err := app.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	cfg := config.DefaultConfig()
	if *configFile != "" {
		loadedCfg, err := config.FromFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg = loadedCfg
	}

	if err := updateConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply command-line flags: %w", err)
	}

	return cfg, nil
}
