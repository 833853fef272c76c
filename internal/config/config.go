/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	Sampler struct {
		Check     bool   `yaml:"-"`
		BasePower bool   `yaml:"-"`
		PID       int    `yaml:"pid"`
		Name      string `yaml:"name"`

		Output       string  `yaml:"output"`
		BaseFile     string  `yaml:"basefile"`
		BasePeriodS  float64 `yaml:"base_period"`
		RaplPeriodS  float64 `yaml:"rapl_period"`
		IntervalS    float64 `yaml:"interval"`
		Gamma        float64 `yaml:"gamma"`
		Delta        float64 `yaml:"delta"`
	}

	Config struct {
		Log     Log     `yaml:"log"`
		Sampler Sampler `yaml:"sampler"`
	}
)

const (
	// Flags
	LogLevelFlag = "loglvl"

	CheckFlag       = "check"
	BasePowerFlag   = "basepower"
	PIDFlag         = "pid"
	NameFlag        = "name"
	OutputFlag      = "output"
	BaseFileFlag    = "basefile"
	BasePeriodFlag  = "base_period"
	RaplPeriodFlag  = "rapl_period"
	IntervalFlag    = "interval"
	GammaFlag       = "gamma"
	DeltaFlag       = "delta"
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Sampler: Sampler{
			Output:      "trace.csv",
			BaseFile:    "baseline.json",
			BasePeriodS: 2.0,
			RaplPeriodS: 0.01,
			IntervalS:   1.0,
			Gamma:       0.3,
			Delta:       0.2,
		},
	}
}

// Load loads configuration from an io.Reader.
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromFile loads configuration from a file.
func FromFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Load(file)
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app and returns a
// ConfigUpdaterFn that updates the config from parsed flags, since command
// line arguments override config file settings only when explicitly passed.
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	// track flags that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}

		for _, element := range ctx.Elements {
			if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
				flagsSet[flag.Model().Name] = true
			}
		}
		return nil
	})

	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")

	check := app.Flag(CheckFlag, "Print a topology/permissions diagnostic and exit").Bool()
	basePower := app.Flag(BasePowerFlag, "Run idle-power calibration, write the baseline file, and exit").Bool()
	pid := app.Flag(PIDFlag, "Attach to this target process ID").Int()
	name := app.Flag(NameFlag, "Attach to the first process whose executable name matches").String()
	output := app.Flag(OutputFlag, "Path to the output CSV trace file").Default("trace.csv").String()
	baseFile := app.Flag(BaseFileFlag, "Path to the idle-power baseline JSON file").Default("baseline.json").String()
	basePeriod := app.Flag(BasePeriodFlag, "Quiet-window duration, in seconds, used by --basepower").Default("2.0").Float64()
	raplPeriod := app.Flag(RaplPeriodFlag, "Spacing, in seconds, between RAPL polls").Default("0.01").Float64()
	interval := app.Flag(IntervalFlag, "Spacing, in seconds, between attribution samples").Default("1.0").Float64()
	gamma := app.Flag(GammaFlag, "CPU power-law exponent").Default("0.3").Float64()
	delta := app.Flag(DeltaFlag, "DRAM power-law exponent").Default("0.2").Float64()

	return func(cfg *Config) error {
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}

		if flagsSet[CheckFlag] {
			cfg.Sampler.Check = *check
		}
		if flagsSet[BasePowerFlag] {
			cfg.Sampler.BasePower = *basePower
		}
		if flagsSet[PIDFlag] {
			cfg.Sampler.PID = *pid
		}
		if flagsSet[NameFlag] {
			cfg.Sampler.Name = *name
		}
		if flagsSet[OutputFlag] {
			cfg.Sampler.Output = *output
		}
		if flagsSet[BaseFileFlag] {
			cfg.Sampler.BaseFile = *baseFile
		}
		if flagsSet[BasePeriodFlag] {
			cfg.Sampler.BasePeriodS = *basePeriod
		}
		if flagsSet[RaplPeriodFlag] {
			cfg.Sampler.RaplPeriodS = *raplPeriod
		}
		if flagsSet[IntervalFlag] {
			cfg.Sampler.IntervalS = *interval
		}
		if flagsSet[GammaFlag] {
			cfg.Sampler.Gamma = *gamma
		}
		if flagsSet[DeltaFlag] {
			cfg.Sampler.Delta = *delta
		}

		cfg.sanitize()
		return cfg.Validate()
	}
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.Sampler.Name = strings.TrimSpace(c.Sampler.Name)
	c.Sampler.Output = strings.TrimSpace(c.Sampler.Output)
	c.Sampler.BaseFile = strings.TrimSpace(c.Sampler.BaseFile)
}

// Validate checks for configuration errors.
func (c *Config) Validate() error {
	var errs []string
	{ // log level
		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if _, valid := validLogLevels[c.Log.Level]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		validFormats := map[string]bool{
			"text": true,
			"json": true,
		}
		if _, valid := validFormats[c.Log.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}
	{ // sampler periods and exponents
		if c.Sampler.IntervalS <= 0 {
			errs = append(errs, "interval must be > 0")
		}
		if c.Sampler.RaplPeriodS <= 0 {
			errs = append(errs, "rapl_period must be > 0")
		}
		if c.Sampler.BasePeriodS <= 0 {
			errs = append(errs, "base_period must be > 0")
		}
		if c.Sampler.Gamma <= 0 || c.Sampler.Gamma > 1 {
			errs = append(errs, "gamma must be in (0, 1]")
		}
		if c.Sampler.Delta <= 0 || c.Sampler.Delta > 1 {
			errs = append(errs, "delta must be in (0, 1]")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

func (c *Config) String() string {
	bytes, err := yaml.Marshal(c)
	if err == nil {
		return string(bytes)
	}
	// NOTE: this code path should not happen, but if yaml.Marshal fails for
	// some reason, build the string manually.
	return c.manualString()
}

func (c *Config) manualString() string {
	cfgs := []struct {
		Name  string
		Value string
	}{
		{LogLevelFlag, c.Log.Level},
		{PIDFlag, fmt.Sprintf("%d", c.Sampler.PID)},
		{NameFlag, c.Sampler.Name},
		{OutputFlag, c.Sampler.Output},
		{BaseFileFlag, c.Sampler.BaseFile},
	}
	sb := strings.Builder{}

	for _, cfg := range cfgs {
		sb.WriteString(cfg.Name)
		sb.WriteString(": ")
		sb.WriteString(cfg.Value)
		sb.WriteString("\n")
	}

	return sb.String()
}
