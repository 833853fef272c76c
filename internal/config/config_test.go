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
	"os"
	"strings"
	"testing"

	"github.com/alecthomas/kingpin/v2"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "trace.csv", cfg.Sampler.Output)
	assert.Equal(t, "baseline.json", cfg.Sampler.BaseFile)
	assert.Equal(t, 2.0, cfg.Sampler.BasePeriodS)
	assert.Equal(t, 0.01, cfg.Sampler.RaplPeriodS)
	assert.Equal(t, 1.0, cfg.Sampler.IntervalS)
	assert.Equal(t, 0.3, cfg.Sampler.Gamma)
	assert.Equal(t, 0.2, cfg.Sampler.Delta)
}

func TestLoadFromYAML(t *testing.T) {
	yamlData := `
log:
  level: debug
  format: json
sampler:
  pid: 1234
  gamma: 0.5
`
	reader := strings.NewReader(yamlData)
	cfg, err := Load(reader)
	assert.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 1234, cfg.Sampler.PID)
	assert.Equal(t, 0.5, cfg.Sampler.Gamma)
}

func TestLoadEmptyFromYAML(t *testing.T) {
	yamlData := ``
	reader := strings.NewReader(yamlData)
	cfg, err := Load(reader)
	assert.NoError(t, err)

	defaultCfg := DefaultConfig()
	assert.Equal(t, defaultCfg.Log.Level, cfg.Log.Level)
	assert.Equal(t, defaultCfg.Sampler.IntervalS, cfg.Sampler.IntervalS)
}

func TestCommandLinePrecedence(t *testing.T) {
	yamlData := `
log:
  level: info
sampler:
  interval: 1.0
`
	reader := strings.NewReader(yamlData)
	cfg, err := Load(reader)
	assert.Equal(t, "info", cfg.Log.Level, "Must read YAML file")
	assert.NoError(t, err)

	app := kingpin.New("test", "Test application")
	updateConfig := RegisterFlags(app)
	assert.Equal(t, "info", cfg.Log.Level, "Must not change YAML values until updateConfig is called")

	_, err = app.Parse([]string{"--loglvl=debug", "--interval=2.5"})
	assert.NoError(t, err)

	err = updateConfig(cfg)
	assert.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level, "Command line should override YAML value")
	assert.Equal(t, 2.5, cfg.Sampler.IntervalS, "Command line should override YAML value")
	assert.Equal(t, "text", cfg.Log.Format, "Default value should not be overridden")
}

func TestPartialConfig(t *testing.T) {
	yamlData := `
log:
  level: warn
`
	reader := strings.NewReader(yamlData)
	cfg, err := Load(reader)
	assert.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestWhitespaceHandling(t *testing.T) {
	yamlData := `
log:
  level: "  debug  "
  format: "  json  "
sampler:
  name: "  myapp  "
`
	reader := strings.NewReader(yamlData)
	cfg, err := Load(reader)
	assert.NoError(t, err)

	cfg.sanitize()

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "myapp", cfg.Sampler.Name)
}

func TestFromRealFile(t *testing.T) {
	yamlData := `
log:
  level: debug
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	assert.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.Write([]byte(yamlData))
	assert.NoError(t, err)
	assert.NoError(t, tmpfile.Close())

	cfg, err := FromFile(tmpfile.Name())
	assert.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestInvalidYAML(t *testing.T) {
	yamlData := `
log:
  level: FATAL
invalid yaml
`
	reader := strings.NewReader(yamlData)
	_, err := Load(reader)
	assert.Error(t, err, "Loading invalid YAML should return an error")
}

func TestInvalidFile(t *testing.T) {
	_, err := FromFile("non_existent_file.yaml")
	assert.Error(t, err, "Loading from non-existent file should return an error")
}

// ErrorReader is a mock io.Reader that always returns an error.
type ErrorReader struct{}

func (r *ErrorReader) Read(p []byte) (n int, err error) {
	return 0, os.ErrInvalid
}

func TestReadError(t *testing.T) {
	reader := &ErrorReader{}
	_, err := Load(reader)
	assert.Error(t, err, "Read error should propagate")
}

func TestInvalidConfigurationValues(t *testing.T) {
	// --loglvl is enum-restricted by kingpin itself, so an invalid log level
	// can only reach Validate via a YAML file; the other two flags are
	// unrestricted numeric flags, so they reach Validate from the CLI too.
	tt := []struct {
		name          string
		args          []string
		expectedError string
	}{
		{"invalid gamma", []string{"--gamma=1.5"}, "gamma must be in"},
		{"invalid interval", []string{"--interval=0"}, "interval must be > 0"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			app := kingpin.New("test", "Test application")
			updateConfig := RegisterFlags(app)
			_, parseErr := app.Parse(tc.args)
			assert.NoError(t, parseErr)

			cfg := DefaultConfig()
			err := updateConfig(cfg)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedError)
		})
	}
}

func TestInvalidLogLevelFromYAML(t *testing.T) {
	reader := strings.NewReader("log:\n  level: FATAL\n")
	_, err := Load(reader)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestPIDAndNameFlags(t *testing.T) {
	app := kingpin.New("test", "Test application")
	updateConfig := RegisterFlags(app)

	_, err := app.Parse([]string{"--pid=4242"})
	assert.NoError(t, err)

	cfg := DefaultConfig()
	assert.NoError(t, updateConfig(cfg))
	assert.Equal(t, 4242, cfg.Sampler.PID)
	assert.Empty(t, cfg.Sampler.Name)
}

func TestCheckAndBasePowerFlags(t *testing.T) {
	app := kingpin.New("test", "Test application")
	updateConfig := RegisterFlags(app)

	_, err := app.Parse([]string{"--check"})
	assert.NoError(t, err)

	cfg := DefaultConfig()
	assert.NoError(t, updateConfig(cfg))
	assert.True(t, cfg.Sampler.Check)
	assert.False(t, cfg.Sampler.BasePower)
}
