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

// Package version exposes build-time version metadata (set via -ldflags at
// release time) alongside the Go runtime that built the binary. It is
// logged once at startup in every mode, so the log of a run can be traced
// back to the exact joulewatch build; the trace file and the --check table
// do not carry it.
package version

import "runtime"

// component identifies this binary in version/diagnostic output. Unlike
// version/buildTime/gitBranch/gitCommit it is not ldflags-injected: there is
// only ever one binary in this repository, so a constant is simpler than a
// build-time flag that would always carry the same value.
const component = "joulewatch"

var (
	version   string
	buildTime string
	gitBranch string
	gitCommit string
)

// VersionInfo is the full set of build and runtime identifiers logged once
// at startup.
type VersionInfo struct {
	Component string
	Version   string
	BuildTime string
	GitBranch string
	GitCommit string

	GoVersion string
	GoOS      string
	GoArch    string
}

// Info returns the current version information.
func Info() VersionInfo {
	return VersionInfo{
		Component: component,
		Version:   version,
		BuildTime: buildTime,
		GitBranch: gitBranch,
		GitCommit: gitCommit,

		GoVersion: runtime.Version(),
		GoOS:      runtime.GOOS,
		GoArch:    runtime.GOARCH,
	}
}
