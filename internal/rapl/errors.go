// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import "errors"

// errTransientRead is returned by fakeZone when FailNextRead has armed a
// simulated single-read failure (the sysfs-backed zone returns the
// underlying read error instead). The accumulator absorbs any read error by
// serving the last-known value and folding the missed interval into the
// next successful delta.
var errTransientRead = errors.New("transient rapl read error")
