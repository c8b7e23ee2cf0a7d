// Copyright (C) 2019 gyee authors
//
// This file is part of the gyee library.
//
// The gyee library is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gyee library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with the gyee library.  If not, see <http://www.gnu.org/licenses/>.

// Package metrics is the chain-level counterpart to the teacher's
// core/metrics.go: proposal admission counts and block assembly
// latency, built on the same github.com/ethereum/go-ethereum/metrics
// registry the teacher's p2p counters used, registered the same way
// the teacher did - flip metrics.Enabled, then call
// NewRegisteredCounter/Timer. Left untouched, every recorder here is
// nil and every Inc/Update call is a no-op - the concrete shipper
// (StatsD, InfluxDB, an expvar endpoint) is out of scope, so this
// package owns only the counters and the decision of whether they're
// live.
package metrics

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

var (
	mu         sync.Mutex
	accepted   metrics.Counter
	conflicted metrics.Counter
	outdated   metrics.Counter
	assembly   metrics.Timer
)

// Enable activates every counter this package records into, wiring
// them into go-ethereum/metrics's default registry so any of its
// exporters (expvar, a StatsD client) can pick them up. Safe to call
// more than once; only the first call registers anything.
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	if accepted != nil {
		return
	}
	metrics.Enabled = true
	accepted = metrics.NewRegisteredCounter("chain/proposals/accepted", nil)
	conflicted = metrics.NewRegisteredCounter("chain/proposals/conflicted", nil)
	outdated = metrics.NewRegisteredCounter("chain/proposals/outdated", nil)
	assembly = metrics.NewRegisteredTimer("chain/block/assembly", nil)
}

// IncAccepted counts one proposal admitted past conflict checking into
// an assembled block.
func IncAccepted() {
	if accepted != nil {
		accepted.Inc(1)
	}
}

// IncConflicted counts one pipeline.ErrConflict admission rejection.
func IncConflicted() {
	if conflicted != nil {
		conflicted.Inc(1)
	}
}

// IncOutdated counts one pipeline.ErrOutdated admission rejection.
func IncOutdated() {
	if outdated != nil {
		outdated.Inc(1)
	}
}

// TimeAssembly records the wall-clock duration of one tryCloseBlock
// call that produced and committed a block.
func TimeAssembly(d time.Duration) {
	if assembly != nil {
		assembly.Update(d)
	}
}
