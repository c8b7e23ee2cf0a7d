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

package pipeline

import (
	"time"

	"github.com/slimchain/slimchain/core/types"
)

// AssemblyConfig mirrors spec §6's miner.* config: when a block closes
// and how large it may grow.
type AssemblyConfig struct {
	MaxTxs            int
	MinTxs            int
	MaxBlockInterval  time.Duration
}

// ReadyToClose reports whether the pool should close a block now, per
// spec §4.4: "|pool| >= max_txs OR (|pool| >= min_txs AND
// now - first_tx_ts >= max_block_interval)".
func ReadyToClose(cfg AssemblyConfig, pool *Pool, now time.Time) bool {
	entries := pool.Snapshot(0)
	if len(entries) == 0 {
		return false
	}
	if len(entries) >= cfg.MaxTxs {
		return true
	}
	if len(entries) >= cfg.MinTxs && now.Sub(entries[0].FirstSeen) >= cfg.MaxBlockInterval {
		return true
	}
	return false
}

// Assemble selects up to cfg.MaxTxs pending entries in arrival order
// (spec §4.4's ordering rule: "within a block is arrival order") and
// returns their proposals as a tx_list. The pool's own order slice is
// already a strict arrival sequence (appends are mutex-serialized), so
// no further tie-break sort is needed here.
func Assemble(cfg AssemblyConfig, pool *Pool) []*types.TxProposal {
	entries := pool.Snapshot(cfg.MaxTxs)
	txList := make([]*types.TxProposal, len(entries))
	for i, e := range entries {
		txList[i] = e.Proposal
	}
	return txList
}
