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
	"github.com/slimchain/slimchain/core/tempstate"
	"github.com/slimchain/slimchain/core/types"
)

// Reorg rolls the temp-state ring back to forkHeight (LIFO, per spec
// §4.4 "Fork handling") then replays the winning fork's blocks in
// order, appending a fresh delta per block. tempstate.ErrDivergence
// propagates unchanged when forkHeight lies outside the retained
// window. node.go does not call Reorg.
func Reorg(ring *tempstate.Ring, forkHeight uint64, winningFork []*types.Block) ([]*tempstate.Delta, error) {
	if _, err := ring.Rollback(forkHeight); err != nil {
		return nil, err
	}
	applied := make([]*tempstate.Delta, 0, len(winningFork))
	for _, b := range winningFork {
		d := tempstate.NewDelta(b.Height(), b.Hash(), b.StateRoot())
		for _, p := range b.TxList {
			d.Record(p)
		}
		ring.Append(d)
		applied = append(applied, d)
	}
	return applied, nil
}
