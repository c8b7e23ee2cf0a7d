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

package state

import (
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/tempstate"
)

// AccessMap is the Go counterpart to the original SlimChain's
// access_map.rs: a reverse index, per address and per storage key, of
// which retained block heights still write it. It exists only to
// drive pruning - conflict checking already gets its own write index
// from tempstate.Ring - so unlike access_map.rs it tracks writes only,
// not reads: a read never keeps a trie node alive on its own.
//
// tempstate.Ring holds the window of deltas directly (im::Vector in
// the original); AccessMap instead mirrors acc_rev_access_map.rs's
// per-key BlockHeightList, letting Evict answer "is this still
// referenced" with a map lookup instead of a scan of the ring.
type AccessMap struct {
	nonceHeights   map[common.Address][]uint64
	codeHeights    map[common.Address][]uint64
	storageHeights map[common.StorageKey][]uint64
}

// NewAccessMap creates an empty reverse index.
func NewAccessMap() *AccessMap {
	return &AccessMap{
		nonceHeights:   make(map[common.Address][]uint64),
		codeHeights:    make(map[common.Address][]uint64),
		storageHeights: make(map[common.StorageKey][]uint64),
	}
}

// PruningData is access_map/pruning.rs's PruningData: the addresses
// and storage keys a just-evicted height wrote that no other retained
// height writes anymore, and which are therefore safe to reclaim from
// the node store.
type PruningData struct {
	Nonces  []common.Address
	Code    []common.Address
	Storage []common.StorageKey
}

// Empty reports a PruningData with nothing to reclaim.
func (p PruningData) Empty() bool {
	return len(p.Nonces) == 0 && len(p.Code) == 0 && len(p.Storage) == 0
}

// Record folds a newly committed delta into the reverse index at
// height - access_map.rs's add_write, called once per block as it
// enters the retained window, before Ring.Append can ever evict it.
func (m *AccessMap) Record(height uint64, d *tempstate.Delta) {
	for addr, acc := range d.Accounts {
		m.nonceHeights[addr] = append(m.nonceHeights[addr], height)
		if acc.CodeWrites {
			m.codeHeights[addr] = append(m.codeHeights[addr], height)
		}
	}
	for sk := range d.Storage {
		m.storageHeights[sk] = append(m.storageHeights[sk], height)
	}
}

// Evict removes height from every key d wrote and reports which of
// them have no remaining retained writer - access_map.rs's
// remove_oldest_block, applied to one evicted delta at a time. A key
// rewritten at a later retained height keeps that later height in its
// list and is correctly reported as still referenced.
func (m *AccessMap) Evict(height uint64, d *tempstate.Delta) PruningData {
	var pd PruningData
	for addr, acc := range d.Accounts {
		if dropHeight(m.nonceHeights, addr, height) {
			pd.Nonces = append(pd.Nonces, addr)
		}
		if acc.CodeWrites && dropHeight(m.codeHeights, addr, height) {
			pd.Code = append(pd.Code, addr)
		}
	}
	for sk := range d.Storage {
		if dropStorageHeight(m.storageHeights, sk, height) {
			pd.Storage = append(pd.Storage, sk)
		}
	}
	return pd
}

// dropHeight removes height from idx[key]'s list, deleting the entry
// and reporting true once the list empties out.
func dropHeight(idx map[common.Address][]uint64, key common.Address, height uint64) bool {
	hs := without(idx[key], height)
	if len(hs) == 0 {
		delete(idx, key)
		return true
	}
	idx[key] = hs
	return false
}

func dropStorageHeight(idx map[common.StorageKey][]uint64, key common.StorageKey, height uint64) bool {
	hs := without(idx[key], height)
	if len(hs) == 0 {
		delete(idx, key)
		return true
	}
	idx[key] = hs
	return false
}

func without(hs []uint64, height uint64) []uint64 {
	out := hs[:0]
	for _, h := range hs {
		if h != height {
			out = append(out, h)
		}
	}
	return out
}
