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

// Package tempstate is the rolling window half of the tx state layer
// (C4): a fixed-length ring of per-block deltas sitting atop a
// slower-advancing base, giving miners a cheap bounded-depth reorg and
// letting the SSI conflict check answer "was (A,K) written in
// (R_i, R_j]" without touching full state.
package tempstate

import (
	"errors"
	"sync"

	"github.com/slimchain/slimchain/common"
)

// ErrDivergence is returned when a reorg's fork point lies outside the
// retained window - spec §4.4's "Divergence", a fatal condition the
// caller must halt on, not retry.
var ErrDivergence = errors.New("tempstate: reorg depth exceeds retained window")

// AccountDelta is one account's nonce/code change recorded in a
// block's delta.
type AccountDelta struct {
	Nonce      uint64
	Code       []byte
	CodeWrites bool
}

// Delta is one committed block's effect on state: per-account and
// per-storage-slot changes, keyed the same way StateDB.ApplyWrites
// consumes them.
type Delta struct {
	Height    uint64
	Hash      common.Hash
	StateRoot common.Hash
	Accounts  map[common.Address]AccountDelta
	Storage   map[common.StorageKey]common.Value
}

// NewDelta creates an empty delta for a block about to be applied.
func NewDelta(height uint64, blockHash, stateRoot common.Hash) *Delta {
	return &Delta{
		Height:    height,
		Hash:      blockHash,
		StateRoot: stateRoot,
		Accounts:  make(map[common.Address]AccountDelta),
		Storage:   make(map[common.StorageKey]common.Value),
	}
}

// Ring holds the last L committed block deltas atop a conceptual base
// (the durable full state at height head-L). A miner node's "latest
// state" is base + the sum of every delta currently in the ring.
type Ring struct {
	mu     sync.RWMutex
	length int
	deltas []*Delta // ascending height order, oldest first
	// writeIndex maps a storage key to the heights (within the
	// window) that wrote it, the per-height write-index SSI checks
	// against.
	writeIndex map[common.StorageKey][]uint64
}

// NewRing creates an empty ring retaining at most length deltas
// (config chain.state_len).
func NewRing(length int) *Ring {
	if length <= 0 {
		length = 64
	}
	return &Ring{
		length:     length,
		writeIndex: make(map[common.StorageKey][]uint64),
	}
}

// Len reports the number of deltas currently retained.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.deltas)
}

// HeightRange returns the inclusive [base_height+1, head_height]
// window currently retained, or (0,0,false) if empty.
func (r *Ring) HeightRange() (low, high uint64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.deltas) == 0 {
		return 0, 0, false
	}
	return r.deltas[0].Height, r.deltas[len(r.deltas)-1].Height, true
}

// InWindow reports whether height is still covered by the ring - the
// test an ExecReq's state_root_hint and a TxProposal's
// block_height_seen must both pass to avoid Outdated (spec §4.4/§7).
func (r *Ring) InWindow(height uint64) bool {
	low, high, ok := r.HeightRange()
	if !ok {
		return false
	}
	return height >= low && height <= high
}

// Append commits a new delta at the head of the window per spec
// §4.3's "(1) append delta_H; (2) if ring exceeds L, merge delta_{H-L}
// into base". Merging into a durable base is the caller's
// responsibility (StateDB.Commit already persisted it); Append only
// evicts the oldest entry from the in-memory window and its
// write-index.
func (r *Ring) Append(d *Delta) *Delta {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, d)
	for sk := range d.Storage {
		r.writeIndex[sk] = append(r.writeIndex[sk], d.Height)
	}
	var evicted *Delta
	if len(r.deltas) > r.length {
		evicted = r.deltas[0]
		r.deltas = r.deltas[1:]
		for sk := range evicted.Storage {
			r.writeIndex[sk] = dropHeight(r.writeIndex[sk], evicted.Height)
			if len(r.writeIndex[sk]) == 0 {
				delete(r.writeIndex, sk)
			}
		}
	}
	return evicted
}

func dropHeight(hs []uint64, h uint64) []uint64 {
	out := hs[:0]
	for _, x := range hs {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}

// WrittenSince reports whether key was modified by any delta with
// height in (since, head], the SSI conflict test from spec §4.4.
func (r *Ring) WrittenSince(key common.StorageKey, since uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.writeIndex[key] {
		if h > since {
			return true
		}
	}
	return false
}

// Rollback removes deltas with height > downTo, in LIFO order, the
// first half of spec §4.4's reorg handling. It returns the removed
// deltas in the order they must be replayed against to undo (highest
// first) and ErrDivergence if downTo is older than the retained
// window's base.
func (r *Ring) Rollback(downTo uint64) ([]*Delta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.deltas) > 0 && downTo < r.deltas[0].Height-1 {
		return nil, ErrDivergence
	}
	var removed []*Delta
	for len(r.deltas) > 0 && r.deltas[len(r.deltas)-1].Height > downTo {
		last := r.deltas[len(r.deltas)-1]
		r.deltas = r.deltas[:len(r.deltas)-1]
		removed = append(removed, last)
		for sk := range last.Storage {
			r.writeIndex[sk] = dropHeight(r.writeIndex[sk], last.Height)
			if len(r.writeIndex[sk]) == 0 {
				delete(r.writeIndex, sk)
			}
		}
	}
	return removed, nil
}

// Deltas returns a snapshot of the retained deltas, oldest first.
func (r *Ring) Deltas() []*Delta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Delta, len(r.deltas))
	copy(out, r.deltas)
	return out
}
